// Package canarm implements the can arm, which swings open or closed for a fixed time or until
// the motor stalls against its stop.
package canarm

import (
	"context"
	"time"

	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/motor"
)

// Defaults for Config.
const (
	DefaultOpen       = -0.65
	DefaultClose      = 0.65
	DefaultCurrentMax = 19.0
	DefaultMotionTime = time.Second
)

// Config tunes the arm.
type Config struct {
	Open       float64
	Close      float64
	CurrentMax float64
	MotionTime time.Duration
}

func (c Config) withDefaults() Config {
	if c.Open == 0 {
		c.Open = DefaultOpen
	}
	if c.Close == 0 {
		c.Close = DefaultClose
	}
	if c.CurrentMax <= 0 {
		c.CurrentMax = DefaultCurrentMax
	}
	if c.MotionTime <= 0 {
		c.MotionTime = DefaultMotionTime
	}
	return c
}

// CanArm is the can arm actor handler.
type CanArm struct {
	cfg    Config
	motor  motor.Motor
	motion *components.Motion
	logger logging.Logger
}

// New returns a stopped arm driving m.
func New(cfg Config, m motor.Motor, deps components.Deps) *CanArm {
	deps = deps.WithDefaults("canarm")
	return &CanArm{
		cfg:    cfg.withDefaults(),
		motor:  m,
		motion: components.NewMotion("canarm", deps),
		logger: deps.Logger,
	}
}

// OnModeChange stops the arm.
func (a *CanArm) OnModeChange(ctx context.Context, msg message.Message) {
	a.stop("mode change")
}

// OnCommand handles arm commands.
func (a *CanArm) OnCommand(ctx context.Context, msg message.Message) {
	switch msg.Command {
	case message.CanArmOpen:
		a.swing(msg, a.cfg.Open)
	case message.CanArmClose:
		a.swing(msg, a.cfg.Close)
	case message.CanArmStop, message.AutonomousComplete:
		a.stop(msg.Command.String())
	default:
	}
}

// Step ends the swing once its time is up or the motor stalls.
func (a *CanArm) Step(ctx context.Context) {
	a.motion.Step()
}

func (a *CanArm) stop(reason string) {
	a.motion.Cancel(reason)
	a.motor.SetPower(motor.Neutral)
}

func (a *CanArm) stalled() bool {
	if amps := a.motor.Current(); amps > a.cfg.CurrentMax {
		a.logger.Infow("can arm stalled", "current", amps, "max", a.cfg.CurrentMax)
		return true
	}
	return false
}

func (a *CanArm) swing(msg message.Message, power float64) {
	a.motion.Cancel("preempted by " + msg.Command.String())
	a.motor.SetPower(power)
	a.motion.Start(msg, components.Bound{
		Done:             a.stalled,
		Timeout:          a.cfg.MotionTime,
		SucceedOnTimeout: true,
	}, func(bool) { a.motor.SetPower(motor.Neutral) })
}
