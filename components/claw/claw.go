// Package claw implements the pallet jack claw. It runs until told to stop, the motor draws
// more than its current limit or the safety timer expires.
package claw

import (
	"context"
	"time"

	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/motor"
	"go.viam.com/rhsrobot/statemachine"
)

// Defaults for Config.
const (
	DefaultOpen       = -1.0
	DefaultClose      = 0.5
	DefaultCurrentMax = 30.0
)

// Config tunes the claw.
type Config struct {
	Open          float64
	Close         float64
	CurrentMax    float64
	SafetyCeiling time.Duration
}

// Claw is the claw actor handler.
type Claw struct {
	cfg      Config
	motor    motor.Motor
	timer    *statemachine.SafetyTimer
	observer components.Observer
	logger   logging.Logger
}

// New returns a stopped claw driving m.
func New(cfg Config, m motor.Motor, deps components.Deps) *Claw {
	deps = deps.WithDefaults("claw")
	if cfg.Open == 0 {
		cfg.Open = DefaultOpen
	}
	if cfg.Close == 0 {
		cfg.Close = DefaultClose
	}
	if cfg.CurrentMax <= 0 {
		cfg.CurrentMax = DefaultCurrentMax
	}
	return &Claw{
		cfg:      cfg,
		motor:    m,
		timer:    statemachine.NewSafetyTimer(deps.Clock, cfg.SafetyCeiling),
		observer: deps.Observer,
		logger:   deps.Logger,
	}
}

// OnModeChange stops the claw.
func (c *Claw) OnModeChange(ctx context.Context, msg message.Message) {
	c.set(motor.Neutral)
}

// OnCommand handles claw commands.
func (c *Claw) OnCommand(ctx context.Context, msg message.Message) {
	switch msg.Command {
	case message.ClawOpen:
		c.set(c.cfg.Open)
	case message.ClawClose:
		c.set(c.cfg.Close)
	case message.ClawStop, message.AutonomousComplete:
		c.set(motor.Neutral)
	default:
	}
}

// Step enforces the current limit and the safety timer.
func (c *Claw) Step(ctx context.Context) {
	if c.motor.Power() == motor.Neutral {
		return
	}
	if amps := c.motor.Current(); amps > c.cfg.CurrentMax {
		c.logger.Warnw("claw over current, stopping", "current", amps, "max", c.cfg.CurrentMax)
		c.set(motor.Neutral)
		return
	}
	if c.timer.CheckAndReset() {
		c.logger.Warnw("safety timer expired, forcing neutral", "mechanism", "claw", "ceiling", c.timer.Ceiling())
		c.motor.SetPower(motor.Neutral)
		c.observer.SafetyTripped("claw")
	}
}

func (c *Claw) set(power float64) {
	c.timer.Reset()
	c.motor.SetPower(power)
}
