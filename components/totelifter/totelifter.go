// Package totelifter implements the tote lifter, which extends or retracts for a fixed time
// and then stops on its own.
package totelifter

import (
	"context"
	"time"

	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/motor"
)

// Defaults for Config.
const (
	DefaultExtend      = 0.5
	DefaultRetract     = -0.5
	DefaultExtendTime  = time.Second
	DefaultRetractTime = time.Second
)

// Config tunes the lifter.
type Config struct {
	Extend      float64
	Retract     float64
	ExtendTime  time.Duration
	RetractTime time.Duration
}

func (c Config) withDefaults() Config {
	if c.Extend == 0 {
		c.Extend = DefaultExtend
	}
	if c.Retract == 0 {
		c.Retract = DefaultRetract
	}
	if c.ExtendTime <= 0 {
		c.ExtendTime = DefaultExtendTime
	}
	if c.RetractTime <= 0 {
		c.RetractTime = DefaultRetractTime
	}
	return c
}

// ToteLifter is the tote lifter actor handler.
type ToteLifter struct {
	cfg    Config
	motor  motor.Motor
	motion *components.Motion
}

// New returns a stopped lifter driving m.
func New(cfg Config, m motor.Motor, deps components.Deps) *ToteLifter {
	return &ToteLifter{
		cfg:    cfg.withDefaults(),
		motor:  m,
		motion: components.NewMotion("totelifter", deps),
	}
}

// Moving reports whether an extend or retract is in progress.
func (l *ToteLifter) Moving() bool {
	return l.motion.Active()
}

// OnModeChange stops the lifter.
func (l *ToteLifter) OnModeChange(ctx context.Context, msg message.Message) {
	l.motion.Cancel("mode change")
	l.motor.SetPower(motor.Neutral)
}

// OnCommand handles extend and retract.
func (l *ToteLifter) OnCommand(ctx context.Context, msg message.Message) {
	switch msg.Command {
	case message.ToteLifterExtend:
		l.run(msg, l.cfg.Extend, l.cfg.ExtendTime)
	case message.ToteLifterRetract:
		l.run(msg, l.cfg.Retract, l.cfg.RetractTime)
	case message.AutonomousComplete:
		l.OnModeChange(ctx, msg)
	default:
	}
}

// Step stops the lifter once its time is up.
func (l *ToteLifter) Step(ctx context.Context) {
	l.motion.Step()
}

func (l *ToteLifter) run(msg message.Message, power float64, d time.Duration) {
	l.motion.Cancel("preempted by " + msg.Command.String())
	l.motor.SetPower(power)
	l.motion.Start(msg, components.Bound{Timeout: d, SucceedOnTimeout: true}, func(bool) {
		l.motor.SetPower(motor.Neutral)
	})
}
