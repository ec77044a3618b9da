// Package canlifter implements the can lifter, a single motor travelling between hall effect
// limits with an optional mid-height sensor.
package canlifter

import (
	"context"
	"time"

	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/motor"
	"go.viam.com/rhsrobot/sensor"
	"go.viam.com/rhsrobot/statemachine"
)

// Defaults for Config.
const (
	DefaultRaise         = 1.0
	DefaultLower         = -1.0
	DefaultMotionTimeout = 5 * time.Second
)

// Config tunes the lifter.
type Config struct {
	Rates         statemachine.Rates
	SafetyCeiling time.Duration
	// MotionTimeout bounds synchronous travel.
	MotionTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Rates.Raise == 0 {
		c.Rates.Raise = DefaultRaise
	}
	if c.Rates.Lower == 0 {
		c.Rates.Lower = DefaultLower
	}
	if c.MotionTimeout <= 0 {
		c.MotionTimeout = DefaultMotionTimeout
	}
	return c
}

// Hardware is what the lifter owns. Mid trips at the height the can clears a stack.
type Hardware struct {
	Motor  motor.Motor
	Top    sensor.Digital
	Bottom sensor.Digital
	Mid    sensor.Digital
}

// CanLifter is the can lifter actor handler.
type CanLifter struct {
	cfg    Config
	hw     Hardware
	mech   *statemachine.Mechanism
	motion *components.Motion
	logger logging.Logger

	numTotes int
}

// New returns a stopped lifter.
func New(cfg Config, hw Hardware, deps components.Deps) *CanLifter {
	deps = deps.WithDefaults("canlifter")
	cfg = cfg.withDefaults()
	observer := deps.Observer
	return &CanLifter{
		cfg: cfg,
		hw:  hw,
		mech: statemachine.NewMechanism("canlifter", hw.Motor, hw.Top, hw.Bottom, statemachine.MechanismConfig{
			Rates:         cfg.Rates,
			SafetyCeiling: cfg.SafetyCeiling,
			Clock:         deps.Clock,
			OnSafetyTrip:  func() { observer.SafetyTripped("canlifter") },
		}, deps.Logger),
		motion: components.NewMotion("canlifter", deps),
		logger: deps.Logger,
	}
}

// State returns the lifter's travel state.
func (c *CanLifter) State() statemachine.State {
	return c.mech.State()
}

// NumTotes returns the stack height of the last tote command.
func (c *CanLifter) NumTotes() int {
	return c.numTotes
}

// OnModeChange drives the lifter to neutral.
func (c *CanLifter) OnModeChange(ctx context.Context, msg message.Message) {
	c.motion.Cancel("mode change")
	c.mech.Neutral()
}

// OnCommand handles lifter commands.
func (c *CanLifter) OnCommand(ctx context.Context, msg message.Message) {
	switch msg.Command {
	case message.CanLifterRaise:
		c.motion.Cancel("manual raise")
		c.mech.Raise()
	case message.CanLifterLower:
		c.motion.Cancel("manual lower")
		c.mech.Lower()
	case message.CanLifterStop, message.AutonomousComplete:
		c.motion.Cancel(msg.Command.String())
		c.mech.Stop()
	case message.CanLifterRaiseTotes, message.CanLifterStartRaiseTotes:
		c.numTotes = msg.Params.CanLifter.NumTotes
		c.logger.CDebugw(ctx, "raising totes", "num_totes", c.numTotes)
		c.travel(msg, c.mech.Raise, c.atState(statemachine.Top))
	case message.CanLifterClawToTop:
		c.travel(msg, c.mech.Raise, c.atState(statemachine.Top))
	case message.CanLifterLowerTotes, message.CanLifterClawToBottom:
		c.travel(msg, c.mech.Lower, c.atState(statemachine.Bottom))
	case message.CanLifterRaiseLoMid:
		c.travel(msg, c.mech.Raise, c.atMid)
	case message.CanLifterLowerHiMid:
		c.travel(msg, c.mech.Lower, c.atMid)
	default:
	}
}

// Step moves the lifter and answers a travel request once it arrives.
func (c *CanLifter) Step(ctx context.Context) {
	if c.mech.Step() == statemachine.EventSafetyTrip {
		c.motion.Cancel("safety timer")
		return
	}
	c.motion.Step()
}

func (c *CanLifter) atState(s statemachine.State) func() bool {
	return func() bool { return c.mech.State() == s }
}

func (c *CanLifter) atMid() bool {
	return c.hw.Mid != nil && c.hw.Mid.Get()
}

// travel starts moving and answers msg when done reports arrival. Arriving at the mid sensor
// stops the lifter there; the limits stop it on their own.
func (c *CanLifter) travel(msg message.Message, move func(), done func() bool) {
	c.motion.Cancel("preempted by " + msg.Command.String())
	move()
	c.motion.Start(msg, components.Bound{Done: done, Timeout: c.cfg.MotionTimeout}, func(ok bool) {
		if s := c.mech.State(); s == statemachine.Raising || s == statemachine.Lowering {
			c.mech.Stop()
		}
	})
}
