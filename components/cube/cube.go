// Package cube implements the tote stacking cube: an intake roller, a clicker that lifts each
// tote off the floor of the cube and a bin lifter that raises the finished stack. In
// auto-cycle the clicker and the lifter run two cooperating state machines stepped at a fixed
// interval.
package cube

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/motor"
	"go.viam.com/rhsrobot/sensor"
	"go.viam.com/rhsrobot/statemachine"
)

// MaxTotes is the height of a full stack.
const MaxTotes = 6

// liftAt is the tote count at which the clicker waits for the lifter to take the stack.
const liftAt = MaxTotes - 1

// Defaults for Config.
const (
	DefaultClickerRaise   = 1.0
	DefaultClickerLower   = -1.0
	DefaultClickerTopHold = 0.1
	DefaultLifterRaise    = -1.0
	DefaultLifterLower    = 1.0
	DefaultIntakeRun      = -0.5
	DefaultCycleDelay     = 2500 * time.Millisecond
	DefaultStepInterval   = 20 * time.Millisecond
)

// Config tunes the cube.
type Config struct {
	ClickerRaise   float64
	ClickerLower   float64
	ClickerTopHold float64
	LifterRaise    float64
	LifterLower    float64
	IntakeRun      float64
	// CycleDelay is the pause after a full stack leaves before clicking starts again.
	CycleDelay    time.Duration
	StepInterval  time.Duration
	SafetyCeiling time.Duration
}

func (c Config) withDefaults() Config {
	def := func(v *float64, d float64) {
		if *v == 0 {
			*v = d
		}
	}
	def(&c.ClickerRaise, DefaultClickerRaise)
	def(&c.ClickerLower, DefaultClickerLower)
	def(&c.ClickerTopHold, DefaultClickerTopHold)
	def(&c.LifterRaise, DefaultLifterRaise)
	def(&c.LifterLower, DefaultLifterLower)
	def(&c.IntakeRun, DefaultIntakeRun)
	if c.CycleDelay <= 0 {
		c.CycleDelay = DefaultCycleDelay
	}
	if c.StepInterval <= 0 {
		c.StepInterval = DefaultStepInterval
	}
	return c
}

// Hardware is what the cube owns. IRBeam trips while a tote sits in the intake.
type Hardware struct {
	Clicker       motor.Motor
	Lifter        motor.Motor
	Intake        motor.Motor
	ClickerTop    sensor.Digital
	ClickerBottom sensor.Digital
	LifterTop     sensor.Digital
	LifterBottom  sensor.Digital
	IRBeam        sensor.Digital
}

// Cube is the cube actor handler.
type Cube struct {
	cfg      Config
	hw       Hardware
	clock    clock.Clock
	timer    *statemachine.SafetyTimer
	observer components.Observer
	logger   logging.Logger

	autoCycle bool
	paused    bool
	okToRaise bool
	numTotes  int
	clicker   statemachine.State
	lifter    statemachine.State

	lastStep     time.Time
	delayStart   time.Time
	pausedPowers [2]float64
}

// New returns a cube with auto-cycle off and every motor stopped.
func New(cfg Config, hw Hardware, deps components.Deps) *Cube {
	deps = deps.WithDefaults("cube")
	return &Cube{
		cfg:      cfg.withDefaults(),
		hw:       hw,
		clock:    deps.Clock,
		timer:    statemachine.NewSafetyTimer(deps.Clock, cfg.SafetyCeiling),
		observer: deps.Observer,
		logger:   deps.Logger,
		clicker:  statemachine.Top,
		lifter:   statemachine.Top,
		lastStep: deps.Clock.Now(),
	}
}

// Status is a snapshot of the auto-cycle.
type Status struct {
	AutoCycle bool
	Paused    bool
	NumTotes  int
	Clicker   statemachine.State
	Lifter    statemachine.State
}

// Status returns the auto-cycle state.
func (c *Cube) Status() Status {
	return Status{
		AutoCycle: c.autoCycle,
		Paused:    c.paused,
		NumTotes:  c.numTotes,
		Clicker:   c.clicker,
		Lifter:    c.lifter,
	}
}

// OnModeChange stops the clicker and the lifter and leaves auto-cycle. The intake keeps
// running whenever the robot is enabled.
func (c *Cube) OnModeChange(ctx context.Context, msg message.Message) {
	c.autoCycle = false
	c.paused = false
	motor.StopAll(c.hw.Clicker, c.hw.Lifter)
	c.timer.Reset()
	switch msg.Params.Mode.Mode {
	case message.ModeAutonomous, message.ModeTest, message.ModeTeleoperated:
		c.hw.Intake.SetPower(c.cfg.IntakeRun)
	case message.ModeDisabled, message.ModeUnknown:
		c.hw.Intake.SetPower(motor.Neutral)
	}
}

// OnCommand handles cube commands. Manual motor commands are ignored during auto-cycle.
func (c *Cube) OnCommand(ctx context.Context, msg message.Message) {
	switch msg.Command {
	case message.CubeClickerRaise:
		c.manual(c.hw.Clicker, c.cfg.ClickerRaise)
	case message.CubeClickerLower:
		c.manual(c.hw.Clicker, c.cfg.ClickerLower)
	case message.CubeClickerStop:
		c.manual(c.hw.Clicker, motor.Neutral)
	case message.CubeLifterRaise:
		c.manual(c.hw.Lifter, c.cfg.LifterRaise)
	case message.CubeLifterLower:
		c.manual(c.hw.Lifter, c.cfg.LifterLower)
	case message.CubeLifterStop:
		c.manual(c.hw.Lifter, motor.Neutral)
	case message.CubeIntakeRun:
		c.manual(c.hw.Intake, c.cfg.IntakeRun)
	case message.CubeIntakeStop:
		c.manual(c.hw.Intake, motor.Neutral)
	case message.CubeStop:
		if !c.autoCycle {
			motor.StopAll(c.hw.Clicker, c.hw.Lifter)
			c.paused = false
			c.pausedPowers = [2]float64{}
			c.timer.Reset()
		}
	case message.CubeAutoCycleStart:
		c.start(ctx)
	case message.CubeAutoCycleStop:
		if c.autoCycle || c.paused {
			c.autoCycle = false
			c.paused = false
			c.okToRaise = false
			c.numTotes = 0
			motor.StopAll(c.hw.Clicker, c.hw.Lifter)
			c.timer.Reset()
		}
	case message.CubeAutoCyclePause:
		if c.autoCycle {
			c.autoCycle = false
			c.paused = true
			c.pausedPowers = [2]float64{c.hw.Clicker.Power(), c.hw.Lifter.Power()}
			motor.StopAll(c.hw.Clicker, c.hw.Lifter)
			c.timer.Reset()
		}
	case message.CubeAutoCycleResume:
		if c.paused {
			c.paused = false
			c.autoCycle = true
			c.hw.Clicker.SetPower(c.pausedPowers[0])
			c.hw.Lifter.SetPower(c.pausedPowers[1])
			c.hw.Intake.SetPower(c.cfg.IntakeRun)
			c.timer.Reset()
		}
	case message.CubeAutoCycleOkToRaiseCan:
		c.okToRaise = true
	case message.CubeAutoCycleIncrementCount:
		if c.numTotes >= 0 && c.numTotes < liftAt {
			c.numTotes++
		}
	case message.CubeAutoCycleDecrementCount:
		if c.numTotes > 0 && c.numTotes < liftAt {
			c.numTotes--
		}
	case message.AutonomousComplete:
		c.autoCycle = false
		c.paused = false
		motor.StopAll(c.hw.Clicker, c.hw.Lifter)
	default:
	}
}

func (c *Cube) manual(m motor.Motor, power float64) {
	if c.autoCycle {
		return
	}
	m.SetPower(power)
	c.timer.Reset()
}

func (c *Cube) start(ctx context.Context) {
	if c.autoCycle {
		return
	}
	c.logger.CDebugf(ctx, "auto-cycle starting")
	c.autoCycle = true
	c.paused = false
	c.okToRaise = false
	c.pausedPowers = [2]float64{}
	c.clicker = statemachine.Raising
	c.lifter = statemachine.Lowering
	c.numTotes = 0
	c.hw.Intake.SetPower(c.cfg.IntakeRun)
	c.timer.Reset()
}

// Step enforces the safety timer and, in auto-cycle, advances both state machines once per
// step interval.
func (c *Cube) Step(ctx context.Context) {
	if c.timer.CheckAndReset() && (c.hw.Clicker.Power() != motor.Neutral || c.hw.Lifter.Power() != motor.Neutral) {
		c.logger.Warnw("safety timer expired, forcing neutral", "mechanism", "cube", "ceiling", c.timer.Ceiling())
		motor.StopAll(c.hw.Clicker, c.hw.Lifter)
		c.observer.SafetyTripped("cube")
	}
	if !c.autoCycle || c.clock.Since(c.lastStep) <= c.cfg.StepInterval {
		return
	}
	c.lastStep = c.clock.Now()
	c.timer.Reset()
	c.stepClicker()
	c.stepLifter()
}

func (c *Cube) setClicker(s statemachine.State) {
	if c.clicker != s {
		c.logger.Debugw("state change", "mechanism", "clicker", "from", c.clicker, "to", s, "totes", c.numTotes)
		c.clicker = s
	}
}

func (c *Cube) setLifter(s statemachine.State) {
	if c.lifter != s {
		c.logger.Debugw("state change", "mechanism", "lifter", "from", c.lifter, "to", s, "totes", c.numTotes)
		c.lifter = s
	}
}

func tripped(s sensor.Digital) bool {
	return s != nil && s.Get()
}

func (c *Cube) stepClicker() {
	switch c.clicker {
	case statemachine.Top:
		if !tripped(c.hw.IRBeam) {
			c.hw.Clicker.SetPower(c.cfg.ClickerTopHold)
			return
		}
		c.numTotes++
		if c.numTotes == liftAt {
			c.setLifter(statemachine.WaitToRaise)
			c.okToRaise = false
		}
		c.setClicker(statemachine.Lowering)
		c.hw.Clicker.SetPower(c.cfg.ClickerLower)
	case statemachine.Lowering:
		if tripped(c.hw.ClickerBottom) {
			c.setClicker(statemachine.Bottom)
			c.hw.Clicker.SetPower(motor.Neutral)
			return
		}
		c.hw.Clicker.SetPower(c.cfg.ClickerLower)
	case statemachine.Bottom:
		if c.numTotes >= liftAt {
			c.setClicker(statemachine.HoldAtBoundary)
			return
		}
		c.setClicker(statemachine.Raising)
		c.hw.Clicker.SetPower(c.cfg.ClickerRaise)
	case statemachine.HoldAtBoundary:
		switch {
		case !tripped(c.hw.IRBeam) && c.numTotes == MaxTotes:
			c.numTotes = 0
			c.setClicker(statemachine.InterCycleDelay)
			c.delayStart = c.clock.Now()
		case c.lifter == statemachine.Top && c.numTotes == liftAt:
			c.setClicker(statemachine.Raising)
		default:
			c.hw.Clicker.SetPower(c.cfg.ClickerLower)
		}
	case statemachine.InterCycleDelay:
		if c.clock.Since(c.delayStart) > c.cfg.CycleDelay {
			c.setClicker(statemachine.Raising)
			c.setLifter(statemachine.Lowering)
		}
	case statemachine.Raising:
		if tripped(c.hw.ClickerTop) {
			c.setClicker(statemachine.Top)
			c.hw.Clicker.SetPower(motor.Neutral)
			return
		}
		c.hw.Clicker.SetPower(c.cfg.ClickerRaise)
	case statemachine.WaitToRaise:
	}
}

func (c *Cube) stepLifter() {
	switch c.lifter {
	case statemachine.Bottom, statemachine.Top:
		c.hw.Lifter.SetPower(motor.Neutral)
	case statemachine.Raising:
		if tripped(c.hw.LifterTop) {
			c.setLifter(statemachine.Top)
			c.hw.Lifter.SetPower(motor.Neutral)
			return
		}
		c.hw.Lifter.SetPower(c.cfg.LifterRaise)
	case statemachine.WaitToRaise:
		if c.okToRaise {
			c.okToRaise = false
			c.setLifter(statemachine.Raising)
		}
	case statemachine.Lowering:
		if tripped(c.hw.LifterBottom) {
			c.setLifter(statemachine.Bottom)
			c.hw.Lifter.SetPower(motor.Neutral)
			return
		}
		c.hw.Lifter.SetPower(c.cfg.LifterLower)
	case statemachine.HoldAtBoundary, statemachine.InterCycleDelay:
	}
}
