// Package conveyor implements the pallet jack: a tote conveyor, two vertical intakes and the
// beam sensors at each end.
package conveyor

import (
	"context"
	"time"

	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/motor"
	"go.viam.com/rhsrobot/sensor"
)

// Defaults for Config.
const (
	DefaultConveyorSpeed = 0.8
	DefaultIntakeSpeed   = 0.5
	DefaultAdjustSpeed   = 0.3
	DefaultShiftTime     = time.Second
	DefaultPushTime      = 2 * time.Second
	DefaultMotionTimeout = 10 * time.Second
)

// Config tunes the conveyor.
type Config struct {
	ConveyorSpeed float64
	IntakeSpeed   float64
	AdjustSpeed   float64
	ShiftTime     time.Duration
	PushTime      time.Duration
	// MotionTimeout bounds sensor waits that carry no timeout.
	MotionTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConveyorSpeed <= 0 {
		c.ConveyorSpeed = DefaultConveyorSpeed
	}
	if c.IntakeSpeed <= 0 {
		c.IntakeSpeed = DefaultIntakeSpeed
	}
	if c.AdjustSpeed <= 0 {
		c.AdjustSpeed = DefaultAdjustSpeed
	}
	if c.ShiftTime <= 0 {
		c.ShiftTime = DefaultShiftTime
	}
	if c.PushTime <= 0 {
		c.PushTime = DefaultPushTime
	}
	if c.MotionTimeout <= 0 {
		c.MotionTimeout = DefaultMotionTimeout
	}
	return c
}

// Hardware is what the conveyor owns. The beams trip while a tote blocks them.
type Hardware struct {
	Conveyor    motor.Motor
	IntakeLeft  motor.Motor
	IntakeRight motor.Motor
	FrontBeam   sensor.Digital
	BackBeam    sensor.Digital
}

// Conveyor is the pallet jack actor handler. Forward moves totes toward the front of the
// robot, which is negative power on the conveyor motor.
type Conveyor struct {
	cfg    Config
	hw     Hardware
	motion *components.Motion
	logger logging.Logger
}

// New returns a stopped conveyor.
func New(cfg Config, hw Hardware, deps components.Deps) *Conveyor {
	deps = deps.WithDefaults("conveyor")
	return &Conveyor{
		cfg:    cfg.withDefaults(),
		hw:     hw,
		motion: components.NewMotion("conveyor", deps),
		logger: deps.Logger,
	}
}

// OnModeChange stops every motor.
func (c *Conveyor) OnModeChange(ctx context.Context, msg message.Message) {
	c.stopAll("mode change")
}

// OnCommand handles conveyor commands. Commands that drive the conveyor preempt a motion in
// progress.
func (c *Conveyor) OnCommand(ctx context.Context, msg message.Message) {
	if msg.Command == message.SystemMsgTimeout {
		return
	}
	conv, intake, adjust := c.cfg.ConveyorSpeed, c.cfg.IntakeSpeed, c.cfg.AdjustSpeed
	switch msg.Command {
	case message.ConveyorRunFwd:
		c.preempt(msg)
		c.hw.Conveyor.SetPower(-conv)
	case message.ConveyorRunBck:
		c.preempt(msg)
		c.hw.Conveyor.SetPower(conv)
	case message.ConveyorStop:
		c.preempt(msg)
		c.hw.Conveyor.SetPower(motor.Neutral)
	case message.ConveyorIntakeLeftIn:
		c.hw.IntakeLeft.SetPower(-intake)
	case message.ConveyorIntakeLeftOut:
		c.hw.IntakeLeft.SetPower(intake)
	case message.ConveyorIntakeLeftStop:
		c.hw.IntakeLeft.SetPower(motor.Neutral)
	case message.ConveyorIntakeRightIn:
		c.hw.IntakeRight.SetPower(intake)
	case message.ConveyorIntakeRightOut:
		c.hw.IntakeRight.SetPower(-intake)
	case message.ConveyorIntakeRightStop:
		c.hw.IntakeRight.SetPower(motor.Neutral)
	case message.ConveyorIntakeBothIn:
		c.intakes(-intake, intake)
	case message.ConveyorIntakeBothOut:
		c.intakes(intake, -intake)
	case message.ConveyorIntakeBothStop:
		c.intakes(motor.Neutral, motor.Neutral)
	case message.ConveyorRunAllFwd:
		c.preempt(msg)
		c.set(-conv, intake, -intake)
	case message.ConveyorRunAllBck:
		c.preempt(msg)
		c.set(conv, -intake, intake)
	case message.ConveyorRunAllStop, message.AutonomousComplete:
		c.stopAll(msg.Command.String())
	case message.ConveyorCanAdjustBoth:
		c.preempt(msg)
		c.set(conv, adjust, -adjust)
	case message.ConveyorCanAdjustLeft:
		c.preempt(msg)
		c.set(conv, adjust, intake)
	case message.ConveyorCanAdjustRight:
		c.preempt(msg)
		c.set(conv, -intake, -adjust)

	case message.ConveyorSeekToteFront:
		c.waitFor(msg, c.hw.FrontBeam, func() { c.intakes(-intake, intake) }, c.stopAllOutputs)
	case message.ConveyorSeekToteBack:
		c.waitFor(msg, c.hw.BackBeam, nil, c.stopAllOutputs)
	case message.ConveyorFrontLoadTote:
		c.waitFor(msg, c.hw.BackBeam, func() { c.set(conv, -intake, intake) }, c.stopAllOutputs)
	case message.ConveyorBackLoadTote:
		c.waitFor(msg, c.hw.FrontBeam, func() { c.hw.Conveyor.SetPower(-conv) }, c.stopConveyor)
	case message.ConveyorWaitFrontBeam:
		c.waitFor(msg, c.hw.FrontBeam, nil, nil)
	case message.ConveyorWaitBackBeam:
		c.waitFor(msg, c.hw.BackBeam, nil, nil)
	case message.ConveyorDepositTotesBck:
		c.preempt(msg)
		c.hw.Conveyor.SetPower(conv)
		c.motion.Start(msg, components.Bound{
			Done:    func() bool { return c.hw.BackBeam == nil || !c.hw.BackBeam.Get() },
			Timein:  c.cfg.ShiftTime,
			Timeout: c.timeout(msg),
		}, c.finisher(c.stopConveyor))
	case message.ConveyorShiftTotesFwd:
		c.timed(msg, -conv, c.cfg.ShiftTime)
	case message.ConveyorShiftTotesBck:
		c.timed(msg, conv, c.cfg.ShiftTime)
	case message.ConveyorPushTotesBck:
		c.timed(msg, conv, c.cfg.PushTime)
	default:
	}
}

// Step ends a motion whose bound is met.
func (c *Conveyor) Step(ctx context.Context) {
	c.motion.Step()
}

func (c *Conveyor) preempt(msg message.Message) {
	c.motion.Cancel("preempted by " + msg.Command.String())
}

func (c *Conveyor) set(conv, left, right float64) {
	c.hw.Conveyor.SetPower(conv)
	c.intakes(left, right)
}

func (c *Conveyor) intakes(left, right float64) {
	c.hw.IntakeLeft.SetPower(left)
	c.hw.IntakeRight.SetPower(right)
}

func (c *Conveyor) stopConveyor() {
	c.hw.Conveyor.SetPower(motor.Neutral)
}

func (c *Conveyor) stopAllOutputs() {
	motor.StopAll(c.hw.Conveyor, c.hw.IntakeLeft, c.hw.IntakeRight)
}

func (c *Conveyor) stopAll(reason string) {
	c.motion.Cancel(reason)
	c.stopAllOutputs()
}

func (c *Conveyor) finisher(stop func()) func(bool) {
	return func(bool) {
		if stop != nil {
			stop()
		}
	}
}

func (c *Conveyor) timeout(msg message.Message) time.Duration {
	if msg.Params.Autonomous.Timeout > 0 {
		return components.Seconds(msg.Params.Autonomous.Timeout)
	}
	return c.cfg.MotionTimeout
}

// waitFor runs start, then answers msg once beam trips and runs stop.
func (c *Conveyor) waitFor(msg message.Message, beam sensor.Digital, start, stop func()) {
	c.preempt(msg)
	if start != nil {
		start()
	}
	c.motion.Start(msg, components.Bound{
		Done:    func() bool { return beam != nil && beam.Get() },
		Timeout: c.timeout(msg),
	}, c.finisher(stop))
}

func (c *Conveyor) timed(msg message.Message, power float64, d time.Duration) {
	c.preempt(msg)
	c.hw.Conveyor.SetPower(power)
	c.motion.Start(msg, components.Bound{Timeout: d, SucceedOnTimeout: true}, c.finisher(c.stopConveyor))
}
