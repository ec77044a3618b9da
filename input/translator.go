package input

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/time/rate"

	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
)

const (
	// StickThreshold is how far a stick must be pushed to count as a raise or lower.
	StickThreshold = 0.75
	// TriggerThreshold is how far a trigger must be pulled to count as held.
	TriggerThreshold = 0.5
	// DefaultDriveRate caps tank drive messages per second.
	DefaultDriveRate = 50
	// DefaultPollInterval is how often Run polls the controllers.
	DefaultPollInterval = 20 * time.Millisecond
)

// Target receives the translated commands. *robot.Robot is one.
type Target interface {
	Send(name string, msg message.Message) error
	Mode() message.ModeParams
}

// Controller names which gamepad an event came from.
type Controller int

// The two gamepads of a driver station.
const (
	Driver Controller = iota
	Operator
)

func (c Controller) String() string {
	if c == Driver {
		return "driver"
	}
	return "operator"
}

// Translator maps controller events onto subsystem commands. Nothing is sent while the robot
// is autonomous. Stateful outputs (conveyor, clicker, can lifter) are only sent when they
// change.
type Translator struct {
	target  Target
	clock   clock.Clock
	limiter *rate.Limiter
	logger  logging.Logger

	left, right  float64
	drivePending bool

	fwd, bck          bool
	adjLeft, adjRight bool
	conveyor          message.Command
	intakeRunning     bool
	clickerZone       int
	canZone           int
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithTranslatorClock drives the drive rate limit from clk.
func WithTranslatorClock(clk clock.Clock) TranslatorOption {
	return func(t *Translator) {
		t.clock = clk
	}
}

// WithDriveRate caps tank drive messages at perSecond.
func WithDriveRate(perSecond float64) TranslatorOption {
	return func(t *Translator) {
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewTranslator returns a translator sending to target.
func NewTranslator(target Target, logger logging.Logger, opts ...TranslatorOption) *Translator {
	t := &Translator{
		target:   target,
		clock:    clock.New(),
		limiter:  rate.NewLimiter(DefaultDriveRate, 1),
		logger:   logger,
		conveyor: message.ConveyorStop,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle applies one event. Drive changes are held until Flush.
func (t *Translator) Handle(from Controller, ev Event) error {
	if t.target.Mode().AutonomousActive() {
		return nil
	}
	if from == Driver {
		return t.handleDriver(ev)
	}
	return t.handleOperator(ev)
}

func (t *Translator) handleDriver(ev Event) error {
	switch ev.Control {
	case AbsoluteY:
		t.left = -ev.Value
		t.drivePending = true
		return nil
	case AbsoluteRY:
		t.right = -ev.Value
		t.drivePending = true
		return nil
	case ButtonLT:
		t.fwd = ev.Event == ButtonPress
	case ButtonRT:
		t.bck = ev.Event == ButtonPress
	// The right trigger nudges the left intake and the left trigger the right one.
	case AbsoluteRZ:
		t.adjLeft = ev.Value > TriggerThreshold
	case AbsoluteZ:
		t.adjRight = ev.Value > TriggerThreshold
	default:
		return nil
	}
	return t.updateConveyor()
}

func (t *Translator) updateConveyor() error {
	cmd := message.ConveyorStop
	switch {
	case t.fwd:
		cmd = message.ConveyorRunAllFwd
	case t.bck:
		cmd = message.ConveyorRunAllBck
	case t.adjLeft && t.adjRight:
		cmd = message.ConveyorCanAdjustBoth
	case t.adjLeft:
		cmd = message.ConveyorCanAdjustLeft
	case t.adjRight:
		cmd = message.ConveyorCanAdjustRight
	}
	if cmd == t.conveyor {
		return nil
	}
	t.conveyor = cmd
	return t.send(channel.Conveyor, cmd)
}

func (t *Translator) handleOperator(ev Event) error {
	if ev.Event == ButtonPress {
		switch ev.Control {
		case ButtonLT:
			t.intakeRunning = !t.intakeRunning
			if t.intakeRunning {
				return t.send(channel.Cube, message.CubeIntakeRun)
			}
			return t.send(channel.Cube, message.CubeIntakeStop)
		case ButtonWest:
			return t.send(channel.Cube, message.CubeAutoCycleStart)
		case ButtonNorth:
			return t.send(channel.Cube, message.CubeAutoCycleStop)
		case ButtonSouth:
			return t.send(channel.Cube, message.CubeAutoCyclePause)
		case ButtonEast:
			return t.send(channel.Cube, message.CubeAutoCycleResume)
		}
		return nil
	}
	if ev.Event != PositionChangeAbs {
		return nil
	}
	switch ev.Control {
	case AbsoluteY:
		zone := stickZone(-ev.Value)
		if zone == t.clickerZone {
			return nil
		}
		t.clickerZone = zone
		return t.send(channel.Cube, pick(zone, message.CubeClickerRaise, message.CubeClickerLower, message.CubeClickerStop))
	case AbsoluteRY:
		zone := stickZone(-ev.Value)
		if zone == t.canZone {
			return nil
		}
		t.canZone = zone
		return t.send(channel.CanLifter, pick(zone, message.CanLifterRaise, message.CanLifterLower, message.CanLifterStop))
	}
	return nil
}

// Flush sends the latest tank drive powers if they changed and the rate limit allows.
func (t *Translator) Flush() error {
	if !t.drivePending || t.target.Mode().AutonomousActive() {
		return nil
	}
	if !t.limiter.AllowN(t.clock.Now(), 1) {
		return nil
	}
	t.drivePending = false
	msg := message.New(message.DrivetrainDriveTank)
	msg.Params.Tank = message.TankParams{Left: t.left, Right: t.right}
	return t.target.Send(channel.Drivetrain, msg)
}

func (t *Translator) send(name string, cmd message.Command) error {
	t.logger.Debugw("teleop", "channel", name, "command", cmd)
	return t.target.Send(name, message.New(cmd))
}

// Run polls driver and operator every interval and forwards what they do until ctx is done.
func (t *Translator) Run(ctx context.Context, interval time.Duration, driver, operator *Listener) {
	ticker := t.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		if !goutils.SelectContextOrWaitChan(ctx, ticker.C) {
			return
		}
		var errs []error
		for _, ev := range driver.Poll() {
			errs = append(errs, t.Handle(Driver, ev))
		}
		for _, ev := range operator.Poll() {
			errs = append(errs, t.Handle(Operator, ev))
		}
		errs = append(errs, t.Flush())
		if err := multierr.Combine(errs...); err != nil {
			t.logger.Warnw("teleop commands dropped", "error", err)
		}
	}
}

func stickZone(v float64) int {
	switch {
	case v > StickThreshold:
		return 1
	case v < -StickThreshold:
		return -1
	default:
		return 0
	}
}

func pick(zone int, up, down, stop message.Command) message.Command {
	switch zone {
	case 1:
		return up
	case -1:
		return down
	default:
		return stop
	}
}
