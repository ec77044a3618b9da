// Package drivetrain implements the two-sided drive base: teleop tank and arcade driving,
// open-ended drives held on a gyro heading and the bounded scripted motions.
package drivetrain

import (
	"context"
	"math"
	"time"

	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/motor"
	"go.viam.com/rhsrobot/sensor"
	"go.viam.com/rhsrobot/statemachine"
	"go.viam.com/rhsrobot/utils"
)

// Defaults for Config.
const (
	JoystickDeadzone  = 0.10
	MaxGainPerMessage = 0.1
	DefaultSeekSpeed  = 0.3
	DefaultTurnSpeed  = 0.4
	DefaultTolerance  = 2.0
	// HeadingGain is the heading error in degrees that adds a full speed of correction.
	HeadingGain          = 45.0
	DefaultMotionTimeout = 10 * time.Second
)

// Config tunes the drive.
type Config struct {
	Deadzone          float64
	MaxGainPerMessage float64
	SeekSpeed         float64
	TurnSpeed         float64
	TurnTolerance     float64
	// MotionTimeout bounds scripted motions that carry no timeout.
	MotionTimeout time.Duration
	// SafetyCeiling stops an open-ended drive that has gone this long without a fresh
	// start command.
	SafetyCeiling time.Duration
}

func (c Config) withDefaults() Config {
	if c.Deadzone <= 0 {
		c.Deadzone = JoystickDeadzone
	}
	if c.MaxGainPerMessage <= 0 {
		c.MaxGainPerMessage = MaxGainPerMessage
	}
	if c.SeekSpeed <= 0 {
		c.SeekSpeed = DefaultSeekSpeed
	}
	if c.TurnSpeed <= 0 {
		c.TurnSpeed = DefaultTurnSpeed
	}
	if c.TurnTolerance <= 0 {
		c.TurnTolerance = DefaultTolerance
	}
	if c.MotionTimeout <= 0 {
		c.MotionTimeout = DefaultMotionTimeout
	}
	return c
}

// Hardware is what the drive owns. The right motor is mounted mirrored, so forward is
// negative power on that side.
type Hardware struct {
	Left, Right motor.Motor
	Gyro        sensor.Gyro
	Encoder     sensor.Encoder
	// ToteSensor trips when a tote is against the front of the robot.
	ToteSensor sensor.Digital
}

// Drivetrain is the drive base actor handler.
type Drivetrain struct {
	cfg    Config
	hw     Hardware
	motion *components.Motion
	safety *statemachine.SafetyTimer
	// open is set while a STARTDRIVE drive runs under the safety timer.
	open     bool
	observer components.Observer
	logger   logging.Logger

	mode message.ModeParams
	// pastLeft and pastRight are the last gain-limited teleop outputs, before the right side
	// is mirrored.
	pastLeft, pastRight float64
	heading             float64
	// steer is called each tick while an open-ended or bounded drive is in progress.
	steer func()
}

// New returns a stopped drivetrain.
func New(cfg Config, hw Hardware, deps components.Deps) *Drivetrain {
	deps = deps.WithDefaults("drivetrain")
	return &Drivetrain{
		cfg:      cfg.withDefaults(),
		hw:       hw,
		motion:   components.NewMotion("drivetrain", deps),
		safety:   statemachine.NewSafetyTimer(deps.Clock, cfg.SafetyCeiling),
		observer: deps.Observer,
		logger:   deps.Logger,
		mode:     message.ModeParams{Mode: message.ModeDisabled},
	}
}

// LimitMotor applies the joystick deadzone to value, then limits its change from past to
// maxGain per message.
func LimitMotor(value, past, deadzone, maxGain float64) float64 {
	return utils.Slew(utils.Deadzone(value, deadzone), past, maxGain)
}

// OnModeChange stops the drive. Entering autonomous captures the heading scripted drives hold
// and zeroes the encoder.
func (d *Drivetrain) OnModeChange(ctx context.Context, msg message.Message) {
	d.stop("mode change")
	d.mode = msg.Params.Mode
	if d.mode.Mode == message.ModeAutonomous {
		d.resetOdometry()
	}
}

// OnCommand handles drive commands.
func (d *Drivetrain) OnCommand(ctx context.Context, msg message.Message) {
	p := msg.Params
	switch msg.Command {
	case message.DrivetrainDriveTank:
		d.stop("teleop drive")
		d.drive(utils.Cube(p.Tank.Left), utils.Cube(p.Tank.Right))
	case message.DrivetrainDriveArcade:
		d.stop("teleop drive")
		d.drive(0.5*(p.Arcade.Y+p.Arcade.X), 0.5*(p.Arcade.Y-p.Arcade.X))
	case message.DrivetrainStartDriveFwd:
		d.startOpenDrive(math.Abs(d.speedOr(p.Autonomous.DriveSpeed, d.cfg.SeekSpeed)))
	case message.DrivetrainStartDriveBck:
		d.startOpenDrive(-math.Abs(d.speedOr(p.Autonomous.DriveSpeed, d.cfg.SeekSpeed)))
	case message.DrivetrainStop, message.AutonomousComplete:
		d.stop(msg.Command.String())
	case message.DrivetrainDriveStraight:
		d.startStraight(msg)
	case message.DrivetrainTurn:
		d.startTurn(msg)
	case message.DrivetrainSeekTote:
		d.startSeek(msg)
	case message.AutonomousRun:
		d.resetOdometry()
	default:
	}
}

// Step advances the drive in progress. An open-ended drive that outlives the safety ceiling
// is stopped.
func (d *Drivetrain) Step(ctx context.Context) {
	if d.motion.Active() && d.motion.Step() {
		return
	}
	if d.open && d.safety.CheckAndReset() {
		d.logger.Warnw("open drive exceeded safety ceiling", "ceiling", d.safety.Ceiling())
		d.stop("safety timer")
		d.observer.SafetyTripped("drivetrain")
		return
	}
	if d.steer != nil {
		d.steer()
	}
}

// drive sets both sides from forward-positive powers. Teleop input is deadzoned and
// acceleration limited; scripted input is applied as given.
func (d *Drivetrain) drive(left, right float64) {
	if d.mode.Mode == message.ModeTeleoperated {
		left = LimitMotor(left, d.pastLeft, d.cfg.Deadzone, d.cfg.MaxGainPerMessage)
		right = LimitMotor(right, d.pastRight, d.cfg.Deadzone, d.cfg.MaxGainPerMessage)
	}
	d.pastLeft, d.pastRight = left, right
	d.setSides(left, right)
}

func (d *Drivetrain) setSides(left, right float64) {
	d.hw.Left.SetPower(left)
	d.hw.Right.SetPower(-right)
}

func (d *Drivetrain) stop(reason string) {
	d.motion.Cancel(reason)
	d.steer = nil
	d.open = false
	d.pastLeft, d.pastRight = 0, 0
	motor.StopAll(d.hw.Left, d.hw.Right)
}

func (d *Drivetrain) resetOdometry() {
	if d.hw.Gyro != nil {
		d.heading = d.hw.Gyro.Angle()
	}
	if d.hw.Encoder != nil {
		d.hw.Encoder.Reset()
	}
}

func (d *Drivetrain) speedOr(speed, fallback float64) float64 {
	if speed == 0 {
		return fallback
	}
	return speed
}

// holdHeading drives at speed, steering back toward the heading captured at the start.
func (d *Drivetrain) holdHeading(speed float64) func() {
	d.resetOdometry()
	return func() {
		var correction float64
		if d.hw.Gyro != nil {
			errDeg := utils.SignedAngleDiffDeg(d.heading, d.hw.Gyro.Angle())
			correction = errDeg / HeadingGain * math.Abs(speed)
		}
		d.setSides(speed+correction, speed-correction)
	}
}

func (d *Drivetrain) startOpenDrive(speed float64) {
	d.stop("new drive")
	d.steer = d.holdHeading(speed)
	d.open = true
	d.safety.Reset()
	d.steer()
}

func (d *Drivetrain) timeout(seconds float64) time.Duration {
	if seconds > 0 {
		return components.Seconds(seconds)
	}
	return d.cfg.MotionTimeout
}

func (d *Drivetrain) finish(bool) {
	d.steer = nil
	motor.StopAll(d.hw.Left, d.hw.Right)
}

func (d *Drivetrain) startStraight(msg message.Message) {
	d.stop("new drive")
	p := msg.Params.Autonomous
	speed := math.Abs(d.speedOr(p.DriveSpeed, d.cfg.SeekSpeed))

	var bound components.Bound
	if p.DriveTime > 0 {
		bound = components.Bound{Timeout: components.Seconds(p.DriveTime), SucceedOnTimeout: true}
		if p.DriveSpeed < 0 {
			speed = -speed
		}
	} else {
		target := math.Abs(p.DriveDistance)
		if p.DriveDistance < 0 || p.DriveSpeed < 0 {
			speed = -speed
		}
		bound = components.Bound{
			Done: func() bool {
				return d.hw.Encoder == nil || math.Abs(d.hw.Encoder.Distance()) >= target
			},
			Timeout: d.timeout(p.Timeout),
		}
	}
	d.steer = d.holdHeading(speed)
	d.motion.Start(msg, bound, d.finish)
}

func (d *Drivetrain) startTurn(msg message.Message) {
	d.stop("new drive")
	p := msg.Params.Autonomous
	if d.hw.Gyro == nil {
		d.logger.Warn("cannot turn without a gyro")
		d.motion.Start(msg, components.Bound{Done: func() bool { return true }}, d.finish)
		d.motion.Cancel("no gyro")
		return
	}
	speed := math.Abs(d.speedOr(p.TurnSpeed, d.cfg.TurnSpeed))
	target := d.hw.Gyro.Angle() + p.TurnAngle
	remaining := func() float64 {
		return utils.SignedAngleDiffDeg(target, d.hw.Gyro.Angle())
	}
	d.steer = func() {
		power := utils.Sign(remaining()) * speed
		// Spin in place: clockwise is left forward, right backward.
		d.setSides(power, -power)
	}
	d.motion.Start(msg, components.Bound{
		Done:    func() bool { return math.Abs(remaining()) <= d.cfg.TurnTolerance },
		Timeout: d.timeout(p.Timeout),
	}, d.finish)
}

func (d *Drivetrain) startSeek(msg message.Message) {
	d.stop("new drive")
	p := msg.Params.Autonomous
	d.steer = d.holdHeading(math.Abs(d.speedOr(p.DriveSpeed, d.cfg.SeekSpeed)))
	d.motion.Start(msg, components.Bound{
		Done:    func() bool { return d.hw.ToteSensor != nil && d.hw.ToteSensor.Get() },
		Timein:  components.Seconds(p.Timein),
		Timeout: d.timeout(p.Timeout),
	}, d.finish)
}
