// Package config defines the structures to configure a robot and read them from disk.
package config

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rhsrobot/actor"
	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/components/canarm"
	"go.viam.com/rhsrobot/components/canlifter"
	"go.viam.com/rhsrobot/components/claw"
	"go.viam.com/rhsrobot/components/conveyor"
	"go.viam.com/rhsrobot/components/cube"
	"go.viam.com/rhsrobot/components/drivetrain"
	"go.viam.com/rhsrobot/components/jackclicker"
	"go.viam.com/rhsrobot/components/totelifter"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/script"
	"go.viam.com/rhsrobot/statemachine"
	"go.viam.com/rhsrobot/utils"
)

// Defaults applied to unset fields.
const (
	DefaultScriptPath       = "/home/lvuser/RobotParameters.txt"
	DefaultModePollInterval = 20 * time.Millisecond
	DefaultMaxVelocity      = 1.0
	DefaultNATSPrefix       = "rhsrobot"
	DefaultMetricsAddress   = "localhost:9100"
)

// Duration is a time.Duration written in config files as a Go duration string such as "40ms".
type Duration time.Duration

// MarshalJSON writes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "durations must be strings like \"40ms\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config describes the whole robot process.
type Config struct {
	ConfigFilePath string `json:"-"`

	// ReceiveTimeout is how long an actor waits for a message before ticking anyway.
	ReceiveTimeout Duration `json:"receive_timeout,omitempty"`
	// SafetyCeiling is how long a mechanism may drive before it is forced to neutral.
	SafetyCeiling    Duration `json:"safety_ceiling,omitempty"`
	ModePollInterval Duration `json:"mode_poll_interval,omitempty"`

	Script     Script     `json:"script"`
	Log        Log        `json:"log"`
	NATS       NATS       `json:"nats"`
	Metrics    Metrics    `json:"metrics"`
	Subsystems Subsystems `json:"subsystems"`
}

// Script configures the autonomous interpreter.
type Script struct {
	Path     string `json:"path,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
	// MaxVelocity bounds every velocity parameter a script may request.
	MaxVelocity    float64  `json:"max_velocity,omitempty"`
	RequestTimeout Duration `json:"request_timeout,omitempty"`
	RetryDelay     Duration `json:"retry_delay,omitempty"`
	PauseInterval  Duration `json:"pause_interval,omitempty"`
	DelaySlice     Duration `json:"delay_slice,omitempty"`
	Cooldown       Duration `json:"cooldown,omitempty"`
	// Watch reloads the script when the file changes instead of waiting for the cooldown.
	Watch  bool     `json:"watch,omitempty"`
	Settle Duration `json:"settle,omitempty"`
	// Trace logs each script pass at debug level regardless of log.level.
	Trace bool `json:"trace,omitempty"`
}

// Interpreter returns the interpreter's timing.
func (s Script) Interpreter() script.Config {
	return script.Config{
		Path:          s.Path,
		Capacity:      s.Capacity,
		RetryDelay:    s.RetryDelay.Std(),
		PauseInterval: s.PauseInterval.Std(),
		DelaySlice:    s.DelaySlice.Std(),
		Cooldown:      s.Cooldown.Std(),
		Trace:         s.Trace,
	}
}

// Limits returns what scripts may request.
func (s Script) Limits() script.Limits {
	return script.Limits{MaxVelocity: s.MaxVelocity, RequestTimeout: s.RequestTimeout.Std()}
}

// Log configures the process logger.
type Log struct {
	Level logging.Level `json:"level"`
	// File, when set, adds a rotating file appender.
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// FileAppender returns the rotating file settings.
func (l Log) FileAppender() logging.FileAppenderConfig {
	return logging.FileAppenderConfig{Path: l.File, MaxSizeMB: l.MaxSizeMB, MaxBackups: l.MaxBackups, MaxAgeDays: l.MaxAgeDays}
}

// NATS configures the network bridge. The bridge is off when URL is empty.
type NATS struct {
	URL    string `json:"url,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	// Channels are the actor channels exposed to remote senders. Empty exposes all of them.
	Channels []string `json:"channels,omitempty"`
}

// Metrics configures the prometheus endpoint. The server listens on DefaultMetricsAddress when
// Address is empty.
type Metrics struct {
	Address string `json:"address,omitempty"`
}

// Subsystems tunes every actuator-owning subsystem. Zero fields take each subsystem's defaults.
type Subsystems struct {
	Drivetrain  Drivetrain  `json:"drivetrain"`
	Conveyor    Conveyor    `json:"conveyor"`
	CanLifter   CanLifter   `json:"can_lifter"`
	JackClicker JackClicker `json:"jack_clicker"`
	CanArm      CanArm      `json:"can_arm"`
	Claw        Claw        `json:"claw"`
	ToteLifter  ToteLifter  `json:"tote_lifter"`
	Cube        Cube        `json:"cube"`
}

// Drivetrain tunes the drive base.
type Drivetrain struct {
	Deadzone          float64  `json:"deadzone,omitempty"`
	MaxGainPerMessage float64  `json:"max_gain_per_message,omitempty"`
	SeekSpeed         float64  `json:"seek_speed,omitempty"`
	TurnSpeed         float64  `json:"turn_speed,omitempty"`
	TurnTolerance     float64  `json:"turn_tolerance,omitempty"`
	MotionTimeout     Duration `json:"motion_timeout,omitempty"`
}

// Conveyor tunes the conveyor and intakes.
type Conveyor struct {
	ConveyorSpeed float64  `json:"conveyor_speed,omitempty"`
	IntakeSpeed   float64  `json:"intake_speed,omitempty"`
	AdjustSpeed   float64  `json:"adjust_speed,omitempty"`
	ShiftTime     Duration `json:"shift_time,omitempty"`
	PushTime      Duration `json:"push_time,omitempty"`
	MotionTimeout Duration `json:"motion_timeout,omitempty"`
}

// CanLifter tunes the can lifter.
type CanLifter struct {
	Raise         float64  `json:"raise,omitempty"`
	Lower         float64  `json:"lower,omitempty"`
	MotionTimeout Duration `json:"motion_timeout,omitempty"`
}

// JackClicker tunes the jack clicker.
type JackClicker struct {
	Raise float64 `json:"raise,omitempty"`
	Lower float64 `json:"lower,omitempty"`
}

// CanArm tunes the can arm.
type CanArm struct {
	Open       float64  `json:"open,omitempty"`
	Close      float64  `json:"close,omitempty"`
	CurrentMax float64  `json:"current_max,omitempty"`
	MotionTime Duration `json:"motion_time,omitempty"`
}

// Claw tunes the claw.
type Claw struct {
	Open       float64 `json:"open,omitempty"`
	Close      float64 `json:"close,omitempty"`
	CurrentMax float64 `json:"current_max,omitempty"`
}

// ToteLifter tunes the tote lifter.
type ToteLifter struct {
	Extend      float64  `json:"extend,omitempty"`
	Retract     float64  `json:"retract,omitempty"`
	ExtendTime  Duration `json:"extend_time,omitempty"`
	RetractTime Duration `json:"retract_time,omitempty"`
}

// Cube tunes the cube clicker, lifter and intake.
type Cube struct {
	ClickerRaise   float64  `json:"clicker_raise,omitempty"`
	ClickerLower   float64  `json:"clicker_lower,omitempty"`
	ClickerTopHold float64  `json:"clicker_top_hold,omitempty"`
	LifterRaise    float64  `json:"lifter_raise,omitempty"`
	LifterLower    float64  `json:"lifter_lower,omitempty"`
	IntakeRun      float64  `json:"intake_run,omitempty"`
	CycleDelay     Duration `json:"cycle_delay,omitempty"`
	StepInterval   Duration `json:"step_interval,omitempty"`
}

// ApplyDefaults fills every unset process-level field. Subsystem fields keep their zero values
// and are defaulted by the subsystems themselves.
func (c *Config) ApplyDefaults() {
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = Duration(actor.DefaultReceiveTimeout)
	}
	if c.SafetyCeiling <= 0 {
		c.SafetyCeiling = Duration(statemachine.DefaultSafetyCeiling)
	}
	if c.ModePollInterval <= 0 {
		c.ModePollInterval = Duration(DefaultModePollInterval)
	}
	s := &c.Script
	if s.Path == "" {
		s.Path = DefaultScriptPath
	}
	if s.Capacity <= 0 {
		s.Capacity = script.DefaultCapacity
	}
	if s.MaxVelocity == 0 {
		s.MaxVelocity = DefaultMaxVelocity
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = Duration(script.DefaultRequestTimeout)
	}
	if s.RetryDelay <= 0 {
		s.RetryDelay = Duration(script.DefaultRetryDelay)
	}
	if s.PauseInterval <= 0 {
		s.PauseInterval = Duration(script.DefaultPauseInterval)
	}
	if s.DelaySlice <= 0 {
		s.DelaySlice = Duration(script.DefaultDelaySlice)
	}
	if s.Cooldown <= 0 {
		s.Cooldown = Duration(script.DefaultCooldown)
	}
	if s.Settle <= 0 {
		s.Settle = Duration(script.DefaultSettle)
	}
	if c.NATS.URL != "" && c.NATS.Prefix == "" {
		c.NATS.Prefix = DefaultNATSPrefix
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if c.Script.Path == "" {
		return utils.NewConfigValidationFieldRequiredError("script", "path")
	}
	if v := c.Script.MaxVelocity; v <= 0 || v > 1 {
		return utils.NewConfigValidationRangeError("script", "max_velocity", 0, 1)
	}
	for name, d := range map[string]Duration{
		"receive_timeout":    c.ReceiveTimeout,
		"safety_ceiling":     c.SafetyCeiling,
		"mode_poll_interval": c.ModePollInterval,
	} {
		if d <= 0 {
			return utils.NewConfigValidationError("config", errors.Errorf("%q must be positive", name))
		}
	}
	if c.Script.DelaySlice > c.Script.Cooldown {
		return utils.NewConfigValidationError("script", errors.New(`"delay_slice" cannot exceed "cooldown"`))
	}
	for _, name := range c.NATS.Channels {
		if !lo.Contains(channel.ActorChannels(), name) {
			return utils.NewConfigValidationError("nats", errors.Errorf("unknown channel %q", name))
		}
	}
	if err := c.Subsystems.validate(); err != nil {
		return err
	}
	return nil
}

func (s Subsystems) validate() error {
	powers := map[string]float64{
		"conveyor.conveyor_speed": s.Conveyor.ConveyorSpeed,
		"conveyor.intake_speed":   s.Conveyor.IntakeSpeed,
		"conveyor.adjust_speed":   s.Conveyor.AdjustSpeed,
		"can_lifter.raise":        s.CanLifter.Raise,
		"can_lifter.lower":        s.CanLifter.Lower,
		"jack_clicker.raise":      s.JackClicker.Raise,
		"jack_clicker.lower":      s.JackClicker.Lower,
		"can_arm.open":            s.CanArm.Open,
		"can_arm.close":           s.CanArm.Close,
		"claw.open":               s.Claw.Open,
		"claw.close":              s.Claw.Close,
		"tote_lifter.extend":      s.ToteLifter.Extend,
		"tote_lifter.retract":     s.ToteLifter.Retract,
		"cube.clicker_raise":      s.Cube.ClickerRaise,
		"cube.clicker_lower":      s.Cube.ClickerLower,
		"cube.clicker_top_hold":   s.Cube.ClickerTopHold,
		"cube.lifter_raise":       s.Cube.LifterRaise,
		"cube.lifter_lower":       s.Cube.LifterLower,
		"cube.intake_run":         s.Cube.IntakeRun,
		"drivetrain.seek_speed":   s.Drivetrain.SeekSpeed,
		"drivetrain.turn_speed":   s.Drivetrain.TurnSpeed,
		"drivetrain.max_gain":     s.Drivetrain.MaxGainPerMessage,
		"drivetrain.deadzone":     s.Drivetrain.Deadzone,
	}
	for field, v := range powers {
		if v < -1 || v > 1 {
			return utils.NewConfigValidationRangeError("subsystems", field, -1, 1)
		}
	}
	return nil
}

// DrivetrainConfig returns the drive base tuning.
func (s Subsystems) DrivetrainConfig(safetyCeiling time.Duration) drivetrain.Config {
	d := s.Drivetrain
	return drivetrain.Config{
		Deadzone:          d.Deadzone,
		MaxGainPerMessage: d.MaxGainPerMessage,
		SeekSpeed:         d.SeekSpeed,
		TurnSpeed:         d.TurnSpeed,
		TurnTolerance:     d.TurnTolerance,
		MotionTimeout:     d.MotionTimeout.Std(),
		SafetyCeiling:     safetyCeiling,
	}
}

// ConveyorConfig returns the conveyor tuning.
func (s Subsystems) ConveyorConfig() conveyor.Config {
	c := s.Conveyor
	return conveyor.Config{
		ConveyorSpeed: c.ConveyorSpeed,
		IntakeSpeed:   c.IntakeSpeed,
		AdjustSpeed:   c.AdjustSpeed,
		ShiftTime:     c.ShiftTime.Std(),
		PushTime:      c.PushTime.Std(),
		MotionTimeout: c.MotionTimeout.Std(),
	}
}

// CanLifterConfig returns the can lifter tuning.
func (s Subsystems) CanLifterConfig(safetyCeiling time.Duration) canlifter.Config {
	return canlifter.Config{
		Rates:         statemachine.Rates{Raise: s.CanLifter.Raise, Lower: s.CanLifter.Lower},
		SafetyCeiling: safetyCeiling,
		MotionTimeout: s.CanLifter.MotionTimeout.Std(),
	}
}

// JackClickerConfig returns the jack clicker tuning.
func (s Subsystems) JackClickerConfig(safetyCeiling time.Duration) jackclicker.Config {
	return jackclicker.Config{Raise: s.JackClicker.Raise, Lower: s.JackClicker.Lower, SafetyCeiling: safetyCeiling}
}

// CanArmConfig returns the can arm tuning.
func (s Subsystems) CanArmConfig() canarm.Config {
	a := s.CanArm
	return canarm.Config{Open: a.Open, Close: a.Close, CurrentMax: a.CurrentMax, MotionTime: a.MotionTime.Std()}
}

// ClawConfig returns the claw tuning.
func (s Subsystems) ClawConfig(safetyCeiling time.Duration) claw.Config {
	c := s.Claw
	return claw.Config{Open: c.Open, Close: c.Close, CurrentMax: c.CurrentMax, SafetyCeiling: safetyCeiling}
}

// ToteLifterConfig returns the tote lifter tuning.
func (s Subsystems) ToteLifterConfig() totelifter.Config {
	l := s.ToteLifter
	return totelifter.Config{
		Extend:      l.Extend,
		Retract:     l.Retract,
		ExtendTime:  l.ExtendTime.Std(),
		RetractTime: l.RetractTime.Std(),
	}
}

// CubeConfig returns the cube tuning.
func (s Subsystems) CubeConfig(safetyCeiling time.Duration) cube.Config {
	c := s.Cube
	return cube.Config{
		ClickerRaise:   c.ClickerRaise,
		ClickerLower:   c.ClickerLower,
		ClickerTopHold: c.ClickerTopHold,
		LifterRaise:    c.LifterRaise,
		LifterLower:    c.LifterLower,
		IntakeRun:      c.IntakeRun,
		CycleDelay:     c.CycleDelay.Std(),
		StepInterval:   c.StepInterval.Std(),
		SafetyCeiling:  safetyCeiling,
	}
}
