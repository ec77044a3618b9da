package statemachine

import (
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/motor"
	"go.viam.com/rhsrobot/sensor"
)

// Rates are the powers applied in each state. Hold rates keep a mechanism against a boundary
// it would otherwise fall away from.
type Rates struct {
	Raise      float64 `json:"raise"`
	Lower      float64 `json:"lower"`
	HoldTop    float64 `json:"hold_top"`
	HoldBottom float64 `json:"hold_bottom"`
}

// Event is what a Step observed.
type Event int

// Step events.
const (
	EventNone Event = iota
	EventReachedTop
	EventReachedBottom
	EventSafetyTrip
)

// MechanismConfig configures a Mechanism.
type MechanismConfig struct {
	Rates         Rates
	SafetyCeiling time.Duration
	// CycleDelay is how long InterCycleDelay holds before raising again.
	CycleDelay time.Duration
	Clock      clock.Clock
	// OnSafetyTrip is called each time the safety timer forces neutral.
	OnSafetyTrip func()
}

// Mechanism moves one actuator between a top and a bottom sensor. Either sensor may be nil,
// in which case that direction only ends on Stop or the safety timer. Mechanism is not safe
// for concurrent use; it belongs to a single actor.
type Mechanism struct {
	name   string
	motor  motor.Motor
	top    sensor.Digital
	bottom sensor.Digital
	cfg    MechanismConfig
	timer  *SafetyTimer
	logger logging.Logger

	state      State
	delayStart time.Time
}

// NewMechanism returns a stopped mechanism in HoldAtBoundary with neutral output.
func NewMechanism(
	name string,
	m motor.Motor,
	top, bottom sensor.Digital,
	cfg MechanismConfig,
	logger logging.Logger,
) *Mechanism {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Mechanism{
		name:   name,
		motor:  m,
		top:    top,
		bottom: bottom,
		cfg:    cfg,
		timer:  NewSafetyTimer(cfg.Clock, cfg.SafetyCeiling),
		logger: logger,
		state:  HoldAtBoundary,
	}
}

// State returns the current state.
func (m *Mechanism) State() State {
	return m.state
}

// SafetyTimer returns the mechanism's timer.
func (m *Mechanism) SafetyTimer() *SafetyTimer {
	return m.timer
}

// Raise starts moving toward the top sensor.
func (m *Mechanism) Raise() {
	m.transition(Raising)
	m.timer.Reset()
	m.motor.SetPower(m.cfg.Rates.Raise)
}

// Lower starts moving toward the bottom sensor.
func (m *Mechanism) Lower() {
	m.transition(Lowering)
	m.timer.Reset()
	m.motor.SetPower(m.cfg.Rates.Lower)
}

// Stop halts wherever the mechanism is.
func (m *Mechanism) Stop() {
	m.transition(HoldAtBoundary)
	m.timer.Reset()
	m.motor.SetPower(motor.Neutral)
}

// StartCycleDelay holds at the bottom rate for the configured cycle delay, then raises.
func (m *Mechanism) StartCycleDelay() {
	m.transition(InterCycleDelay)
	m.delayStart = m.cfg.Clock.Now()
	m.timer.Reset()
}

// Neutral drives the actuator to neutral and forgets any travel in progress. Used on mode
// changes.
func (m *Mechanism) Neutral() {
	m.transition(HoldAtBoundary)
	m.motor.SetPower(motor.Neutral)
	m.timer.Reset()
}

// Step drives the actuator for the current state and moves to a rest state when a boundary
// sensor trips.
func (m *Mechanism) Step() Event {
	if m.timer.CheckAndReset() && m.motor.Power() != motor.Neutral {
		m.logger.Warnw("safety timer expired, forcing neutral",
			"mechanism", m.name, "state", m.state, "ceiling", m.timer.Ceiling())
		m.transition(HoldAtBoundary)
		m.motor.SetPower(motor.Neutral)
		if m.cfg.OnSafetyTrip != nil {
			m.cfg.OnSafetyTrip()
		}
		return EventSafetyTrip
	}

	switch m.state {
	case Raising:
		if m.top != nil && m.top.Get() {
			m.transition(Top)
			m.motor.SetPower(m.cfg.Rates.HoldTop)
			return EventReachedTop
		}
		m.motor.SetPower(m.cfg.Rates.Raise)
	case Lowering:
		if m.bottom != nil && m.bottom.Get() {
			m.transition(Bottom)
			m.motor.SetPower(m.cfg.Rates.HoldBottom)
			return EventReachedBottom
		}
		m.motor.SetPower(m.cfg.Rates.Lower)
	case InterCycleDelay:
		if m.cfg.Clock.Since(m.delayStart) > m.cfg.CycleDelay {
			m.Raise()
			return EventNone
		}
		m.motor.SetPower(m.cfg.Rates.HoldBottom)
	case Top, Bottom, HoldAtBoundary:
	}
	return EventNone
}

func (m *Mechanism) transition(to State) {
	if m.state == to {
		return
	}
	m.logger.Debugw("state change", "mechanism", m.name, "from", m.state, "to", to)
	m.state = to
}
