// Package jackclicker implements the pallet jack clicker, a spring-assisted motor with no
// limit sensors. The safety timer is the only thing that ends its travel.
package jackclicker

import (
	"context"
	"time"

	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/motor"
	"go.viam.com/rhsrobot/statemachine"
)

// Default rates. The spring does most of the raising.
const (
	DefaultRaise = 0.10
	DefaultLower = -1.0
)

// Config tunes the clicker.
type Config struct {
	Raise         float64
	Lower         float64
	SafetyCeiling time.Duration
}

// JackClicker is the clicker actor handler.
type JackClicker struct {
	mech *statemachine.Mechanism
}

// New returns a stopped clicker driving m.
func New(cfg Config, m motor.Motor, deps components.Deps) *JackClicker {
	deps = deps.WithDefaults("jackclicker")
	if cfg.Raise == 0 {
		cfg.Raise = DefaultRaise
	}
	if cfg.Lower == 0 {
		cfg.Lower = DefaultLower
	}
	observer := deps.Observer
	return &JackClicker{
		mech: statemachine.NewMechanism("jackclicker", m, nil, nil, statemachine.MechanismConfig{
			Rates:         statemachine.Rates{Raise: cfg.Raise, Lower: cfg.Lower},
			SafetyCeiling: cfg.SafetyCeiling,
			Clock:         deps.Clock,
			OnSafetyTrip:  func() { observer.SafetyTripped("jackclicker") },
		}, deps.Logger),
	}
}

// State returns the clicker's travel state.
func (j *JackClicker) State() statemachine.State {
	return j.mech.State()
}

// OnModeChange drives the clicker to neutral.
func (j *JackClicker) OnModeChange(ctx context.Context, msg message.Message) {
	j.mech.Neutral()
}

// OnCommand handles clicker commands.
func (j *JackClicker) OnCommand(ctx context.Context, msg message.Message) {
	switch msg.Command {
	case message.JackClickerRaise:
		j.mech.Raise()
	case message.JackClickerLower:
		j.mech.Lower()
	case message.JackClickerStop, message.AutonomousComplete:
		j.mech.Stop()
	default:
	}
}

// Step enforces the safety timer.
func (j *JackClicker) Step(ctx context.Context) {
	j.mech.Step()
}
