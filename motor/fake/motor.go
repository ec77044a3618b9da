// Package fake implements a fake motor.
package fake

import (
	"sync"

	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/motor"
)

// Config describes a fake motor.
type Config struct {
	// DirectionFlip negates every power set.
	DirectionFlip bool `json:"direction_flip"`
}

// Motor records every power it is given. Current is whatever the test last set.
type Motor struct {
	Name   string
	Logger logging.Logger

	mu       sync.Mutex
	cfg      Config
	powerPct float64
	current  float64
	history  []float64
}

// NewMotor returns a stopped fake motor.
func NewMotor(name string, cfg Config, logger logging.Logger) *Motor {
	return &Motor{Name: name, Logger: logger, cfg: cfg}
}

// SetPower sets the given power percentage.
func (m *Motor) SetPower(powerPct float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	powerPct = motor.Clip(powerPct)
	if m.cfg.DirectionFlip {
		powerPct *= -1
	}
	if m.Logger != nil {
		m.Logger.Debugf("Motor %s SetPower %f", m.Name, powerPct)
	}
	m.powerPct = powerPct
	m.history = append(m.history, powerPct)
}

// Power returns the set power percentage.
func (m *Motor) Power() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerPct
}

// Current returns the current set with SetCurrent.
func (m *Motor) Current() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetCurrent sets what Current reports.
func (m *Motor) SetCurrent(amps float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = amps
}

// History returns a copy of every power set, oldest first.
func (m *Motor) History() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.history...)
}

// Direction returns the sign of the set power.
func (m *Motor) Direction() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.powerPct > 0:
		return 1
	case m.powerPct < 0:
		return -1
	}
	return 0
}
