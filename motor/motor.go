// Package motor defines the actuator boundary subsystems drive.
package motor

import "go.viam.com/rhsrobot/utils"

// A Motor is a speed controller driven by a signed power fraction.
type Motor interface {
	// SetPower sets the output in [-1, 1]. Values outside the range are clipped by the controller.
	SetPower(powerPct float64)

	// Power returns the last output set.
	Power() float64

	// Current returns the measured draw in amps, or 0 when the controller cannot report it.
	Current() float64
}

// Neutral is the output every actuator is driven to on a mode change.
const Neutral = 0.0

// Clip bounds powerPct to [-1, 1].
func Clip(powerPct float64) float64 {
	return utils.Clamp(powerPct, -1, 1)
}

// StopAll drives each motor to Neutral.
func StopAll(motors ...Motor) {
	for _, m := range motors {
		if m != nil {
			m.SetPower(Neutral)
		}
	}
}
