// Package sensor defines the input boundary subsystems read: limit switches, hall effects and
// beam breaks.
package sensor

// Digital is a two-state sensor.
type Digital interface {
	// Get returns true when the sensor is tripped.
	Get() bool
}

// Inverted reports the opposite of an active-low sensor.
type Inverted struct {
	Digital
}

// Get returns the negation of the wrapped reading.
func (s Inverted) Get() bool {
	return !s.Digital.Get()
}

// Gyro reports heading in degrees, increasing clockwise.
type Gyro interface {
	Angle() float64
}

// Encoder reports distance travelled in inches since the last reset.
type Encoder interface {
	Distance() float64
	Reset()
}
