package fake

import "sync"

// Gyro keeps a settable heading.
type Gyro struct {
	mu    sync.Mutex
	angle float64
}

// Angle returns the current heading.
func (g *Gyro) Angle() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.angle
}

// SetAngle sets the heading.
func (g *Gyro) SetAngle(angle float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.angle = angle
}

// Encoder keeps track of a fake wheel distance.
type Encoder struct {
	mu       sync.Mutex
	distance float64
	resets   int
}

// Distance returns the distance since the last reset.
func (e *Encoder) Distance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.distance
}

// Reset sets the current distance to zero.
func (e *Encoder) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.distance = 0
	e.resets++
}

// SetDistance sets the distance travelled.
func (e *Encoder) SetDistance(distance float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.distance = distance
}

// Resets returns how many times Reset was called.
func (e *Encoder) Resets() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resets
}
