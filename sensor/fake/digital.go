// Package fake implements a settable digital sensor.
package fake

import "go.uber.org/atomic"

// Digital reports whatever it was last set to.
type Digital struct {
	value atomic.Bool
	reads atomic.Int64
}

// NewDigital returns a sensor reading initial.
func NewDigital(initial bool) *Digital {
	d := &Digital{}
	d.value.Store(initial)
	return d
}

// Get returns the current value.
func (d *Digital) Get() bool {
	d.reads.Inc()
	return d.value.Load()
}

// Set changes the value.
func (d *Digital) Set(v bool) {
	d.value.Store(v)
}

// Reads returns how many times Get was called.
func (d *Digital) Reads() int64 {
	return d.reads.Load()
}
