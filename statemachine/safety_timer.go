package statemachine

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultSafetyCeiling is how long an actuator may go without a fresh command.
const DefaultSafetyCeiling = 30 * time.Second

// SafetyTimer measures time since the last command. Owners check it every tick and drive
// their actuators to neutral when it expires.
type SafetyTimer struct {
	clock   clock.Clock
	ceiling time.Duration

	mu    sync.Mutex
	start time.Time
}

// NewSafetyTimer returns a timer started now. A zero ceiling uses DefaultSafetyCeiling.
func NewSafetyTimer(clk clock.Clock, ceiling time.Duration) *SafetyTimer {
	if clk == nil {
		clk = clock.New()
	}
	if ceiling <= 0 {
		ceiling = DefaultSafetyCeiling
	}
	return &SafetyTimer{clock: clk, ceiling: ceiling, start: clk.Now()}
}

// Ceiling returns the configured ceiling.
func (t *SafetyTimer) Ceiling() time.Duration {
	return t.ceiling
}

// Reset restarts the timer.
func (t *SafetyTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = t.clock.Now()
}

// Elapsed returns the time since the last reset.
func (t *SafetyTimer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clock.Since(t.start)
}

// Expired reports whether the ceiling has passed since the last reset.
func (t *SafetyTimer) Expired() bool {
	return t.Elapsed() > t.ceiling
}

// CheckAndReset returns true and restarts the timer if it has expired. Each crossing of the
// ceiling is reported once.
func (t *SafetyTimer) CheckAndReset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.clock.Since(t.start) <= t.ceiling {
		return false
	}
	t.start = t.clock.Now()
	return true
}
