// Package operation runs at most one cancellable operation at a time. The script interpreter
// runs each pass as an operation so that disabling the robot, or starting the next pass, ends
// whatever pass is still in flight.
package operation

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Manager owns the single running operation. The zero value is ready to use.
type Manager struct {
	// Clock drives Sleep and Poll. Nil means the wall clock.
	Clock clock.Clock

	mu      sync.Mutex
	lastID  uint64
	running uint64
	cancel  context.CancelFunc
}

// opKey marks a context as belonging to one of m's operations.
type opKey struct{ m *Manager }

func (m *Manager) owns(ctx context.Context) bool {
	_, ok := ctx.Value(opKey{m}).(uint64)
	return ok
}

// Start cancels the running operation and begins a new one. Call done when it finishes. A ctx
// that already belongs to one of m's operations is returned as is, so helpers that start an
// operation can be used from inside one.
func (m *Manager) Start(ctx context.Context) (opCtx context.Context, done func()) {
	if m.owns(ctx) {
		return ctx, func() {}
	}

	m.mu.Lock()
	m.cancelLocked()
	m.lastID++
	id := m.lastID
	opCtx, cancel := context.WithCancel(context.WithValue(ctx, opKey{m}, id))
	m.running, m.cancel = id, cancel
	m.mu.Unlock()

	return opCtx, func() {
		cancel()
		m.mu.Lock()
		if m.running == id {
			m.running, m.cancel = 0, nil
		}
		m.mu.Unlock()
	}
}

// Cancel ends the running operation, if any.
func (m *Manager) Cancel() {
	m.mu.Lock()
	m.cancelLocked()
	m.mu.Unlock()
}

func (m *Manager) cancelLocked() {
	if m.cancel != nil {
		m.cancel()
	}
	m.running, m.cancel = 0, nil
}

// Running reports whether an operation is in flight.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running != 0
}

// Sleep waits d on m's clock and reports whether it got to the end before ctx did.
func (m *Manager) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	clk := m.Clock
	if clk == nil {
		clk = clock.New()
	}
	timer := clk.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Poll runs as an operation, checking cond every interval until it holds or fails.
func (m *Manager) Poll(ctx context.Context, interval time.Duration, cond func(context.Context) (bool, error)) error {
	ctx, done := m.Start(ctx)
	defer done()

	for {
		ok, err := cond(ctx)
		switch {
		case err != nil:
			return err
		case ok:
			return nil
		case !m.Sleep(ctx, interval):
			return ctx.Err()
		}
	}
}
