package utils

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/rhsrobot/logging"
)

// Tasks runs a robot's long lived loops, one goroutine per named task, until Stop. A task that
// returns early is logged and its error is kept for Stop.
type Tasks struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger logging.Logger
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	err     error
}

// NewTasks returns an empty set of tasks.
func NewTasks(logger logging.Logger) *Tasks {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tasks{ctx: ctx, cancel: cancel, logger: logger}
}

// Go starts fn under name. It does nothing once Stop has been called.
func (t *Tasks) Go(name string, fn func(context.Context) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	t.wg.Add(1)
	goutils.PanicCapturingGo(func() {
		defer t.wg.Done()
		err := fn(t.ctx)
		if err == nil || (t.ctx.Err() != nil && errors.Is(err, context.Canceled)) {
			return
		}
		if t.ctx.Err() == nil {
			t.logger.Errorw("task exited", "task", name, "error", err)
		}
		t.mu.Lock()
		t.err = multierr.Append(t.err, errors.Wrap(err, name))
		t.mu.Unlock()
	})
}

// Context is cancelled by Stop.
func (t *Tasks) Context() context.Context {
	return t.ctx
}

// Stop cancels every task, waits for them, and returns what they failed with.
func (t *Tasks) Stop() error {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
