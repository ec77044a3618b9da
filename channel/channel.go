// Package channel implements named, ordered message conduits with a single reader and any number
// of writers. Channels are unbounded FIFOs: writers never block and nothing is dropped or
// reordered.
package channel

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
)

// Mode selects which end of a channel a Handle holds.
type Mode int

const (
	// WriteOnly handles may Send. Any number may be open.
	WriteOnly Mode = iota
	// ReadOnly handles may Receive. At most one may be open per channel.
	ReadOnly
)

// Observer is notified of channel traffic. Implementations must be safe for concurrent use.
type Observer interface {
	MessageSent(channel string)
	ReceiveTimedOut(channel string)
}

type queue struct {
	name string

	mu          sync.Mutex
	items       []message.Message
	readerBound bool

	// notify holds at most one pending wakeup for the single reader.
	notify chan struct{}
}

func (q *queue) push(msg message.Message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *queue) pop() (message.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return message.Message{}, false
	}
	msg := q.items[0]
	q.items[0] = message.Message{}
	q.items = q.items[1:]
	return msg, true
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Registry owns every channel in the process. Channels are created on first Open and live until
// the registry is closed.
type Registry struct {
	mu       sync.Mutex
	queues   map[string]*queue
	closed   bool
	closedCh chan struct{}

	clock    clock.Clock
	observer Observer
	logger   logging.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used for receive timeouts.
func WithClock(clk clock.Clock) Option {
	return func(r *Registry) {
		r.clock = clk
	}
}

// WithObserver reports traffic to the given observer.
func WithObserver(observer Observer) Option {
	return func(r *Registry) {
		r.observer = observer
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(logger logging.Logger, opts ...Option) *Registry {
	r := &Registry{
		queues:   map[string]*queue{},
		closedCh: make(chan struct{}),
		clock:    clock.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns a handle on the named channel, creating it if needed. Creation is idempotent.
// A second ReadOnly open of a channel whose reader is still bound fails with an
// UnavailableError.
func (r *Registry) Open(name string, mode Mode) (*Handle, error) {
	if name == "" {
		return nil, NewUnavailableError(name, "empty channel name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, NewUnavailableError(name, "registry closed")
	}

	q, ok := r.queues[name]
	if !ok {
		q = &queue{name: name, notify: make(chan struct{}, 1)}
		r.queues[name] = q
		r.logger.Debugw("created channel", "channel", name)
	}

	if mode == ReadOnly {
		q.mu.Lock()
		bound := q.readerBound
		q.readerBound = true
		q.mu.Unlock()
		if bound {
			return nil, NewUnavailableError(name, "reader already bound")
		}
	}

	return &Handle{registry: r, q: q, mode: mode}, nil
}

// Send opens the named channel for writing and appends msg to it.
func (r *Registry) Send(name string, msg message.Message) error {
	h, err := r.Open(name, WriteOnly)
	if err != nil {
		return err
	}
	return h.Send(msg)
}

// Names returns the names of every created channel, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.queues))
	for name := range r.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of queued messages on the named channel.
func (r *Registry) Len(name string) int {
	r.mu.Lock()
	q, ok := r.queues[name]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	return q.len()
}

// Close makes every channel unavailable. Pending receives return an UnavailableError.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	close(r.closedCh)
	return nil
}

func (r *Registry) isClosed() bool {
	select {
	case <-r.closedCh:
		return true
	default:
		return false
	}
}

// Handle is one end of a channel.
type Handle struct {
	registry *Registry
	q        *queue
	mode     Mode
	closed   atomic.Bool
}

// Name returns the channel name.
func (h *Handle) Name() string {
	return h.q.name
}

// Send appends msg to the channel. It never blocks on the reader.
func (h *Handle) Send(msg message.Message) error {
	if h.mode != WriteOnly {
		return NewUnavailableError(h.q.name, "handle is read-only")
	}
	if h.closed.Load() {
		return NewUnavailableError(h.q.name, "handle closed")
	}
	if h.registry.isClosed() {
		return NewUnavailableError(h.q.name, "registry closed")
	}
	h.q.push(msg)
	if h.registry.observer != nil {
		h.registry.observer.MessageSent(h.q.name)
	}
	return nil
}

// Receive returns the next message in FIFO order. If nothing arrives within timeout it returns
// ErrTimeout.
func (h *Handle) Receive(ctx context.Context, timeout time.Duration) (message.Message, error) {
	if h.mode != ReadOnly {
		return message.Message{}, NewUnavailableError(h.q.name, "handle is write-only")
	}
	if h.closed.Load() {
		return message.Message{}, NewUnavailableError(h.q.name, "handle closed")
	}

	if msg, ok := h.q.pop(); ok {
		return msg, nil
	}

	timer := h.registry.clock.Timer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-h.q.notify:
			if msg, ok := h.q.pop(); ok {
				return msg, nil
			}
		case <-timer.C:
			// A message may have landed between the last pop and the timer firing.
			if msg, ok := h.q.pop(); ok {
				return msg, nil
			}
			if h.registry.observer != nil {
				h.registry.observer.ReceiveTimedOut(h.q.name)
			}
			return message.Message{}, ErrTimeout
		case <-h.registry.closedCh:
			return message.Message{}, NewUnavailableError(h.q.name, "registry closed")
		case <-ctx.Done():
			return message.Message{}, ctx.Err()
		}
	}
}

// Drain discards every queued message and returns how many were dropped.
func (h *Handle) Drain() int {
	h.q.mu.Lock()
	defer h.q.mu.Unlock()
	n := len(h.q.items)
	h.q.items = nil
	return n
}

// Close releases the handle. Closing the reader lets another reader bind.
func (h *Handle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	if h.mode == ReadOnly {
		h.q.mu.Lock()
		h.q.readerBound = false
		h.q.mu.Unlock()
	}
	return nil
}

// OpenWithRetry keeps trying to open the channel every backoff until it succeeds or ctx is done.
func OpenWithRetry(ctx context.Context, r *Registry, name string, mode Mode, backoff time.Duration) (*Handle, error) {
	for {
		h, err := r.Open(name, mode)
		if err == nil {
			return h, nil
		}
		if !IsChannelUnavailable(err) {
			return nil, err
		}
		r.logger.Debugw("channel unavailable, retrying", "channel", name, "error", err)
		if !utils.SelectContextOrWait(ctx, backoff) {
			return nil, err
		}
	}
}
