// Package actor implements the supervisor loop every robot task runs: receive with a bounded
// wait, dispatch mode changes and commands to a handler, step any ongoing work and count ticks.
package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
)

// DefaultReceiveTimeout is the longest an actor waits for a message before ticking anyway.
const DefaultReceiveTimeout = 40 * time.Millisecond

// Handler is the per-subsystem logic driven by a Supervisor. Both methods are only ever called
// from the supervisor goroutine and must return promptly.
type Handler interface {
	// OnModeChange is called for the robot state commands. Implementations must drive their
	// actuators to a safe output.
	OnModeChange(ctx context.Context, msg message.Message)
	// OnCommand is called for every other message, including the synthetic SystemMsgTimeout
	// delivered when the receive wait expires.
	OnCommand(ctx context.Context, msg message.Message)
}

// Stepper is implemented by handlers with work that spans many ticks, such as driving until a
// sensor trips. Step is called once per loop iteration after dispatch.
type Stepper interface {
	Step(ctx context.Context)
}

// Observer is notified of every completed tick.
type Observer interface {
	Ticked(actor string, cmd message.Command)
	HandlerPanicked(actor string)
}

// Supervisor runs one Handler against its inbound channel.
type Supervisor struct {
	name     string
	inbound  *channel.Handle
	handler  Handler
	timeout  time.Duration
	observer Observer
	logger   logging.Logger

	lastCommand atomic.Int64
	tickCount   atomic.Uint64
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithReceiveTimeout overrides DefaultReceiveTimeout.
func WithReceiveTimeout(timeout time.Duration) Option {
	return func(s *Supervisor) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithObserver reports ticks to the observer.
func WithObserver(observer Observer) Option {
	return func(s *Supervisor) {
		s.observer = observer
	}
}

// New returns a Supervisor reading from inbound, which must be a ReadOnly handle.
func New(name string, inbound *channel.Handle, handler Handler, logger logging.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		name:    name,
		inbound: inbound,
		handler: handler,
		timeout: DefaultReceiveTimeout,
		logger:  logger,
	}
	s.lastCommand.Store(int64(message.SystemMsgTimeout))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the actor's name.
func (s *Supervisor) Name() string {
	return s.name
}

// TickCount returns the number of completed loop iterations.
func (s *Supervisor) TickCount() uint64 {
	return s.tickCount.Load()
}

// LastCommand returns the command handled on the most recent tick.
func (s *Supervisor) LastCommand() message.Command {
	return message.Command(s.lastCommand.Load())
}

// Run loops until ctx is cancelled or the inbound channel goes away. There is no other way to
// stop an actor.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.CDebugf(ctx, "actor %s starting", s.name)
	for {
		if err := s.Tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.CDebugf(ctx, "actor %s stopping", s.name)
				return nil
			}
			return errors.Wrapf(err, "actor %s", s.name)
		}
	}
}

// Tick runs a single iteration of the loop.
func (s *Supervisor) Tick(ctx context.Context) error {
	msg, err := s.inbound.Receive(ctx, s.timeout)
	switch {
	case err == nil:
	case channel.IsTimeout(err):
		msg = message.New(message.SystemMsgTimeout)
	default:
		return err
	}

	s.dispatch(ctx, msg)
	s.lastCommand.Store(int64(msg.Command))
	s.tickCount.Inc()
	if s.observer != nil {
		s.observer.Ticked(s.name, msg.Command)
	}
	return nil
}

func (s *Supervisor) dispatch(ctx context.Context, msg message.Message) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("handler panicked", "actor", s.name, "command", msg.Command, "panic", fmt.Sprint(r))
			if s.observer != nil {
				s.observer.HandlerPanicked(s.name)
			}
		}
	}()

	if msg.Command.IsModeChange() {
		s.logger.CDebugf(ctx, "%s mode change %s", s.name, msg.Command)
		s.handler.OnModeChange(ctx, msg)
	} else {
		s.handler.OnCommand(ctx, msg)
	}

	if stepper, ok := s.handler.(Stepper); ok {
		stepper.Step(ctx)
	}
}
