// Package natsbridge carries channel messages over NATS so that driver stations and the
// rhsctl tool can command a robot from another machine. Every channel is mapped to the
// subject <prefix>.<channel>.
package natsbridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/input"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/rpc"
	"go.viam.com/rhsrobot/utils"
)

const (
	// ReplyChannel is the local channel remote synchronous calls wait on.
	ReplyChannel = "nats.reply"
	// DefaultCallTimeout bounds a remote synchronous call.
	DefaultCallTimeout = 5 * time.Second

	modeToken  = "mode"
	inputToken = "input"
)

// Subject maps a channel name to its NATS subject.
func Subject(prefix, name string) string {
	return prefix + "." + name
}

// ModeSubject is where mode changes are published.
func ModeSubject(prefix string) string {
	return Subject(prefix, modeToken)
}

// InputSubject is where a driver station streams one controller's state.
func InputSubject(prefix string, from input.Controller) string {
	return Subject(prefix, inputToken+"."+from.String())
}

// Conn is the part of *nats.Conn the bridge uses.
type Conn interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subject string, data []byte) error
}

// ModeSetter broadcasts a mode change. *robot.Robot is one.
type ModeSetter interface {
	SetMode(mode message.Mode, paused bool) error
}

// Result is the reply to a remote synchronous call.
type Result struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Bridge subscribes NATS subjects on behalf of a local registry.
type Bridge struct {
	conn        Conn
	registry    *channel.Registry
	client      *rpc.Client
	prefix      string
	callTimeout time.Duration
	modes       ModeSetter
	logger      logging.Logger

	mu     sync.Mutex
	subs   []*nats.Subscription
	calls  sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithModeSetter routes mode-change commands to setter so they reach every actor.
func WithModeSetter(setter ModeSetter) Option {
	return func(b *Bridge) {
		b.modes = setter
	}
}

// WithCallTimeout overrides DefaultCallTimeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(b *Bridge) {
		b.callTimeout = timeout
	}
}

// New returns a bridge between conn and registry. It subscribes nothing until Inbound is
// called.
func New(conn Conn, registry *channel.Registry, prefix string, logger logging.Logger, opts ...Option) (*Bridge, error) {
	client, err := rpc.NewClient(registry, ReplyChannel, logger.Sublogger("rpc"))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		conn:        conn,
		registry:    registry,
		client:      client,
		prefix:      prefix,
		callTimeout: DefaultCallTimeout,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Bridge) subscribe(subject string, cb nats.MsgHandler) error {
	sub, err := b.conn.Subscribe(subject, cb)
	if err != nil {
		return errors.Wrapf(err, "cannot subscribe %s", subject)
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	b.logger.Debugw("subscribed", "subject", subject)
	return nil
}

// Inbound forwards messages published on subject to the named local channel. A request
// carrying a NATS reply subject becomes a synchronous call; its Result is published back.
func (b *Bridge) Inbound(subject, name string) error {
	return b.subscribe(subject, func(m *nats.Msg) {
		msg, err := message.Unmarshal(m.Data)
		if err != nil {
			b.logger.Warnw("dropping undecodable message", "subject", m.Subject, "error", err)
			b.respond(m, err)
			return
		}
		if m.Reply == "" {
			if err := b.forward(name, msg); err != nil {
				b.logger.Warnw("cannot forward message", "channel", name, "command", msg.Command, "error", err)
			}
			return
		}
		b.calls.Add(1)
		goutils.PanicCapturingGo(func() {
			defer b.calls.Done()
			b.respond(m, b.call(name, msg))
		})
	})
}

// InboundChannels bridges every named channel on its default subject.
func (b *Bridge) InboundChannels(names ...string) error {
	var errs []error
	for _, name := range names {
		errs = append(errs, b.Inbound(Subject(b.prefix, name), name))
	}
	return multierr.Combine(errs...)
}

// Modes applies ModeParams published on the mode subject. It needs WithModeSetter.
func (b *Bridge) Modes() error {
	if b.modes == nil {
		return errors.New("no mode setter configured")
	}
	return b.subscribe(ModeSubject(b.prefix), func(m *nats.Msg) {
		var p message.ModeParams
		if err := json.Unmarshal(m.Data, &p); err != nil {
			b.logger.Warnw("dropping undecodable mode", "error", err)
			return
		}
		if err := b.modes.SetMode(p.Mode, p.Paused); err != nil {
			b.logger.Warnw("cannot set mode", "mode", p.Mode, "error", err)
		}
	})
}

// Input stores controller snapshots published for from into dst.
func (b *Bridge) Input(from input.Controller, dst *input.StateSource) error {
	return b.subscribe(InputSubject(b.prefix, from), func(m *nats.Msg) {
		s, err := input.DecodeState(m.Data)
		if err != nil {
			b.logger.Warnw("dropping undecodable controller state", "controller", from, "error", err)
			return
		}
		dst.Set(s)
	})
}

func (b *Bridge) forward(name string, msg message.Message) error {
	if mode, ok := message.ModeFromCommand(msg.Command); ok && b.modes != nil {
		return b.modes.SetMode(mode, msg.Params.Mode.Paused)
	}
	return b.client.SendFireAndForget(name, msg)
}

func (b *Bridge) call(name string, msg message.Message) error {
	defer utils.SlowLogger(b.ctx, nil, b.logger, "waiting for reply", "channel", name, "command", msg.Command)()
	return b.client.CallSynchronous(b.ctx, name, msg, b.callTimeout)
}

func (b *Bridge) respond(m *nats.Msg, callErr error) {
	if m.Reply == "" {
		return
	}
	res := Result{OK: callErr == nil}
	if callErr != nil {
		res.Error = callErr.Error()
	}
	data, err := json.Marshal(res)
	if err == nil {
		err = b.conn.Publish(m.Reply, data)
	}
	if err != nil {
		b.logger.Warnw("cannot publish reply", "subject", m.Reply, "error", err)
	}
}

// Close unsubscribes everything, abandons calls in flight and releases the reply channel.
func (b *Bridge) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if sub != nil {
			errs = append(errs, sub.Unsubscribe())
		}
	}
	b.cancel()
	b.calls.Wait()
	errs = append(errs, b.client.Close())
	return multierr.Combine(errs...)
}
