// Package rpc layers a synchronous request/reply convention over channels. A request names the
// channel its sender is blocked reading and carries a request ID; the receiver answers on that
// channel with the same ID.
package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
)

// Outcome labels how a synchronous call finished.
type Outcome string

// Outcomes reported to an Observer.
const (
	OutcomeOK          Outcome = "ok"
	OutcomeRemoteError Outcome = "remote_error"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeStale       Outcome = "stale"
)

// Observer is notified of call outcomes and discarded replies.
type Observer interface {
	CallFinished(target string, outcome Outcome, elapsed time.Duration)
}

// Client issues requests on behalf of a single caller. Calls are serialized: a second
// CallSynchronous waits for the first to finish.
type Client struct {
	registry     *channel.Registry
	replyChannel string
	replies      *channel.Handle
	clock        clock.Clock
	observer     Observer
	logger       logging.Logger

	callMu sync.Mutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithObserver reports call outcomes.
func WithObserver(observer Observer) ClientOption {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithClock measures call deadlines on clk. It should be the clock the registry waits on.
func WithClock(clk clock.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clk
	}
}

// NewClient binds the read end of replyChannel. It fails with a channel UnavailableError if
// another reader already holds it.
func NewClient(registry *channel.Registry, replyChannel string, logger logging.Logger, opts ...ClientOption) (*Client, error) {
	replies, err := registry.Open(replyChannel, channel.ReadOnly)
	if err != nil {
		return nil, err
	}
	c := &Client{
		registry:     registry,
		replyChannel: replyChannel,
		replies:      replies,
		clock:        clock.New(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ReplyChannel returns the name of the channel replies arrive on.
func (c *Client) ReplyChannel() string {
	return c.replyChannel
}

// Close releases the reply channel.
func (c *Client) Close() error {
	return c.replies.Close()
}

// SendFireAndForget sends msg without a reply channel. It never waits on the receiver.
func (c *Client) SendFireAndForget(target string, msg message.Message) error {
	msg.ReplyTo = ""
	msg.RequestID = uuid.Nil
	return c.registry.Send(target, msg)
}

// CallSynchronous sends msg to target and blocks until the correlated reply arrives or timeout
// elapses. Replies carrying a different request ID are left over from earlier calls that timed
// out; they are discarded. A failure reply returns a *RemoteError, no reply returns
// ErrRequestTimeout.
func (c *Client) CallSynchronous(ctx context.Context, target string, msg message.Message, timeout time.Duration) error {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	msg.ReplyTo = c.replyChannel
	msg.RequestID = uuid.New()

	start := c.clock.Now()
	if err := c.registry.Send(target, msg); err != nil {
		return errors.Wrapf(err, "cannot send %s", msg.Command)
	}
	c.logger.CDebugw(ctx, "request sent", "target", target, "command", msg.Command, "request_id", msg.RequestID)

	deadline := start.Add(timeout)
	for {
		remaining := c.clock.Until(deadline)
		if remaining <= 0 {
			c.finished(target, OutcomeTimeout, start)
			return errors.Wrapf(ErrRequestTimeout, "%s on %s after %s", msg.Command, target, timeout)
		}

		reply, err := c.replies.Receive(ctx, remaining)
		if err != nil {
			if channel.IsTimeout(err) {
				continue
			}
			return err
		}

		if reply.RequestID != msg.RequestID {
			c.logger.Warnw("discarding stale reply",
				"target", target, "command", reply.Command,
				"request_id", reply.RequestID, "want", msg.RequestID)
			c.finished(target, OutcomeStale, start)
			continue
		}

		switch {
		case reply.Command.IsSuccessReply():
			c.finished(target, OutcomeOK, start)
			return nil
		case reply.Command.IsFailureReply():
			c.finished(target, OutcomeRemoteError, start)
			return &RemoteError{Target: target, Command: msg.Command, RequestID: msg.RequestID}
		default:
			c.logger.Warnw("ignoring reply with unexpected command", "target", target, "command", reply.Command)
		}
	}
}

func (c *Client) finished(target string, outcome Outcome, start time.Time) {
	if c.observer != nil {
		c.observer.CallFinished(target, outcome, c.clock.Since(start))
	}
}

// Reply answers a synchronous request. It does nothing for fire-and-forget requests.
func Reply(registry *channel.Registry, request message.Message, ok bool) error {
	if !request.IsSynchronous() {
		return nil
	}
	cmd := message.AutonomousResponseOK
	if !ok {
		cmd = message.AutonomousResponseError
	}
	reply := message.New(cmd)
	reply.RequestID = request.RequestID
	return registry.Send(request.ReplyTo, reply)
}
