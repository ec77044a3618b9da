package natsbridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"go.viam.com/rhsrobot/input"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
)

// Publisher is the part of *nats.Conn a Sender uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Requester is the part of *nats.Conn Call uses.
type Requester interface {
	RequestWithContext(ctx context.Context, subject string, data []byte) (*nats.Msg, error)
}

// Sender publishes messages for one remote channel.
type Sender struct {
	pub     Publisher
	subject string
}

// Outbound returns a Sender for the named channel of the robot listening under prefix.
func Outbound(pub Publisher, prefix, name string) *Sender {
	return &Sender{pub: pub, subject: Subject(prefix, name)}
}

// Subject returns where the sender publishes.
func (s *Sender) Subject() string {
	return s.subject
}

// Send publishes msg fire-and-forget.
func (s *Sender) Send(msg message.Message) error {
	msg.ReplyTo = ""
	data, err := message.Marshal(msg)
	if err != nil {
		return err
	}
	return errors.Wrapf(s.pub.Publish(s.subject, data), "cannot publish to %s", s.subject)
}

// Call sends msg to the named remote channel and waits for the robot's Result.
func Call(ctx context.Context, req Requester, prefix, name string, msg message.Message, timeout time.Duration) (Result, error) {
	data, err := message.Marshal(msg)
	if err != nil {
		return Result{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	reply, err := req.RequestWithContext(ctx, Subject(prefix, name), data)
	if err != nil {
		return Result{}, errors.Wrapf(err, "no reply from %s", name)
	}
	var res Result
	if err := json.Unmarshal(reply.Data, &res); err != nil {
		return Result{}, errors.Wrap(err, "cannot decode reply")
	}
	return res, nil
}

// PublishMode asks the robot under prefix to change mode.
func PublishMode(pub Publisher, prefix string, p message.ModeParams) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return pub.Publish(ModeSubject(prefix), data)
}

// PublishInput sends one controller snapshot.
func PublishInput(pub Publisher, prefix string, from input.Controller, s input.State) error {
	data, err := input.EncodeState(s)
	if err != nil {
		return err
	}
	return pub.Publish(InputSubject(prefix, from), data)
}

// Connect dials url with reconnects enabled and connection events logged.
func Connect(url, name string, logger logging.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnw("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infow("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				logger.Errorw("nats error", "subject", sub.Subject, "error", err)
				return
			}
			logger.Errorw("nats error", "error", err)
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to %s", url)
	}
	return conn, nil
}
