// Package components holds what the robot's subsystems share: answering synchronous requests
// and bounding motions that span many supervisor ticks.
package components

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/rpc"
)

// Replier answers synchronous requests.
type Replier interface {
	Reply(request message.Message, ok bool) error
}

// RegistryReplier answers on the request's reply channel in a registry.
type RegistryReplier struct {
	Registry *channel.Registry
}

// Reply sends the success or failure reply correlated with request.
func (r RegistryReplier) Reply(request message.Message, ok bool) error {
	return rpc.Reply(r.Registry, request, ok)
}

type nopReplier struct{}

func (nopReplier) Reply(message.Message, bool) error { return nil }

// Observer is told when a subsystem's safety timer forces its actuators to neutral.
type Observer interface {
	SafetyTripped(subsystem string)
}

type nopObserver struct{}

func (nopObserver) SafetyTripped(string) {}

// Deps are what every subsystem needs besides its own hardware.
type Deps struct {
	Clock    clock.Clock
	Replier  Replier
	Observer Observer
	Logger   logging.Logger
}

// WithDefaults fills in a real clock and no-op replier, observer and logger.
func (d Deps) WithDefaults(name string) Deps {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Replier == nil {
		d.Replier = nopReplier{}
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Logger == nil {
		d.Logger = logging.NewBlankLogger(name)
	}
	return d
}

// MaxMotion bounds any duration a request asks a subsystem for.
const MaxMotion = time.Hour

// Seconds converts a request parameter in seconds. NaN and non-positive values are 0 and
// anything longer than MaxMotion, infinity included, is MaxMotion.
func Seconds(s float64) time.Duration {
	switch {
	case math.IsNaN(s) || s <= 0:
		return 0
	case s >= MaxMotion.Seconds():
		return MaxMotion
	}
	return time.Duration(s * float64(time.Second))
}
