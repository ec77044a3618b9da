// Package componenttest provides helpers for testing subsystems.
package componenttest

import (
	"sync"

	"go.viam.com/rhsrobot/message"
)

// Reply is one recorded answer.
type Reply struct {
	Command message.Command
	OK      bool
}

// Replier records every reply instead of sending it.
type Replier struct {
	mu      sync.Mutex
	replies []Reply
}

// Reply records the answer to request. Fire-and-forget requests are ignored like the real
// replier ignores them.
func (r *Replier) Reply(request message.Message, ok bool) error {
	if !request.IsSynchronous() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, Reply{Command: request.Command, OK: ok})
	return nil
}

// Replies returns what has been recorded so far.
func (r *Replier) Replies() []Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reply(nil), r.replies...)
}

// Observer counts safety trips per subsystem.
type Observer struct {
	mu    sync.Mutex
	trips map[string]int
}

// SafetyTripped records a trip.
func (o *Observer) SafetyTripped(subsystem string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.trips == nil {
		o.trips = map[string]int{}
	}
	o.trips[subsystem]++
}

// Trips returns how many times subsystem tripped.
func (o *Observer) Trips(subsystem string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.trips[subsystem]
}

// Sync returns msg as if a caller were waiting on reply channel "test.reply".
func Sync(msg message.Message) message.Message {
	msg.ReplyTo = "test.reply"
	return msg
}
