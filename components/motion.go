package components

import (
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
)

// Bound describes when a Motion ends.
type Bound struct {
	// Done reports that the motion reached its goal. Nil means only Timeout ends it.
	Done func() bool
	// Timein ignores Done until it has elapsed.
	Timein time.Duration
	// Timeout ends the motion. Zero means no limit.
	Timeout time.Duration
	// SucceedOnTimeout is for motions bounded by time alone.
	SucceedOnTimeout bool
}

// Motion is one piece of work that spans many ticks, started by a request that may be
// waiting for a reply. At most one Motion is in progress per instance; starting another
// preempts the first, which is answered with a failure.
type Motion struct {
	name    string
	clock   clock.Clock
	replier Replier
	logger  logging.Logger

	active  bool
	request message.Message
	start   time.Time
	bound   Bound
	finish  func(ok bool)
}

// NewMotion returns an idle motion.
func NewMotion(name string, deps Deps) *Motion {
	deps = deps.WithDefaults(name)
	return &Motion{
		name:    name,
		clock:   deps.Clock,
		replier: deps.Replier,
		logger:  deps.Logger,
	}
}

// Start begins a motion on behalf of request. finish is called exactly once when the motion
// ends and must drive the actuators to their rest output.
func (m *Motion) Start(request message.Message, bound Bound, finish func(ok bool)) {
	if m.active {
		m.end(false, "preempted by "+request.Command.String())
	}
	m.active = true
	m.request = request
	m.start = m.clock.Now()
	m.bound = bound
	m.finish = finish
	m.logger.Debugw("motion started", "motion", m.name, "command", request.Command, "timeout", bound.Timeout)
}

// Active reports whether a motion is in progress.
func (m *Motion) Active() bool {
	return m.active
}

// Command returns the command that started the motion in progress.
func (m *Motion) Command() message.Command {
	if !m.active {
		return message.SystemMsgTimeout
	}
	return m.request.Command
}

// Elapsed returns the time since the motion started.
func (m *Motion) Elapsed() time.Duration {
	return m.clock.Since(m.start)
}

// Step ends the motion if its bound is met and reports whether it ended on this call.
func (m *Motion) Step() bool {
	if !m.active {
		return false
	}
	elapsed := m.Elapsed()
	if m.bound.Done != nil && elapsed >= m.bound.Timein && m.bound.Done() {
		m.end(true, "done")
		return true
	}
	if m.bound.Timeout > 0 && elapsed >= m.bound.Timeout {
		if m.bound.SucceedOnTimeout {
			m.end(true, "time elapsed")
		} else {
			m.end(false, "timed out")
		}
		return true
	}
	return false
}

// Cancel ends any motion in progress as failed.
func (m *Motion) Cancel(reason string) {
	if m.active {
		m.end(false, reason)
	}
}

func (m *Motion) end(ok bool, reason string) {
	m.active = false
	if m.finish != nil {
		m.finish(ok)
	}
	m.logger.Debugw("motion finished",
		"motion", m.name, "command", m.request.Command, "ok", ok, "reason", reason, "elapsed", m.Elapsed())
	if err := m.replier.Reply(m.request, ok); err != nil {
		m.logger.Warnw("cannot reply", "motion", m.name, "command", m.request.Command, "error", err)
	}
}
