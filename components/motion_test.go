package components_test

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/components/componenttest"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
)

func TestSeconds(t *testing.T) {
	test.That(t, components.Seconds(1.5), test.ShouldEqual, 1500*time.Millisecond)
	test.That(t, components.Seconds(0), test.ShouldEqual, time.Duration(0))
	test.That(t, components.Seconds(-5), test.ShouldEqual, time.Duration(0))
	test.That(t, components.Seconds(math.NaN()), test.ShouldEqual, time.Duration(0))
	test.That(t, components.Seconds(1e12), test.ShouldEqual, components.MaxMotion)
	test.That(t, components.Seconds(math.Inf(1)), test.ShouldEqual, components.MaxMotion)
}

func TestMotion(t *testing.T) {
	clk := clock.NewMock()
	replier := &componenttest.Replier{}
	deps := components.Deps{Clock: clk, Replier: replier, Logger: logging.NewTestLogger(t)}
	m := components.NewMotion("test", deps)

	var finished []bool
	finish := func(ok bool) { finished = append(finished, ok) }
	req := componenttest.Sync(message.New(message.ConveyorWaitFrontBeam))

	t.Run("done after timein", func(t *testing.T) {
		finished = nil
		done := false
		m.Start(req, components.Bound{Done: func() bool { return done }, Timein: time.Second, Timeout: 5 * time.Second}, finish)
		done = true
		test.That(t, m.Step(), test.ShouldBeFalse)
		clk.Add(time.Second)
		test.That(t, m.Step(), test.ShouldBeTrue)
		test.That(t, m.Active(), test.ShouldBeFalse)
		test.That(t, finished, test.ShouldResemble, []bool{true})
		test.That(t, m.Step(), test.ShouldBeFalse)
	})

	t.Run("timeout", func(t *testing.T) {
		finished = nil
		m.Start(req, components.Bound{Done: func() bool { return false }, Timeout: 2 * time.Second}, finish)
		clk.Add(2 * time.Second)
		test.That(t, m.Step(), test.ShouldBeTrue)
		test.That(t, finished, test.ShouldResemble, []bool{false})
	})

	t.Run("time only", func(t *testing.T) {
		finished = nil
		m.Start(req, components.Bound{Timeout: time.Second, SucceedOnTimeout: true}, finish)
		test.That(t, m.Command(), test.ShouldEqual, message.ConveyorWaitFrontBeam)
		clk.Add(time.Second)
		test.That(t, m.Step(), test.ShouldBeTrue)
		test.That(t, finished, test.ShouldResemble, []bool{true})
	})

	t.Run("preempt and cancel", func(t *testing.T) {
		finished = nil
		m.Start(req, components.Bound{}, finish)
		m.Start(req, components.Bound{}, finish)
		m.Cancel("mode change")
		m.Cancel("again")
		test.That(t, finished, test.ShouldResemble, []bool{false, false})
	})

	test.That(t, replier.Replies(), test.ShouldResemble, []componenttest.Reply{
		{Command: message.ConveyorWaitFrontBeam, OK: true},
		{Command: message.ConveyorWaitFrontBeam, OK: false},
		{Command: message.ConveyorWaitFrontBeam, OK: true},
		{Command: message.ConveyorWaitFrontBeam, OK: false},
		{Command: message.ConveyorWaitFrontBeam, OK: false},
	})
}
