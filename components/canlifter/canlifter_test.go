package canlifter

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/components/componenttest"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	fakemotor "go.viam.com/rhsrobot/motor/fake"
	fakesensor "go.viam.com/rhsrobot/sensor/fake"
	"go.viam.com/rhsrobot/statemachine"
)

type harness struct {
	lifter           *CanLifter
	clk              *clock.Mock
	replier          *componenttest.Replier
	observer         *componenttest.Observer
	motor            *fakemotor.Motor
	top, bottom, mid *fakesensor.Digital
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logging.NewTestLogger(t)
	h := &harness{
		clk:      clock.NewMock(),
		replier:  &componenttest.Replier{},
		observer: &componenttest.Observer{},
		motor:    fakemotor.NewMotor("lifter", fakemotor.Config{}, logger),
		top:      fakesensor.NewDigital(false),
		bottom:   fakesensor.NewDigital(false),
		mid:      fakesensor.NewDigital(false),
	}
	h.lifter = New(Config{}, Hardware{Motor: h.motor, Top: h.top, Bottom: h.bottom, Mid: h.mid},
		components.Deps{Clock: h.clk, Replier: h.replier, Observer: h.observer, Logger: logger})
	return h
}

func (h *harness) send(msg message.Message) {
	h.lifter.OnCommand(context.Background(), msg)
	h.lifter.Step(context.Background())
}

func (h *harness) step() {
	h.lifter.Step(context.Background())
}

func TestManual(t *testing.T) {
	h := newHarness(t)
	h.send(message.New(message.CanLifterRaise))
	test.That(t, h.motor.Power(), test.ShouldEqual, 1.0)
	test.That(t, h.lifter.State(), test.ShouldEqual, statemachine.Raising)

	h.top.Set(true)
	h.step()
	test.That(t, h.motor.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.lifter.State(), test.ShouldEqual, statemachine.Top)

	h.send(message.New(message.CanLifterLower))
	test.That(t, h.motor.Power(), test.ShouldEqual, -1.0)
	h.send(message.New(message.CanLifterStop))
	test.That(t, h.motor.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.replier.Replies(), test.ShouldBeEmpty)
}

func TestRaiseTotes(t *testing.T) {
	h := newHarness(t)
	msg := componenttest.Sync(message.New(message.CanLifterRaiseTotes))
	msg.Params.CanLifter.NumTotes = 3
	h.send(msg)
	test.That(t, h.lifter.NumTotes(), test.ShouldEqual, 3)
	test.That(t, h.motor.Power(), test.ShouldEqual, 1.0)
	test.That(t, h.replier.Replies(), test.ShouldBeEmpty)

	h.top.Set(true)
	h.step()
	test.That(t, h.replier.Replies(), test.ShouldResemble, []componenttest.Reply{
		{Command: message.CanLifterRaiseTotes, OK: true},
	})

	h.top.Set(false)
	h.send(componenttest.Sync(message.New(message.CanLifterClawToBottom)))
	test.That(t, h.motor.Power(), test.ShouldEqual, -1.0)
	h.bottom.Set(true)
	h.step()
	test.That(t, h.lifter.State(), test.ShouldEqual, statemachine.Bottom)
	test.That(t, h.replier.Replies()[1], test.ShouldResemble,
		componenttest.Reply{Command: message.CanLifterClawToBottom, OK: true})
}

func TestMidStop(t *testing.T) {
	h := newHarness(t)
	h.send(componenttest.Sync(message.New(message.CanLifterRaiseLoMid)))
	test.That(t, h.motor.Power(), test.ShouldEqual, 1.0)
	h.mid.Set(true)
	h.step()
	test.That(t, h.motor.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.lifter.State(), test.ShouldEqual, statemachine.HoldAtBoundary)
	test.That(t, h.replier.Replies(), test.ShouldResemble, []componenttest.Reply{
		{Command: message.CanLifterRaiseLoMid, OK: true},
	})
}

func TestTimeoutAndModeChange(t *testing.T) {
	h := newHarness(t)
	h.send(componenttest.Sync(message.New(message.CanLifterClawToTop)))
	h.clk.Add(DefaultMotionTimeout)
	h.step()
	test.That(t, h.motor.Power(), test.ShouldEqual, 0.0)

	h.send(componenttest.Sync(message.New(message.CanLifterClawToTop)))
	h.lifter.OnModeChange(context.Background(), message.NewModeChange(message.ModeDisabled, false))
	test.That(t, h.motor.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.replier.Replies(), test.ShouldResemble, []componenttest.Reply{
		{Command: message.CanLifterClawToTop, OK: false},
		{Command: message.CanLifterClawToTop, OK: false},
	})
}

func TestSafetyTrip(t *testing.T) {
	h := newHarness(t)
	h.send(message.New(message.CanLifterRaise))
	h.clk.Add(statemachine.DefaultSafetyCeiling + time.Millisecond)
	h.step()
	test.That(t, h.motor.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.observer.Trips("canlifter"), test.ShouldEqual, 1)
	h.clk.Add(statemachine.DefaultSafetyCeiling + time.Millisecond)
	h.step()
	test.That(t, h.observer.Trips("canlifter"), test.ShouldEqual, 1)
}
