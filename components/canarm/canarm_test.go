package canarm

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
)

func TestCanArm(t *testing.T) {
	logger := logging.NewTestLogger(t)
	clk := clock.NewMock()
	replier := &componenttest.Replier{}
	m := fakemotor.NewMotor("arm", fakemotor.Config{}, logger)
	a := New(Config{}, m, components.Deps{Clock: clk, Replier: replier, Logger: logger})
	ctx := context.Background()

	t.Run("open for the motion time", func(t *testing.T) {
		a.OnCommand(ctx, componenttest.Sync(message.New(message.CanArmOpen)))
		a.Step(ctx)
		test.That(t, m.Power(), test.ShouldEqual, DefaultOpen)
		clk.Add(DefaultMotionTime / 2)
		a.Step(ctx)
		test.That(t, m.Power(), test.ShouldEqual, DefaultOpen)
		clk.Add(DefaultMotionTime / 2)
		a.Step(ctx)
		test.That(t, m.Power(), test.ShouldEqual, 0.0)
	})

	t.Run("close until stall", func(t *testing.T) {
		a.OnCommand(ctx, componenttest.Sync(message.New(message.CanArmClose)))
		a.Step(ctx)
		test.That(t, m.Power(), test.ShouldEqual, DefaultClose)
		m.SetCurrent(25)
		clk.Add(100 * time.Millisecond)
		a.Step(ctx)
		test.That(t, m.Power(), test.ShouldEqual, 0.0)
		m.SetCurrent(0)
	})

	t.Run("mode change", func(t *testing.T) {
		a.OnCommand(ctx, componenttest.Sync(message.New(message.CanArmOpen)))
		a.OnModeChange(ctx, message.NewModeChange(message.ModeDisabled, false))
		test.That(t, m.Power(), test.ShouldEqual, 0.0)
	})

	test.That(t, replier.Replies(), test.ShouldResemble, []componenttest.Reply{
		{Command: message.CanArmOpen, OK: true},
		{Command: message.CanArmClose, OK: true},
		{Command: message.CanArmOpen, OK: false},
	})
}
