package claw

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
	"go.viam.com/rhsrobot/statemachine"
)

func TestClaw(t *testing.T) {
	logger := logging.NewTestLogger(t)
	clk := clock.NewMock()
	observer := &componenttest.Observer{}
	m := fakemotor.NewMotor("claw", fakemotor.Config{}, logger)
	c := New(Config{}, m, components.Deps{Clock: clk, Observer: observer, Logger: logger})
	ctx := context.Background()

	t.Run("over current", func(t *testing.T) {
		c.OnCommand(ctx, message.New(message.ClawClose))
		c.Step(ctx)
		test.That(t, m.Power(), test.ShouldEqual, DefaultClose)
		m.SetCurrent(DefaultCurrentMax + 1)
		c.Step(ctx)
		test.That(t, m.Power(), test.ShouldEqual, 0.0)
		m.SetCurrent(0)
	})

	t.Run("safety timer", func(t *testing.T) {
		c.OnCommand(ctx, message.New(message.ClawOpen))
		test.That(t, m.Power(), test.ShouldEqual, DefaultOpen)
		clk.Add(statemachine.DefaultSafetyCeiling + time.Second)
		c.Step(ctx)
		test.That(t, m.Power(), test.ShouldEqual, 0.0)
		test.That(t, observer.Trips("claw"), test.ShouldEqual, 1)
		clk.Add(statemachine.DefaultSafetyCeiling + time.Second)
		c.Step(ctx)
		test.That(t, observer.Trips("claw"), test.ShouldEqual, 1)
	})

	t.Run("mode change", func(t *testing.T) {
		c.OnCommand(ctx, message.New(message.ClawOpen))
		c.OnModeChange(ctx, message.NewModeChange(message.ModeAutonomous, false))
		test.That(t, m.Power(), test.ShouldEqual, 0.0)
	})
}
