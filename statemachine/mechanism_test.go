package statemachine

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/rhsrobot/logging"
	fakemotor "go.viam.com/rhsrobot/motor/fake"
	fakesensor "go.viam.com/rhsrobot/sensor/fake"
)

type rig struct {
	clk    *clock.Mock
	motor  *fakemotor.Motor
	top    *fakesensor.Digital
	bottom *fakesensor.Digital
	mech   *Mechanism
	trips  int
}

func newRig(t *testing.T) *rig {
	t.Helper()
	logger := logging.NewTestLogger(t)
	r := &rig{
		clk:    clock.NewMock(),
		motor:  fakemotor.NewMotor("lift", fakemotor.Config{}, logger),
		top:    fakesensor.NewDigital(false),
		bottom: fakesensor.NewDigital(false),
	}
	r.mech = NewMechanism("lift", r.motor, r.top, r.bottom, MechanismConfig{
		Rates:        Rates{Raise: 1, Lower: -1, HoldTop: 0.1, HoldBottom: -0.25},
		CycleDelay:   2500 * time.Millisecond,
		Clock:        r.clk,
		OnSafetyTrip: func() { r.trips++ },
	}, logger)
	return r
}

func TestMechanismTravel(t *testing.T) {
	r := newRig(t)
	test.That(t, r.mech.State(), test.ShouldEqual, HoldAtBoundary)

	r.mech.Raise()
	test.That(t, r.mech.Step(), test.ShouldEqual, EventNone)
	test.That(t, r.motor.Power(), test.ShouldEqual, 1.0)

	r.top.Set(true)
	test.That(t, r.mech.Step(), test.ShouldEqual, EventReachedTop)
	test.That(t, r.mech.State(), test.ShouldEqual, Top)
	test.That(t, r.motor.Power(), test.ShouldEqual, 0.1)

	// Resting at a boundary reports nothing new.
	test.That(t, r.mech.Step(), test.ShouldEqual, EventNone)

	r.top.Set(false)
	r.mech.Lower()
	test.That(t, r.motor.Power(), test.ShouldEqual, -1.0)
	r.bottom.Set(true)
	test.That(t, r.mech.Step(), test.ShouldEqual, EventReachedBottom)
	test.That(t, r.mech.State(), test.ShouldEqual, Bottom)
	test.That(t, r.motor.Power(), test.ShouldEqual, -0.25)

	r.mech.Stop()
	test.That(t, r.motor.Power(), test.ShouldEqual, 0.0)
	test.That(t, r.mech.State(), test.ShouldEqual, HoldAtBoundary)
}

func TestMechanismSafetyTrip(t *testing.T) {
	r := newRig(t)
	r.mech.Raise()

	for i := 0; i < 10; i++ {
		r.clk.Add(time.Second)
		test.That(t, r.mech.Step(), test.ShouldEqual, EventNone)
	}

	r.clk.Add(25 * time.Second)
	test.That(t, r.mech.Step(), test.ShouldEqual, EventSafetyTrip)
	test.That(t, r.motor.Power(), test.ShouldEqual, 0.0)
	test.That(t, r.mech.State(), test.ShouldEqual, HoldAtBoundary)

	// Once neutral, later crossings do not trip again.
	r.clk.Add(31 * time.Second)
	test.That(t, r.mech.Step(), test.ShouldEqual, EventNone)
	test.That(t, r.trips, test.ShouldEqual, 1)

	t.Run("a fresh command restarts the ceiling", func(t *testing.T) {
		r.mech.Lower()
		r.clk.Add(29 * time.Second)
		test.That(t, r.mech.Step(), test.ShouldEqual, EventNone)
		r.mech.Lower()
		r.clk.Add(29 * time.Second)
		test.That(t, r.mech.Step(), test.ShouldEqual, EventNone)
		test.That(t, r.motor.Power(), test.ShouldEqual, -1.0)
	})
}

func TestMechanismCycleDelay(t *testing.T) {
	r := newRig(t)
	r.mech.StartCycleDelay()

	r.clk.Add(time.Second)
	r.mech.Step()
	test.That(t, r.mech.State(), test.ShouldEqual, InterCycleDelay)
	test.That(t, r.motor.Power(), test.ShouldEqual, -0.25)

	r.clk.Add(2 * time.Second)
	r.mech.Step()
	test.That(t, r.mech.State(), test.ShouldEqual, Raising)
	test.That(t, r.motor.Power(), test.ShouldEqual, 1.0)
}
