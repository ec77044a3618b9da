package fake

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/motor"
)

func TestMotor(t *testing.T) {
	logger := logging.NewTestLogger(t)
	m := NewMotor("m1", Config{}, logger)

	test.That(t, m.Power(), test.ShouldEqual, 0.0)
	test.That(t, m.Direction(), test.ShouldEqual, 0)

	m.SetPower(0.5)
	test.That(t, m.Power(), test.ShouldEqual, 0.5)
	test.That(t, m.Direction(), test.ShouldEqual, 1)

	m.SetPower(-3)
	test.That(t, m.Power(), test.ShouldEqual, -1.0)
	test.That(t, m.Direction(), test.ShouldEqual, -1)

	motor.StopAll(m, nil)
	test.That(t, m.History(), test.ShouldResemble, []float64{0.5, -1, 0})

	m.SetCurrent(31)
	test.That(t, m.Current(), test.ShouldEqual, 31.0)

	t.Run("direction flip", func(t *testing.T) {
		flipped := NewMotor("m2", Config{DirectionFlip: true}, logger)
		flipped.SetPower(0.25)
		test.That(t, flipped.Power(), test.ShouldEqual, -0.25)
	})
}
