package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestMath(t *testing.T) {
	test.That(t, Clamp(1.5, -1, 1), test.ShouldEqual, 1.0)
	test.That(t, Cube(-0.5), test.ShouldEqual, -0.125)
	test.That(t, Deadzone(0.05, 0.1), test.ShouldEqual, 0.0)
	test.That(t, Deadzone(-0.2, 0.1), test.ShouldEqual, -0.2)
	test.That(t, Slew(1, 0, 0.25), test.ShouldEqual, 0.25)
	test.That(t, Slew(-1, 0, 0.25), test.ShouldEqual, -0.25)
	test.That(t, Slew(0.1, 0, 0.25), test.ShouldEqual, 0.1)
	test.That(t, Sign(-3), test.ShouldEqual, -1.0)
	test.That(t, SignedAngleDiffDeg(10, 350), test.ShouldEqual, 20.0)
	test.That(t, SignedAngleDiffDeg(350, 10), test.ShouldEqual, -20.0)
	test.That(t, SignedAngleDiffDeg(90, 0), test.ShouldEqual, 90.0)
}
