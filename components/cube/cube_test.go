package cube

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
	t        *testing.T
	cube     *Cube
	clk      *clock.Mock
	observer *componenttest.Observer

	clicker, lifter, intake   *fakemotor.Motor
	clickerTop, clickerBottom *fakesensor.Digital
	lifterTop, lifterBottom   *fakesensor.Digital
	ir                        *fakesensor.Digital
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logging.NewTestLogger(t)
	h := &harness{
		t:             t,
		clk:           clock.NewMock(),
		observer:      &componenttest.Observer{},
		clicker:       fakemotor.NewMotor("clicker", fakemotor.Config{}, logger),
		lifter:        fakemotor.NewMotor("lifter", fakemotor.Config{}, logger),
		intake:        fakemotor.NewMotor("intake", fakemotor.Config{}, logger),
		clickerTop:    fakesensor.NewDigital(false),
		clickerBottom: fakesensor.NewDigital(false),
		lifterTop:     fakesensor.NewDigital(false),
		lifterBottom:  fakesensor.NewDigital(false),
		ir:            fakesensor.NewDigital(false),
	}
	h.cube = New(Config{}, Hardware{
		Clicker: h.clicker, Lifter: h.lifter, Intake: h.intake,
		ClickerTop: h.clickerTop, ClickerBottom: h.clickerBottom,
		LifterTop: h.lifterTop, LifterBottom: h.lifterBottom,
		IRBeam: h.ir,
	}, components.Deps{Clock: h.clk, Observer: h.observer, Logger: logger})
	return h
}

func (h *harness) send(cmd message.Command) {
	h.cube.OnCommand(context.Background(), message.New(cmd))
	h.cube.Step(context.Background())
}

// tick advances past one step interval and steps.
func (h *harness) tick() {
	h.clk.Add(DefaultStepInterval + 5*time.Millisecond)
	h.cube.Step(context.Background())
}

func (h *harness) expect(clicker, lifter statemachine.State, totes int) {
	h.t.Helper()
	s := h.cube.Status()
	test.That(h.t, s.Clicker, test.ShouldEqual, clicker)
	test.That(h.t, s.Lifter, test.ShouldEqual, lifter)
	test.That(h.t, s.NumTotes, test.ShouldEqual, totes)
}

// click drops the clicker from Top onto one more tote and steps it off the bottom.
func (h *harness) click(wantTotes int) {
	h.t.Helper()
	h.clickerTop.Set(false)
	h.ir.Set(true)
	h.tick()
	test.That(h.t, h.clicker.Power(), test.ShouldEqual, DefaultClickerLower)
	h.ir.Set(false)
	h.clickerBottom.Set(true)
	h.tick()
	test.That(h.t, h.cube.Status().Clicker, test.ShouldEqual, statemachine.Bottom)
	h.clickerBottom.Set(false)
	h.tick()
	test.That(h.t, h.cube.Status().NumTotes, test.ShouldEqual, wantTotes)
}

func TestAutoCycle(t *testing.T) {
	h := newHarness(t)
	h.cube.OnModeChange(context.Background(), message.NewModeChange(message.ModeTeleoperated, false))
	test.That(t, h.intake.Power(), test.ShouldEqual, DefaultIntakeRun)

	h.send(message.CubeAutoCycleStart)
	h.tick()
	h.expect(statemachine.Raising, statemachine.Lowering, 0)
	test.That(t, h.clicker.Power(), test.ShouldEqual, DefaultClickerRaise)
	test.That(t, h.lifter.Power(), test.ShouldEqual, DefaultLifterLower)

	h.clickerTop.Set(true)
	h.lifterBottom.Set(true)
	h.tick()
	h.expect(statemachine.Top, statemachine.Bottom, 0)
	test.That(t, h.clicker.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.lifter.Power(), test.ShouldEqual, 0.0)

	h.clickerTop.Set(false)
	h.tick()
	test.That(t, h.clicker.Power(), test.ShouldEqual, DefaultClickerTopHold)

	for i := 1; i < liftAt; i++ {
		h.click(i)
		h.expect(statemachine.Raising, statemachine.Bottom, i)
		h.clickerTop.Set(true)
		h.tick()
		h.expect(statemachine.Top, statemachine.Bottom, i)
	}

	// The fifth tote parks the clicker until the lifter has raised the stack.
	h.click(liftAt)
	h.expect(statemachine.HoldAtBoundary, statemachine.WaitToRaise, liftAt)
	h.tick()
	test.That(t, h.clicker.Power(), test.ShouldEqual, DefaultClickerLower)
	h.expect(statemachine.HoldAtBoundary, statemachine.WaitToRaise, liftAt)

	h.send(message.CubeAutoCycleOkToRaiseCan)
	h.tick()
	h.expect(statemachine.HoldAtBoundary, statemachine.Raising, liftAt)
	h.tick()
	test.That(t, h.lifter.Power(), test.ShouldEqual, DefaultLifterRaise)
	h.lifterTop.Set(true)
	h.tick()
	h.expect(statemachine.HoldAtBoundary, statemachine.Top, liftAt)
	h.tick()
	h.expect(statemachine.Raising, statemachine.Top, liftAt)
	h.clickerTop.Set(true)
	h.tick()
	h.expect(statemachine.Top, statemachine.Top, liftAt)

	// The sixth tote completes the stack; once it leaves the intake the cycle restarts.
	h.ir.Set(true)
	h.clickerTop.Set(false)
	h.tick()
	h.expect(statemachine.Lowering, statemachine.Top, MaxTotes)
	h.clickerBottom.Set(true)
	h.tick()
	h.tick()
	h.expect(statemachine.HoldAtBoundary, statemachine.Top, MaxTotes)
	h.tick()
	h.expect(statemachine.HoldAtBoundary, statemachine.Top, MaxTotes)
	h.ir.Set(false)
	h.tick()
	h.expect(statemachine.InterCycleDelay, statemachine.Top, 0)

	h.lifterBottom.Set(false)
	h.clk.Add(DefaultCycleDelay)
	h.tick()
	h.expect(statemachine.Raising, statemachine.Lowering, 0)
	test.That(t, h.observer.Trips("cube"), test.ShouldEqual, 0)
}

func TestManualIgnoredInAutoCycle(t *testing.T) {
	h := newHarness(t)
	h.send(message.CubeClickerRaise)
	test.That(t, h.clicker.Power(), test.ShouldEqual, DefaultClickerRaise)
	h.send(message.CubeLifterLower)
	test.That(t, h.lifter.Power(), test.ShouldEqual, DefaultLifterLower)
	h.send(message.CubeStop)
	test.That(t, h.clicker.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.lifter.Power(), test.ShouldEqual, 0.0)

	h.send(message.CubeAutoCycleStart)
	h.send(message.CubeLifterRaise)
	h.send(message.CubeIntakeStop)
	test.That(t, h.lifter.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.intake.Power(), test.ShouldEqual, DefaultIntakeRun)

	h.send(message.CubeAutoCycleStop)
	test.That(t, h.cube.Status().AutoCycle, test.ShouldBeFalse)
	h.send(message.CubeIntakeStop)
	test.That(t, h.intake.Power(), test.ShouldEqual, 0.0)
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t)
	h.send(message.CubeAutoCycleStart)
	h.tick()
	test.That(t, h.clicker.Power(), test.ShouldEqual, DefaultClickerRaise)

	h.send(message.CubeAutoCyclePause)
	test.That(t, h.cube.Status().Paused, test.ShouldBeTrue)
	test.That(t, h.cube.Status().AutoCycle, test.ShouldBeFalse)
	test.That(t, h.clicker.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.lifter.Power(), test.ShouldEqual, 0.0)
	h.tick()
	test.That(t, h.clicker.Power(), test.ShouldEqual, 0.0)

	h.send(message.CubeAutoCycleResume)
	test.That(t, h.clicker.Power(), test.ShouldEqual, DefaultClickerRaise)
	test.That(t, h.lifter.Power(), test.ShouldEqual, DefaultLifterLower)
	test.That(t, h.cube.Status().AutoCycle, test.ShouldBeTrue)
	h.expect(statemachine.Raising, statemachine.Lowering, 0)
}

func TestCount(t *testing.T) {
	h := newHarness(t)
	h.send(message.CubeAutoCycleDecrementCount)
	test.That(t, h.cube.Status().NumTotes, test.ShouldEqual, 0)
	for i := 0; i < MaxTotes+2; i++ {
		h.send(message.CubeAutoCycleIncrementCount)
	}
	test.That(t, h.cube.Status().NumTotes, test.ShouldEqual, liftAt)
	// A stack waiting on the lifter is not adjusted by hand.
	h.send(message.CubeAutoCycleDecrementCount)
	test.That(t, h.cube.Status().NumTotes, test.ShouldEqual, liftAt)
}

func TestSafetyAndModeChange(t *testing.T) {
	h := newHarness(t)
	h.send(message.CubeClickerLower)
	h.clk.Add(statemachine.DefaultSafetyCeiling + time.Second)
	h.cube.Step(context.Background())
	test.That(t, h.clicker.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.observer.Trips("cube"), test.ShouldEqual, 1)

	h.send(message.CubeAutoCycleStart)
	h.tick()
	h.cube.OnModeChange(context.Background(), message.NewModeChange(message.ModeDisabled, false))
	test.That(t, h.cube.Status().AutoCycle, test.ShouldBeFalse)
	test.That(t, h.clicker.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.lifter.Power(), test.ShouldEqual, 0.0)
	test.That(t, h.intake.Power(), test.ShouldEqual, 0.0)
}
