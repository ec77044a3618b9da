package robot

import (
	"go.viam.com/rhsrobot/components/canlifter"
	"go.viam.com/rhsrobot/components/conveyor"
	"go.viam.com/rhsrobot/components/cube"
	"go.viam.com/rhsrobot/components/drivetrain"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/motor"
	fakemotor "go.viam.com/rhsrobot/motor/fake"
	fakesensor "go.viam.com/rhsrobot/sensor/fake"
)

// Hardware is every actuator and sensor the robot owns, grouped by the subsystem that owns it.
// No device appears in two groups.
type Hardware struct {
	Drivetrain  drivetrain.Hardware
	Conveyor    conveyor.Hardware
	CanLifter   canlifter.Hardware
	JackClicker motor.Motor
	CanArm      motor.Motor
	Claw        motor.Motor
	ToteLifter  motor.Motor
	Cube        cube.Hardware
}

// FakeHardware is a complete set of fake devices for simulation and tests.
type FakeHardware struct {
	LeftDrive, RightDrive *fakemotor.Motor
	Gyro                  *fakesensor.Gyro
	Encoder               *fakesensor.Encoder
	ToteSensor            *fakesensor.Digital

	Conveyor, IntakeLeft, IntakeRight *fakemotor.Motor
	FrontBeam, BackBeam               *fakesensor.Digital

	CanLifter                          *fakemotor.Motor
	CanLifterTop, CanLifterBottom, Mid *fakesensor.Digital

	JackClicker, CanArm, Claw, ToteLifter *fakemotor.Motor

	CubeClicker, CubeLifter, CubeIntake *fakemotor.Motor
	ClickerTop, ClickerBottom           *fakesensor.Digital
	LifterTop, LifterBottom, IRBeam     *fakesensor.Digital
}

// NewFakeHardware returns fake devices with every sensor clear.
func NewFakeHardware(logger logging.Logger) *FakeHardware {
	m := func(name string) *fakemotor.Motor {
		return fakemotor.NewMotor(name, fakemotor.Config{}, logger.Sublogger(name))
	}
	d := func() *fakesensor.Digital { return fakesensor.NewDigital(false) }
	return &FakeHardware{
		LeftDrive: m("left_drive"), RightDrive: m("right_drive"),
		Gyro: &fakesensor.Gyro{}, Encoder: &fakesensor.Encoder{}, ToteSensor: d(),

		Conveyor: m("conveyor"), IntakeLeft: m("intake_left"), IntakeRight: m("intake_right"),
		FrontBeam: d(), BackBeam: d(),

		CanLifter: m("can_lifter"), CanLifterTop: d(), CanLifterBottom: d(), Mid: d(),

		JackClicker: m("jack_clicker"), CanArm: m("can_arm"), Claw: m("claw"), ToteLifter: m("tote_lifter"),

		CubeClicker: m("cube_clicker"), CubeLifter: m("cube_lifter"), CubeIntake: m("cube_intake"),
		ClickerTop: d(), ClickerBottom: d(), LifterTop: d(), LifterBottom: d(), IRBeam: d(),
	}
}

// Hardware groups the fakes by owning subsystem.
func (f *FakeHardware) Hardware() Hardware {
	return Hardware{
		Drivetrain: drivetrain.Hardware{
			Left: f.LeftDrive, Right: f.RightDrive,
			Gyro: f.Gyro, Encoder: f.Encoder, ToteSensor: f.ToteSensor,
		},
		Conveyor: conveyor.Hardware{
			Conveyor: f.Conveyor, IntakeLeft: f.IntakeLeft, IntakeRight: f.IntakeRight,
			FrontBeam: f.FrontBeam, BackBeam: f.BackBeam,
		},
		CanLifter:   canlifter.Hardware{Motor: f.CanLifter, Top: f.CanLifterTop, Bottom: f.CanLifterBottom, Mid: f.Mid},
		JackClicker: f.JackClicker,
		CanArm:      f.CanArm,
		Claw:        f.Claw,
		ToteLifter:  f.ToteLifter,
		Cube: cube.Hardware{
			Clicker: f.CubeClicker, Lifter: f.CubeLifter, Intake: f.CubeIntake,
			ClickerTop: f.ClickerTop, ClickerBottom: f.ClickerBottom,
			LifterTop: f.LifterTop, LifterBottom: f.LifterBottom, IRBeam: f.IRBeam,
		},
	}
}

// Motors returns every fake motor.
func (f *FakeHardware) Motors() []*fakemotor.Motor {
	return []*fakemotor.Motor{
		f.LeftDrive, f.RightDrive, f.Conveyor, f.IntakeLeft, f.IntakeRight, f.CanLifter,
		f.JackClicker, f.CanArm, f.Claw, f.ToteLifter, f.CubeClicker, f.CubeLifter, f.CubeIntake,
	}
}
