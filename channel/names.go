package channel

// Names of the robot's actor channels.
const (
	Drivetrain  = "qDrive"
	Autonomous  = "qAuto"
	ScriptReply = "qAuto.reply"
	Conveyor    = "qConvey"
	Cube        = "qClicker"
	JackClicker = "qJackClick"
	CanLifter   = "qCanLift"
	CanArm      = "qCanArm"
	Claw        = "qClaw"
	ToteLifter  = "qToteLift"
)

// ActorChannels lists every channel an actor reads, in broadcast order.
func ActorChannels() []string {
	return []string{Drivetrain, Autonomous, Conveyor, Cube, JackClicker, CanLifter, CanArm, Claw, ToteLifter}
}
