package message

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Command is the tag identifying what a Message asks its receiver to do.
type Command int

// Command list. The robot state commands are the mode tags broadcast to every task.
const (
	SystemMsgTimeout Command = iota
	SystemOK
	SystemError

	RobotStateDisabled
	RobotStateAutonomous
	RobotStateTeleoperated
	RobotStateTest
	RobotStateUnknown

	AutonomousRun
	AutonomousComplete
	AutonomousResponseOK
	AutonomousResponseError
	ChecklistRun
	ComponentTest

	DrivetrainDriveTank
	DrivetrainDriveArcade
	DrivetrainDriveStraight
	DrivetrainTurn
	DrivetrainSeekTote
	DrivetrainStartDriveFwd
	DrivetrainStartDriveBck
	DrivetrainStop

	ConveyorRunFwd
	ConveyorRunBck
	ConveyorStop
	ConveyorIntakeLeftIn
	ConveyorIntakeLeftOut
	ConveyorIntakeLeftStop
	ConveyorIntakeRightIn
	ConveyorIntakeRightOut
	ConveyorIntakeRightStop
	ConveyorIntakeBothIn
	ConveyorIntakeBothOut
	ConveyorIntakeBothStop
	ConveyorRunAllFwd
	ConveyorRunAllBck
	ConveyorRunAllStop
	ConveyorCanAdjustBoth
	ConveyorCanAdjustLeft
	ConveyorCanAdjustRight
	ConveyorSeekToteFront
	ConveyorSeekToteBack
	ConveyorFrontLoadTote
	ConveyorBackLoadTote
	ConveyorWaitFrontBeam
	ConveyorWaitBackBeam
	ConveyorDepositTotesBck
	ConveyorShiftTotesFwd
	ConveyorShiftTotesBck
	ConveyorPushTotesBck

	CanLifterRaise
	CanLifterLower
	CanLifterStop
	CanLifterRaiseTotes
	CanLifterStartRaiseTotes
	CanLifterLowerTotes
	CanLifterClawToTop
	CanLifterClawToBottom
	CanLifterRaiseLoMid
	CanLifterLowerHiMid

	JackClickerRaise
	JackClickerLower
	JackClickerStop

	CanArmOpen
	CanArmClose
	CanArmStop

	ClawOpen
	ClawClose
	ClawStop

	ToteLifterExtend
	ToteLifterRetract

	CubeClickerRaise
	CubeClickerLower
	CubeClickerStop
	CubeLifterRaise
	CubeLifterLower
	CubeLifterStop
	CubeIntakeRun
	CubeIntakeStop
	CubeStop
	CubeAutoCycleStart
	CubeAutoCycleStop
	CubeAutoCyclePause
	CubeAutoCycleResume
	CubeAutoCycleOkToRaiseCan
	CubeAutoCycleIncrementCount
	CubeAutoCycleDecrementCount

	lastCommand
)

var commandNames = [...]string{
	SystemMsgTimeout: "SYSTEM_MSGTIMEOUT",
	SystemOK:         "SYSTEM_OK",
	SystemError:      "SYSTEM_ERROR",

	RobotStateDisabled:     "ROBOT_STATE_DISABLED",
	RobotStateAutonomous:   "ROBOT_STATE_AUTONOMOUS",
	RobotStateTeleoperated: "ROBOT_STATE_TELEOPERATED",
	RobotStateTest:         "ROBOT_STATE_TEST",
	RobotStateUnknown:      "ROBOT_STATE_UNKNOWN",

	AutonomousRun:           "AUTONOMOUS_RUN",
	AutonomousComplete:      "AUTONOMOUS_COMPLETE",
	AutonomousResponseOK:    "AUTONOMOUS_RESPONSE_OK",
	AutonomousResponseError: "AUTONOMOUS_RESPONSE_ERROR",
	ChecklistRun:            "CHECKLIST_RUN",
	ComponentTest:           "COMPONENT_TEST",

	DrivetrainDriveTank:     "DRIVETRAIN_DRIVE_TANK",
	DrivetrainDriveArcade:   "DRIVETRAIN_DRIVE_ARCADE",
	DrivetrainDriveStraight: "DRIVETRAIN_DRIVE_STRAIGHT",
	DrivetrainTurn:          "DRIVETRAIN_TURN",
	DrivetrainSeekTote:      "DRIVETRAIN_SEEK_TOTE",
	DrivetrainStartDriveFwd: "DRIVETRAIN_START_DRIVE_FWD",
	DrivetrainStartDriveBck: "DRIVETRAIN_START_DRIVE_BCK",
	DrivetrainStop:          "DRIVETRAIN_STOP",

	ConveyorRunFwd:          "CONVEYOR_RUN_FWD",
	ConveyorRunBck:          "CONVEYOR_RUN_BCK",
	ConveyorStop:            "CONVEYOR_STOP",
	ConveyorIntakeLeftIn:    "CONVEYOR_INTAKELEFT_IN",
	ConveyorIntakeLeftOut:   "CONVEYOR_INTAKELEFT_OUT",
	ConveyorIntakeLeftStop:  "CONVEYOR_INTAKELEFT_STOP",
	ConveyorIntakeRightIn:   "CONVEYOR_INTAKERIGHT_IN",
	ConveyorIntakeRightOut:  "CONVEYOR_INTAKERIGHT_OUT",
	ConveyorIntakeRightStop: "CONVEYOR_INTAKERIGHT_STOP",
	ConveyorIntakeBothIn:    "CONVEYOR_INTAKEBOTH_IN",
	ConveyorIntakeBothOut:   "CONVEYOR_INTAKEBOTH_OUT",
	ConveyorIntakeBothStop:  "CONVEYOR_INTAKEBOTH_STOP",
	ConveyorRunAllFwd:       "CONVEYOR_RUNALL_FWD",
	ConveyorRunAllBck:       "CONVEYOR_RUNALL_BCK",
	ConveyorRunAllStop:      "CONVEYOR_RUNALL_STOP",
	ConveyorCanAdjustBoth:   "CONVEYOR_CANADJUST_BOTH",
	ConveyorCanAdjustLeft:   "CONVEYOR_CANADJUST_LEFT",
	ConveyorCanAdjustRight:  "CONVEYOR_CANADJUST_RIGHT",
	ConveyorSeekToteFront:   "CONVEYOR_SEEK_TOTE_FRONT",
	ConveyorSeekToteBack:    "CONVEYOR_SEEK_TOTE_BACK",
	ConveyorFrontLoadTote:   "CONVEYOR_FRONTLOAD_TOTE",
	ConveyorBackLoadTote:    "CONVEYOR_BACKLOAD_TOTE",
	ConveyorWaitFrontBeam:   "CONVEYOR_WAIT_FRONT_BEAM",
	ConveyorWaitBackBeam:    "CONVEYOR_WAIT_BACK_BEAM",
	ConveyorDepositTotesBck: "CONVEYOR_DEPOSITTOTES_BCK",
	ConveyorShiftTotesFwd:   "CONVEYOR_SHIFTTOTES_FWD",
	ConveyorShiftTotesBck:   "CONVEYOR_SHIFTTOTES_BCK",
	ConveyorPushTotesBck:    "CONVEYOR_PUSHTOTES_BCK",

	CanLifterRaise:           "CANLIFTER_RAISE",
	CanLifterLower:           "CANLIFTER_LOWER",
	CanLifterStop:            "CANLIFTER_STOP",
	CanLifterRaiseTotes:      "CANLIFTER_RAISE_TOTES",
	CanLifterStartRaiseTotes: "CANLIFTER_START_RAISE_TOTES",
	CanLifterLowerTotes:      "CANLIFTER_LOWER_TOTES",
	CanLifterClawToTop:       "CANLIFTER_CLAW_TO_TOP",
	CanLifterClawToBottom:    "CANLIFTER_CLAW_TO_BOTTOM",
	CanLifterRaiseLoMid:      "CANLIFTER_RAISE_LOMID",
	CanLifterLowerHiMid:      "CANLIFTER_LOWER_HIMID",

	JackClickerRaise: "JACKCLICKER_RAISE",
	JackClickerLower: "JACKCLICKER_LOWER",
	JackClickerStop:  "JACKCLICKER_STOP",

	CanArmOpen:  "CANARM_OPEN",
	CanArmClose: "CANARM_CLOSE",
	CanArmStop:  "CANARM_STOP",

	ClawOpen:  "CLAW_OPEN",
	ClawClose: "CLAW_CLOSE",
	ClawStop:  "CLAW_STOP",

	ToteLifterExtend:  "TOTELIFTER_EXTEND",
	ToteLifterRetract: "TOTELIFTER_RETRACT",

	CubeClickerRaise:            "CUBECLICKER_RAISE",
	CubeClickerLower:            "CUBECLICKER_LOWER",
	CubeClickerStop:             "CUBECLICKER_STOP",
	CubeLifterRaise:             "CUBELIFTER_RAISE",
	CubeLifterLower:             "CUBELIFTER_LOWER",
	CubeLifterStop:              "CUBELIFTER_STOP",
	CubeIntakeRun:               "CUBEINTAKE_RUN",
	CubeIntakeStop:              "CUBEINTAKE_STOP",
	CubeStop:                    "CUBE_STOP",
	CubeAutoCycleStart:          "CUBEAUTOCYCLE_START",
	CubeAutoCycleStop:           "CUBEAUTOCYCLE_STOP",
	CubeAutoCyclePause:          "CUBEAUTOCYCLE_PAUSE",
	CubeAutoCycleResume:         "CUBEAUTOCYCLE_RESUME",
	CubeAutoCycleOkToRaiseCan:   "CUBEAUTOCYCLE_OKTORAISECAN",
	CubeAutoCycleIncrementCount: "CUBEAUTOCYCLE_INCREMENT_COUNT",
	CubeAutoCycleDecrementCount: "CUBEAUTOCYCLE_DECREMENT_COUNT",
}

var commandsByName = func() map[string]Command {
	byName := make(map[string]Command, len(commandNames))
	for cmd, name := range commandNames {
		byName[name] = Command(cmd)
	}
	return byName
}()

func (c Command) String() string {
	if c < 0 || c >= lastCommand {
		return "UNKNOWN_COMMAND"
	}
	return commandNames[c]
}

// ParseCommand returns the Command with exactly the given name.
func ParseCommand(name string) (Command, error) {
	cmd, ok := commandsByName[name]
	if !ok {
		return SystemMsgTimeout, errors.Errorf("unknown command %q", name)
	}
	return cmd, nil
}

// Commands returns every known command in declaration order.
func Commands() []Command {
	cmds := make([]Command, 0, int(lastCommand))
	for c := Command(0); c < lastCommand; c++ {
		cmds = append(cmds, c)
	}
	return cmds
}

// IsModeChange is true for the robot state commands.
func (c Command) IsModeChange() bool {
	switch c {
	case RobotStateDisabled, RobotStateAutonomous, RobotStateTeleoperated, RobotStateTest, RobotStateUnknown:
		return true
	default:
		return false
	}
}

// IsSuccessReply is true for the commands a remote side uses to acknowledge a synchronous request.
func (c Command) IsSuccessReply() bool {
	return c == AutonomousResponseOK || c == SystemOK
}

// IsFailureReply is true for the commands a remote side uses to reject a synchronous request.
func (c Command) IsFailureReply() bool {
	return c == AutonomousResponseError || c == SystemError
}

// MarshalJSON encodes the command by name.
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a command name.
func (c *Command) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	cmd, err := ParseCommand(name)
	if err != nil {
		return err
	}
	*c = cmd
	return nil
}
