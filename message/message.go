// Package message defines the fixed-layout commands passed between robot tasks.
package message

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Mode is the robot's operating mode as decided by the field.
type Mode int

// The operating modes.
const (
	ModeDisabled Mode = iota
	ModeAutonomous
	ModeTeleoperated
	ModeTest
	ModeUnknown
)

func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "Disabled"
	case ModeAutonomous:
		return "Autonomous"
	case ModeTeleoperated:
		return "Teleoperated"
	case ModeTest:
		return "Test"
	case ModeUnknown:
		return "Unknown"
	}
	return "Unknown"
}

// Command returns the state-change command that announces the mode.
func (m Mode) Command() Command {
	switch m {
	case ModeDisabled:
		return RobotStateDisabled
	case ModeAutonomous:
		return RobotStateAutonomous
	case ModeTeleoperated:
		return RobotStateTeleoperated
	case ModeTest:
		return RobotStateTest
	case ModeUnknown:
		return RobotStateUnknown
	}
	return RobotStateUnknown
}

// ModeFromCommand maps a state-change command back to its mode.
func ModeFromCommand(c Command) (Mode, bool) {
	switch c {
	case RobotStateDisabled:
		return ModeDisabled, true
	case RobotStateAutonomous:
		return ModeAutonomous, true
	case RobotStateTeleoperated:
		return ModeTeleoperated, true
	case RobotStateTest:
		return ModeTest, true
	case RobotStateUnknown:
		return ModeUnknown, true
	default:
		return ModeUnknown, false
	}
}

// TankParams are left and right drive powers in [-1, 1].
type TankParams struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// ArcadeParams are the stick axes for single-stick driving.
type ArcadeParams struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AutonomousParams carry the arguments of scripted motions. Times are in seconds, distances in
// inches and angles in degrees.
type AutonomousParams struct {
	DriveSpeed    float64 `json:"drive_speed,omitempty"`
	DriveDistance float64 `json:"drive_distance,omitempty"`
	TurnAngle     float64 `json:"turn_angle,omitempty"`
	TurnSpeed     float64 `json:"turn_speed,omitempty"`
	Timeout       float64 `json:"timeout,omitempty"`
	Timein        float64 `json:"timein,omitempty"`
	DriveTime     float64 `json:"drive_time,omitempty"`
}

// CanLifterParams carry the number of totes to stack.
type CanLifterParams struct {
	NumTotes int `json:"num_totes"`
}

// ModeParams is the snapshot delivered with every mode change. Receivers keep their own copy.
type ModeParams struct {
	Mode   Mode `json:"mode"`
	Paused bool `json:"paused"`
}

// AutonomousActive is true when scripted motion may run.
func (p ModeParams) AutonomousActive() bool {
	return p.Mode == ModeAutonomous
}

// Params is the union of per-command parameters. Only the member matching the command is
// meaningful.
type Params struct {
	Tank       TankParams       `json:"tank"`
	Arcade     ArcadeParams     `json:"arcade"`
	Autonomous AutonomousParams `json:"autonomous"`
	CanLifter  CanLifterParams  `json:"can_lifter"`
	Mode       ModeParams       `json:"mode"`
}

// Message is a single command travelling over a channel. It is passed by value.
type Message struct {
	Command Command `json:"command"`
	// ReplyTo names the channel the receiver answers on. Empty for fire-and-forget messages.
	ReplyTo   string    `json:"reply_to,omitempty"`
	RequestID uuid.UUID `json:"request_id"`
	Params    Params    `json:"params"`
}

// New returns a fire-and-forget message with the given command.
func New(cmd Command) Message {
	return Message{Command: cmd}
}

// NewModeChange returns the broadcast announcing a mode.
func NewModeChange(mode Mode, paused bool) Message {
	msg := New(mode.Command())
	msg.Params.Mode = ModeParams{Mode: mode, Paused: paused}
	return msg
}

// IsSynchronous reports whether the sender is waiting for a reply.
func (m Message) IsSynchronous() bool {
	return m.ReplyTo != ""
}

// Marshal encodes a message for the network bridge.
func Marshal(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal decodes a message produced by Marshal.
func Unmarshal(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, errors.Wrap(err, "cannot decode message")
	}
	return m, nil
}
