// Package input turns operator controller state into robot commands. A driver station streams
// raw controller snapshots; a Listener reduces them to edge events and a Translator maps the
// events to messages for the subsystems.
package input

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// EventType represents the type of input event.
type EventType string

// EventType list.
const (
	// Typical key press.
	ButtonPress EventType = "ButtonPress"
	// Key release.
	ButtonRelease EventType = "ButtonRelease"
	// Absolute position is reported via Value, a la joysticks.
	PositionChangeAbs EventType = "PositionChangeAbs"
)

// Control identifies the input (specific Axis or Button) of a controller.
type Control string

// Controls of a dual-stick gamepad.
const (
	// Axes. Sticks read -1 at the top. Triggers read 0 released and 1 fully pulled.
	AbsoluteX     Control = "AbsoluteX"
	AbsoluteY     Control = "AbsoluteY"
	AbsoluteZ     Control = "AbsoluteZ"
	AbsoluteRX    Control = "AbsoluteRX"
	AbsoluteRY    Control = "AbsoluteRY"
	AbsoluteRZ    Control = "AbsoluteRZ"
	AbsoluteHat0X Control = "AbsoluteHat0X"
	AbsoluteHat0Y Control = "AbsoluteHat0Y"

	// Buttons.
	ButtonSouth  Control = "ButtonSouth"
	ButtonEast   Control = "ButtonEast"
	ButtonWest   Control = "ButtonWest"
	ButtonNorth  Control = "ButtonNorth"
	ButtonLT     Control = "ButtonLT"
	ButtonRT     Control = "ButtonRT"
	ButtonSelect Control = "ButtonSelect"
	ButtonStart  Control = "ButtonStart"
)

// Event is a change of one control.
type Event struct {
	Time    time.Time
	Event   EventType
	Control Control // Key or Axis
	Value   float64 // 0 or 1 for buttons, -1.0 to +1.0 for axes
}

// State is a snapshot of a whole controller.
type State struct {
	Axes    map[Control]float64 `json:"axes"`
	Buttons map[Control]bool    `json:"buttons"`
}

// DecodeState parses a snapshot sent by a driver station.
func DecodeState(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, errors.Wrap(err, "cannot decode controller state")
	}
	return s, nil
}

// EncodeState is the inverse of DecodeState.
func EncodeState(s State) ([]byte, error) {
	return json.Marshal(s)
}

// Source reports a controller's current state.
type Source interface {
	State() State
}

// StateSource is a Source holding the last snapshot it was given.
type StateSource struct {
	mu    sync.Mutex
	state State
}

// Set replaces the snapshot.
func (s *StateSource) Set(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// State returns the last snapshot.
func (s *StateSource) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
