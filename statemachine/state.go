// Package statemachine holds the pieces shared by the sensor-bounded mechanisms: the travel
// states, a safety timer that forces neutral output, and a single-axis Mechanism stepped by
// its owning actor.
package statemachine

// State is the position of a mechanism between its two boundary sensors.
type State int

// The travel states.
const (
	Bottom State = iota
	Raising
	Top
	Lowering
	HoldAtBoundary
	InterCycleDelay
	// WaitToRaise holds at the bottom until another actor allows the next raise.
	WaitToRaise
)

func (s State) String() string {
	switch s {
	case Bottom:
		return "BOTTOM"
	case Raising:
		return "RAISE"
	case Top:
		return "TOP"
	case Lowering:
		return "LOWER"
	case HoldAtBoundary:
		return "BOTTOMHOLD"
	case InterCycleDelay:
		return "DELAYAFTERCYCLE"
	case WaitToRaise:
		return "WAITTILLRAISE"
	}
	return "UNKNOWN"
}

// Moving reports whether the state drives the actuator toward a boundary.
func (s State) Moving() bool {
	return s == Raising || s == Lowering
}
