package input

import (
	"math"
	"sort"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
)

// DefaultAxisTolerance is how far an axis must move before a PositionChangeAbs is reported.
const DefaultAxisTolerance = 0.01

// Listener reduces successive snapshots of one controller to edge events.
type Listener struct {
	src       Source
	tolerance float64
	clock     clock.Clock
	last      State
}

// NewListener returns a listener on src. The first Poll reports every pressed button and every
// axis away from center.
func NewListener(src Source, clk clock.Clock) *Listener {
	if clk == nil {
		clk = clock.New()
	}
	return &Listener{src: src, tolerance: DefaultAxisTolerance, clock: clk}
}

// SetAxisTolerance overrides DefaultAxisTolerance.
func (l *Listener) SetAxisTolerance(tolerance float64) {
	l.tolerance = tolerance
}

// AxisTolerance returns the current tolerance.
func (l *Listener) AxisTolerance() float64 {
	return l.tolerance
}

// Poll reads the source and returns what changed since the last Poll, buttons first, each
// group in control order. A button missing from a snapshot is released.
func (l *Listener) Poll() []Event {
	now := l.clock.Now()
	cur := l.src.State()
	var events []Event

	buttons := lo.Uniq(append(lo.Keys(cur.Buttons), lo.Keys(l.last.Buttons)...))
	sort.Slice(buttons, func(i, j int) bool { return buttons[i] < buttons[j] })
	for _, b := range buttons {
		down, was := cur.Buttons[b], l.last.Buttons[b]
		switch {
		case down && !was:
			events = append(events, Event{Time: now, Event: ButtonPress, Control: b, Value: 1})
		case !down && was:
			events = append(events, Event{Time: now, Event: ButtonRelease, Control: b, Value: 0})
		}
	}

	axes := lo.Uniq(append(lo.Keys(cur.Axes), lo.Keys(l.last.Axes)...))
	sort.Slice(axes, func(i, j int) bool { return axes[i] < axes[j] })
	last := lo.Assign(map[Control]float64{}, l.last.Axes)
	for _, a := range axes {
		v := cur.Axes[a]
		if math.Abs(v-last[a]) > l.tolerance {
			events = append(events, Event{Time: now, Event: PositionChangeAbs, Control: a, Value: v})
			last[a] = v
		}
	}

	// Small drifts accumulate against the last reported value, not the last read one.
	l.last = State{Axes: last, Buttons: lo.Assign(map[Control]bool{}, cur.Buttons)}
	return events
}
