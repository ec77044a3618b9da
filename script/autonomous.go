package script

import (
	"context"

	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
)

// Autonomous is the actor handler that feeds mode changes to an Interpreter. The interpreter
// itself runs on its own goroutine; this handler never blocks on it.
type Autonomous struct {
	in     *Interpreter
	logger logging.Logger
}

// NewAutonomous returns a handler driving in.
func NewAutonomous(in *Interpreter, logger logging.Logger) *Autonomous {
	return &Autonomous{in: in, logger: logger}
}

// OnModeChange applies the mode snapshot carried by msg. A pass already running is left in
// place when the robot leaves autonomous for teleop; it is paused instead.
func (a *Autonomous) OnModeChange(ctx context.Context, msg message.Message) {
	mode, ok := message.ModeFromCommand(msg.Command)
	if !ok {
		return
	}
	a.in.SetMode(message.ModeParams{Mode: mode, Paused: msg.Params.Mode.Paused})
	a.logger.CDebugw(ctx, "mode applied", "mode", mode, "active", a.in.Active(), "paused", a.in.Paused())
}

// OnCommand handles AutonomousRun. Everything else is ignored.
func (a *Autonomous) OnCommand(ctx context.Context, msg message.Message) {
	switch msg.Command {
	case message.AutonomousRun:
		a.in.Activate()
	case message.ChecklistRun:
		a.logger.Infow("checklist", "state", a.in.State(), "line", a.in.Line(), "last_result", a.in.LastResult())
	default:
	}
}
