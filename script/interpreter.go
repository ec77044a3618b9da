// Package script loads autonomous scripts and runs them one statement at a time.
//
// A script is a text file of at most DefaultCapacity lines. Each non-blank line that does not
// start with '#' is an opcode followed by arguments separated by spaces, commas, brackets or
// parentheses:
//
//	BEGIN
//	MMOVE 0.5 24.0
//	DELAY(1.0)
//	END
//
// The Interpreter re-runs its script once per activation of autonomous mode.
package script

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/operation"
	"go.viam.com/rhsrobot/utils"
)

// State is the interpreter's top-level state.
type State int32

// Interpreter states.
const (
	StateIdle State = iota
	StateLoading
	StateRunning
	StatePaused
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// Result is how the last pass finished.
type Result int32

// Pass results.
const (
	ResultNone Result = iota
	ResultSuccess
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultError:
		return "error"
	case ResultNone:
	}
	return "none"
}

// Line statuses.
const (
	StatusOK               = "ok"
	StatusParseError       = "parse_error"
	StatusMissingParameter = "missing_parameter"
	StatusRangeError       = "range_error"
	StatusError            = "error"
)

// LineStatus is the outcome of one statement of the last pass.
type LineStatus struct {
	Line   int
	Text   string
	Opcode string
	Status string
	Err    error
}

func newLineStatus(stmt Statement, err error) LineStatus {
	ls := LineStatus{Line: stmt.Line, Text: stmt.Text, Opcode: stmt.Opcode, Status: StatusOK, Err: err}
	switch {
	case err == nil:
	case IsParseError(err):
		ls.Status = StatusParseError
	case IsMissingParameterError(err):
		ls.Status = StatusMissingParameter
	case IsRangeError(err):
		ls.Status = StatusRangeError
	default:
		ls.Status = StatusError
	}
	return ls
}

// Config holds the interpreter's timing.
type Config struct {
	Path     string
	Capacity int
	// RetryDelay is the wait before retrying a failed load.
	RetryDelay time.Duration
	// PauseInterval is how often a paused script re-checks the pause flag.
	PauseInterval time.Duration
	// DelaySlice is the granularity of DELAY.
	DelaySlice time.Duration
	// Cooldown is the wait after a pass before loading again.
	Cooldown time.Duration
	// Trace writes every line's debug output for a pass, tagged with the pass id, whatever
	// the logger's level.
	Trace bool
}

// Defaults.
const (
	DefaultRetryDelay    = time.Second
	DefaultPauseInterval = 20 * time.Millisecond
	DefaultDelaySlice    = 20 * time.Millisecond
	DefaultCooldown      = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.PauseInterval <= 0 {
		c.PauseInterval = DefaultPauseInterval
	}
	if c.DelaySlice <= 0 {
		c.DelaySlice = DefaultDelaySlice
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// Observer is told about state changes and line outcomes.
type Observer interface {
	StateChanged(state State)
	LineFinished(status string)
}

// Interpreter runs a script against a Registry of opcodes.
type Interpreter struct {
	cfg      Config
	opcodes  *Registry
	clock    clock.Clock
	observer Observer
	logger   logging.Logger
	ops      operation.Manager

	active atomic.Bool
	paused atomic.Bool
	state  atomic.Int32
	result atomic.Int32
	line   atomic.Int64
	dirty  atomic.Bool

	mu      sync.Mutex
	script  *Script
	results []LineStatus
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithClock drives delays, pauses and cooldowns from clk.
func WithClock(clk clock.Clock) Option {
	return func(in *Interpreter) {
		in.clock = clk
	}
}

// WithObserver reports state changes and line outcomes.
func WithObserver(observer Observer) Option {
	return func(in *Interpreter) {
		in.observer = observer
	}
}

// NewInterpreter returns an idle interpreter.
func NewInterpreter(cfg Config, opcodes *Registry, logger logging.Logger, opts ...Option) *Interpreter {
	in := &Interpreter{
		cfg:     cfg.withDefaults(),
		opcodes: opcodes,
		clock:   clock.New(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.ops.Clock = in.clock
	in.dirty.Store(true)
	return in
}

// State returns the current state.
func (in *Interpreter) State() State {
	return State(in.state.Load())
}

// LastResult returns how the most recent pass finished.
func (in *Interpreter) LastResult() Result {
	return Result(in.result.Load())
}

// Line returns the 1-based line the current pass is on, or 0 between passes.
func (in *Interpreter) Line() int {
	return int(in.line.Load())
}

// LineResults returns the outcome of every statement of the current or last pass.
func (in *Interpreter) LineResults() []LineStatus {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]LineStatus(nil), in.results...)
}

// Active reports whether scripted motion may run.
func (in *Interpreter) Active() bool {
	return in.active.Load()
}

// Paused reports whether execution is held between statements.
func (in *Interpreter) Paused() bool {
	return in.paused.Load()
}

// SetMode applies a mode snapshot. Autonomous activates and unpauses. Teleoperated and Test
// pause but leave a running pass in place. Disabled and Unknown deactivate and cancel the
// pass.
func (in *Interpreter) SetMode(p message.ModeParams) {
	switch p.Mode {
	case message.ModeAutonomous:
		in.paused.Store(p.Paused)
		in.active.Store(true)
	case message.ModeTeleoperated, message.ModeTest:
		in.paused.Store(true)
	case message.ModeDisabled, message.ModeUnknown:
		in.active.Store(false)
		in.paused.Store(false)
		in.ops.Cancel()
	}
}

// Activate starts a pass without a mode change.
func (in *Interpreter) Activate() {
	in.active.Store(true)
}

// SetPaused holds or releases execution.
func (in *Interpreter) SetPaused(paused bool) {
	in.paused.Store(paused)
}

// MarkDirty makes the next pass reload the script from disk.
func (in *Interpreter) MarkDirty() {
	in.dirty.Store(true)
}

// Run loads and runs the script until ctx is cancelled.
func (in *Interpreter) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		in.setState(StateLoading)
		s, err := in.load()
		if err != nil {
			in.logger.Warnw("cannot load script, will retry", "path", in.cfg.Path, "error", err)
			in.setState(StateIdle)
			in.ops.Sleep(ctx, in.cfg.RetryDelay)
			continue
		}

		in.setState(StateIdle)
		if err := in.ops.Poll(ctx, in.cfg.PauseInterval, func(context.Context) (bool, error) {
			return in.active.Load(), nil
		}); err != nil {
			continue
		}

		passCtx, finish := in.ops.Start(ctx)
		if in.cfg.Trace {
			passCtx = logging.EnableDebugMode(passCtx, "")
		}
		result := in.runPass(passCtx, s)
		finish()

		in.result.Store(int32(result))
		in.line.Store(0)
		in.active.Store(false)
		in.setState(StateFinished)
		in.logger.Infow("script finished", "path", in.cfg.Path, "result", result)

		in.ops.Sleep(ctx, in.cfg.Cooldown)
	}
	return nil
}

func (in *Interpreter) load() (*Script, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.script != nil && !in.dirty.Load() {
		return in.script, nil
	}
	s, err := Load(in.cfg.Path, in.cfg.Capacity)
	if err != nil {
		return nil, err
	}
	if s.Truncated {
		in.logger.Warnw("script longer than capacity, extra lines ignored", "path", in.cfg.Path, "capacity", in.cfg.Capacity)
	}
	in.script = s
	in.dirty.Store(false)
	return s, nil
}

func (in *Interpreter) runPass(ctx context.Context, s *Script) Result {
	in.mu.Lock()
	in.results = nil
	in.mu.Unlock()
	in.setState(StateRunning)

	for i, text := range s.Lines {
		if !in.active.Load() || ctx.Err() != nil {
			return ResultError
		}
		in.line.Store(int64(i + 1))

		stmt, ok := Tokenize(text)
		if !ok {
			continue
		}
		stmt.Line = i + 1

		op, ok := in.opcodes.Lookup(stmt.Opcode)
		if !ok {
			in.record(stmt, &ParseError{Line: stmt.Line, Token: stmt.Opcode})
			continue
		}
		if err := op.validate(stmt); err != nil {
			in.record(stmt, err)
			continue
		}

		if err := in.waitWhilePaused(ctx); err != nil {
			in.record(stmt, err)
			return ResultError
		}

		err := in.execute(ctx, op, stmt)
		in.record(stmt, err)
		if errors.Is(err, ErrModeExit) || ctx.Err() != nil {
			return ResultError
		}
		if op.Terminal {
			return ResultSuccess
		}
	}
	return ResultSuccess
}

func (in *Interpreter) execute(ctx context.Context, op Opcode, stmt Statement) error {
	stop := utils.SlowLogger(ctx, in.clock, in.logger, "waiting on script line", "line", stmt.Line, "statement", stmt.Text)
	defer stop()
	in.logger.CDebugw(ctx, "executing", "line", stmt.Line, "statement", stmt.Text)
	return locate(op.Handler(ctx, in, stmt), stmt)
}

func (in *Interpreter) record(stmt Statement, err error) {
	ls := newLineStatus(stmt, err)
	if err != nil {
		in.logger.Warnw("script line failed", "line", stmt.Line, "statement", stmt.Text, "status", ls.Status, "error", err)
	}
	in.mu.Lock()
	in.results = append(in.results, ls)
	in.mu.Unlock()
	if in.observer != nil {
		in.observer.LineFinished(ls.Status)
	}
}

// waitWhilePaused blocks while paused. It fails with ErrModeExit if autonomous ends first.
func (in *Interpreter) waitWhilePaused(ctx context.Context) error {
	if in.paused.Load() {
		in.setState(StatePaused)
		if err := in.ops.Poll(ctx, in.cfg.PauseInterval, func(context.Context) (bool, error) {
			return !in.paused.Load() || !in.active.Load(), nil
		}); err != nil {
			return err
		}
		in.setState(StateRunning)
	}
	if !in.active.Load() {
		return ErrModeExit
	}
	return nil
}

// Delay waits seconds in DelaySlice steps. A pause freezes the remaining time and leaving
// autonomous ends the wait with ErrModeExit.
func (in *Interpreter) Delay(ctx context.Context, seconds float64) error {
	remaining := time.Duration(seconds * float64(time.Second))
	for remaining > 0 {
		if err := in.waitWhilePaused(ctx); err != nil {
			return err
		}
		slice := in.cfg.DelaySlice
		if remaining < slice {
			slice = remaining
		}
		if !in.ops.Sleep(ctx, slice) {
			return ctx.Err()
		}
		remaining -= slice
	}
	return nil
}

func (in *Interpreter) setState(s State) {
	if State(in.state.Swap(int32(s))) == s {
		return
	}
	if in.observer != nil {
		in.observer.StateChanged(s)
	}
}
