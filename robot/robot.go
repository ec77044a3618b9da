// Package robot assembles the messaging kernel into a running robot: one actor per subsystem,
// the autonomous script interpreter, and the mode broadcast that keeps them all in step.
package robot

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/rhsrobot/actor"
	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/components"
	"go.viam.com/rhsrobot/components/canarm"
	"go.viam.com/rhsrobot/components/canlifter"
	"go.viam.com/rhsrobot/components/claw"
	"go.viam.com/rhsrobot/components/conveyor"
	"go.viam.com/rhsrobot/components/cube"
	"go.viam.com/rhsrobot/components/drivetrain"
	"go.viam.com/rhsrobot/components/jackclicker"
	"go.viam.com/rhsrobot/components/totelifter"
	"go.viam.com/rhsrobot/config"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/robot/jobmanager"
	"go.viam.com/rhsrobot/rpc"
	"go.viam.com/rhsrobot/script"
	"go.viam.com/rhsrobot/utils"
)

// openBackoff is the wait between attempts to bind an actor's inbound channel.
const openBackoff = 100 * time.Millisecond

// ModeSource reports the mode the field wants the robot in.
type ModeSource interface {
	Mode() message.ModeParams
}

// Observer is told about everything the robot does. The metrics package provides one.
type Observer interface {
	channel.Observer
	actor.Observer
	rpc.Observer
	script.Observer
	components.Observer
}

// Robot is the running process: a channel registry, an actor per subsystem and the script
// interpreter, each run as a named task.
type Robot struct {
	cfg      *config.Config
	clock    clock.Clock
	observer Observer
	logger   logging.Logger

	registry    *channel.Registry
	client      *rpc.Client
	interpreter *script.Interpreter
	supervisors map[string]*actor.Supervisor
	handlers    map[string]actor.Handler
	jobs        *jobmanager.Jobmanager
	workers     *utils.Tasks

	modeSource ModeSource
	modeMu     sync.Mutex
	mode       message.ModeParams
	modeSent   bool
	lastPolled *message.ModeParams

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Robot.
type Option func(*Robot)

// WithClock drives every timer in the robot from clk.
func WithClock(clk clock.Clock) Option {
	return func(r *Robot) {
		r.clock = clk
	}
}

// WithObserver reports the robot's activity to observer.
func WithObserver(observer Observer) Option {
	return func(r *Robot) {
		r.observer = observer
	}
}

// WithModeSource polls src for the field mode every ModePollInterval.
func WithModeSource(src ModeSource) Option {
	return func(r *Robot) {
		r.modeSource = src
	}
}

// New builds the robot from cfg and hw, starts every actor and the interpreter, and puts the
// robot in Disabled.
func New(ctx context.Context, cfg *config.Config, hw Hardware, logger logging.Logger, opts ...Option) (_ *Robot, err error) {
	r := &Robot{
		cfg:         cfg,
		clock:       clock.New(),
		logger:      logger,
		supervisors: map[string]*actor.Supervisor{},
		handlers:    map[string]actor.Handler{},
	}
	for _, opt := range opts {
		opt(r)
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, r.Close())
		}
	}()

	channelOpts := []channel.Option{channel.WithClock(r.clock)}
	clientOpts := []rpc.ClientOption{rpc.WithClock(r.clock)}
	scriptOpts := []script.Option{script.WithClock(r.clock)}
	actorOpts := []actor.Option{actor.WithReceiveTimeout(cfg.ReceiveTimeout.Std())}
	if r.observer != nil {
		channelOpts = append(channelOpts, channel.WithObserver(r.observer))
		clientOpts = append(clientOpts, rpc.WithObserver(r.observer))
		scriptOpts = append(scriptOpts, script.WithObserver(r.observer))
		actorOpts = append(actorOpts, actor.WithObserver(r.observer))
	}

	r.registry = channel.NewRegistry(logger.Sublogger("channel"), channelOpts...)
	r.client, err = rpc.NewClient(r.registry, channel.ScriptReply, logger.Sublogger("rpc"), clientOpts...)
	if err != nil {
		return nil, err
	}
	opcodes, err := script.RobotOpcodes(r.client, cfg.Script.Limits())
	if err != nil {
		return nil, err
	}
	r.interpreter = script.NewInterpreter(cfg.Script.Interpreter(), opcodes, logger.Sublogger("script"), scriptOpts...)

	r.buildHandlers(hw)
	r.workers = utils.NewTasks(logger.Sublogger("tasks"))
	for _, name := range channel.ActorChannels() {
		inbound, err := channel.OpenWithRetry(ctx, r.registry, name, channel.ReadOnly, openBackoff)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot bind actor channel %s", name)
		}
		sup := actor.New(name, inbound, r.handlers[name], logger.Sublogger(name), actorOpts...)
		r.supervisors[name] = sup
		r.workers.Go(name, sup.Run)
	}
	r.workers.Go("script", r.interpreter.Run)

	if cfg.Script.Watch {
		watcher, err := script.NewWatcher(cfg.Script.Path, cfg.Script.Settle.Std(), r.interpreter.MarkDirty, logger.Sublogger("watcher"))
		if err != nil {
			return nil, err
		}
		r.workers.Go("watcher", watcher.Run)
	}

	if err := r.SetMode(message.ModeDisabled, false); err != nil {
		return nil, err
	}

	r.jobs, err = jobmanager.New(logger)
	if err != nil {
		return nil, err
	}
	if r.modeSource != nil {
		if err := r.jobs.Add(jobmanager.JobConfig{
			Name:     "mode_poll",
			Schedule: cfg.ModePollInterval.Std().String(),
			Run:      r.pollMode,
		}); err != nil {
			return nil, err
		}
	}
	r.jobs.Start()
	logger.Infow("robot started", "actors", len(r.supervisors), "script", cfg.Script.Path)
	return r, nil
}

func (r *Robot) buildHandlers(hw Hardware) {
	s := r.cfg.Subsystems
	ceiling := r.cfg.SafetyCeiling.Std()
	deps := func(name string) components.Deps {
		d := components.Deps{
			Clock:   r.clock,
			Replier: components.RegistryReplier{Registry: r.registry},
			Logger:  r.logger.Sublogger(name),
		}
		if r.observer != nil {
			d.Observer = r.observer
		}
		return d
	}
	r.handlers[channel.Drivetrain] = drivetrain.New(s.DrivetrainConfig(ceiling), hw.Drivetrain, deps("drivetrain"))
	r.handlers[channel.Autonomous] = script.NewAutonomous(r.interpreter, r.logger.Sublogger("autonomous"))
	r.handlers[channel.Conveyor] = conveyor.New(s.ConveyorConfig(), hw.Conveyor, deps("conveyor"))
	r.handlers[channel.Cube] = cube.New(s.CubeConfig(ceiling), hw.Cube, deps("cube"))
	r.handlers[channel.JackClicker] = jackclicker.New(s.JackClickerConfig(ceiling), hw.JackClicker, deps("jackclicker"))
	r.handlers[channel.CanLifter] = canlifter.New(s.CanLifterConfig(ceiling), hw.CanLifter, deps("canlifter"))
	r.handlers[channel.CanArm] = canarm.New(s.CanArmConfig(), hw.CanArm, deps("canarm"))
	r.handlers[channel.Claw] = claw.New(s.ClawConfig(ceiling), hw.Claw, deps("claw"))
	r.handlers[channel.ToteLifter] = totelifter.New(s.ToteLifterConfig(), hw.ToteLifter, deps("totelifter"))
}

// Registry returns the robot's channels.
func (r *Robot) Registry() *channel.Registry {
	return r.registry
}

// Interpreter returns the autonomous script interpreter.
func (r *Robot) Interpreter() *script.Interpreter {
	return r.interpreter
}

// Supervisor returns the actor reading the named channel.
func (r *Robot) Supervisor(name string) (*actor.Supervisor, bool) {
	sup, ok := r.supervisors[name]
	return sup, ok
}

// Cube returns the cube handler, for status displays.
func (r *Robot) Cube() *cube.Cube {
	return r.handlers[channel.Cube].(*cube.Cube)
}

// Mode returns the last mode broadcast.
func (r *Robot) Mode() message.ModeParams {
	r.modeMu.Lock()
	defer r.modeMu.Unlock()
	return r.mode
}

// SetMode broadcasts a mode change to every actor. Repeating the current mode sends nothing.
func (r *Robot) SetMode(mode message.Mode, paused bool) error {
	r.modeMu.Lock()
	defer r.modeMu.Unlock()
	next := message.ModeParams{Mode: mode, Paused: paused}
	if r.modeSent && r.mode == next {
		return nil
	}
	msg := message.NewModeChange(mode, paused)
	err := multierr.Combine(lo.Map(channel.ActorChannels(), func(name string, _ int) error {
		return r.registry.Send(name, msg)
	})...)
	r.mode = next
	r.modeSent = true
	r.logger.Infow("mode changed", "mode", mode, "paused", paused)
	return err
}

// pollMode broadcasts the source's mode when it has changed since the last poll. A mode set
// by other means stands until the source changes.
func (r *Robot) pollMode(ctx context.Context) error {
	p := r.modeSource.Mode()
	r.modeMu.Lock()
	changed := r.lastPolled == nil || *r.lastPolled != p
	r.lastPolled = &p
	r.modeMu.Unlock()
	if !changed {
		return nil
	}
	return r.SetMode(p.Mode, p.Paused)
}

// Send delivers msg to the named actor channel. Mode changes are broadcast to every actor
// instead, whatever name they were addressed to.
func (r *Robot) Send(name string, msg message.Message) error {
	if mode, ok := message.ModeFromCommand(msg.Command); ok {
		return r.SetMode(mode, msg.Params.Mode.Paused)
	}
	msg.ReplyTo = ""
	return r.registry.Send(name, msg)
}

// Close stops every actor, the interpreter and the scheduled jobs, then closes the channels.
func (r *Robot) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		if r.jobs != nil {
			errs = append(errs, r.jobs.Shutdown())
		}
		if r.workers != nil {
			errs = append(errs, r.workers.Stop())
		}
		if r.client != nil {
			errs = append(errs, r.client.Close())
		}
		if r.registry != nil {
			errs = append(errs, r.registry.Close())
		}
		r.closeErr = multierr.Combine(errs...)
	})
	return r.closeErr
}
