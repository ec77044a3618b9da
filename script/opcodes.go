package script

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/message"
)

// MaxVelocityParam is the largest speed magnitude a script may ask for.
const MaxVelocityParam = 1.0

// DefaultRequestTimeout bounds synchronous opcodes that carry no timeout of their own.
const DefaultRequestTimeout = 15 * time.Second

// replySlack is added to a statement's own timeout so the subsystem reports the timeout
// before the caller gives up on the reply.
const replySlack = time.Second

// Caller is the messaging a script needs.
type Caller interface {
	CallSynchronous(ctx context.Context, target string, msg message.Message, timeout time.Duration) error
	SendFireAndForget(target string, msg message.Message) error
}

// Limits bound what a script may request.
type Limits struct {
	MaxVelocity    float64
	RequestTimeout time.Duration
}

type arg struct {
	velocity bool
	seconds  bool
	set      func(p *message.Params, v float64)
}

var (
	argDriveSpeed = arg{velocity: true, set: func(p *message.Params, v float64) { p.Autonomous.DriveSpeed = v }}
	argDistance   = arg{set: func(p *message.Params, v float64) { p.Autonomous.DriveDistance = v }}
	argDriveTime  = arg{seconds: true, set: func(p *message.Params, v float64) { p.Autonomous.DriveTime = v }}
	argTurnAngle  = arg{set: func(p *message.Params, v float64) { p.Autonomous.TurnAngle = v }}
	argTimeout    = arg{seconds: true, set: func(p *message.Params, v float64) { p.Autonomous.Timeout = v }}
	argTimein     = arg{seconds: true, set: func(p *message.Params, v float64) { p.Autonomous.Timein = v }}
	argNumTotes   = arg{set: func(p *message.Params, v float64) { p.CanLifter.NumTotes = int(v) }}
	argTankLeft   = arg{velocity: true, set: func(p *message.Params, v float64) { p.Tank.Left = v }}
	argTankRight  = arg{velocity: true, set: func(p *message.Params, v float64) { p.Tank.Right = v }}
)

// command is an opcode that becomes exactly one message to one subsystem.
type command struct {
	name     string
	target   string
	cmd      message.Command
	args     []arg
	optional int
	sync     bool
}

type builder struct {
	caller Caller
	limits Limits
}

// RobotOpcodes returns the full opcode table, sending through caller.
func RobotOpcodes(caller Caller, limits Limits) (*Registry, error) {
	if limits.MaxVelocity <= 0 {
		limits.MaxVelocity = MaxVelocityParam
	}
	if limits.RequestTimeout <= 0 {
		limits.RequestTimeout = DefaultRequestTimeout
	}
	b := &builder{caller: caller, limits: limits}
	r := NewRegistry()

	ops := []Opcode{
		{Name: "MODE", MaxArgs: -1, Handler: func(context.Context, *Interpreter, Statement) error { return nil }},
		{Name: "BEGIN", MaxArgs: -1, Handler: b.broadcast(message.AutonomousRun)},
		{Name: "END", MaxArgs: -1, Handler: b.broadcast(message.AutonomousComplete), Terminal: true},
		{
			Name: "DELAY", MinArgs: 1, MaxArgs: 1,
			Check: func(stmt Statement) error {
				_, err := delaySeconds(stmt)
				return err
			},
			Handler: func(ctx context.Context, in *Interpreter, stmt Statement) error {
				seconds, err := delaySeconds(stmt)
				if err != nil {
					return err
				}
				return in.Delay(ctx, seconds)
			},
		},
	}

	commands := []command{
		{name: "MOVE", target: channel.Drivetrain, cmd: message.DrivetrainDriveTank, args: []arg{argTankLeft, argTankRight}},
		{
			name: "MMOVE", target: channel.Drivetrain, cmd: message.DrivetrainDriveStraight,
			args: []arg{argDriveSpeed, argDistance, argTimeout}, optional: 1, sync: true,
		},
		{name: "TURN", target: channel.Drivetrain, cmd: message.DrivetrainTurn, args: []arg{argTurnAngle, argTimeout}, sync: true},
		{name: "STRAIGHT", target: channel.Drivetrain, cmd: message.DrivetrainDriveStraight, args: []arg{argDriveSpeed, argDriveTime}, sync: true},
		{name: "CLAWOPEN", target: channel.Claw, cmd: message.ClawOpen},
		{name: "CLAWCLOSE", target: channel.Claw, cmd: message.ClawClose},
		{name: "CLAWTOTOP", target: channel.CanLifter, cmd: message.CanLifterClawToTop, sync: true},
		{name: "CLAWTOBOTTOM", target: channel.CanLifter, cmd: message.CanLifterClawToBottom, sync: true},
		{name: "RAISECANTOLOMID", target: channel.CanLifter, cmd: message.CanLifterRaiseLoMid},
		{name: "LOWERCANTOHIMID", target: channel.CanLifter, cmd: message.CanLifterLowerHiMid},
		{name: "STACKDOWN", target: channel.CanLifter, cmd: message.CanLifterLowerTotes, sync: true},
		{name: "STARTSTACKUP", target: channel.CanLifter, cmd: message.CanLifterStartRaiseTotes, args: []arg{argNumTotes}},
		{name: "FRONTLOADTOTE", target: channel.Conveyor, cmd: message.ConveyorFrontLoadTote, args: []arg{argTimeout}, sync: true},
		{name: "BACKLOADTOTE", target: channel.Conveyor, cmd: message.ConveyorBackLoadTote, args: []arg{argTimeout}, sync: true},
		{name: "STARTDRIVEFWD", target: channel.Drivetrain, cmd: message.DrivetrainStartDriveFwd, args: []arg{argDriveSpeed}},
		{name: "STARTDRIVEBCK", target: channel.Drivetrain, cmd: message.DrivetrainStartDriveBck, args: []arg{argDriveSpeed}},
		{name: "STOPDRIVE", target: channel.Drivetrain, cmd: message.DrivetrainStop},
		{name: "WAITFRONTBEAM", target: channel.Conveyor, cmd: message.ConveyorWaitFrontBeam, sync: true},
		{name: "WAITBACKBEAM", target: channel.Conveyor, cmd: message.ConveyorWaitBackBeam, sync: true},
		{name: "DEPOSITTOTESBACK", target: channel.Conveyor, cmd: message.ConveyorDepositTotesBck, sync: true},
		{name: "TOTESHIFTFWD", target: channel.Conveyor, cmd: message.ConveyorShiftTotesFwd},
		{name: "TOTESHIFTBCK", target: channel.Conveyor, cmd: message.ConveyorShiftTotesBck},
		{name: "TOTEPUSHBCK", target: channel.Conveyor, cmd: message.ConveyorPushTotesBck},
		{name: "CANARMCLOSE", target: channel.CanArm, cmd: message.CanArmClose},
		{name: "SEEKTOTE", target: channel.Drivetrain, cmd: message.DrivetrainSeekTote, args: []arg{argTimein, argTimeout}, sync: true},
		{name: "STARTTOTEUP", target: channel.JackClicker, cmd: message.JackClickerRaise},
		{name: "TOTEEXTEND", target: channel.ToteLifter, cmd: message.ToteLifterExtend},
		{name: "TOTERETRACT", target: channel.ToteLifter, cmd: message.ToteLifterRetract},
		{name: "CUBEAUTO", target: channel.Cube, cmd: message.CubeAutoCycleStart},
		{name: "CLICKERUP", target: channel.Cube, cmd: message.CubeClickerRaise},
		{name: "CLICKERDOWN", target: channel.Cube, cmd: message.CubeClickerLower},
	}
	for _, c := range commands {
		ops = append(ops, b.simple(c))
	}

	stackUp := command{
		name: "STACKUP", target: channel.CanLifter, cmd: message.CanLifterRaiseTotes,
		args: []arg{argNumTotes}, sync: true,
	}
	ops = append(ops,
		Opcode{
			Name: stackUp.name, MinArgs: 1, MaxArgs: 1, Check: b.check(stackUp.args),
			Handler: func(ctx context.Context, in *Interpreter, stmt Statement) error {
				err := b.simple(stackUp).Handler(ctx, in, stmt)
				// The conveyor pushed the totes under the lifter; it is done either way.
				return multierr.Combine(err, b.caller.SendFireAndForget(channel.Conveyor, message.New(message.ConveyorStop)))
			},
		},
		b.whileDriving("FRONTSEEKTOTE", message.DrivetrainStartDriveFwd,
			command{target: channel.Conveyor, cmd: message.ConveyorSeekToteFront, args: []arg{argDriveSpeed, argTimeout}, sync: true}),
		b.whileDriving("BACKSEEKTOTE", message.DrivetrainStartDriveBck,
			command{target: channel.Conveyor, cmd: message.ConveyorSeekToteBack, args: []arg{argDriveSpeed, argTimeout}, sync: true}),
		b.whileDriving("CANARMOPEN", message.DrivetrainStartDriveFwd,
			command{target: channel.CanArm, cmd: message.CanArmOpen, args: []arg{argDriveSpeed}, sync: true}),
		Opcode{Name: "NOP", MaxArgs: -1, Handler: func(context.Context, *Interpreter, Statement) error { return nil }},
	)

	for _, op := range ops {
		if err := r.Register(op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func delaySeconds(stmt Statement) (float64, error) {
	seconds, err := stmt.Float(0)
	if err != nil {
		return 0, err
	}
	return seconds, CheckSeconds(seconds)
}

func (b *builder) check(args []arg) func(Statement) error {
	return func(stmt Statement) error {
		_, err := b.params(stmt, args)
		return err
	}
}

func (b *builder) params(stmt Statement, args []arg) (message.Params, error) {
	var p message.Params
	for i, a := range args {
		if i >= len(stmt.Args) {
			break
		}
		v, err := stmt.Float(i)
		if err != nil {
			return p, err
		}
		switch {
		case a.velocity:
			err = CheckMagnitude(v, b.limits.MaxVelocity)
		case a.seconds:
			err = CheckSeconds(v)
		default:
			err = CheckMagnitude(v, math.MaxFloat64)
		}
		if err != nil {
			return p, err
		}
		a.set(&p, v)
	}
	return p, nil
}

func (b *builder) simple(c command) Opcode {
	return Opcode{
		Name:    c.name,
		MinArgs: len(c.args) - c.optional,
		MaxArgs: len(c.args),
		Check:   b.check(c.args),
		Handler: func(ctx context.Context, _ *Interpreter, stmt Statement) error {
			p, err := b.params(stmt, c.args)
			if err != nil {
				return err
			}
			msg := message.New(c.cmd)
			msg.Params = p
			if !c.sync {
				return b.caller.SendFireAndForget(c.target, msg)
			}
			return b.caller.CallSynchronous(ctx, c.target, msg, b.callTimeout(p))
		},
	}
}

// whileDriving starts the drive, runs the call and always stops the drive after.
func (b *builder) whileDriving(name string, start message.Command, call command) Opcode {
	call.name = name
	inner := b.simple(call)
	return Opcode{
		Name:    name,
		MinArgs: inner.MinArgs,
		MaxArgs: inner.MaxArgs,
		Check:   inner.Check,
		Handler: func(ctx context.Context, in *Interpreter, stmt Statement) error {
			p, err := b.params(stmt, call.args)
			if err != nil {
				return err
			}
			drive := message.New(start)
			drive.Params = p
			if err := b.caller.SendFireAndForget(channel.Drivetrain, drive); err != nil {
				return errors.Wrap(err, "cannot start drive")
			}
			err = inner.Handler(ctx, in, stmt)
			return multierr.Combine(err, b.caller.SendFireAndForget(channel.Drivetrain, message.New(message.DrivetrainStop)))
		},
	}
}

func (b *builder) broadcast(cmd message.Command) Handler {
	return func(context.Context, *Interpreter, Statement) error {
		var err error
		for _, name := range channel.ActorChannels() {
			if name == channel.Autonomous {
				continue
			}
			err = multierr.Combine(err, b.caller.SendFireAndForget(name, message.New(cmd)))
		}
		return err
	}
}

func (b *builder) callTimeout(p message.Params) time.Duration {
	own := time.Duration(p.Autonomous.Timeout * float64(time.Second))
	if own+replySlack > b.limits.RequestTimeout {
		return own + replySlack
	}
	return b.limits.RequestTimeout
}
