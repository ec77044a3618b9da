package script

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.viam.com/test"

	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/rpc"
)

type sent struct {
	target  string
	cmd     message.Command
	params  message.Params
	sync    bool
	timeout time.Duration
}

type fakeCaller struct {
	mu      sync.Mutex
	sent    []sent
	callErr error
}

func (c *fakeCaller) CallSynchronous(ctx context.Context, target string, msg message.Message, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sent{target: target, cmd: msg.Command, params: msg.Params, sync: true, timeout: timeout})
	return c.callErr
}

func (c *fakeCaller) SendFireAndForget(target string, msg message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sent{target: target, cmd: msg.Command, params: msg.Params})
	return nil
}

func (c *fakeCaller) commands() []message.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []message.Command
	for _, s := range c.sent {
		out = append(out, s.cmd)
	}
	return out
}

func (c *fakeCaller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

func runLine(t *testing.T, r *Registry, line string) error {
	t.Helper()
	stmt, ok := Tokenize(line)
	test.That(t, ok, test.ShouldBeTrue)
	stmt.Line = 1
	op, ok := r.Lookup(stmt.Opcode)
	test.That(t, ok, test.ShouldBeTrue)
	if err := op.validate(stmt); err != nil {
		return err
	}
	return op.Handler(context.Background(), nil, stmt)
}

func TestRobotOpcodes(t *testing.T) {
	caller := &fakeCaller{}
	r, err := RobotOpcodes(caller, Limits{RequestTimeout: 5 * time.Second})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Names(), test.ShouldHaveLength, 40)

	t.Run("lookup is exact", func(t *testing.T) {
		_, ok := r.Lookup("MMOVEX")
		test.That(t, ok, test.ShouldBeFalse)
		_, ok = r.Lookup("mmove")
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("MOVE", func(t *testing.T) {
		caller.reset()
		test.That(t, runLine(t, r, "MOVE 0.5 -0.25"), test.ShouldBeNil)
		test.That(t, caller.sent, test.ShouldHaveLength, 1)
		test.That(t, caller.sent[0].target, test.ShouldEqual, channel.Drivetrain)
		test.That(t, caller.sent[0].params.Tank, test.ShouldResemble, message.TankParams{Left: 0.5, Right: -0.25})
		test.That(t, caller.sent[0].sync, test.ShouldBeFalse)

		err := runLine(t, r, "MOVE 0.5 1.5")
		test.That(t, IsRangeError(err), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "MOVE")
		test.That(t, caller.sent, test.ShouldHaveLength, 1)

		err = runLine(t, r, "MOVE 0.5")
		test.That(t, IsMissingParameterError(err), test.ShouldBeTrue)
	})

	t.Run("MMOVE timeout is optional", func(t *testing.T) {
		caller.reset()
		test.That(t, runLine(t, r, "MMOVE 0.5 24.0"), test.ShouldBeNil)
		test.That(t, runLine(t, r, "MMOVE 0.5 24.0 10"), test.ShouldBeNil)
		test.That(t, caller.sent[0].params.Autonomous.DriveDistance, test.ShouldEqual, 24.0)
		test.That(t, caller.sent[0].timeout, test.ShouldEqual, 5*time.Second)
		test.That(t, caller.sent[1].timeout, test.ShouldEqual, 11*time.Second)
		test.That(t, caller.sent[1].sync, test.ShouldBeTrue)
	})

	t.Run("seek drives then always stops", func(t *testing.T) {
		caller.reset()
		test.That(t, runLine(t, r, "FRONTSEEKTOTE 0.4 3"), test.ShouldBeNil)
		test.That(t, caller.commands(), test.ShouldResemble, []message.Command{
			message.DrivetrainStartDriveFwd,
			message.ConveyorSeekToteFront,
			message.DrivetrainStop,
		})
		test.That(t, caller.sent[0].params.Autonomous.DriveSpeed, test.ShouldEqual, 0.4)

		caller.reset()
		caller.callErr = &rpc.RemoteError{Target: channel.Conveyor, Command: message.ConveyorSeekToteBack, RequestID: uuid.New()}
		err := runLine(t, r, "BACKSEEKTOTE 0.4 3")
		caller.callErr = nil
		test.That(t, rpc.IsRemoteError(err), test.ShouldBeTrue)
		test.That(t, caller.commands(), test.ShouldResemble, []message.Command{
			message.DrivetrainStartDriveBck,
			message.ConveyorSeekToteBack,
			message.DrivetrainStop,
		})
	})

	t.Run("CANARMOPEN", func(t *testing.T) {
		caller.reset()
		test.That(t, runLine(t, r, "CANARMOPEN 0.3"), test.ShouldBeNil)
		test.That(t, caller.commands(), test.ShouldResemble, []message.Command{
			message.DrivetrainStartDriveFwd,
			message.CanArmOpen,
			message.DrivetrainStop,
		})
		test.That(t, caller.sent[1].target, test.ShouldEqual, channel.CanArm)
	})

	t.Run("STACKUP stops the conveyor", func(t *testing.T) {
		caller.reset()
		test.That(t, runLine(t, r, "STACKUP 2"), test.ShouldBeNil)
		test.That(t, caller.commands(), test.ShouldResemble, []message.Command{
			message.CanLifterRaiseTotes,
			message.ConveyorStop,
		})
		test.That(t, caller.sent[0].params.CanLifter.NumTotes, test.ShouldEqual, 2)
	})

	t.Run("BEGIN and END reach every subsystem", func(t *testing.T) {
		caller.reset()
		test.That(t, runLine(t, r, "BEGIN"), test.ShouldBeNil)
		test.That(t, caller.sent, test.ShouldHaveLength, len(channel.ActorChannels())-1)
		for _, s := range caller.sent {
			test.That(t, s.cmd, test.ShouldEqual, message.AutonomousRun)
			test.That(t, s.target, test.ShouldNotEqual, channel.Autonomous)
		}
		end, _ := r.Lookup("END")
		test.That(t, end.Terminal, test.ShouldBeTrue)
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, *Interpreter, Statement) error { return nil }
	test.That(t, r.Register(Opcode{Name: "NOP", Handler: noop}), test.ShouldBeNil)
	test.That(t, r.Register(Opcode{Name: "NOP", Handler: noop}), test.ShouldNotBeNil)
	test.That(t, r.Register(Opcode{Name: "X"}), test.ShouldNotBeNil)
	test.That(t, r.Names(), test.ShouldResemble, []string{"NOP"})
}

func TestDurationArguments(t *testing.T) {
	r, err := RobotOpcodes(&fakeCaller{}, Limits{})
	test.That(t, err, test.ShouldBeNil)

	validate := func(line string) error {
		stmt, ok := Tokenize(line)
		test.That(t, ok, test.ShouldBeTrue)
		stmt.Line = 7
		op, ok := r.Lookup(stmt.Opcode)
		test.That(t, ok, test.ShouldBeTrue)
		return op.validate(stmt)
	}

	for _, line := range []string{"DELAY 0", "DELAY 2.5", "DELAY 3600", "TURN -90 2", "STRAIGHT -0.5 1.5"} {
		test.That(t, validate(line), test.ShouldBeNil)
	}

	for _, line := range []string{
		"DELAY 1e12",
		"DELAY inf",
		"DELAY NaN",
		"DELAY -5",
		"DELAY 3600.5",
		"TURN 90 1e12",
		"MMOVE 0.5 24.0 -1",
		"STRAIGHT 0.5 +Inf",
		"SEEKTOTE NaN 2",
		"MMOVE 0.5 inf",
		"MOVE NaN 0",
	} {
		t.Run(line, func(t *testing.T) {
			err := validate(line)
			test.That(t, IsRangeError(err), test.ShouldBeTrue)
			test.That(t, err.Error(), test.ShouldStartWith, "line 7:")
		})
	}

	err = validate("DELAY -5")
	test.That(t, err.Error(), test.ShouldContainSubstring, "outside [0, 3600] seconds")
}

func TestLint(t *testing.T) {
	r, err := RobotOpcodes(&fakeCaller{}, Limits{})
	test.That(t, err, test.ShouldBeNil)
	s, err := Read(strings.NewReader("# test\nBEGIN\nFROBNICATE 1 2\nMOVE 2 0\nTURN 90\nDELAY x\nSTOPDRIVE 1\nEND\n"), 0)
	test.That(t, err, test.ShouldBeNil)

	var statuses []string
	for _, ls := range Lint(s, r) {
		statuses = append(statuses, ls.Status)
	}
	test.That(t, statuses, test.ShouldResemble, []string{
		StatusOK,
		StatusParseError,
		StatusRangeError,
		StatusMissingParameter,
		StatusParseError,
		StatusParseError,
		StatusOK,
	})
}
