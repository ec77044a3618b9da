package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/rhsrobot/channel"
	"go.viam.com/rhsrobot/channel/natsbridge"
	"go.viam.com/rhsrobot/input"
	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/script"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// robotConn is what the commands need from a NATS connection.
type robotConn interface {
	natsbridge.Publisher
	natsbridge.Requester
}

// dial connects to the NATS server named by the global flags. Tests replace it.
var dial = func(c *cli.Context) (robotConn, func(), error) {
	conn, err := natsbridge.Connect(c.String(flagNATS), "rhsctl", newLogger(c))
	if err != nil {
		return nil, nil, err
	}
	return conn, func() { goutils.UncheckedError(conn.Drain()) }, nil
}

func newLogger(c *cli.Context) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("rhsctl")
	}
	return logging.NewLogger("rhsctl")
}

// nopCaller satisfies script.Caller for linting, where nothing is executed.
type nopCaller struct{}

func (nopCaller) CallSynchronous(context.Context, string, message.Message, time.Duration) error {
	return nil
}

func (nopCaller) SendFireAndForget(string, message.Message) error {
	return nil
}

// CheckAction lints a script file and reports every line that would not run.
func CheckAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("check takes exactly one script file")
	}
	path := c.Args().First()
	s, err := script.Load(path, c.Int(flagCapacity))
	if err != nil {
		return err
	}
	opcodes, err := script.RobotOpcodes(nopCaller{}, script.Limits{
		MaxVelocity:    c.Float64(flagMaxVelocity),
		RequestTimeout: c.Duration(flagTimeout),
	})
	if err != nil {
		return err
	}

	results := script.Lint(s, opcodes)
	problems := lo.Filter(results, func(ls script.LineStatus, _ int) bool { return ls.Err != nil })
	for _, ls := range problems {
		printf(c.App.Writer, "%s:%d: %s: %v", path, ls.Line, ls.Status, ls.Err)
	}
	if len(problems) > 0 {
		return errors.Errorf("%d of %d statements in %s would not run", len(problems), len(results), path)
	}
	printf(c.App.Writer, "%s: %d statements ok", path, len(results))
	return nil
}

// ChannelsAction lists the actor channels and the subjects they are bridged on.
func ChannelsAction(c *cli.Context) error {
	prefix := c.String(flagPrefix)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Channel", "Subject", "Accepts"})
	for _, name := range channel.ActorChannels() {
		t.AppendRow(table.Row{name, natsbridge.Subject(prefix, name), "send, call"})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"mode", natsbridge.ModeSubject(prefix), "mode"})
	for _, from := range []input.Controller{input.Driver, input.Operator} {
		t.AppendRow(table.Row{from.String(), natsbridge.InputSubject(prefix, from), "stick"})
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

func parseTarget(c *cli.Context) (string, message.Message, error) {
	if c.Args().Len() != 2 {
		return "", message.Message{}, errors.New("expected <channel> <command>")
	}
	name := c.Args().Get(0)
	if !lo.Contains(channel.ActorChannels(), name) {
		return "", message.Message{}, errors.Errorf("unknown channel %q, want one of %s",
			name, strings.Join(channel.ActorChannels(), ", "))
	}
	cmd, err := message.ParseCommand(strings.ToUpper(c.Args().Get(1)))
	if err != nil {
		return "", message.Message{}, err
	}
	msg := message.New(cmd)
	msg.Params = message.Params{
		Tank:   message.TankParams{Left: c.Float64(flagTankLeft), Right: c.Float64(flagTankRight)},
		Arcade: message.ArcadeParams{X: c.Float64(flagArcadeX), Y: c.Float64(flagArcadeY)},
		Autonomous: message.AutonomousParams{
			DriveSpeed:    c.Float64(flagDriveSpeed),
			DriveDistance: c.Float64(flagDriveDistance),
			DriveTime:     c.Float64(flagDriveTime),
			TurnAngle:     c.Float64(flagTurnAngle),
			TurnSpeed:     c.Float64(flagTurnSpeed),
			Timeout:       c.Float64(flagOpTimeout),
		},
		CanLifter: message.CanLifterParams{NumTotes: c.Int(flagNumTotes)},
	}
	return name, msg, nil
}

// SendAction publishes a fire-and-forget command.
func SendAction(c *cli.Context) error {
	name, msg, err := parseTarget(c)
	if err != nil {
		return err
	}
	conn, closeConn, err := dial(c)
	if err != nil {
		return err
	}
	defer closeConn()
	if err := natsbridge.Outbound(conn, c.String(flagPrefix), name).Send(msg); err != nil {
		return err
	}
	printf(c.App.Writer, "sent %s to %s", msg.Command, name)
	return nil
}

// CallAction sends a command and waits for the subsystem's answer.
func CallAction(c *cli.Context) error {
	name, msg, err := parseTarget(c)
	if err != nil {
		return err
	}
	conn, closeConn, err := dial(c)
	if err != nil {
		return err
	}
	defer closeConn()
	res, err := natsbridge.Call(c.Context, conn, c.String(flagPrefix), name, msg, c.Duration(flagTimeout))
	if err != nil {
		return err
	}
	if !res.OK {
		return errors.Errorf("%s on %s failed: %s", msg.Command, name, res.Error)
	}
	printf(c.App.Writer, "%s on %s ok", msg.Command, name)
	return nil
}

func parseMode(name string) (message.Mode, error) {
	for m := message.ModeDisabled; m < message.ModeUnknown; m++ {
		if strings.EqualFold(m.String(), name) {
			return m, nil
		}
	}
	return message.ModeUnknown, errors.Errorf("unknown mode %q", name)
}

// ModeAction asks the robot to change mode.
func ModeAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("mode takes exactly one mode")
	}
	mode, err := parseMode(c.Args().First())
	if err != nil {
		return err
	}
	conn, closeConn, err := dial(c)
	if err != nil {
		return err
	}
	defer closeConn()
	p := message.ModeParams{Mode: mode, Paused: c.Bool(flagPaused)}
	if err := natsbridge.PublishMode(conn, c.String(flagPrefix), p); err != nil {
		return err
	}
	printf(c.App.Writer, "mode %s requested", mode)
	return nil
}

func parseStick(c *cli.Context) (input.Controller, input.State, error) {
	if c.Args().Len() != 1 {
		return 0, input.State{}, errors.New("stick takes exactly one controller")
	}
	var from input.Controller
	switch c.Args().First() {
	case input.Driver.String():
		from = input.Driver
	case input.Operator.String():
		from = input.Operator
	default:
		return 0, input.State{}, errors.Errorf("unknown controller %q", c.Args().First())
	}

	state := input.State{Axes: map[input.Control]float64{}, Buttons: map[input.Control]bool{}}
	for _, kv := range c.StringSlice(flagAxis) {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return 0, input.State{}, errors.Errorf("axis %q is not NAME=VALUE", kv)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, input.State{}, errors.Wrapf(err, "axis %s", name)
		}
		state.Axes[input.Control(name)] = v
	}
	for _, b := range c.StringSlice(flagButton) {
		state.Buttons[input.Control(b)] = true
	}
	return from, state, nil
}

// StickAction publishes one controller snapshot, as a driver station would.
func StickAction(c *cli.Context) error {
	from, state, err := parseStick(c)
	if err != nil {
		return err
	}
	conn, closeConn, err := dial(c)
	if err != nil {
		return err
	}
	defer closeConn()
	return natsbridge.PublishInput(conn, c.String(flagPrefix), from, state)
}
