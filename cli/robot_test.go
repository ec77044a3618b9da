package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v2"
	"go.viam.com/test"

	"go.viam.com/rhsrobot/input"
	"go.viam.com/rhsrobot/message"
)

type fakeConn struct {
	subjects []string
	data     [][]byte
	reply    string
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.data = append(f.data, data)
	return nil
}

func (f *fakeConn) RequestWithContext(_ context.Context, subject string, data []byte) (*nats.Msg, error) {
	f.subjects = append(f.subjects, subject)
	f.data = append(f.data, data)
	return &nats.Msg{Subject: "_INBOX.1", Data: []byte(f.reply)}, nil
}

func setup(t *testing.T) (*fakeConn, *bytes.Buffer, func(args ...string) error) {
	t.Helper()
	conn := &fakeConn{reply: `{"ok":true}`}
	prev := dial
	dial = func(*cli.Context) (robotConn, func(), error) {
		return conn, func() {}, nil
	}
	t.Cleanup(func() { dial = prev })

	out := &bytes.Buffer{}
	a := NewApp(out, &bytes.Buffer{})
	return conn, out, func(args ...string) error {
		out.Reset()
		return a.Run(append([]string{"rhsctl", "--prefix", "robot"}, args...))
	}
}

func writeScript(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auto.txt")
	test.That(t, os.WriteFile(path, []byte(text), 0o600), test.ShouldBeNil)
	return path
}

func TestCheck(t *testing.T) {
	_, out, run := setup(t)

	path := writeScript(t, "BEGIN\nMMOVE 0.5 24.0 5\nDELAY 1.0\nEND\n")
	test.That(t, run("check", path), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "statements ok")

	path = writeScript(t, "BEGIN\nFROBNICATE 1 2\nMMOVE 2.0 24.0 5\nDELAY\nEND\n")
	err := run("check", path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "3 of 5 statements")
	test.That(t, out.String(), test.ShouldContainSubstring, ":2: parse_error")
	test.That(t, out.String(), test.ShouldContainSubstring, ":3: range_error")
	test.That(t, out.String(), test.ShouldContainSubstring, ":4: missing_parameter")

	test.That(t, run("check"), test.ShouldNotBeNil)
	test.That(t, run("check", filepath.Join(t.TempDir(), "missing.txt")), test.ShouldNotBeNil)
}

func TestChannels(t *testing.T) {
	_, out, run := setup(t)
	test.That(t, run("channels"), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "robot.qDrive")
	test.That(t, out.String(), test.ShouldContainSubstring, "robot.mode")
	test.That(t, out.String(), test.ShouldContainSubstring, "robot.input.operator")
}

func TestSend(t *testing.T) {
	conn, out, run := setup(t)
	test.That(t, run("send", "--tank-left", "0.5", "qDrive", "drivetrain_drive_tank"), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "sent DRIVETRAIN_DRIVE_TANK to qDrive")
	test.That(t, conn.subjects, test.ShouldResemble, []string{"robot.qDrive"})

	msg, err := message.Unmarshal(conn.data[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.Command, test.ShouldEqual, message.DrivetrainDriveTank)
	test.That(t, msg.Params.Tank.Left, test.ShouldEqual, 0.5)

	test.That(t, run("send", "qNowhere", "CLAW_OPEN"), test.ShouldNotBeNil)
	test.That(t, run("send", "qClaw", "CLAW_WAVE"), test.ShouldNotBeNil)
	test.That(t, run("send", "qClaw"), test.ShouldNotBeNil)
}

func TestCall(t *testing.T) {
	conn, out, run := setup(t)
	test.That(t, run("call", "qConvey", "CONVEYOR_WAIT_FRONT_BEAM"), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "ok")

	conn.reply = `{"ok":false,"error":"request timed out"}`
	err := run("call", "qConvey", "CONVEYOR_WAIT_FRONT_BEAM")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "request timed out")
}

func TestMode(t *testing.T) {
	conn, _, run := setup(t)
	test.That(t, run("mode", "--paused", "AUTONOMOUS"), test.ShouldBeNil)
	test.That(t, conn.subjects, test.ShouldResemble, []string{"robot.mode"})
	var p message.ModeParams
	test.That(t, json.Unmarshal(conn.data[0], &p), test.ShouldBeNil)
	test.That(t, p, test.ShouldResemble, message.ModeParams{Mode: message.ModeAutonomous, Paused: true})

	test.That(t, run("mode", "sleepy"), test.ShouldNotBeNil)
	test.That(t, run("mode", "unknown"), test.ShouldNotBeNil)
}

func TestStick(t *testing.T) {
	conn, _, run := setup(t)
	err := run("stick", "--axis", "AbsoluteY=-0.8", "--button", "ButtonWest", "operator")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conn.subjects, test.ShouldResemble, []string{"robot.input.operator"})
	s, err := input.DecodeState(conn.data[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Axes[input.AbsoluteY], test.ShouldEqual, -0.8)
	test.That(t, s.Buttons[input.ButtonWest], test.ShouldBeTrue)

	test.That(t, run("stick", "gamepad"), test.ShouldNotBeNil)
}
