package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"go.viam.com/test"
)

type BasicStruct struct {
	X int
	y string
}

type User struct {
	Name string
}

type StructWithStruct struct {
	x int
	Y User
}

// assertLogMatches will fuzzy match log lines. It checks the time format but ignores the exact
// time, and expects a match on the filename while ignoring the line number.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualParts := strings.Split(strings.TrimSuffix(output, "\n"), "\t")
	expectedParts := strings.Split(expected, "\t")
	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))

	// Date length, level and logger name.
	test.That(t, len(actualParts[0]), test.ShouldEqual, len(expectedParts[0]))
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])
	test.That(t, actualParts[2], test.ShouldEqual, expectedParts[2])

	actualFilename, actualLineNumber, found := strings.Cut(actualParts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	expectedFilename, _, found := strings.Cut(expectedParts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)
	_, err = strconv.Atoi(actualLineNumber)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, actualParts[4], test.ShouldEqual, expectedParts[4])
	if len(actualParts) == 5 {
		return
	}

	expectedMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(expectedParts[5]), &expectedMap), test.ShouldBeNil)
	actualMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(actualParts[5]), &actualMap), test.ShouldBeNil)
	test.That(t, actualMap, test.ShouldResemble, expectedMap)
}

func TestConsoleOutputFormat(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := newImpl("robot", DEBUG, false, NewWriterAppender(notStdout))

	logger.Info("impl Info log")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459-0400	INFO	robot	logging/impl_test.go:67	impl Info log`)

	logger.Infof("impl %s log", "infof")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:45:20.764-0400	INFO	robot	logging/impl_test.go:71	impl infof log`)

	logger.Infow("impl logw", "key", "value")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:19:45.806-0400	INFO	robot	logging/impl_test.go:75	impl logw	{"key":"value"}`)

	logger.Infow("StructWithStruct", "key", "val", "StructWithStruct", StructWithStruct{1, User{"alice"}})
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129-0400	INFO	robot	logging/impl_test.go:79	StructWithStruct	{"StructWithStruct":{"Y":{"Name":"alice"}},"key":"val"}`)

	logger.Warnw("BasicStruct", "oneKey", "1val", "BasicStruct", BasicStruct{1, "alice"})
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129-0400	WARN	robot	logging/impl_test.go:83	BasicStruct	{"BasicStruct":{"X":1},"oneKey":"1val"}`)

	logger.Errorw("unpaired", "lonely")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129-0400	ERROR	robot	logging/impl_test.go:87	unpaired	{"lonely":"unpaired log key"}`)
}

func TestSublogger(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := newImpl("robot", INFO, true, NewWriterAppender(buf))

	drivetrain := parent.Sublogger("drivetrain")
	test.That(t, drivetrain.Name(), test.ShouldEqual, "robot.drivetrain")
	test.That(t, drivetrain.GetLevel(), test.ShouldEqual, INFO)

	drivetrain.Debug("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	drivetrain.SetLevel(DEBUG)
	drivetrain.Debug("shown")
	test.That(t, buf.String(), test.ShouldContainSubstring, "robot.drivetrain")
	test.That(t, buf.String(), test.ShouldContainSubstring, "shown")

	// The parent's level is unaffected.
	test.That(t, parent.GetLevel(), test.ShouldEqual, INFO)

	unnamed := NewBlankLogger("").Sublogger("auto")
	test.That(t, unnamed.Name(), test.ShouldEqual, "auto")
}

func TestAppenderAddedAfterSublogger(t *testing.T) {
	parent := NewBlankLogger("robot")
	claw := parent.Sublogger("qClaw")

	buf := &bytes.Buffer{}
	parent.AddAppender(NewWriterAppender(buf))
	claw.Infow("claw open", "current", 12.5)
	test.That(t, buf.String(), test.ShouldContainSubstring, "robot.qClaw")
	test.That(t, buf.String(), test.ShouldContainSubstring, `{"current":12.5}`)
}

func TestDebugModeContext(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(INFO)

	logger.CDebugw(context.Background(), "hidden")
	test.That(t, logs.Len(), test.ShouldEqual, 0)

	ctx := EnableDebugMode(context.Background(), "pass-1")
	test.That(t, IsDebugMode(ctx), test.ShouldBeTrue)
	logger.CDebugw(ctx, "executing", "line", 3)
	logger.Debugw("still hidden")

	test.That(t, logs.Len(), test.ShouldEqual, 1)
	fields := logs.All()[0].ContextMap()
	test.That(t, fields["trace"], test.ShouldEqual, "pass-1")
	test.That(t, fields["line"], test.ShouldEqual, int64(3))

	test.That(t, GetName(EnableDebugMode(context.Background(), "")), test.ShouldHaveLength, 8)
	test.That(t, IsDebugMode(context.Background()), test.ShouldBeFalse)
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Sublogger("conveyor").Infow("beam tripped", "sensor", "front")

	test.That(t, logs.FilterMessage("beam tripped").Len(), test.ShouldEqual, 1)
	entry := logs.All()[0]
	test.That(t, entry.LoggerName, test.ShouldEqual, "conveyor")
	test.That(t, entry.ContextMap()["sensor"], test.ShouldEqual, "front")
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.input)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"warn"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	out, err := json.Marshal(ERROR)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"error"`)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.log")
	appender, closer := NewFileAppender(FileAppenderConfig{Path: path, MaxSizeMB: 1})

	logger := NewBlankLogger("robot")
	logger.AddAppender(appender)
	logger.Infow("mode change", "mode", "Autonomous")
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, closer.Close(), test.ShouldBeNil)

	//nolint:gosec
	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "mode change")
	test.That(t, string(contents), test.ShouldContainSubstring, `"mode":"Autonomous"`)
}
