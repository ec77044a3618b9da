package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that logs through tb, so output lands under the test
// (or parallel subtest) that produced it.
func NewTestAppender(tb testing.TB) Appender {
	return testAppender{tb}
}

func (tapp testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := consoleLine(entry, fields)
	tapp.tb.Log(line)
	return err
}

func (tapp testAppender) Sync() error {
	return nil
}
