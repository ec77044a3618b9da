package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the timestamp layout of every console line.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. zapcore.Core satisfies it.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// fieldEncoder writes fields in the order they were logged.
var fieldEncoder = zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})

// consoleLine renders an entry as tab separated columns: time, level, logger, caller, message
// and, when there are fields, a JSON object of them. A field encoding error still returns the
// line without the fields.
func consoleLine(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	var b strings.Builder
	b.WriteString(entry.Time.Format(DefaultTimeFormatStr))
	b.WriteString("\t" + strings.ToUpper(entry.Level.String()))
	b.WriteString("\t" + entry.LoggerName)
	if entry.Caller.Defined {
		b.WriteString("\t" + entry.Caller.TrimmedPath())
	}
	b.WriteString("\t" + entry.Message)
	if len(fields) == 0 {
		return b.String(), nil
	}

	buf, err := fieldEncoder.Clone().EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return b.String(), err
	}
	defer buf.Free()
	b.WriteString("\t" + buf.String())
	return b.String(), nil
}

// ConsoleAppender writes human readable lines to a stream.
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender writes to stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewWriterAppender writes to w.
func NewWriterAppender(w io.Writer) ConsoleAppender {
	return ConsoleAppender{w}
}

// FileAppenderConfig describes a rotating log file. Zero limits fall back to lumberjack's
// defaults.
type FileAppenderConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewFileAppender returns a console appender over a rotating file. Close the returned closer at
// shutdown.
func NewFileAppender(cfg FileAppenderConfig) (ConsoleAppender, io.Closer) {
	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return ConsoleAppender{rotator}, rotator
}

// Write implements Appender.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := consoleLine(entry, fields)
	if _, werr := fmt.Fprintln(appender.Writer, line); werr != nil {
		return werr
	}
	return err
}

// Sync is a no-op, writes are not buffered.
func (appender ConsoleAppender) Sync() error {
	return nil
}
