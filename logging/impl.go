package logging

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// callerDepth is the frame count from caller() up through write() and the exported level
// method to the line that logged. Every exported method must call write directly.
const callerDepth = 3

var errUnpairedKey = errors.New("unpaired log key")

// sinks is the appender list a logger shares with all of its subloggers, so an appender added
// after the actors have taken their subloggers still sees their output.
type sinks struct {
	mu   sync.RWMutex
	list []Appender
}

func newSinks(appenders ...Appender) *sinks {
	return &sinks{list: appenders}
}

func (s *sinks) add(appender Appender) {
	s.mu.Lock()
	s.list = append(s.list, appender)
	s.mu.Unlock()
}

func (s *sinks) snapshot() []Appender {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list
}

type impl struct {
	name  string
	level AtomicLevel
	utc   bool
	sinks *sinks
}

func newImpl(name string, level Level, utc bool, appenders ...Appender) *impl {
	return &impl{name: name, level: NewAtomicLevelAt(level), utc: utc, sinks: newSinks(appenders...)}
}

func (imp *impl) Name() string {
	return imp.name
}

func (imp *impl) AddAppender(appender Appender) {
	imp.sinks.add(appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Level() zapcore.Level {
	return imp.GetLevel().AsZap()
}

// Sublogger returns "<name>.<subname>" starting at this logger's current level. Changing either
// level afterwards leaves the other alone.
func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{name: name, level: NewAtomicLevelAt(imp.GetLevel()), utc: imp.utc, sinks: imp.sinks}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.sinks.snapshot() {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

// sugared hands zap-only callers a logger writing to stdout, teed into any appender that is
// a full zapcore.Core.
func (imp *impl) sugared() *zap.SugaredLogger {
	encoder := zapcore.NewConsoleEncoder(consoleEncoderConfig())
	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), GlobalLogLevel)}
	for _, appender := range imp.sinks.snapshot() {
		if core, ok := appender.(zapcore.Core); ok {
			cores = append(cores, core)
		}
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar().Named(imp.name)
}

func (imp *impl) Desugar() *zap.Logger {
	return imp.sugared().Desugar()
}

func (imp *impl) Named(name string) *zap.SugaredLogger {
	return imp.sugared().Named(name)
}

func (imp *impl) With(args ...interface{}) *zap.SugaredLogger {
	return imp.sugared().With(args...)
}

func (imp *impl) WithOptions(opts ...zap.Option) *zap.SugaredLogger {
	return imp.sugared().WithOptions(opts...)
}

func (imp *impl) enabled(level Level) bool {
	return level >= imp.level.Get() || GlobalLogLevel.Level() == zapcore.DebugLevel
}

func (imp *impl) write(level Level, msg string, fields []zapcore.Field) {
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     caller(),
	}
	if imp.utc {
		entry.Time = entry.Time.UTC()
	}
	for _, appender := range imp.sinks.snapshot() {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// pairs turns alternating keys and values into zap fields. A trailing key without a value is
// kept with an error in its place.
func pairs(keysAndValues []interface{}) []zapcore.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errUnpairedKey))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

// traced adds the trace id when ctx was marked by EnableDebugMode.
func traced(ctx context.Context, fields []zapcore.Field) []zapcore.Field {
	if id := GetName(ctx); id != "" {
		return append(fields, zap.String("trace", id))
	}
	return fields
}

func (imp *impl) Debug(args ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.write(DEBUG, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.write(DEBUG, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.write(DEBUG, msg, pairs(keysAndValues))
	}
}

// The CDebug variants also log when ctx is in debug mode.

func (imp *impl) CDebug(ctx context.Context, args ...interface{}) {
	if imp.enabled(DEBUG) || IsDebugMode(ctx) {
		imp.write(DEBUG, fmt.Sprint(args...), traced(ctx, nil))
	}
}

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	if imp.enabled(DEBUG) || IsDebugMode(ctx) {
		imp.write(DEBUG, fmt.Sprintf(template, args...), traced(ctx, nil))
	}
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if imp.enabled(DEBUG) || IsDebugMode(ctx) {
		imp.write(DEBUG, msg, traced(ctx, pairs(keysAndValues)))
	}
}

func (imp *impl) Info(args ...interface{}) {
	if imp.enabled(INFO) {
		imp.write(INFO, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Infof(template string, args ...interface{}) {
	if imp.enabled(INFO) {
		imp.write(INFO, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	if imp.enabled(INFO) {
		imp.write(INFO, msg, pairs(keysAndValues))
	}
}

func (imp *impl) Warn(args ...interface{}) {
	if imp.enabled(WARN) {
		imp.write(WARN, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	if imp.enabled(WARN) {
		imp.write(WARN, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(WARN) {
		imp.write(WARN, msg, pairs(keysAndValues))
	}
}

func (imp *impl) Error(args ...interface{}) {
	if imp.enabled(ERROR) {
		imp.write(ERROR, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	if imp.enabled(ERROR) {
		imp.write(ERROR, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(ERROR) {
		imp.write(ERROR, msg, pairs(keysAndValues))
	}
}

// Fatal logs at error level regardless of the logger's level, flushes, and exits.
func (imp *impl) Fatal(args ...interface{}) {
	imp.write(ERROR, fmt.Sprint(args...), nil)
	imp.exit()
}

func (imp *impl) Fatalf(template string, args ...interface{}) {
	imp.write(ERROR, fmt.Sprintf(template, args...), nil)
	imp.exit()
}

func (imp *impl) Fatalw(msg string, keysAndValues ...interface{}) {
	imp.write(ERROR, msg, pairs(keysAndValues))
	imp.exit()
}

func (imp *impl) exit() {
	//nolint:errcheck
	imp.Sync()
	os.Exit(1)
}

func caller() zapcore.EntryCaller {
	pc, file, line, ok := runtime.Caller(callerDepth)
	if !ok {
		return zapcore.EntryCaller{}
	}
	c := zapcore.NewEntryCaller(pc, file, line, true)
	if fn := runtime.FuncForPC(pc); fn != nil {
		c.Function = fn.Name()
	}
	return c
}
