package logging

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var stdout = os.Stdout

type impl struct {
	name  string
	level zap.AtomicLevel
	core  zapcore.Core
	sugar *zap.SugaredLogger
}

func newImpl(name string, level Level, core zapcore.Core) *impl {
	imp := &impl{
		name:  name,
		level: zap.NewAtomicLevelAt(level.AsZap()),
		core:  core,
	}
	imp.sugar = imp.build(zap.AddCallerSkip(1))
	return imp
}

// build wraps the shared core so the per-logger level is honored by derived zap loggers as well.
func (imp *impl) build(opts ...zap.Option) *zap.SugaredLogger {
	filtered := &levelCore{Core: imp.core, level: imp.level}
	opts = append([]zap.Option{zap.AddCaller()}, opts...)
	ret := zap.New(filtered, opts...).Sugar()
	if imp.name != "" {
		ret = ret.Named(imp.name)
	}
	return ret
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	return newImpl(newName, imp.GetLevel(), imp.core)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.SetLevel(level.AsZap())
}

func (imp *impl) GetLevel() Level {
	switch imp.level.Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.InfoLevel:
		return INFO
	case zapcore.WarnLevel:
		return WARN
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel, zapcore.InvalidLevel:
		return ERROR
	}
	return ERROR
}

func (imp *impl) Level() zapcore.Level {
	return imp.level.Level()
}

func (imp *impl) Desugar() *zap.Logger {
	return imp.build().Desugar()
}

func (imp *impl) Named(name string) *zap.SugaredLogger {
	return imp.build().Named(name)
}

func (imp *impl) Sync() error {
	return imp.core.Sync()
}

func (imp *impl) With(args ...interface{}) *zap.SugaredLogger {
	return imp.build().With(args...)
}

func (imp *impl) WithOptions(opts ...zap.Option) *zap.SugaredLogger {
	return imp.build(opts...)
}

func (imp *impl) Debug(args ...interface{})                       { imp.sugar.Debug(args...) }
func (imp *impl) Debugf(template string, args ...interface{})     { imp.sugar.Debugf(template, args...) }
func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) { imp.sugar.Debugw(msg, keysAndValues...) }
func (imp *impl) Info(args ...interface{})                        { imp.sugar.Info(args...) }
func (imp *impl) Infof(template string, args ...interface{})      { imp.sugar.Infof(template, args...) }
func (imp *impl) Infow(msg string, keysAndValues ...interface{})  { imp.sugar.Infow(msg, keysAndValues...) }
func (imp *impl) Warn(args ...interface{})                        { imp.sugar.Warn(args...) }
func (imp *impl) Warnf(template string, args ...interface{})      { imp.sugar.Warnf(template, args...) }
func (imp *impl) Warnw(msg string, keysAndValues ...interface{})  { imp.sugar.Warnw(msg, keysAndValues...) }
func (imp *impl) Error(args ...interface{})                       { imp.sugar.Error(args...) }
func (imp *impl) Errorf(template string, args ...interface{})     { imp.sugar.Errorf(template, args...) }
func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) { imp.sugar.Errorw(msg, keysAndValues...) }
func (imp *impl) Fatal(args ...interface{})                       { imp.sugar.Fatal(args...) }
func (imp *impl) Fatalf(template string, args ...interface{})     { imp.sugar.Fatalf(template, args...) }
func (imp *impl) Fatalw(msg string, keysAndValues ...interface{}) { imp.sugar.Fatalw(msg, keysAndValues...) }

// levelCore gates a shared core with a logger specific level.
type levelCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

// testWriter forwards encoded log lines to the owning test so they are attributed to it.
type testWriter struct {
	tb testing.TB
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
