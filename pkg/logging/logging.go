// Package logging provides structured logging for the change pipeline.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger behind the small surface the pipeline needs.
type Logger struct {
	z *zap.SugaredLogger
}

// New creates a logger writing JSON (format "json") or console lines
// (format "text") to stderr at the given level. Unknown levels fall back
// to info.
func New(level, format string) *Logger {
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	var enc zapcore.Encoder
	if format == "text" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl)
	return &Logger{z: zap.New(core).Sugar()}
}

// Nop returns a logger that discards everything. Tests use it.
func Nop() *Logger {
	return &Logger{z: zap.NewNop().Sugar()}
}

// With returns a logger with additional key-value context.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{z: l.z.With(keysAndValues...)}
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.z.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.z.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.z.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.z.Errorw(msg, keysAndValues...)
}

// ErrorErr logs an error message with an error value.
func (l *Logger) ErrorErr(msg string, err error, keysAndValues ...any) {
	l.z.Errorw(msg, append([]any{"error", err.Error()}, keysAndValues...)...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
