// Package corelog provides structured logging tagged with the host
// process's run context.
//
// Two logger variants are available:
//   - Logger: non-sugared zap.Logger for core registry paths (structured
//     fields, no interface{} formatting cost).
//   - SugaredLogger: printf-style logging for CLI/debug surfaces.
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package corelog

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunContext identifies the host process instance a log line belongs to,
// stable across every extension hot-reload within that process's
// lifetime.
type RunContext struct {
	RunEpoch int64
	Host     string
}

// Logger wraps zap.Logger with run context fields.
type Logger struct {
	zap *zap.Logger
	ctx RunContext
}

// SugaredLogger wraps zap.SugaredLogger with run context fields.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// New creates a Logger writing JSON to os.Stderr.
func New(ctx RunContext) *Logger {
	return newWithWriter(ctx, os.Stderr)
}

// WithOutput returns a new Logger with a different output writer.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	return newWithWriter(l.ctx, w)
}

func jsonEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
}

func newWithWriter(ctx RunContext, w io.Writer) *Logger {
	core := zapcore.NewCore(jsonEncoder(), zapcore.AddSync(w), zapcore.DebugLevel)

	fields := []zap.Field{
		zap.Int64("run_epoch", ctx.RunEpoch),
	}
	if ctx.Host != "" {
		fields = append(fields, zap.String("host", ctx.Host))
	}

	return &Logger{zap: zap.New(core).With(fields...), ctx: ctx}
}

// Debug logs a debug message with structured fields.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message with structured fields.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message with structured fields.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message with structured fields.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) { s.sugar.Debugf(template, args...) }

// Infof logs with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) { s.sugar.Infof(template, args...) }

// Warnf logs with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) { s.sugar.Warnf(template, args...) }

// Errorf logs with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) { s.sugar.Errorf(template, args...) }

// With returns a SugaredLogger carrying additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
