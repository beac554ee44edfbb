package logger

import (
	"io"
	"math/rand"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger emits structured line-delimited event records. Every record carries
// the request id of the invocation it belongs to plus a subsystem and action,
// so tests can assert which code path ran by scanning the sink.
type Logger struct {
	rid uint64
	z   *zap.Logger
}

// New creates a logger that writes JSON records to stderr.
func New(rid uint64) *Logger {
	return NewWithSink(rid, os.Stderr)
}

// NewWithSink creates a logger that writes JSON records to the given sink.
// Tests pass a bytes.Buffer here and grep the captured lines.
func NewWithSink(rid uint64, sink io.Writer) *Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(sink), zapcore.InfoLevel)
	return &Logger{rid: rid, z: zap.New(core)}
}

// NewRID returns a fresh non-zero request id for one engine invocation.
func NewRID() uint64 {
	rid := rand.Uint64()
	if rid == 0 {
		rid = 1
	}
	return rid
}

// RID returns the request id this logger stamps on every record.
func (l *Logger) RID() uint64 {
	return l.rid
}

// Info emits an info-level event record.
func (l *Logger) Info(subsystem, action, msg string) {
	l.emit(zapcore.InfoLevel, subsystem, action, msg, nil)
}

// InfoCtx emits an info-level event record with extra key/value context.
func (l *Logger) InfoCtx(subsystem, action, msg string, ctx map[string]any) {
	l.emit(zapcore.InfoLevel, subsystem, action, msg, ctx)
}

// Error emits an error-level event record.
func (l *Logger) Error(subsystem, action, msg string) {
	l.emit(zapcore.ErrorLevel, subsystem, action, msg, nil)
}

// ErrorCtx emits an error-level event record with extra key/value context.
func (l *Logger) ErrorCtx(subsystem, action, msg string, ctx map[string]any) {
	l.emit(zapcore.ErrorLevel, subsystem, action, msg, ctx)
}

func (l *Logger) emit(level zapcore.Level, subsystem, action, msg string, ctx map[string]any) {
	fields := []zap.Field{
		zap.Uint64("rid", l.rid),
		zap.String("subsystem", subsystem),
		zap.String("action", action),
	}
	if len(ctx) > 0 {
		fields = append(fields, zap.Any("context", ctx))
	}
	if ce := l.z.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}
