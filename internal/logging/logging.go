package logging

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a leveled printf-style logger. The zero value is not usable; use
// New or Nop.
type Logger struct {
	s *zap.SugaredLogger
}

func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New writes console lines like "2025-04-20 12:00:00.000 [INFO ] monitor msg"
// to stdout. The name column is present only for Named loggers.
func New(level string) *Logger {
	return newLogger(level, zapcore.Lock(os.Stdout))
}

func newLogger(level string, out zapcore.WriteSyncer) *Logger {
	enc := zapcore.EncoderConfig{
		TimeKey:     "time",
		LevelKey:    "level",
		NameKey:     "logger",
		MessageKey:  "msg",
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeTime:  timeEncoder,
		EncodeLevel: levelEncoder,
		EncodeName:  zapcore.FullNameEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), out, ParseLevel(level))
	return &Logger{s: zap.New(core).Sugar()}
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *Logger { return &Logger{s: z.Sugar()} }

func Nop() *Logger { return FromZap(zap.NewNop()) }

func (l *Logger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }

// Named returns a child logger whose lines carry a component prefix.
func (l *Logger) Named(name string) *Logger { return &Logger{s: l.s.Named(name)} }

func (l *Logger) Sync() { _ = l.s.Sync() }

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func levelEncoder(lv zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	tag := lv.CapitalString()
	if len(tag) < 5 {
		tag += strings.Repeat(" ", 5-len(tag))
	}
	enc.AppendString("[" + tag + "]")
}
