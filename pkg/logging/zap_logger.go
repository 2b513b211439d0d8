// Package logging builds the zap loggers shared by the sampler and sensorctl binaries.
package logging

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFormat selects the zap encoder.
type LogFormat string

const (
	// FormatConsole is human-readable console output.
	FormatConsole LogFormat = "CONSOLE"
	// FormatJSON is structured JSON output.
	FormatJSON LogFormat = "JSON"
)

// ZapLogger implements the printf-style Info/Error logger contract of both binaries
// on top of a zap sugared logger.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// Info logs msg formatted with args at info level.
func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.s.Infof(msg, args...)
}

// Error logs msg formatted with args at error level.
func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.s.Errorf(msg, args...)
}

// Named returns a child logger reported under the given component name.
func (l *ZapLogger) Named(component string) *ZapLogger {
	return &ZapLogger{s: l.s.Named(component)}
}

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() {
	_ = l.s.Sync()
}

func logLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		// INFO and PRODUCTION
		return zapcore.InfoLevel
	}
}

func consoleTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05 MST"))
}

// NewZapLogger builds a logger writing to stdout at the given level.
func NewZapLogger(level string, format LogFormat) *ZapLogger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if format == FormatJSON {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = consoleTimeEncoder
		encoderConfig.ConsoleSeparator = " | "
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(logLevel(level)))
	// skip the ZapLogger frame so callers are reported
	return &ZapLogger{s: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

// NewZapLoggerFromEnv reads LOGGING_LEVEL and LOGGING_FORMAT, defaulting to INFO and CONSOLE.
func NewZapLoggerFromEnv() *ZapLogger {
	level := os.Getenv("LOGGING_LEVEL")
	format := LogFormat(strings.ToUpper(os.Getenv("LOGGING_FORMAT")))
	if format != FormatJSON {
		format = FormatConsole
	}
	return NewZapLogger(level, format)
}

// NewZapLoggerFrom wraps an existing sugared logger, e.g. one built by zaptest.
func NewZapLoggerFrom(s *zap.SugaredLogger) *ZapLogger {
	return &ZapLogger{s: s}
}
