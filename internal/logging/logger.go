// Package logging builds the zap.Logger used across videoindex's CLI
// subcommands: a colorized, human-scannable console encoder in normal use,
// or line-delimited JSON when Config.Log.Format is "json" (scripted runs,
// piping into a log aggregator).
package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"videoindex/internal/config"
)

// Logger wraps *zap.Logger so call sites can depend on this package's type
// rather than importing zap directly everywhere.
type Logger struct {
	*zap.Logger
}

// New builds a Logger from cfg's Log section.
func New(cfg *config.Config) (*Logger, error) {
	var zapConfig zap.Config

	if cfg.Log.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig = enhancedEncoderConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Log.Level, err)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}
	return &Logger{Logger: logger}, nil
}

// Default returns a console logger at info level, for use before a Config
// has been loaded (flag parsing errors, config load failures).
func Default() *Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig = enhancedEncoderConfig()
	logger, _ := cfg.Build()
	return &Logger{Logger: logger}
}

func enhancedEncoderConfig() zapcore.EncoderConfig {
	enc := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      "C",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    encodeLevel,
		EncodeTime:     encodeTime,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	enc.ConsoleSeparator = "  "
	return enc
}

func encodeLevel(l zapcore.Level, p zapcore.PrimitiveArrayEncoder) {
	var level, colorCode string
	switch l {
	case zapcore.DebugLevel:
		level, colorCode = "DEBUG", "\x1b[1;90m"
	case zapcore.InfoLevel:
		level, colorCode = "INFO", "\x1b[1;96m"
	case zapcore.WarnLevel:
		level, colorCode = "WARN", "\x1b[1;93m"
	case zapcore.ErrorLevel:
		level, colorCode = "ERROR", "\x1b[1;91m"
	case zapcore.FatalLevel:
		level, colorCode = "FATAL", "\x1b[1;95m"
	case zapcore.PanicLevel:
		level, colorCode = "PANIC", "\x1b[1;95m"
	default:
		level, colorCode = l.String(), "\x1b[0m"
	}

	buf := buffer.Buffer{}
	buf.AppendString(colorCode)
	buf.AppendString(level)
	buf.AppendString("\x1b[0m")
	p.AppendString(buf.String())
}

func encodeTime(t time.Time, p zapcore.PrimitiveArrayEncoder) {
	p.AppendString("\x1b[35m" + t.Format("15:04:05.000") + "\x1b[0m")
}
