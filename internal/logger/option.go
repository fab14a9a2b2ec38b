package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// logFileMaxSizeMB is the size in megabytes after which the log file is rotated.
	logFileMaxSizeMB = 50
	// logFileMaxBackups is how many rotated files are kept.
	logFileMaxBackups = 5
	// logFileMaxAgeDays is how long rotated files are kept.
	logFileMaxAgeDays = 28
)

// coreWithLevel wraps a zapcore.Core with its own minimum level.
type coreWithLevel struct {
	zapcore.Core

	// level is the minimum level this core accepts.
	level zapcore.Level
}

// Enabled reports whether entries at l pass this core's level.
func (c *coreWithLevel) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

// Check adds the core to the checked entry when the entry level is enabled.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *coreWithLevel) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// With returns a copy of the core with extra fields and the same level.
//
//nolint:ireturn,nolintlint // zap integration works in terms of zapcore.Core.
func (c *coreWithLevel) With(fields []zapcore.Field) zapcore.Core {
	return &coreWithLevel{
		c.Core.With(fields),
		c.level,
	}
}

// WithLevel is an option that pins a derived logger to the given level.
//
//nolint:ireturn,nolintlint // zap integration works in terms of zap.Option.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(
		func(core zapcore.Core) zapcore.Core {
			return &coreWithLevel{core, lvl}
		})
}

// WithFileOutput is an option that duplicates every entry as JSON into a
// size-rotated file at path. The file core follows the shared atomic level.
//
//nolint:ireturn,nolintlint // zap integration works in terms of zap.Option.
func WithFileOutput(path string) zap.Option {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
	}

	encoderConfig := consoleEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		defaultLevel,
	)

	return zap.WrapCore(
		func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		})
}
