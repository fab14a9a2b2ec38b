package logger

import (
	"errors"
	"fmt"
)

// errUnknownLevel is returned by Configure for levels zap does not know.
var errUnknownLevel = errors.New("unknown log level")

// Configure applies the configured level to the shared atomic level and,
// when file is not empty, replaces the global logger with one that also
// writes into the rotated file.
func Configure(level, file string) error {
	lvl, ok := ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLevel, level)
	}

	SetLevel(lvl)

	if file != "" {
		SetLogger(New(defaultLevel, WithFileOutput(file)))
	}

	return nil
}
