package main

import (
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/oshokin/mar-update-server/cmd/mar-update-server/cmd"
	"github.com/oshokin/mar-update-server/internal/logger"
)

func main() {
	// Respect container CPU quotas before anything else runs.
	if _, err := maxprocs.Set(maxprocs.Logger(logger.Logger().Debugf)); err != nil {
		logger.Logger().Warnf("Failed to set GOMAXPROCS: %v", err)
	}

	cmd.Execute()
}
