package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/mar-update-server/internal/service/server"
	"github.com/oshokin/mar-update-server/internal/version"
)

var (
	// configPath to the optional configuration YAML file.
	configPath string

	// rootCmd represents the base command for running the update server.
	rootCmd = &cobra.Command{
		Use:   "mar-update-server <archive>",
		Short: "Serve a MAR archive together with its update.xml.",
		Long: `Serves a Mozilla ARchive (MAR) to update clients.

At startup the archive is hashed with SHA-512 and its updatev3.manifest and
application.ini members are read to fill in the patch type, version and build id.
Missing members fall back to defaults. The resulting update.xml and the archive
itself are then served on GET /update.xml and GET /update.mar.

The server refuses to start when the archive is missing, unreadable, not a regular
file or not a valid MAR archive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &server.Options{
				ConfigPath:  configPath,
				ArchivePath: args[0],
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the mar-update-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Startup failures are not usage errors, print only the message.
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (defaults are used when empty)")
	rootCmd.AddCommand(newDescribeCommand())
}
