package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand wires build metadata into the root command:
// the `--version` flag prints Short and the `version` subcommand prints Full.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.Version = Short()

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long:  "Print the release, commit hash and build timestamp injected at build time, plus the Go runtime version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}
