package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/mar-update-server/internal/service/describe"
)

// newDescribeCommand builds the describe subcommand.
func newDescribeCommand() *cobra.Command {
	var (
		outputPath string
		check      bool
	)

	describeCmd := &cobra.Command{
		Use:   "describe <archive>",
		Short: "Print the update.xml that would be served for an archive.",
		Long: `Builds the update descriptor of the archive exactly like the server does at
startup and prints the resulting update.xml, or writes it to --output.
With --check the document is parsed back and compared with the descriptor.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return describe.Run(cmd.Context(), &describe.Options{
				ConfigPath:  configPath,
				ArchivePath: args[0],
				OutputPath:  outputPath,
				Check:       check,
				Stdout:      cmd.OutOrStdout(),
				Stderr:      cmd.ErrOrStderr(),
			})
		},
	}

	describeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the document to this file instead of stdout")
	describeCmd.Flags().BoolVar(&check, "check", false, "verify the document parses back into the same descriptor")

	return describeCmd
}
