package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at build time via ldflags; "dev" otherwise.
var version = "dev"

// SetVersion overrides the version string printed by the version command.
func SetVersion(v string) {
	version = v
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the drover version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "drover version %s\n", version)
		},
	}
}
