package command

import (
	"fmt"

	"github.com/mosaicnetworks/relay/src/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd returns the command that displays the version of relay
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	}
}
