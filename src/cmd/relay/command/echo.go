package command

import (
	"github.com/mosaicnetworks/relay/src/echo"
	"github.com/mosaicnetworks/relay/src/message"
	"github.com/spf13/cobra"
)

// NewEchoCmd returns the command that runs an echo node
func NewEchoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "echo",
		Short: "Run an echo node on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(message.EchoProtocol, echo.Factory)
		},
	}
}
