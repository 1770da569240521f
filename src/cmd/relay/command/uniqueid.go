package command

import (
	"github.com/mosaicnetworks/relay/src/message"
	"github.com/mosaicnetworks/relay/src/uniqueid"
	"github.com/spf13/cobra"
)

// NewUniqueIDCmd returns the command that runs a unique-id node
func NewUniqueIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unique-id",
		Short: "Run a unique-id node on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(message.UniqueIDProtocol, uniqueid.Factory)
		},
	}
}
