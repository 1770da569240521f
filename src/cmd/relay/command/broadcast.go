package command

import (
	"os"

	"github.com/mosaicnetworks/relay/src/broadcast"
	"github.com/mosaicnetworks/relay/src/message"
	"github.com/spf13/cobra"
)

// NewBroadcastCmd returns the command that runs a broadcast node
func NewBroadcastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Run a broadcast node on stdin/stdout",
		RunE:  runBroadcast,
	}
	AddBroadcastFlags(cmd)
	return cmd
}

// AddBroadcastFlags adds flags to the broadcast command
func AddBroadcastFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dedup", _config.Dedup, "Accept each value once (--dedup=false stores every delivery)")
	cmd.Flags().Bool("store", _config.Store, "Also write values to a badger database")
	cmd.Flags().String("db", _config.DatabaseDir, "Database directory")
	cmd.Flags().Bool("bootstrap", _config.Bootstrap, "Reload values from the database")
}

func runBroadcast(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		_config.Logger().WithError(err).Error("Cannot open store")
		return err
	}
	defer store.Close()

	return runNode(message.BroadcastProtocol, broadcast.NewHandlerFactory(store))
}

func newStore() (broadcast.Store, error) {
	if !_config.UseStore() {
		return broadcast.NewInmemStore(_config.Dedup), nil
	}

	logger := _config.Logger()

	if _config.Bootstrap {
		return broadcast.LoadOrCreateBadgerStore(_config.Dedup, _config.DatabaseDir, logger)
	}

	if err := os.MkdirAll(_config.DatabaseDir, 0700); err != nil {
		return nil, err
	}
	return broadcast.NewBadgerStore(_config.Dedup, _config.DatabaseDir, logger)
}
