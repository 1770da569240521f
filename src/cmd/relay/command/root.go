package command

import (
	"fmt"
	"os"

	"github.com/mosaicnetworks/relay/src/config"
	"github.com/mosaicnetworks/relay/src/telemetry"
	"github.com/mosaicnetworks/relay/src/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	_config = config.NewDefaultConfig()
	_viper  = viper.New()
)

// NewRootCmd returns the relay command with all its sub-commands, bound to a
// fresh configuration.
func NewRootCmd() *cobra.Command {
	_config = config.NewDefaultConfig()
	_viper = viper.New()

	rootCmd := &cobra.Command{
		Use:               "relay",
		Short:             "Line-JSON nodes for simulated distributed systems",
		PersistentPreRunE: loadConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringP("datadir", "d", _config.DataDir, "Top-level directory for configuration and data")
	rootCmd.PersistentFlags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().String("log-file", _config.LogFile, "Also write logs to this file")
	rootCmd.PersistentFlags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service (disabled when empty)")

	rootCmd.AddCommand(
		NewBroadcastCmd(),
		NewEchoCmd(),
		NewUniqueIDCmd(),
		NewSimulateCmd(),
		NewVersionCmd(),
	)

	return rootCmd
}

// Execute runs the relay command and exits with status 1 on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	telemetry.SetBuildInfo(version.Version, version.GitCommit)

	logFields := logrus.Fields{
		"DataDir":     _config.DataDir,
		"LogLevel":    _config.LogLevel,
		"LogFile":     _config.LogFile,
		"ServiceAddr": _config.ServiceAddr,
		"Command":     cmd.Name(),
	}

	if _config.UseStore() {
		logFields["DatabaseDir"] = _config.DatabaseDir
		logFields["Bootstrap"] = _config.Bootstrap
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := _viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := _viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/relay.toml (.json, .yaml also work)
	_viper.SetConfigName("relay")
	_viper.AddConfigPath(_config.DataDir)

	// If a config file is found, read it in. The logger is only built once
	// the file has been unmarshalled, so that its log settings apply.
	found := true
	if err := _viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		found = false
	}

	// second unmarshal to read from config file
	if err := _viper.Unmarshal(_config); err != nil {
		return err
	}

	if found {
		_config.Logger().Debugf("Using config file: %s", _viper.ConfigFileUsed())
	} else {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	}

	return nil
}
