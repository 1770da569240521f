// Package config defines the configuration of the relay command.
//
// Options come from command line flags and, optionally, from a relay.toml,
// relay.yaml or relay.json file in the data directory (Config.DataDir). Flags
// take precedence over the file. When the badger store is enabled, its
// database lives in Config.DatabaseDir, which defaults to a folder inside the
// data directory.
package config
