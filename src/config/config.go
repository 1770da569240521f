package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/relay/src/broadcast"
	"github.com/mosaicnetworks/relay/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel    = "info"
	DefaultLogFile     = ""
	DefaultServiceAddr = ""
	DefaultStore       = false
	DefaultBootstrap   = false
	DefaultDedup       = true
	DefaultNodes       = 5
	DefaultTopology    = "ring"
	DefaultValues      = 25
	DefaultTimeout     = 5 * time.Second
)

// Config contains all the configuration properties of the relay command.
type Config struct {
	// DataDir is the top-level directory containing the configuration file
	// and data.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of every log entry.
	LogFile string `mapstructure:"log-file"`

	// ServiceAddr is the address:port of the optional HTTP service exposing
	// /stats and /metrics. The service is disabled when it is empty.
	ServiceAddr string `mapstructure:"service-listen"`

	// Dedup makes the broadcast store accept each value once. Without it
	// every delivery is stored and forwarded.
	Dedup bool `mapstructure:"dedup"`

	// Store activates the badger value store.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Bootstrap reloads the values of a previous run from the database.
	// Forces Store.
	Bootstrap bool `mapstructure:"bootstrap"`

	// Nodes is the size of a simulated cluster.
	Nodes int `mapstructure:"nodes"`

	// Topology is the shape of a simulated cluster: line, ring, star, full
	// or tree.
	Topology string `mapstructure:"topology"`

	// Values is the number of values broadcast in a simulation.
	Values int `mapstructure:"values"`

	// Timeout bounds a simulation.
	Timeout time.Duration `mapstructure:"timeout"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    DefaultLogLevel,
		LogFile:     DefaultLogFile,
		ServiceAddr: DefaultServiceAddr,
		Dedup:       DefaultDedup,
		Store:       DefaultStore,
		DatabaseDir: DefaultDatabaseDir(),
		Bootstrap:   DefaultBootstrap,
		Nodes:       DefaultNodes,
		Topology:    DefaultTopology,
		Values:      DefaultValues,
		Timeout:     DefaultTimeout,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// UseStore reports whether the badger store is enabled, directly or through
// Bootstrap.
func (c *Config) UseStore() bool {
	return c.Store || c.Bootstrap
}

// TopologyKind parses Topology.
func (c *Config) TopologyKind() (broadcast.TopologyKind, error) {
	return broadcast.ParseTopologyKind(c.Topology)
}

// Logger returns a formatted logrus Entry, with prefix set to "relay". Logs go
// to stderr, since stdout carries the protocol, and also to LogFile when it is
// set.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Out = os.Stderr
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			pathMap := lfshook.PathMap{}
			for _, level := range logrus.AllLevels {
				pathMap[level] = c.LogFile
			}
			c.logger.Hooks.Add(lfshook.NewHook(
				pathMap,
				&logrus.TextFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "relay")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level relay config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Relay")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Relay")
		} else {
			return filepath.Join(home, ".relay")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
