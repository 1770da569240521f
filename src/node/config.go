package node

import (
	"os"
	"testing"

	"github.com/mosaicnetworks/relay/src/common"
	"github.com/sirupsen/logrus"
)

// Config holds the runtime settings of a node.
type Config struct {
	// Logger receives every diagnostic. It must not write to the protocol
	// output stream.
	Logger *logrus.Entry
}

// NewConfig returns a Config that logs to logger.
func NewConfig(logger *logrus.Entry) *Config {
	return &Config{
		Logger: logger,
	}
}

// DefaultConfig logs to stderr at debug level.
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Level = logrus.DebugLevel

	return &Config{
		Logger: logrus.NewEntry(logger),
	}
}

// TestConfig routes logs to t.Log.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestEntry(t, common.TestLogLevel)
	return config
}
