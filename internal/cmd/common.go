package cmd

import (
	"fmt"
	"os"

	"github.com/graphkv/graphd/internal/config"
	"github.com/graphkv/graphd/internal/log"
)

// loadConfig reads and parses the configuration file at path, stamping
// id into Config.ID/Labels the way every run-* subcommand needs.
func loadConfig(path, id string) (*config.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: read config %s: %w", path, err)
	}
	return config.Parse(raw, id)
}

// buildLogger constructs a Logger from a config's logging sub-document
// and installs it as the process-wide default, mirroring the teacher's
// runtime.NewRuntime wiring its configured logger into logging.SetGlobal.
func buildLogger(c *config.Config) (log.Logger, error) {
	lc, err := c.DecodeLogging()
	if err != nil {
		return nil, fmt.Errorf("cmd: decode logging config: %w", err)
	}
	logger := log.New()
	if err := logger.SetLevel(lc.Level); err != nil {
		return nil, fmt.Errorf("cmd: invalid log level %q: %w", lc.Level, err)
	}
	if lc.Format == "json" {
		logger.SetJSONFormatter()
	}
	log.SetGlobal(logger)
	return logger, nil
}
