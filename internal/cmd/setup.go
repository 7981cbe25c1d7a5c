package cmd

import (
	"github.com/hpckit/gpulease/internal/config"
	"github.com/hpckit/gpulease/internal/logging"
)

// buildLogger constructs the configured logger, or a no-op logger when
// logging is disabled.
func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.New(cfg.Logging.File, cfg.Logging.Level)
}
