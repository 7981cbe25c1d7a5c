package config

import (
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/hpckit/gpulease/internal/errors"
	"github.com/hpckit/gpulease/internal/logging"
)

// groupNameOK reports whether a group label is usable as single-line claim
// file content. Whitespace would be trimmed away on scan, so reject it up
// front.
func groupNameOK(group string) bool {
	return group != "" && !strings.ContainsAny(group, " \t\r\n")
}

// Validate checks the Config for invalid values. It returns the first
// validation failure found, wrapped as a ValidationError.
func (c *Config) Validate() error {
	if c.Lock.RefreshIntervalSeconds <= 0 {
		return errors.NewValidationError("refresh interval must be positive").
			WithField("lock.refresh_interval_seconds").
			WithValue(c.Lock.RefreshIntervalSeconds)
	}
	if c.Lock.MaxPerGroup < 1 {
		return errors.NewValidationError("per-group cap must be at least 1").
			WithField("lock.max_per_group").
			WithValue(c.Lock.MaxPerGroup)
	}
	if !groupNameOK(c.Lock.Group) {
		return errors.NewValidationError("group must be non-empty without whitespace").
			WithField("lock.group").
			WithValue(c.Lock.Group)
	}

	if c.Device.Tool == "" {
		return errors.NewValidationError("device tool must not be empty").
			WithField("device.tool").
			WithValue(c.Device.Tool)
	}
	if c.Device.QueryTimeoutSeconds <= 0 {
		return errors.NewValidationError("query timeout must be positive").
			WithField("device.query_timeout_seconds").
			WithValue(c.Device.QueryTimeoutSeconds)
	}
	if c.Device.MinFreeMemoryMiB < 0 {
		return errors.NewValidationError("minimum free memory must not be negative").
			WithField("device.min_free_memory_mib").
			WithValue(c.Device.MinFreeMemoryMiB)
	}
	for _, pattern := range c.Device.Denylist {
		if _, err := glob.Compile(pattern); err != nil {
			return errors.NewValidationError("denylist pattern does not compile").
				WithField("device.denylist").
				WithValue(pattern)
		}
	}

	if !slices.Contains(logging.ValidLevels(), strings.ToUpper(c.Logging.Level)) {
		return errors.NewValidationError("unknown log level").
			WithField("logging.level").
			WithValue(c.Logging.Level)
	}
	return nil
}
