// Package config defines the gpulease configuration, its defaults, and
// viper-backed loading.
package config

import (
	"path/filepath"
	"time"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/spf13/viper"
)

// Config represents the complete gpulease configuration.
type Config struct {
	Lock    LockConfig    `mapstructure:"lock"`
	Device  DeviceConfig  `mapstructure:"device"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LockConfig controls the shared lock directory and admission policy.
type LockConfig struct {
	// Dir is the shared lock directory. Empty means the machine-wide
	// default under the system data directory.
	Dir string `mapstructure:"dir"`
	// RefreshIntervalSeconds is the heartbeat interval; a claim older
	// than this plus one second of grace is considered abandoned.
	RefreshIntervalSeconds int `mapstructure:"refresh_interval_seconds"`
	// Group is the default group label when none is given on the command
	// line. Sessions in the same group may share the device up to the cap.
	Group string `mapstructure:"group"`
	// MaxPerGroup caps how many same-group sessions may hold claims
	// concurrently.
	MaxPerGroup int `mapstructure:"max_per_group"`
}

// DeviceConfig controls the external device query and eligibility policy.
type DeviceConfig struct {
	// Tool is the diagnostic executable used to query the accelerator.
	Tool string `mapstructure:"tool"`
	// QueryTimeoutSeconds bounds one tool invocation.
	QueryTimeoutSeconds int `mapstructure:"query_timeout_seconds"`
	// Denylist holds glob patterns of device names never worth using.
	Denylist []string `mapstructure:"denylist"`
	// MinFreeMemoryMiB is the minimum free device memory worth claiming.
	MinFreeMemoryMiB int `mapstructure:"min_free_memory_mib"`
}

// LoggingConfig controls debug logging behavior.
type LoggingConfig struct {
	// Enabled controls whether logging is emitted at all.
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "DEBUG", "INFO", "WARN", "ERROR".
	Level string `mapstructure:"level"`
	// File is the log destination; empty logs to stderr.
	File string `mapstructure:"file"`
}

// RefreshInterval returns the heartbeat interval as a time.Duration.
func (c *LockConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// QueryTimeout returns the device query timeout as a time.Duration.
func (c *DeviceConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Lock: LockConfig{
			Dir:                    "", // resolved via DefaultLockDir
			RefreshIntervalSeconds: 5,
			Group:                  "default",
			MaxPerGroup:            1,
		},
		Device: DeviceConfig{
			Tool:                "nvidia-smi",
			QueryTimeoutSeconds: 5,
			Denylist:            []string{},
			MinFreeMemoryMiB:    1024,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "INFO",
			File:    "",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("lock.dir", defaults.Lock.Dir)
	viper.SetDefault("lock.refresh_interval_seconds", defaults.Lock.RefreshIntervalSeconds)
	viper.SetDefault("lock.group", defaults.Lock.Group)
	viper.SetDefault("lock.max_per_group", defaults.Lock.MaxPerGroup)

	viper.SetDefault("device.tool", defaults.Device.Tool)
	viper.SetDefault("device.query_timeout_seconds", defaults.Device.QueryTimeoutSeconds)
	viper.SetDefault("device.denylist", defaults.Device.Denylist)
	viper.SetDefault("device.min_free_memory_mib", defaults.Device.MinFreeMemoryMiB)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
}

// Load reads the configuration from viper into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveLockDir returns the configured lock directory, falling back to
// the machine-wide default when unset.
func (c *Config) ResolveLockDir() string {
	if c.Lock.Dir != "" {
		return c.Lock.Dir
	}
	return DefaultLockDir()
}

// DefaultLockDir returns the machine-wide lock directory: the GPULock
// subpath of the first system data directory. All sessions on the machine
// must resolve the same path or they will not see each other's claims.
func DefaultLockDir() string {
	base := "/usr/local/share/gpulease"
	if dirs := appXDG().DataDirs(); len(dirs) > 0 {
		base = dirs[0]
	}
	return filepath.Join(base, "GPULock")
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	return appXDG().ConfigHome()
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func appXDG() *xdg.XDG {
	return xdg.New("hpckit", "gpulease")
}
