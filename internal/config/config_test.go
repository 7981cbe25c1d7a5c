package config

import (
	"strings"
	"testing"

	"github.com/hpckit/gpulease/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}

	if cfg.Lock.RefreshIntervalSeconds != 5 {
		t.Errorf("refresh interval = %d, want 5", cfg.Lock.RefreshIntervalSeconds)
	}
	if cfg.Lock.MaxPerGroup != 1 {
		t.Errorf("max per group = %d, want 1", cfg.Lock.MaxPerGroup)
	}
	if cfg.Device.MinFreeMemoryMiB != 1024 {
		t.Errorf("min free memory = %d, want 1024", cfg.Device.MinFreeMemoryMiB)
	}
	if cfg.Device.Tool != "nvidia-smi" {
		t.Errorf("device tool = %q, want nvidia-smi", cfg.Device.Tool)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "zero refresh interval",
			mutate: func(c *Config) { c.Lock.RefreshIntervalSeconds = 0 },
			field:  "lock.refresh_interval_seconds",
		},
		{
			name:   "zero per-group cap",
			mutate: func(c *Config) { c.Lock.MaxPerGroup = 0 },
			field:  "lock.max_per_group",
		},
		{
			name:   "empty group",
			mutate: func(c *Config) { c.Lock.Group = "" },
			field:  "lock.group",
		},
		{
			name:   "group with whitespace",
			mutate: func(c *Config) { c.Lock.Group = "bad group" },
			field:  "lock.group",
		},
		{
			name:   "empty device tool",
			mutate: func(c *Config) { c.Device.Tool = "" },
			field:  "device.tool",
		},
		{
			name:   "negative min free memory",
			mutate: func(c *Config) { c.Device.MinFreeMemoryMiB = -1 },
			field:  "device.min_free_memory_mib",
		},
		{
			name:   "broken denylist pattern",
			mutate: func(c *Config) { c.Device.Denylist = []string{"[unclosed"} },
			field:  "device.denylist",
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			field:  "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() accepted invalid config")
			}
			var ve *errors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error type = %T, want *errors.ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestResolveLockDir(t *testing.T) {
	cfg := Default()
	cfg.Lock.Dir = "/tmp/locks"
	if got := cfg.ResolveLockDir(); got != "/tmp/locks" {
		t.Errorf("ResolveLockDir() = %q, want explicit override", got)
	}

	cfg.Lock.Dir = ""
	got := cfg.ResolveLockDir()
	if !strings.HasSuffix(got, "GPULock") {
		t.Errorf("ResolveLockDir() = %q, want GPULock subpath", got)
	}
}

func TestDurationsRoundTrip(t *testing.T) {
	cfg := Default()
	if cfg.Lock.RefreshInterval().Seconds() != 5 {
		t.Errorf("RefreshInterval() = %v, want 5s", cfg.Lock.RefreshInterval())
	}
	if cfg.Device.QueryTimeout().Seconds() != 5 {
		t.Errorf("QueryTimeout() = %v, want 5s", cfg.Device.QueryTimeout())
	}
}
