// Package testutil provides testing utilities for gpulease tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// WriteClaim creates a claim file in dir with the given identity and
// group, backdated by age. It returns the file path.
func WriteClaim(t *testing.T, dir, identity, group string, age time.Duration) string {
	t.Helper()

	path := filepath.Join(dir, fmt.Sprintf("%s_%d", identity, time.Now().UnixNano()))
	if err := os.WriteFile(path, []byte(group+"\n"), 0o664); err != nil {
		t.Fatalf("failed to write claim file: %v", err)
	}
	if age > 0 {
		then := time.Now().Add(-age)
		if err := os.Chtimes(path, then, then); err != nil {
			t.Fatalf("failed to backdate claim file: %v", err)
		}
	}
	return path
}

// CountEntries returns the number of regular files in dir.
func CountEntries(t *testing.T, dir string) int {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list %s: %v", dir, err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

// FakeDeviceTool writes an executable shell script that mimics the
// diagnostic tool: it prints output and exits with code. Returns the
// script path. Tests using it must call SkipIfNoShell first.
func FakeDeviceTool(t *testing.T, output string, code int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nvidia-smi")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' %q\nexit %d\n", output, code)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake device tool: %v", err)
	}
	return path
}

// SkipIfNoShell skips the test when /bin/sh scripts cannot run.
func SkipIfNoShell(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable on windows, skipping test")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not found, skipping test")
	}
}
