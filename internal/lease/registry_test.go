package lease

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hpckit/gpulease/internal/testutil"
)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()

	reg, err := NewRegistry(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return reg
}

func TestNewRegistryCreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/GPULock"

	reg, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	if reg.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", reg.Dir(), dir)
	}
	if testutil.CountEntries(t, dir) != 0 {
		t.Error("fresh lock directory is not empty")
	}
}

func TestScanCountsLiveClaimsByGroup(t *testing.T) {
	reg := newTestRegistry(t)

	testutil.WriteClaim(t, reg.Dir(), "user-a", "alpha", 0)
	testutil.WriteClaim(t, reg.Dir(), "user-b", "alpha", 0)
	testutil.WriteClaim(t, reg.Dir(), "user-c", "beta", 0)

	counts := reg.Scan()
	if counts["alpha"] != 2 {
		t.Errorf("alpha count = %d, want 2", counts["alpha"])
	}
	if counts["beta"] != 1 {
		t.Errorf("beta count = %d, want 1", counts["beta"])
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total != testutil.CountEntries(t, reg.Dir()) {
		t.Errorf("sum of counts = %d, want %d live files", total, testutil.CountEntries(t, reg.Dir()))
	}
}

func TestScanTrimsGroupContent(t *testing.T) {
	reg := newTestRegistry(t)
	testutil.WriteClaim(t, reg.Dir(), "user-a", "  alpha\t", 0)

	counts := reg.Scan()
	if counts["alpha"] != 1 {
		t.Errorf("counts = %v, want trimmed group alpha", counts)
	}
}

func TestScanEvictsStaleEntries(t *testing.T) {
	reg := newTestRegistry(t, WithRefreshInterval(50*time.Millisecond))

	testutil.WriteClaim(t, reg.Dir(), "crashed", "alpha", 5*time.Second)
	live := testutil.WriteClaim(t, reg.Dir(), "user-b", "beta", 0)

	counts := reg.Scan()
	if counts["alpha"] != 0 {
		t.Errorf("stale claim counted as live: %v", counts)
	}
	if counts["beta"] != 1 {
		t.Errorf("live claim missing: %v", counts)
	}
	if testutil.CountEntries(t, reg.Dir()) != 1 {
		t.Error("stale claim file was not deleted")
	}

	// The survivor is untouched by a rescan.
	counts = reg.Scan()
	if counts["beta"] != 1 {
		t.Errorf("live claim %s evicted by rescan: %v", live, counts)
	}
}

func TestScanWithinGraceStillLive(t *testing.T) {
	// Older than the refresh interval but inside the one-second grace.
	reg := newTestRegistry(t, WithRefreshInterval(100*time.Millisecond))
	testutil.WriteClaim(t, reg.Dir(), "user-a", "alpha", 500*time.Millisecond)

	counts := reg.Scan()
	if counts["alpha"] != 1 {
		t.Errorf("claim inside grace window evicted: %v", counts)
	}
}

func TestScanOnEmptyDirectory(t *testing.T) {
	reg := newTestRegistry(t)
	counts := reg.Scan()
	if len(counts) != 0 {
		t.Errorf("Scan() = %v, want empty map", counts)
	}
}

func TestScanIgnoresSubdirectories(t *testing.T) {
	reg := newTestRegistry(t)
	if err := os.Mkdir(filepath.Join(reg.Dir(), "notaclaim"), 0o755); err != nil {
		t.Fatal(err)
	}

	counts := reg.Scan()
	if len(counts) != 0 {
		t.Errorf("Scan() counted a directory: %v", counts)
	}
}
