package lease

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hpckit/gpulease/internal/errors"
	"github.com/hpckit/gpulease/internal/logging"
)

// Registry coordinates claims on the shared lock directory for one
// session. A session holds at most one claim at a time; cross-process
// coordination happens exclusively through the directory contents.
type Registry struct {
	mu       sync.Mutex
	dir      string
	refresh  time.Duration
	identity string
	log      *logging.Logger

	held *Claim
	hb   *heartbeat
}

// NewRegistry creates a Registry rooted at dir, creating the directory if
// needed. Directory creation failure is fatal: the directory is a
// precondition for every other operation.
func NewRegistry(dir string, opts ...Option) (*Registry, error) {
	r := &Registry{
		dir:      dir,
		refresh:  DefaultRefreshInterval,
		identity: defaultIdentity(),
		log:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := ensureDir(dir); err != nil {
		return nil, errors.NewLeaseError(
			fmt.Sprintf("create lock directory %s", dir),
			errors.Join(errors.ErrLockDirUnavailable, err))
	}
	return r, nil
}

// Dir returns the lock directory path.
func (r *Registry) Dir() string {
	return r.dir
}

// RefreshInterval returns the heartbeat interval in effect.
func (r *Registry) RefreshInterval() time.Duration {
	return r.refresh
}

// Held returns the session's outstanding claim, or nil.
func (r *Registry) Held() *Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held
}

// Scan lists the lock directory and returns live claim counts per group.
// Entries whose age exceeds the freshness window are deleted best-effort
// as a side effect; another process racing to delete the same file is not
// an error. Individual file read or delete failures are swallowed because
// correctness depends only on the aggregate view.
func (r *Registry) Scan() map[string]int {
	counts := make(map[string]int)

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		r.log.Warn("lock directory unreadable", "dir", r.dir, "error", err)
		return counts
	}

	window := r.refresh + Grace
	now := time.Now()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			continue // deleted under us, someone else's eviction
		}
		if now.Sub(info.ModTime()) >= window {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				r.log.Debug("stale claim eviction failed", "path", path, "error", err)
			} else {
				r.log.Debug("evicted stale claim", "path", path)
			}
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		group := strings.TrimSpace(string(content))
		counts[group]++
	}
	return counts
}

// Acquire writes a claim file for group and starts its heartbeat. It does
// not consult other holders; use TryAcquire for admission control. Fails
// with ErrAlreadyHeld if the session already holds a claim.
func (r *Registry) Acquire(group string) (*Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyHeld, r.held.Path)
	}

	name := fmt.Sprintf("%s_%s", r.identity, uuid.NewString())
	path := filepath.Join(r.dir, name)

	if err := os.WriteFile(path, []byte(group+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write claim file: %w", err)
	}
	// Umask-independent: other participants must be able to read the group
	// name and evict the file once it goes stale.
	if err := os.Chmod(path, 0o664); err != nil {
		r.log.Debug("claim chmod failed", "path", path, "error", err)
	}

	claim := &Claim{
		Path:      path,
		Group:     group,
		Identity:  r.identity,
		CreatedAt: time.Now(),
	}
	r.held = claim
	r.hb = startHeartbeat(path, r.refresh, r.log)

	r.log.Info("claim acquired", "group", group, "path", path)
	return claim, nil
}

// Release stops the heartbeat, waits for it to fully stop, then removes
// the claim file and clears session state. Fails with ErrNotHeld when no
// claim is outstanding. The heartbeat is always stopped before the file is
// removed so a late touch cannot resurrect a deleted claim.
func (r *Registry) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held == nil {
		return ErrNotHeld
	}

	claim := r.held
	r.hb.stop()
	r.hb = nil
	r.held = nil

	if err := os.Remove(claim.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove claim file: %w", err)
	}
	r.log.Info("claim released", "group", claim.Group, "path", claim.Path)
	return nil
}

// TryAcquire takes one fresh Scan and grants a claim when the directory is
// empty, or when the requested group is the only group present and is
// below maxPerGroup. Every other snapshot refuses. granted is false on
// refusal; err is reserved for session-protocol violations and claim
// write failures.
//
// Two processes may both observe a compatible snapshot and both be
// granted before either's file is visible to the other. That window is an
// accepted property of the protocol, not a defect to paper over.
func (r *Registry) TryAcquire(group string, maxPerGroup int) (claim *Claim, granted bool, err error) {
	counts := r.Scan()

	switch {
	case len(counts) == 0:
		// Idle resource: grant unconditionally.
	case len(counts) == 1 && counts[group] > 0 && counts[group] < maxPerGroup:
		// Shared cooperatively within the same group, below the cap.
	default:
		r.log.Info("admission refused", "group", group, "snapshot", counts)
		return nil, false, nil
	}

	claim, err = r.Acquire(group)
	if err != nil {
		return nil, false, err
	}
	return claim, true, nil
}

// ensureDir creates the shared lock directory with tmp-like permissions:
// world-writable plus the sticky bit, so every identity can create claim
// files and each can always delete its own even under a restrictive
// ambient policy. The chmod is best-effort; a pre-existing directory with
// tighter modes is left alone.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return err
	}
	_ = os.Chmod(dir, os.ModeSticky|0o777)
	return nil
}

func defaultIdentity() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		// Domain-qualified names contain path separators on some systems.
		return strings.ReplaceAll(u.Username, string(os.PathSeparator), "-")
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "anon"
}
