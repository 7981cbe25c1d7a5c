package runner

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hpckit/gpulease/internal/lease"
)

// waitForSlot retries admission until granted or the wait window closes.
// It wakes on lock-directory changes via fsnotify and on a coarse ticker;
// the ticker also covers stale claims expiring, which changes no file.
func (r *Runner) waitForSlot(ctx context.Context) (*lease.Claim, bool, error) {
	deadline := time.NewTimer(r.wait)
	defer deadline.Stop()

	ticker := time.NewTicker(r.registry.RefreshInterval())
	defer ticker.Stop()

	var events chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close() //nolint:errcheck
		if err := watcher.Add(r.registry.Dir()); err == nil {
			events = watcher.Events
		}
	}
	// A failed watcher degrades to pure ticker polling.

	r.log.Info("waiting for a free slot", "wait", r.wait.String())
	for {
		select {
		case <-ctx.Done():
			return nil, false, nil
		case <-deadline.C:
			r.log.Info("wait window elapsed without a slot")
			return nil, false, nil
		case <-ticker.C:
		case <-events:
		}

		claim, granted, err := r.registry.TryAcquire(r.group, r.share)
		if err != nil || granted {
			return claim, granted, err
		}
	}
}
