package lease

import (
	"context"
	"os"
	"time"

	"github.com/hpckit/gpulease/internal/logging"
)

// heartbeat keeps one claim file's modification time fresh. It is bound
// 1:1 to a claim and runs until stopped; stop blocks until the goroutine
// has exited so the owning claim can safely delete the file afterwards.
type heartbeat struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startHeartbeat(path string, interval time.Duration, log *logging.Logger) *heartbeat {
	ctx, cancel := context.WithCancel(context.Background())
	hb := &heartbeat{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go hb.run(ctx, path, interval, log)
	return hb
}

func (hb *heartbeat) run(ctx context.Context, path string, interval time.Duration, log *logging.Logger) {
	defer close(hb.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			if err := os.Chtimes(path, now, now); err != nil {
				// The file may already be evicted; the next admission
				// decision will see the truth either way.
				log.Debug("heartbeat touch failed", "path", path, "error", err)
			}
		}
	}
}

// stop cancels the heartbeat and waits for the goroutine to exit.
func (hb *heartbeat) stop() {
	hb.cancel()
	<-hb.done
}
