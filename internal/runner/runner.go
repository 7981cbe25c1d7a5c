package runner

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/hpckit/gpulease/internal/errors"
	"github.com/hpckit/gpulease/internal/gpu"
	"github.com/hpckit/gpulease/internal/lease"
	"github.com/hpckit/gpulease/internal/logging"
)

// State is the wrapper's position in its lifecycle.
type State string

const (
	StateEvaluating  State = "evaluating"
	StateGPUAcquired State = "gpu-acquired"
	StateCPUFallback State = "cpu-fallback"
	StateRunning     State = "running"
	StateReleased    State = "released"
)

// Runner wraps one command execution with admission control.
type Runner struct {
	registry *lease.Registry
	querier  gpu.Querier
	policy   gpu.Policy
	group    string
	share    int
	wait     time.Duration
	log      *logging.Logger

	state State

	// Stdio defaults to the process's own streams; overridable in tests.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a Runner. share is the per-group concurrency cap; wait is
// how long to poll for a slot after a refusal before falling back to the
// CPU (zero disables polling).
func New(registry *lease.Registry, querier gpu.Querier, policy gpu.Policy, group string, share int, wait time.Duration, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Runner{
		registry: registry,
		querier:  querier,
		policy:   policy,
		group:    group,
		share:    share,
		wait:     wait,
		log:      log.WithGroup(group),
		state:    StateEvaluating,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// State returns the wrapper's current lifecycle state.
func (r *Runner) State() State {
	return r.state
}

// Run executes name with args as a child process and returns its exit
// code. The claim, if granted, is released on every path out of this
// function; the only unguarded path is the wrapper process itself being
// forcibly killed, which staleness eviction covers.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (int, error) {
	r.state = StateEvaluating
	gpuMode := false
	deviceIndex := 0

	dev, found := r.querier.Query(ctx)
	switch {
	case !found:
		r.log.Info("no usable device, falling back to cpu")
	case !r.policy.Eligible(dev):
		r.log.Info("device not eligible, falling back to cpu",
			"device", dev.Name, "free_mib", dev.FreeMemoryMiB)
	default:
		claim, granted, err := r.acquire(ctx)
		if err != nil {
			return 1, err
		}
		if granted {
			gpuMode = true
			deviceIndex = dev.Index
			r.state = StateGPUAcquired
			r.log = r.log.WithClaim(claim.Path)
			defer func() {
				if err := r.registry.Release(); err != nil {
					r.log.Warn("release failed", "error", err)
				}
				r.state = StateReleased
			}()
		} else {
			r.log.Info("admission refused, falling back to cpu")
		}
	}
	if !gpuMode {
		r.state = StateCPUFallback
	}

	cmd := exec.Command(name, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = environ(os.Environ(), gpuMode, deviceIndex)

	r.log.Info("running command", "command", name, "gpu", gpuMode)
	prev := r.state
	r.state = StateRunning
	err := cmd.Run()
	r.state = prev

	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The child ran and failed; its exit code passes through.
		return exitErr.ExitCode(), nil
	}
	return 1, errors.NewCommandError("failed to start", err).WithCommand(name)
}

// acquire performs one admission attempt, then polls for a freed slot for
// the configured wait window before giving up. Polling is the caller-side
// strategy the protocol expects; the admission decision itself never
// blocks.
func (r *Runner) acquire(ctx context.Context) (*lease.Claim, bool, error) {
	claim, granted, err := r.registry.TryAcquire(r.group, r.share)
	if err != nil || granted || r.wait <= 0 {
		return claim, granted, err
	}
	return r.waitForSlot(ctx)
}
