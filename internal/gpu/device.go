package gpu

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/hpckit/gpulease/internal/logging"
)

// Device describes one accelerator as reported by the diagnostic tool.
type Device struct {
	Index         int
	Name          string
	FreeMemoryMiB int
}

// Querier is the collaborator contract consumed by the execution wrapper:
// either a device descriptor, or nothing.
type Querier interface {
	Query(ctx context.Context) (Device, bool)
}

// Tool queries devices by shelling out to an nvidia-smi compatible
// executable.
type Tool struct {
	path    string
	timeout time.Duration
	log     *logging.Logger
}

// NewTool creates a Tool for the given executable path. A timeout <= 0
// disables the per-query deadline.
func NewTool(path string, timeout time.Duration, log *logging.Logger) *Tool {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Tool{path: path, timeout: timeout, log: log}
}

// Query runs the diagnostic tool and returns the first device it reports.
// A missing tool, a nonzero exit, or unparsable output all yield
// (Device{}, false); none of these is an error to the caller.
func (t *Tool) Query(ctx context.Context) (Device, bool) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.path,
		"--query-gpu=index,name,memory.free",
		"--format=csv,noheader,nounits",
	)
	out, err := cmd.Output()
	if err != nil {
		t.log.Debug("device query failed", "tool", t.path, "error", err)
		return Device{}, false
	}

	for _, line := range strings.Split(string(out), "\n") {
		dev, ok := parseDeviceLine(line)
		if ok {
			return dev, true
		}
	}
	t.log.Debug("device query produced no parsable output", "tool", t.path)
	return Device{}, false
}

// parseDeviceLine parses one "index, name, memory.free" CSV line. Device
// names may themselves contain no commas in nvidia-smi output, so a plain
// three-way split is sufficient.
func parseDeviceLine(line string) (Device, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return Device{}, false
	}

	index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Device{}, false
	}
	name := strings.TrimSpace(fields[1])
	if name == "" {
		return Device{}, false
	}
	free, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Device{}, false
	}

	return Device{Index: index, Name: name, FreeMemoryMiB: free}, true
}
