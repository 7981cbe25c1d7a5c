package lease

import (
	"errors"
	"time"

	"github.com/hpckit/gpulease/internal/logging"
)

// Sentinel errors returned by registry operations.
var (
	// ErrAlreadyHeld is returned when a session tries to acquire a claim
	// while one is still outstanding.
	ErrAlreadyHeld = errors.New("a claim is already held by this session")

	// ErrNotHeld is returned when a session tries to release without an
	// outstanding claim.
	ErrNotHeld = errors.New("no claim is held by this session")
)

// DefaultRefreshInterval is how often a live claim's heartbeat touches its
// file. A claim whose file is older than the interval plus Grace is
// considered abandoned.
const DefaultRefreshInterval = 5 * time.Second

// Grace absorbs clock jitter and scheduling skew when judging freshness.
const Grace = 1 * time.Second

// Claim is one session's held slot: a uniquely named file whose content is
// the group name. The group is fixed for the claim's lifetime.
type Claim struct {
	Path      string    // Claim file inside the lock directory
	Group     string    // Group label under which the slot is shared
	Identity  string    // Identity that authored the file
	CreatedAt time.Time // When the claim was granted
}

// Option configures a Registry.
type Option func(*Registry)

// WithRefreshInterval overrides the heartbeat interval. Values <= 0 are
// ignored.
func WithRefreshInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.refresh = d
		}
	}
}

// WithIdentity overrides the identity used in claim file names. The
// default is the current username, falling back to the hostname.
func WithIdentity(id string) Option {
	return func(r *Registry) {
		if id != "" {
			r.identity = id
		}
	}
}

// WithLogger attaches a logger. The default discards all output.
func WithLogger(log *logging.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}
