package gpu

import (
	"strings"

	"github.com/gobwas/glob"
)

// Policy is the heuristic filter deciding whether a reported device is
// worth claiming at all.
type Policy struct {
	// Denylist holds case-insensitive glob patterns of device names that
	// are never used (known-bad or too-slow models).
	Denylist []string
	// MinFreeMemoryMiB is the minimum free memory worth claiming.
	MinFreeMemoryMiB int
}

// Eligible reports whether the device passes the policy.
func (p Policy) Eligible(dev Device) bool {
	if dev.FreeMemoryMiB < p.MinFreeMemoryMiB {
		return false
	}
	name := strings.ToLower(dev.Name)
	for _, pattern := range p.Denylist {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			// An unparsable pattern still denies its literal spelling.
			if name == strings.ToLower(pattern) {
				return false
			}
			continue
		}
		if g.Match(name) {
			return false
		}
	}
	return true
}
