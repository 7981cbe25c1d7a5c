package gpu

import "testing"

func TestEligible(t *testing.T) {
	policy := Policy{
		Denylist:         []string{"*GeForce GT 7*", "Tesla K40"},
		MinFreeMemoryMiB: 1024,
	}

	tests := []struct {
		name string
		dev  Device
		want bool
	}{
		{
			name: "healthy device",
			dev:  Device{Name: "Tesla K80", FreeMemoryMiB: 11441},
			want: true,
		},
		{
			name: "below memory threshold",
			dev:  Device{Name: "Tesla K80", FreeMemoryMiB: 1023},
			want: false,
		},
		{
			name: "exactly at threshold",
			dev:  Device{Name: "Tesla K80", FreeMemoryMiB: 1024},
			want: true,
		},
		{
			name: "denylisted by glob",
			dev:  Device{Name: "NVIDIA GeForce GT 710", FreeMemoryMiB: 2048},
			want: false,
		},
		{
			name: "denylisted exact, case-insensitive",
			dev:  Device{Name: "TESLA K40", FreeMemoryMiB: 11441},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Eligible(tt.dev); got != tt.want {
				t.Errorf("Eligible(%+v) = %v, want %v", tt.dev, got, tt.want)
			}
		})
	}
}

func TestEmptyPolicyAcceptsAnything(t *testing.T) {
	policy := Policy{}
	if !policy.Eligible(Device{Name: "anything", FreeMemoryMiB: 0}) {
		t.Error("empty policy rejected a device")
	}
}

func TestBrokenPatternDeniesLiteralOnly(t *testing.T) {
	policy := Policy{Denylist: []string{"[unclosed"}}

	if policy.Eligible(Device{Name: "[unclosed", FreeMemoryMiB: 4096}) {
		t.Error("literal spelling of broken pattern should still deny")
	}
	if !policy.Eligible(Device{Name: "Tesla K80", FreeMemoryMiB: 4096}) {
		t.Error("broken pattern should not deny unrelated devices")
	}
}
