package runner

import (
	"fmt"
	"strings"
)

// Environment variables configured for the child process. Both always
// travel together in the same mode: either the accelerator is selected by
// both, or hidden by both.
const (
	// EnvVisibleDevices selects which accelerators the child may see.
	EnvVisibleDevices = "CUDA_VISIBLE_DEVICES"
	// EnvBackendFlags carries backend-specific device-selection flags.
	EnvBackendFlags = "THEANO_FLAGS"
)

// environ returns base with the device-selection variables set for the
// given mode. Existing values of the two variables are replaced.
func environ(base []string, gpuMode bool, deviceIndex int) []string {
	visible := ""
	flags := "device=cpu"
	if gpuMode {
		visible = fmt.Sprintf("%d", deviceIndex)
		flags = fmt.Sprintf("device=cuda%d", deviceIndex)
	}

	env := make([]string, 0, len(base)+2)
	for _, kv := range base {
		if strings.HasPrefix(kv, EnvVisibleDevices+"=") || strings.HasPrefix(kv, EnvBackendFlags+"=") {
			continue
		}
		env = append(env, kv)
	}
	env = append(env,
		EnvVisibleDevices+"="+visible,
		EnvBackendFlags+"="+flags,
	)
	return env
}
