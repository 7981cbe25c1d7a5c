// Package runner orchestrates one wrapped command execution: evaluate
// device eligibility, attempt admission, configure the child environment
// for the accelerator or the CPU fallback, run the command, and release
// the claim on every exit path. The child's exit code is the wrapper's
// result and is never masked.
package runner
