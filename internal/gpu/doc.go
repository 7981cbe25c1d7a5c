// Package gpu queries the accelerator through an external diagnostic tool
// and decides whether it is worth claiming. Query failures of any kind are
// reported as "no usable device", never as errors: a machine without the
// tool simply runs on the CPU.
package gpu
