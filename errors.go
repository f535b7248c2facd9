package life

import "github.com/gogpu/life/internal/gpu"

// Error categories. Every construction or Step error wraps one of them.
var (
	ErrCapability  = gpu.ErrCapability
	ErrCompilation = gpu.ErrCompilation
	ErrAllocation  = gpu.ErrAllocation
	ErrSubmission  = gpu.ErrSubmission
)

// Usage errors.
var (
	// ErrEngineLost is returned by Step and Cells after a submission failed.
	ErrEngineLost = gpu.ErrEngineLost

	// ErrNotPresented is returned by Step and Advance when the generation
	// was computed but the target failed to present it.
	ErrNotPresented = gpu.ErrNotPresented

	ErrInvalidParity        = gpu.ErrInvalidParity
	ErrInvalidGridSize      = gpu.ErrInvalidGridSize
	ErrInvalidWorkgroupSize = gpu.ErrInvalidWorkgroupSize
	ErrInvalidDensity       = gpu.ErrInvalidDensity
	ErrClosed               = gpu.ErrClosed
	ErrNilDevice            = gpu.ErrNilDevice
)
