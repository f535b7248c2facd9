package gpu

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by a constructor or by Step wraps
// exactly one of these, together with the underlying HAL error when there is
// one, so errors.Is matches both.
var (
	// ErrCapability is returned when the device rejects a layout or a
	// configuration exceeds its limits.
	ErrCapability = errors.New("gpu: device capability")

	// ErrCompilation is returned when a shader program fails to compile or
	// a pipeline cannot be built from it.
	ErrCompilation = errors.New("gpu: shader compilation")

	// ErrAllocation is returned when a buffer, bind group or render target
	// cannot be created or uploaded.
	ErrAllocation = errors.New("gpu: resource allocation")

	// ErrSubmission is returned when a frame cannot be encoded, submitted
	// or presented.
	ErrSubmission = errors.New("gpu: submission")
)

// Usage errors.
var (
	// ErrEngineLost is returned by Step after a previous submission failed.
	ErrEngineLost = errors.New("gpu: engine lost after failed submission")

	// ErrInvalidParity is returned when a parity is neither 0 nor 1.
	ErrInvalidParity = errors.New("gpu: parity must be 0 or 1")

	// ErrInvalidGridSize is returned for a zero grid size.
	ErrInvalidGridSize = errors.New("gpu: grid size must be positive")

	// ErrInvalidWorkgroupSize is returned for a zero workgroup size.
	ErrInvalidWorkgroupSize = errors.New("gpu: workgroup size must be positive")

	// ErrInvalidDensity is returned for a NaN seeding density.
	ErrInvalidDensity = errors.New("gpu: density must be a number")

	// ErrNotPresented is returned with ErrSubmission when a frame was
	// submitted, so the generation advanced, but the target failed to
	// present it.
	ErrNotPresented = errors.New("gpu: frame submitted but not presented")

	// ErrClosed is returned when using a frame after Close.
	ErrClosed = errors.New("gpu: closed")

	// ErrNilDevice is returned when a constructor gets a nil device or queue.
	ErrNilDevice = errors.New("gpu: device or queue is nil")
)

// wrapf wraps cause under category with a formatted context message.
func wrapf(category, cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%w: %s", category, msg)
	}
	return fmt.Errorf("%w: %s: %w", category, msg, cause)
}
