package life

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/life/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// Target is where each step's render pass draws.
type Target = gpu.Target

// SurfaceTarget presents every step to a window surface.
type SurfaceTarget = gpu.SurfaceTarget

// OffscreenTarget renders into a texture kept on the device.
type OffscreenTarget = gpu.OffscreenTarget

// NewSurfaceTarget configures surface for presentation with FIFO present mode.
func NewSurfaceTarget(device hal.Device, surface hal.Surface, width, height uint32, format gputypes.TextureFormat) (*SurfaceTarget, error) {
	return gpu.NewSurfaceTarget(device, surface, width, height, format)
}

// NewOffscreenTarget creates a render-attachment texture for headless runs.
func NewOffscreenTarget(device hal.Device, width, height uint32, format gputypes.TextureFormat) (*OffscreenTarget, error) {
	return gpu.NewOffscreenTarget(device, width, height, format)
}
