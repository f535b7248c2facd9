package gpu

import (
	"errors"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Target supplies the color attachment of each frame's render pass.
//
// Acquire is called once per Step before encoding. After submission the
// frame calls Present on success or Discard on failure, never both.
type Target interface {
	// Acquire returns the view to render into this frame.
	Acquire() (hal.TextureView, error)

	// Present hands the acquired view to the display.
	Present(queue hal.Queue) error

	// Discard releases the acquired view without presenting it.
	Discard()

	// Size returns the target size in pixels.
	Size() (width, height uint32)

	// Destroy releases the target's resources.
	Destroy()
}

// SurfaceTarget renders into the textures of a presentable surface.
type SurfaceTarget struct {
	device  hal.Device
	surface hal.Surface
	config  hal.SurfaceConfiguration

	texture hal.SurfaceTexture
	view    hal.TextureView
}

// NewSurfaceTarget configures surface for FIFO presentation in the given
// format and size.
func NewSurfaceTarget(device hal.Device, surface hal.Surface, width, height uint32, format gputypes.TextureFormat) (*SurfaceTarget, error) {
	if device == nil || surface == nil {
		return nil, ErrNilDevice
	}
	t := &SurfaceTarget{
		device:  device,
		surface: surface,
		config: hal.SurfaceConfiguration{
			Width:       width,
			Height:      height,
			Format:      format,
			Usage:       gputypes.TextureUsageRenderAttachment,
			PresentMode: gputypes.PresentModeFifo,
			AlphaMode:   gputypes.CompositeAlphaModeOpaque,
		},
	}
	if err := surface.Configure(device, &t.config); err != nil {
		return nil, wrapf(ErrAllocation, err, "configure surface %dx%d", width, height)
	}
	return t, nil
}

// Resize reconfigures the surface. Must not be called between Acquire and
// Present.
func (t *SurfaceTarget) Resize(width, height uint32) error {
	t.config.Width, t.config.Height = width, height
	if err := t.surface.Configure(t.device, &t.config); err != nil {
		return wrapf(ErrAllocation, err, "configure surface %dx%d", width, height)
	}
	return nil
}

// Acquire takes the next surface texture and creates its view. An outdated
// or lost surface is reconfigured once before giving up.
func (t *SurfaceTarget) Acquire() (hal.TextureView, error) {
	acquired, err := t.surface.AcquireTexture(nil)
	if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
		slogger().Info("gpu: surface reconfigured", "reason", err)
		if cerr := t.surface.Configure(t.device, &t.config); cerr != nil {
			return nil, wrapf(ErrSubmission, cerr, "reconfigure surface")
		}
		acquired, err = t.surface.AcquireTexture(nil)
	}
	if err != nil {
		return nil, wrapf(ErrSubmission, err, "acquire surface texture")
	}
	if acquired.Suboptimal {
		slogger().Debug("gpu: surface texture is suboptimal")
	}

	view, err := t.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:         "surface_view",
		Format:        t.config.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.surface.DiscardTexture(acquired.Texture)
		return nil, wrapf(ErrSubmission, err, "create surface view")
	}

	t.texture = acquired.Texture
	t.view = view
	return view, nil
}

// Present presents the acquired texture and releases its view.
func (t *SurfaceTarget) Present(queue hal.Queue) error {
	if t.texture == nil {
		return nil
	}
	err := queue.Present(t.surface, t.texture, nil)
	t.releaseView()
	t.texture = nil
	if err != nil {
		return wrapf(ErrSubmission, err, "present")
	}
	return nil
}

// Discard returns the acquired texture to the surface unpresented.
func (t *SurfaceTarget) Discard() {
	if t.texture == nil {
		return
	}
	t.releaseView()
	t.surface.DiscardTexture(t.texture)
	t.texture = nil
}

// Size returns the configured surface size.
func (t *SurfaceTarget) Size() (uint32, uint32) { return t.config.Width, t.config.Height }

// Destroy discards any acquired texture and unconfigures the surface. The
// surface itself belongs to the caller.
func (t *SurfaceTarget) Destroy() {
	t.Discard()
	t.surface.Unconfigure(t.device)
}

func (t *SurfaceTarget) releaseView() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
}

// OffscreenTarget renders into one texture that is reused every frame.
type OffscreenTarget struct {
	device        hal.Device
	texture       hal.Texture
	view          hal.TextureView
	width, height uint32
}

// NewOffscreenTarget creates a render attachment texture and its view.
func NewOffscreenTarget(device hal.Device, width, height uint32, format gputypes.TextureFormat) (*OffscreenTarget, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if width == 0 || height == 0 {
		return nil, wrapf(ErrAllocation, hal.ErrZeroArea, "offscreen target %dx%d", width, height)
	}

	texture, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "offscreen_target",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, wrapf(ErrAllocation, err, "create offscreen texture")
	}

	view, err := device.CreateTextureView(texture, &hal.TextureViewDescriptor{
		Label:         "offscreen_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(texture)
		return nil, wrapf(ErrAllocation, err, "create offscreen view")
	}

	return &OffscreenTarget{device: device, texture: texture, view: view, width: width, height: height}, nil
}

// Acquire returns the target view.
func (t *OffscreenTarget) Acquire() (hal.TextureView, error) {
	if t.view == nil {
		return nil, ErrClosed
	}
	return t.view, nil
}

// Present is a no-op for offscreen rendering.
func (t *OffscreenTarget) Present(hal.Queue) error { return nil }

// Discard is a no-op for offscreen rendering.
func (t *OffscreenTarget) Discard() {}

// Size returns the texture size.
func (t *OffscreenTarget) Size() (uint32, uint32) { return t.width, t.height }

// Texture returns the render texture.
func (t *OffscreenTarget) Texture() hal.Texture { return t.texture }

// Destroy releases the view and texture.
func (t *OffscreenTarget) Destroy() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		t.device.DestroyTexture(t.texture)
		t.texture = nil
	}
}
