package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func createNoopSurface(t *testing.T) hal.Surface {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	t.Cleanup(instance.Destroy)
	surface, err := instance.CreateSurface(0, 0)
	if err != nil {
		t.Fatalf("CreateSurface failed: %v", err)
	}
	return surface
}

// flakySurface reports an outdated surface on the first acquire.
type flakySurface struct {
	hal.Surface
	acquires   int
	configures int
}

func (s *flakySurface) Configure(device hal.Device, cfg *hal.SurfaceConfiguration) error {
	s.configures++
	return s.Surface.Configure(device, cfg)
}

func (s *flakySurface) AcquireTexture(fence hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	s.acquires++
	if s.acquires == 1 {
		return nil, hal.ErrSurfaceOutdated
	}
	return s.Surface.AcquireTexture(fence)
}

func TestSurfaceTargetPresentsEachStep(t *testing.T) {
	f := newFixture(t, 8, 8, FrameConfig{})

	target, err := NewSurfaceTarget(f.device, createNoopSurface(t), 640, 480, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("NewSurfaceTarget failed: %v", err)
	}
	defer target.Destroy()
	f.frame.target = target

	for i := 0; i < 3; i++ {
		if err := f.frame.Step(i%2, (i+1)%2); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}
	if f.queue.presents != 3 {
		t.Errorf("presents = %d, want 3", f.queue.presents)
	}
	if w, h := target.Size(); w != 640 || h != 480 {
		t.Errorf("Size() = %dx%d, want 640x480", w, h)
	}
}

func TestSurfaceTargetReconfiguresOutdated(t *testing.T) {
	device, _ := newRecorder(t)
	surface := &flakySurface{Surface: createNoopSurface(t)}

	target, err := NewSurfaceTarget(device, surface, 320, 240, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("NewSurfaceTarget failed: %v", err)
	}
	defer target.Destroy()

	view, err := target.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if view == nil {
		t.Fatal("expected a view")
	}
	if surface.configures != 2 {
		t.Errorf("configures = %d, want 2", surface.configures)
	}
	target.Discard()
}

func TestSurfaceTargetDiscardOnSubmitFailure(t *testing.T) {
	f := newFixture(t, 8, 8, FrameConfig{})
	target, err := NewSurfaceTarget(f.device, createNoopSurface(t), 64, 64, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("NewSurfaceTarget failed: %v", err)
	}
	defer target.Destroy()
	f.frame.target = target
	f.queue.failSubmit = errInjected

	if err := f.frame.Step(0, 1); !errors.Is(err, ErrSubmission) {
		t.Fatalf("error = %v, want ErrSubmission", err)
	}
	if f.queue.presents != 0 {
		t.Errorf("presents = %d, want 0", f.queue.presents)
	}
	if target.texture != nil {
		t.Error("acquired texture was not discarded")
	}
}

func TestOffscreenTarget(t *testing.T) {
	device, _ := newRecorder(t)

	if _, err := NewOffscreenTarget(device, 0, 10, gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, ErrAllocation) {
		t.Errorf("zero width: error = %v, want ErrAllocation", err)
	}

	target, err := NewOffscreenTarget(device, 128, 64, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("NewOffscreenTarget failed: %v", err)
	}
	v1, err := target.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	v2, _ := target.Acquire()
	if v1 != v2 {
		t.Error("offscreen target should reuse its view")
	}
	if target.Texture() == nil {
		t.Error("expected a texture")
	}

	target.Destroy()
	if _, err := target.Acquire(); !errors.Is(err, ErrClosed) {
		t.Errorf("Acquire after Destroy error = %v, want ErrClosed", err)
	}
}
