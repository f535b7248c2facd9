// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package device opens the GPU device the simulation runs on, or adopts one
// owned by a host application.
//
// Backends register themselves with the wgpu HAL through blank imports
// (for example github.com/gogpu/wgpu/hal/allbackends). Open picks one by name
// or by priority and prefers discrete and integrated adapters over software
// ones.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Auto selects the highest-priority registered backend.
const Auto = "auto"

// Priority is the backend preference order used by Auto.
var Priority = []string{"vulkan", "metal", "dx12", "gles", "empty"}

// Device errors.
var (
	// ErrNoBackend is returned when the requested backend is not registered.
	ErrNoBackend = errors.New("device: backend not available")

	// ErrNoAdapter is returned when a backend exposes no adapters.
	ErrNoAdapter = errors.New("device: no GPU adapters found")

	// ErrNotHAL is returned when a provider does not expose HAL types.
	ErrNotHAL = errors.New("device: provider does not expose HAL device and queue")

	// ErrExternal is returned when an operation needs the instance of a
	// device adopted from a provider.
	ErrExternal = errors.New("device: device is owned by a provider")
)

// Options configures Open.
type Options struct {
	// Backend is a registry name ("vulkan", "metal", "dx12", "gles",
	// "empty") or Auto. An empty string means Auto.
	Backend string

	// Limits requested from the adapter. Zero selects gputypes.DefaultLimits.
	Limits gputypes.Limits

	// Logger receives selection messages. Nil discards them.
	Logger *slog.Logger
}

// Info describes an opened or adopted device.
type Info struct {
	Backend string
	Name    string
	Type    gpucontext.AdapterType
	Limits  gputypes.Limits

	// SurfaceFormat is the provider's preferred surface format, or
	// TextureFormatUndefined when unknown.
	SurfaceFormat gputypes.TextureFormat
}

// Device is a HAL device and queue with the instance that created them.
type Device struct {
	Device hal.Device
	Queue  hal.Queue
	Info   Info

	instance hal.Instance
	external bool
}

// BackendName returns the registry name of a HAL backend variant. The
// "empty" variant is whichever of the noop and software backends is linked
// in; both register under it.
func BackendName(b gputypes.Backend) string {
	switch b {
	case gputypes.BackendVulkan:
		return "vulkan"
	case gputypes.BackendMetal:
		return "metal"
	case gputypes.BackendDX12:
		return "dx12"
	case gputypes.BackendGL:
		return "gles"
	case gputypes.BackendEmpty:
		return "empty"
	case gputypes.BackendBrowserWebGPU:
		return "webgpu"
	default:
		return strings.ToLower(b.String())
	}
}

// Backends returns a registry of the HAL backends registered in this
// process, ordered by Priority.
func Backends() *gpucontext.Registry[hal.Backend] {
	reg := gpucontext.NewRegistry[hal.Backend](gpucontext.WithPriority(Priority...))
	for _, variant := range hal.AvailableBackends() {
		backend, ok := hal.GetBackend(variant)
		if !ok {
			continue
		}
		reg.Register(BackendName(variant), func() hal.Backend { return backend })
	}
	return reg
}

// Open creates an instance on the selected backend, picks an adapter and
// opens a device on it.
func Open(opts Options) (*Device, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	reg := Backends()
	name := opts.Backend
	if name == "" || name == Auto {
		name = reg.BestName()
	}
	if name == "" || !reg.Has(name) {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrNoBackend, opts.Backend, reg.Available())
	}
	backend := reg.Get(name)

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("device: create %s instance: %w", name, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: backend %s", ErrNoAdapter, name)
	}
	selected := SelectAdapter(adapters)

	limits := opts.Limits
	if limits == (gputypes.Limits{}) {
		limits = gputypes.DefaultLimits()
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("device: open %s: %w", selected.Info.Name, err)
	}

	d := &Device{
		Device: open.Device,
		Queue:  open.Queue,
		Info: Info{
			Backend: name,
			Name:    selected.Info.Name,
			Type:    AdapterType(selected.Info.DeviceType),
			Limits:  limits,
		},
		instance: instance,
	}

	log.Info("device: opened",
		"backend", name,
		"adapter", selected.Info.Name,
		"type", d.Info.Type.String())

	return d, nil
}

// SelectAdapter returns the first discrete or integrated adapter, or the
// first adapter when there is none. adapters must not be empty.
func SelectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// AdapterType maps a HAL device type to the gpucontext adapter type.
func AdapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// FromProvider adopts the device of a host application. The provider must
// expose HalDevice() any and HalQueue() any, or be a
// gpucontext.DeviceProvider whose Device and Queue are HAL types. The adopted
// device is not destroyed by Close.
func FromProvider(provider any) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}

	var dev, queue any
	switch p := provider.(type) {
	case halProvider:
		dev, queue = p.HalDevice(), p.HalQueue()
	case gpucontext.DeviceProvider:
		dev, queue = p.Device(), p.Queue()
	default:
		return nil, ErrNotHAL
	}

	halDevice, ok := dev.(hal.Device)
	if !ok || halDevice == nil {
		return nil, fmt.Errorf("%w: device is %T", ErrNotHAL, dev)
	}
	halQueue, ok := queue.(hal.Queue)
	if !ok || halQueue == nil {
		return nil, fmt.Errorf("%w: queue is %T", ErrNotHAL, queue)
	}

	d := &Device{
		Device: halDevice,
		Queue:  halQueue,
		Info: Info{
			Backend: "external",
			Type:    gpucontext.AdapterTypeUnknown,
			Limits:  gputypes.DefaultLimits(),
		},
		external: true,
	}
	if dp, ok := provider.(gpucontext.DeviceProvider); ok {
		info := dp.AdapterInfo()
		d.Info.Name = info.Name
		d.Info.Type = info.Type
		d.Info.SurfaceFormat = dp.SurfaceFormat()
	}
	return d, nil
}

// External reports whether the device was adopted from a provider.
func (d *Device) External() bool { return d.external }

// CreateSurface creates a presentable surface from platform window handles.
func (d *Device) CreateSurface(display, window uintptr) (hal.Surface, error) {
	if d.instance == nil {
		return nil, ErrExternal
	}
	surface, err := d.instance.CreateSurface(display, window)
	if err != nil {
		return nil, fmt.Errorf("device: create surface: %w", err)
	}
	return surface, nil
}

// Close destroys the device and instance when they were opened by Open.
// Adopted devices are left to their owner.
func (d *Device) Close() {
	if d.external {
		return
	}
	if d.Device != nil {
		d.Device.Destroy()
		d.Device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}
