package gpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Binding slots of the shared bind group layout.
const (
	BindingGrid     uint32 = 0
	BindingCellsIn  uint32 = 1
	BindingCellsOut uint32 = 2
)

// BindingLayout is the bind group layout and pipeline layout shared by the
// simulation and cell pipelines.
type BindingLayout struct {
	device   hal.Device
	group    hal.BindGroupLayout
	pipeline hal.PipelineLayout
}

// LayoutEntries returns the three slot declarations of the shared layout.
func LayoutEntries() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{
			Binding:    BindingGrid,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    BindingCellsIn,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		},
		{
			Binding:    BindingCellsOut,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		},
	}
}

// NewBindingLayout creates the shared layout on device. A device rejection is
// reported as ErrCapability.
func NewBindingLayout(device hal.Device, prefix string) (*BindingLayout, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	group, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label(prefix, "cell_bind_group_layout"),
		Entries: LayoutEntries(),
	})
	if err != nil {
		return nil, wrapf(ErrCapability, err, "create bind group layout")
	}

	pipeline, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label(prefix, "cell_pipeline_layout"),
		BindGroupLayouts: []hal.BindGroupLayout{group},
	})
	if err != nil {
		device.DestroyBindGroupLayout(group)
		return nil, wrapf(ErrCapability, err, "create pipeline layout")
	}

	slogger().Debug("gpu: binding layout created", "slots", 3)

	return &BindingLayout{device: device, group: group, pipeline: pipeline}, nil
}

// Group returns the bind group layout.
func (l *BindingLayout) Group() hal.BindGroupLayout { return l.group }

// Pipeline returns the pipeline layout.
func (l *BindingLayout) Pipeline() hal.PipelineLayout { return l.pipeline }

// Destroy releases both layouts. Safe to call more than once.
func (l *BindingLayout) Destroy() {
	if l == nil || l.device == nil {
		return
	}
	if l.pipeline != nil {
		l.device.DestroyPipelineLayout(l.pipeline)
		l.pipeline = nil
	}
	if l.group != nil {
		l.device.DestroyBindGroupLayout(l.group)
		l.group = nil
	}
}

// label joins an optional prefix and a resource name.
func label(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}
