package gpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/life/internal/shader"
)

// vertexStride is the byte stride of one quad vertex (two f32).
const vertexStride = 8

// SimulationPipeline is the compute pipeline that advances one generation.
type SimulationPipeline struct {
	device        hal.Device
	module        hal.ShaderModule
	pipeline      hal.ComputePipeline
	workgroupSize uint32
}

// NewSimulationPipeline renders the workgroup size into source, compiles it
// and builds a compute pipeline against layout. The placeholder is substituted
// once, before compilation. Compilation and pipeline failures are reported as
// ErrCompilation.
func NewSimulationPipeline(device hal.Device, layout *BindingLayout, source string, workgroupSize uint32, prefix string) (*SimulationPipeline, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if workgroupSize == 0 {
		return nil, ErrInvalidWorkgroupSize
	}
	if !shader.HasToken(source) {
		slogger().Warn("gpu: simulate program has no workgroup size placeholder",
			"token", shader.WorkgroupSizeToken, "workgroup", workgroupSize)
	}

	rendered := shader.Render(source, shader.Params{WorkgroupSize: workgroupSize})

	info, err := shader.Reflect(rendered)
	if err != nil {
		return nil, wrapf(ErrCompilation, err, "simulate program")
	}
	entry, err := info.Require(shader.StageCompute, shader.ComputeEntry)
	if err != nil {
		return nil, wrapf(ErrCompilation, err, "simulate program")
	}
	if entry.Workgroup[0] != workgroupSize || entry.Workgroup[1] != workgroupSize {
		slogger().Warn("gpu: declared workgroup size differs from dispatch workgroup size",
			"declared", entry.Workgroup, "workgroup", workgroupSize)
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label(prefix, "simulate_shader"),
		Source: hal.ShaderSource{WGSL: rendered},
	})
	if err != nil {
		return nil, wrapf(ErrCompilation, err, "compile simulate shader")
	}

	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label(prefix, "simulation_pipeline"),
		Layout: layout.Pipeline(),
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: shader.ComputeEntry,
		},
	})
	if err != nil {
		device.DestroyShaderModule(module)
		return nil, wrapf(ErrCompilation, err, "create simulation pipeline")
	}

	slogger().Debug("gpu: simulation pipeline created", "workgroup", workgroupSize)

	return &SimulationPipeline{
		device:        device,
		module:        module,
		pipeline:      pipeline,
		workgroupSize: workgroupSize,
	}, nil
}

// WorkgroupSize returns the workgroup width and height the pipeline was
// compiled with.
func (p *SimulationPipeline) WorkgroupSize() uint32 { return p.workgroupSize }

// Pipeline returns the compute pipeline.
func (p *SimulationPipeline) Pipeline() hal.ComputePipeline { return p.pipeline }

// Destroy releases the pipeline and its shader module.
func (p *SimulationPipeline) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	if p.pipeline != nil {
		p.device.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.module != nil {
		p.device.DestroyShaderModule(p.module)
		p.module = nil
	}
}

// CellPipeline is the render pipeline that draws one instanced quad per cell.
type CellPipeline struct {
	device   hal.Device
	module   hal.ShaderModule
	pipeline hal.RenderPipeline
	format   gputypes.TextureFormat
}

// CellVertexLayout returns the vertex buffer layout of the quad: one
// float32x2 position at location 0.
func CellVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: vertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{
					Format:         gputypes.VertexFormatFloat32x2,
					Offset:         0,
					ShaderLocation: 0,
				},
			},
		},
	}
}

// NewCellPipeline compiles the cell program and builds a render pipeline with
// a single color target of the given format. There is no depth or stencil
// state and no blending.
func NewCellPipeline(device hal.Device, layout *BindingLayout, source string, format gputypes.TextureFormat, prefix string) (*CellPipeline, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if format == gputypes.TextureFormatUndefined {
		return nil, wrapf(ErrCapability, nil, "color format is undefined")
	}

	info, err := shader.Reflect(source)
	if err != nil {
		return nil, wrapf(ErrCompilation, err, "cell program")
	}
	if _, err := info.Require(shader.StageVertex, shader.VertexEntry); err != nil {
		return nil, wrapf(ErrCompilation, err, "cell program")
	}
	if _, err := info.Require(shader.StageFragment, shader.FragmentEntry); err != nil {
		return nil, wrapf(ErrCompilation, err, "cell program")
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label(prefix, "cell_shader"),
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return nil, wrapf(ErrCompilation, err, "compile cell shader")
	}

	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label(prefix, "cell_pipeline"),
		Layout: layout.Pipeline(),
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: shader.VertexEntry,
			Buffers:    CellVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: shader.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		device.DestroyShaderModule(module)
		return nil, wrapf(ErrCompilation, err, "create cell pipeline")
	}

	slogger().Debug("gpu: cell pipeline created", "format", format)

	return &CellPipeline{
		device:   device,
		module:   module,
		pipeline: pipeline,
		format:   format,
	}, nil
}

// Format returns the color target format.
func (p *CellPipeline) Format() gputypes.TextureFormat { return p.format }

// Pipeline returns the render pipeline.
func (p *CellPipeline) Pipeline() hal.RenderPipeline { return p.pipeline }

// Destroy releases the pipeline and its shader module.
func (p *CellPipeline) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.module != nil {
		p.device.DestroyShaderModule(p.module)
		p.module = nil
	}
}
