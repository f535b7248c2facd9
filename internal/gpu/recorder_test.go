package gpu

import (
	"errors"
	"image"
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// errInjected is returned by the recording device when a failure is injected.
var errInjected = errors.New("injected failure")

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// trackedBuffer gives a noop buffer a unique native handle so bind group
// entries can be matched to the buffers they reference.
type trackedBuffer struct {
	hal.Buffer
	id    uintptr
	label string
	size  uint64
	usage gputypes.BufferUsage
}

func (b *trackedBuffer) NativeHandle() uintptr { return b.id }

// trackedGroup makes bind groups comparable by identity.
type trackedGroup struct {
	hal.BindGroup
	id   int
	desc hal.BindGroupDescriptor
}

func unwrapBuffer(b hal.Buffer) hal.Buffer {
	if t, ok := b.(*trackedBuffer); ok {
		return t.Buffer
	}
	return b
}

func unwrapGroup(g hal.BindGroup) hal.BindGroup {
	if t, ok := g.(*trackedGroup); ok {
		return t.BindGroup
	}
	return g
}

// recordingDevice wraps a noop device and records what is created on it.
type recordingDevice struct {
	hal.Device

	buffers          []*trackedBuffer
	groups           []*trackedGroup
	layouts          []hal.BindGroupLayoutDescriptor
	shaders          []hal.ShaderModuleDescriptor
	computePipelines []hal.ComputePipelineDescriptor
	renderPipelines  []hal.RenderPipelineDescriptor
	encoders         []*recordingEncoder
	destroyedBuffers int
	destroyedGroups  int
	destroyedShaders int
	destroyedLayouts int
	freedCommands    int
	waitIdleCalls    int

	// failBufferAt fails the n-th CreateBuffer call (1-based).
	failBufferAt int
	// failGroupAt fails the n-th CreateBindGroup call (1-based).
	failGroupAt int
	failLayout  bool
	failShader  bool
	failEncoder bool
	// failBegin and failEnd fail BeginEncoding and EndEncoding on the
	// encoders created afterwards.
	failBegin bool
	failEnd   bool
}

type recordingQueue struct {
	hal.Queue

	writes      map[uintptr]int
	submits     int
	presents    int
	failSubmit  error
	lastIndex   uint64
	completedAt uint64
	holdPoll    bool
}

// newRecorder returns a recording device and queue over the noop backend.
func newRecorder(t *testing.T) (*recordingDevice, *recordingQueue) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	return &recordingDevice{Device: device}, &recordingQueue{Queue: queue, writes: make(map[uintptr]int)}
}

func (d *recordingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if d.failBufferAt > 0 && len(d.buffers)+1 == d.failBufferAt {
		d.failBufferAt = 0
		return nil, errInjected
	}
	inner, err := d.Device.CreateBuffer(desc)
	if err != nil {
		return nil, err
	}
	b := &trackedBuffer{
		Buffer: inner,
		id:     uintptr(len(d.buffers) + 1),
		label:  desc.Label,
		size:   desc.Size,
		usage:  desc.Usage,
	}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *recordingDevice) DestroyBuffer(b hal.Buffer) {
	d.destroyedBuffers++
	d.Device.DestroyBuffer(unwrapBuffer(b))
}

func (d *recordingDevice) MapBuffer(b hal.Buffer, offset, size uint64) (hal.BufferMapping, error) {
	return d.Device.MapBuffer(unwrapBuffer(b), offset, size)
}

func (d *recordingDevice) UnmapBuffer(b hal.Buffer) error {
	return d.Device.UnmapBuffer(unwrapBuffer(b))
}

func (d *recordingDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	if d.failLayout {
		return nil, errInjected
	}
	d.layouts = append(d.layouts, *desc)
	return d.Device.CreateBindGroupLayout(desc)
}

func (d *recordingDevice) DestroyBindGroupLayout(l hal.BindGroupLayout) {
	d.destroyedLayouts++
	d.Device.DestroyBindGroupLayout(l)
}

func (d *recordingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if d.failGroupAt > 0 && len(d.groups)+1 == d.failGroupAt {
		d.failGroupAt = 0
		return nil, errInjected
	}
	inner, err := d.Device.CreateBindGroup(desc)
	if err != nil {
		return nil, err
	}
	g := &trackedGroup{BindGroup: inner, id: len(d.groups), desc: *desc}
	d.groups = append(d.groups, g)
	return g, nil
}

func (d *recordingDevice) DestroyBindGroup(g hal.BindGroup) {
	d.destroyedGroups++
	d.Device.DestroyBindGroup(unwrapGroup(g))
}

func (d *recordingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if d.failShader {
		return nil, errInjected
	}
	d.shaders = append(d.shaders, *desc)
	return d.Device.CreateShaderModule(desc)
}

func (d *recordingDevice) DestroyShaderModule(m hal.ShaderModule) {
	d.destroyedShaders++
	d.Device.DestroyShaderModule(m)
}

func (d *recordingDevice) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	d.computePipelines = append(d.computePipelines, *desc)
	return d.Device.CreateComputePipeline(desc)
}

func (d *recordingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	d.renderPipelines = append(d.renderPipelines, *desc)
	return d.Device.CreateRenderPipeline(desc)
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	if d.failEncoder {
		return nil, errInjected
	}
	inner, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	e := &recordingEncoder{CommandEncoder: inner, device: d}
	d.encoders = append(d.encoders, e)
	return e, nil
}

func (d *recordingDevice) FreeCommandBuffer(cmd hal.CommandBuffer) {
	d.freedCommands++
	d.Device.FreeCommandBuffer(cmd)
}

func (d *recordingDevice) WaitIdle() error {
	d.waitIdleCalls++
	return d.Device.WaitIdle()
}

// buffer returns the tracked buffer with the given label.
func (d *recordingDevice) buffer(t *testing.T, label string) *trackedBuffer {
	t.Helper()
	for _, b := range d.buffers {
		if b.label == label {
			return b
		}
	}
	t.Fatalf("no buffer labeled %q", label)
	return nil
}

// lastEncoder returns the most recently created encoder.
func (d *recordingDevice) lastEncoder(t *testing.T) *recordingEncoder {
	t.Helper()
	if len(d.encoders) == 0 {
		t.Fatal("no command encoder was created")
	}
	return d.encoders[len(d.encoders)-1]
}

func (q *recordingQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	if q.failSubmit != nil {
		return 0, q.failSubmit
	}
	q.submits++
	idx, err := q.Queue.Submit(cmds)
	q.lastIndex = idx
	return idx, err
}

func (q *recordingQueue) PollCompleted() uint64 {
	if q.holdPoll {
		return q.completedAt
	}
	return q.Queue.PollCompleted()
}

func (q *recordingQueue) WriteBuffer(b hal.Buffer, offset uint64, data []byte) error {
	q.writes[b.NativeHandle()] += len(data)
	return q.Queue.WriteBuffer(unwrapBuffer(b), offset, data)
}

func (q *recordingQueue) Present(s hal.Surface, tex hal.SurfaceTexture, damage []image.Rectangle) error {
	q.presents++
	return q.Queue.Present(s, tex, damage)
}

type computeCall struct {
	pipeline hal.ComputePipeline
	group    *trackedGroup
	x, y, z  uint32
}

type drawCall struct {
	pipeline  hal.RenderPipeline
	group     *trackedGroup
	vertices  *trackedBuffer
	vertexCnt uint32
	instances uint32
}

// recordingEncoder records passes. CopyBufferToBuffer is carried out
// immediately through buffer mappings, since the noop encoder drops copies.
type recordingEncoder struct {
	hal.CommandEncoder
	device *recordingDevice

	renderPasses []hal.RenderPassDescriptor
	computes     []computeCall
	draws        []drawCall
	copies       int
	discarded    int
}

func (e *recordingEncoder) BeginEncoding(label string) error {
	if e.device.failBegin {
		return errInjected
	}
	return e.CommandEncoder.BeginEncoding(label)
}

func (e *recordingEncoder) EndEncoding() (hal.CommandBuffer, error) {
	if e.device.failEnd {
		return nil, errInjected
	}
	return e.CommandEncoder.EndEncoding()
}

func (e *recordingEncoder) DiscardEncoding() {
	e.discarded++
	e.CommandEncoder.DiscardEncoding()
}

func (e *recordingEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	return &recordingComputePass{ComputePassEncoder: e.CommandEncoder.BeginComputePass(desc), enc: e}
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	e.renderPasses = append(e.renderPasses, *desc)
	return &recordingRenderPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), enc: e}
}

func (e *recordingEncoder) CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	e.copies++
	for _, r := range regions {
		from, err := e.device.MapBuffer(src, r.SrcOffset, r.Size)
		if err != nil {
			continue
		}
		to, err := e.device.MapBuffer(dst, r.DstOffset, r.Size)
		if err != nil {
			continue
		}
		copy(unsafe.Slice((*byte)(to.Ptr), r.Size), unsafe.Slice((*byte)(from.Ptr), r.Size))
	}
	e.CommandEncoder.CopyBufferToBuffer(unwrapBuffer(src), unwrapBuffer(dst), regions)
}

type recordingComputePass struct {
	hal.ComputePassEncoder
	enc     *recordingEncoder
	current computeCall
}

func (p *recordingComputePass) SetPipeline(pl hal.ComputePipeline) {
	p.current.pipeline = pl
	p.ComputePassEncoder.SetPipeline(pl)
}

func (p *recordingComputePass) SetBindGroup(index uint32, g hal.BindGroup, offsets []uint32) {
	p.current.group, _ = g.(*trackedGroup)
	p.ComputePassEncoder.SetBindGroup(index, unwrapGroup(g), offsets)
}

func (p *recordingComputePass) Dispatch(x, y, z uint32) {
	c := p.current
	c.x, c.y, c.z = x, y, z
	p.enc.computes = append(p.enc.computes, c)
	p.ComputePassEncoder.Dispatch(x, y, z)
}

type recordingRenderPass struct {
	hal.RenderPassEncoder
	enc     *recordingEncoder
	current drawCall
}

func (p *recordingRenderPass) SetPipeline(pl hal.RenderPipeline) {
	p.current.pipeline = pl
	p.RenderPassEncoder.SetPipeline(pl)
}

func (p *recordingRenderPass) SetBindGroup(index uint32, g hal.BindGroup, offsets []uint32) {
	p.current.group, _ = g.(*trackedGroup)
	p.RenderPassEncoder.SetBindGroup(index, unwrapGroup(g), offsets)
}

func (p *recordingRenderPass) SetVertexBuffer(slot uint32, b hal.Buffer, offset uint64) {
	p.current.vertices, _ = b.(*trackedBuffer)
	p.RenderPassEncoder.SetVertexBuffer(slot, unwrapBuffer(b), offset)
}

func (p *recordingRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	d := p.current
	d.vertexCnt, d.instances = vertexCount, instanceCount
	p.enc.draws = append(p.enc.draws, d)
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// bufferBinding returns the buffer binding of slot in desc.
func bufferBinding(t *testing.T, desc hal.BindGroupDescriptor, slot uint32) gputypes.BufferBinding {
	t.Helper()
	for _, e := range desc.Entries {
		if e.Binding != slot {
			continue
		}
		bb, ok := e.Resource.(gputypes.BufferBinding)
		if !ok {
			t.Fatalf("slot %d is not a buffer binding: %T", slot, e.Resource)
		}
		return bb
	}
	t.Fatalf("bind group %q has no slot %d", desc.Label, slot)
	return gputypes.BufferBinding{}
}
