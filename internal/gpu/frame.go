package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultClearColor is the render pass background: opaque white.
var DefaultClearColor = gputypes.Color{R: 1, G: 1, B: 1, A: 1}

// FrameConfig configures a Frame.
type FrameConfig struct {
	// ClearColor is the background of every render pass.
	// Nil selects DefaultClearColor.
	ClearColor *gputypes.Color

	// Label prefixes encoder and pass labels.
	Label string
}

// inflight is a submitted command buffer awaiting completion.
type inflight struct {
	index uint64
	cmd   hal.CommandBuffer
}

// Frame issues the per-step work: one compute pass that advances the
// simulation and one render pass that draws the grid, submitted together.
//
// Frame is not safe for concurrent use.
type Frame struct {
	device hal.Device
	queue  hal.Queue

	simulation *SimulationPipeline
	cells      *CellPipeline
	state      *State
	target     Target

	dispatch uint32
	clear    gputypes.Color
	label    string

	pending []inflight
	steps   uint64
	lost    error
	closed  bool
}

// NewFrame binds the pipelines, state and target into a frame orchestrator.
// Nothing is created on the device until the first Step.
func NewFrame(device hal.Device, queue hal.Queue, simulation *SimulationPipeline, cells *CellPipeline, state *State, target Target, cfg FrameConfig) *Frame {
	background := DefaultClearColor
	if cfg.ClearColor != nil {
		background = *cfg.ClearColor
	}
	return &Frame{
		device:     device,
		queue:      queue,
		simulation: simulation,
		cells:      cells,
		state:      state,
		target:     target,
		dispatch:   DispatchSize(state.GridSize(), simulation.WorkgroupSize()),
		clear:      background,
		label:      cfg.Label,
	}
}

// Step encodes and submits one frame and returns without waiting for the
// device. The compute pass uses the bind group selected by computeParity and
// the render pass the one selected by renderParity; the two are independent.
//
// A failed submission leaves the frame unusable: every later call returns
// ErrEngineLost. A failed present after a successful submission returns
// ErrNotPresented; the compute pass has run and the frame stays usable.
func (f *Frame) Step(computeParity, renderParity int) error {
	if f.closed {
		return ErrClosed
	}
	if f.lost != nil {
		return fmt.Errorf("%w: %w", ErrEngineLost, f.lost)
	}
	if err := checkParity(computeParity); err != nil {
		return err
	}
	if err := checkParity(renderParity); err != nil {
		return err
	}

	f.reclaim(f.queue.PollCompleted())

	view, err := f.target.Acquire()
	if err != nil {
		return err
	}

	cmd, err := f.encode(view, computeParity, renderParity)
	if err != nil {
		f.target.Discard()
		return wrapf(ErrSubmission, err, "encode frame")
	}

	index, err := f.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		f.device.FreeCommandBuffer(cmd)
		f.target.Discard()
		f.lost = err
		slogger().Error("gpu: submit failed, frame is lost", "err", err)
		return wrapf(ErrSubmission, err, "submit frame")
	}
	f.pending = append(f.pending, inflight{index: index, cmd: cmd})
	f.steps++

	slogger().Debug("gpu: frame submitted",
		"submission", index,
		"compute_parity", computeParity,
		"render_parity", renderParity,
		"dispatch", f.dispatch)

	if err := f.target.Present(f.queue); err != nil {
		return fmt.Errorf("%w: %w: %w", ErrSubmission, ErrNotPresented, err)
	}
	return nil
}

// encode records the compute and render passes into one command buffer.
func (f *Frame) encode(view hal.TextureView, computeParity, renderParity int) (hal.CommandBuffer, error) {
	encoder, err := f.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: label(f.label, "frame_encoder"),
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label(f.label, "frame")); err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	cp := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label(f.label, "simulation_pass")})
	cp.SetPipeline(f.simulation.Pipeline())
	cp.SetBindGroup(0, f.state.Group(computeParity), nil)
	cp.Dispatch(f.dispatch, f.dispatch, 1)
	cp.End()

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label(f.label, "cell_pass"),
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: f.clear,
		}},
	})
	rp.SetPipeline(f.cells.Pipeline())
	rp.SetBindGroup(0, f.state.Group(renderParity), nil)
	rp.SetVertexBuffer(0, f.state.Vertices(), 0)
	rp.Draw(VertexCount, f.state.CellCount(), 0, 0)
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	return cmd, nil
}

// reclaim frees command buffers whose submission index is at or below done.
func (f *Frame) reclaim(done uint64) {
	n := 0
	for _, p := range f.pending {
		if p.index <= done {
			f.device.FreeCommandBuffer(p.cmd)
			continue
		}
		f.pending[n] = p
		n++
	}
	clear(f.pending[n:])
	f.pending = f.pending[:n]
}

// Pending returns the number of submitted command buffers not yet reclaimed.
func (f *Frame) Pending() int { return len(f.pending) }

// Steps returns the number of successfully submitted frames.
func (f *Frame) Steps() uint64 { return f.steps }

// DispatchSize returns the workgroup count per dimension of the compute pass.
func (f *Frame) DispatchSize() uint32 { return f.dispatch }

// Lost returns the submission error that made the frame unusable, if any.
func (f *Frame) Lost() error { return f.lost }

// Close waits for the device to finish submitted work and frees every
// in-flight command buffer. The pipelines, state and target are left to
// their owner.
func (f *Frame) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	err := f.device.WaitIdle()
	for _, p := range f.pending {
		f.device.FreeCommandBuffer(p.cmd)
	}
	f.pending = nil
	if err != nil {
		return wrapf(ErrSubmission, err, "wait idle")
	}
	return nil
}

func checkParity(p int) error {
	if p != 0 && p != 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidParity, p)
	}
	return nil
}
