// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/life/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// Engine runs the Game of Life on a GPU device. It owns the binding layout,
// both pipelines, the cell state and the frame orchestrator, and releases
// them on Close. The device, queue and target stay with the caller.
//
// Engine is not safe for concurrent use. One goroutine constructs it and
// issues every Step.
type Engine struct {
	device hal.Device
	queue  hal.Queue
	target Target
	format gputypes.TextureFormat

	layout     *gpu.BindingLayout
	simulation *gpu.SimulationPipeline
	cells      *gpu.CellPipeline
	state      *gpu.State
	frame      *gpu.Frame

	background gputypes.Color
	generation uint64
	closed     bool
}

// New builds the binding layout, the simulation and cell pipelines and the
// seeded cell state for a gridSize x gridSize grid, then wires them to
// target. Either everything is created or nothing is: on failure every
// object already created is released.
//
// The grid is advanced in workgroupSize x workgroupSize tiles, gridSize /
// workgroupSize tiles per dimension. Cells outside full tiles are not
// updated; such a configuration is logged as a warning, not rejected.
func New(gridSize, workgroupSize uint32, device hal.Device, queue hal.Queue, target Target, format gputypes.TextureFormat, opts ...Option) (*Engine, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if target == nil {
		return nil, fmt.Errorf("%w: nil target", ErrAllocation)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := gpu.CheckLimits(o.limits, gridSize, workgroupSize); err != nil {
		return nil, err
	}
	if err := gpu.CheckDensity(o.density); err != nil {
		return nil, err
	}

	e := &Engine{
		device:     device,
		queue:      queue,
		target:     target,
		format:     format,
		background: gpu.DefaultClearColor,
	}
	if o.clear != nil {
		e.background = *o.clear
	}

	if err := e.build(gridSize, workgroupSize, o); err != nil {
		e.release()
		return nil, err
	}

	Logger().Info("life: engine created",
		"grid", gridSize,
		"workgroup", workgroupSize,
		"dispatch", e.frame.DispatchSize(),
		"format", format.String(),
		"alive", e.state.Alive())

	return e, nil
}

func (e *Engine) build(gridSize, workgroupSize uint32, o options) error {
	var err error

	e.layout, err = gpu.NewBindingLayout(e.device, o.label)
	if err != nil {
		return err
	}

	e.simulation, err = gpu.NewSimulationPipeline(e.device, e.layout, o.simulateSource, workgroupSize, o.label)
	if err != nil {
		return err
	}

	e.cells, err = gpu.NewCellPipeline(e.device, e.layout, o.cellSource, e.format, o.label)
	if err != nil {
		return err
	}

	e.state, err = gpu.AllocateState(e.device, e.queue, e.layout, gpu.StateConfig{
		GridSize: gridSize,
		Density:  &o.density,
		Rand:     o.rand,
		Label:    o.label,
	})
	if err != nil {
		return err
	}

	e.frame = gpu.NewFrame(e.device, e.queue, e.simulation, e.cells, e.state, e.target, gpu.FrameConfig{
		ClearColor: &e.background,
		Label:      o.label,
	})
	return nil
}

// Step advances the simulation one generation with the bind group selected
// by computeParity and draws the grid with the one selected by
// renderParity. It returns once the work is submitted.
//
// Bind group 0 reads buffer A and writes buffer B, bind group 1 the
// reverse. Most callers want Advance, which picks both parities.
func (e *Engine) Step(computeParity, renderParity int) error {
	if e.closed {
		return ErrClosed
	}
	return e.frame.Step(computeParity, renderParity)
}

// Advance runs the next generation: the compute pass reads the buffer
// holding the current generation and the render pass draws the buffer it
// just wrote. The generation counts once the work is submitted, even when
// presenting it fails with ErrNotPresented.
func (e *Engine) Advance() error {
	computeParity := int(e.generation % 2)
	renderParity := int((e.generation + 1) % 2)
	err := e.Step(computeParity, renderParity)
	if err == nil || errors.Is(err, ErrNotPresented) {
		e.generation++
	}
	return err
}

// Generation returns the number of generations run by Advance.
func (e *Engine) Generation() uint64 { return e.generation }

// Current returns the index of the cell buffer holding the latest
// generation produced by Advance.
func (e *Engine) Current() int { return int(e.generation % 2) }

// Cells reads cell buffer A (0) or B (1) back from the device. It waits for
// the device to go idle and must not be used on the per-frame path.
func (e *Engine) Cells(index int) ([]uint32, error) {
	if e.closed {
		return nil, ErrClosed
	}
	return e.frame.ReadCells(index)
}

// Seeded returns a copy of the initial generation uploaded to buffer A.
func (e *Engine) Seeded() []uint32 { return e.state.Seeded() }

// GridSize returns the grid width and height in cells.
func (e *Engine) GridSize() uint32 { return e.state.GridSize() }

// WorkgroupSize returns the compute workgroup width and height.
func (e *Engine) WorkgroupSize() uint32 { return e.simulation.WorkgroupSize() }

// DispatchSize returns the number of workgroups per dimension.
func (e *Engine) DispatchSize() uint32 { return e.frame.DispatchSize() }

// Format returns the color format of the render target.
func (e *Engine) Format() gputypes.TextureFormat { return e.format }

// Steps returns the number of submitted steps.
func (e *Engine) Steps() uint64 { return e.frame.Steps() }

// Pending returns the number of submitted command buffers not yet known to
// be complete.
func (e *Engine) Pending() int { return e.frame.Pending() }

// Lost returns the submission error that made the engine unusable, or nil.
func (e *Engine) Lost() error { return e.frame.Lost() }

// Close waits for the device to finish the submitted work and releases every
// object the engine created. Close is idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	err := e.frame.Close()
	e.release()

	Logger().Info("life: engine closed", "steps", e.frame.Steps())
	return err
}

// release destroys the owned objects in reverse creation order.
func (e *Engine) release() {
	if e.state != nil {
		e.state.Destroy()
	}
	if e.cells != nil {
		e.cells.Destroy()
	}
	if e.simulation != nil {
		e.simulation.Destroy()
	}
	if e.layout != nil {
		e.layout.Destroy()
	}
}
