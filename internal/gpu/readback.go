package gpu

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ReadCells copies cell buffer A (0) or B (1) into a staging buffer, waits
// for the device to go idle and returns its contents. It blocks and is meant
// for inspection and snapshots, never for the per-frame path.
//
// A failed readback submission loses the frame like a failed Step.
func (f *Frame) ReadCells(index int) ([]uint32, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if f.lost != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineLost, f.lost)
	}
	if err := checkParity(index); err != nil {
		return nil, err
	}

	data, err := f.readBuffer(f.state.CellBuffer(index), CellBufferSize(f.state.GridSize()))
	if err != nil {
		return nil, err
	}

	// The device is idle, so everything submitted so far has completed.
	f.reclaim(f.queue.PollCompleted())

	return DecodeCells(data), nil
}

// readBuffer copies size bytes of src through a map-readable staging buffer.
func (f *Frame) readBuffer(src hal.Buffer, size uint64) ([]byte, error) {
	device := f.device
	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "cell_readback_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, wrapf(ErrAllocation, err, "create staging buffer")
	}
	defer device.DestroyBuffer(staging)

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "cell_readback_encoder"})
	if err != nil {
		return nil, wrapf(ErrSubmission, err, "create command encoder")
	}
	if err := encoder.BeginEncoding("cell_readback"); err != nil {
		encoder.DiscardEncoding()
		return nil, wrapf(ErrSubmission, err, "begin encoding")
	}
	encoder.CopyBufferToBuffer(src, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return nil, wrapf(ErrSubmission, err, "end encoding")
	}
	defer device.FreeCommandBuffer(cmd)

	if _, err := f.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		f.lost = err
		slogger().Error("gpu: readback submit failed, frame is lost", "err", err)
		return nil, wrapf(ErrSubmission, err, "submit readback")
	}
	if err := device.WaitIdle(); err != nil {
		return nil, wrapf(ErrSubmission, err, "wait for readback")
	}

	mapping, err := device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, wrapf(ErrSubmission, err, "map staging buffer")
	}
	if !mapping.IsCoherent {
		slogger().Debug("gpu: readback mapping is not coherent")
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := device.UnmapBuffer(staging); err != nil {
		return nil, wrapf(ErrSubmission, err, "unmap staging buffer")
	}
	return out, nil
}
