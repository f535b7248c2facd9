// Package life runs Conway's Game of Life on a GPU.
//
// # Overview
//
// Cell state lives in two device buffers. A compute pass advances one
// generation by reading one buffer and writing the other, and a render pass
// draws one instanced quad per cell from the buffer chosen by the caller.
// Both passes are recorded into a single command buffer per step and
// submitted without waiting for the device.
//
// # Quick Start
//
//	d, err := device.Open(device.Options{Backend: device.Auto})
//	...
//	target, _ := life.NewOffscreenTarget(d.Device, 512, 512, gputypes.TextureFormatRGBA8Unorm)
//	e, err := life.New(64, 8, d.Device, d.Queue, target, gputypes.TextureFormatRGBA8Unorm,
//	    life.WithSeed(1))
//	...
//	defer e.Close()
//	for range 100 {
//	    if err := e.Advance(); err != nil {
//	        return err
//	    }
//	}
//	img, _ := e.Snapshot(e.Current(), 8)
//
// # Buffers and Parities
//
// Bind group 0 reads buffer A and writes buffer B; bind group 1 reads B and
// writes A. Step takes the compute and render parities separately. Advance
// alternates them so the render pass always shows the generation the
// compute pass just wrote.
//
// # Grid Coverage
//
// The compute pass dispatches gridSize / workgroupSize workgroups per
// dimension. A grid that is not a multiple of the workgroup size leaves its
// last row and column of cells frozen. New logs a warning for such a grid but
// does not reject it.
//
// # Errors
//
// Construction errors wrap ErrCapability, ErrCompilation or ErrAllocation.
// Step errors wrap ErrSubmission. After a failed submission, by Step or by
// Cells, the engine is lost and every later Step returns ErrEngineLost. A
// frame that was submitted but not presented returns ErrNotPresented and
// still counts as a generation.
//
// # Concurrency
//
// An Engine is driven from one goroutine. SetLogger and Logger are safe for
// concurrent use.
package life
