// Package gpu builds and drives the device objects of the Game of Life
// simulation on top of the gogpu/wgpu hardware abstraction layer.
//
// Construction happens bottom-up and exactly once:
//
//	layout, _ := gpu.NewBindingLayout(device, "")
//	sim, _ := gpu.NewSimulationPipeline(device, layout, shader.Simulate(), 8, "")
//	cells, _ := gpu.NewCellPipeline(device, layout, shader.Cell(), format, "")
//	state, _ := gpu.AllocateState(device, queue, layout, gpu.StateConfig{GridSize: 64})
//
// A Frame then ties the pieces to a render target and issues one compute pass
// and one render pass per Step:
//
//	frame := gpu.NewFrame(device, queue, sim, cells, state, target, gpu.FrameConfig{})
//	err := frame.Step(0, 1)
//
// # Binding slots
//
// Every bind group uses one layout with three buffer slots:
//
//	0  grid dimensions (uniform, two f32)       vertex + compute
//	1  cell state read by this pass (storage)    vertex + compute
//	2  cell state written by this pass (storage) compute
//
// The state holds two cell buffers A and B. Group 0 reads A and writes B,
// group 1 reads B and writes A, so a compute dispatch never reads and writes
// the same buffer.
//
// # Synchronization
//
// Step never waits for the device. Work is ordered by queue submission order
// and finished command buffers are reclaimed on later steps. Readback is the
// only blocking operation and is kept off the per-frame path.
//
// None of the types in this package are safe for concurrent use.
package gpu
