package gpu

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const (
	// cellBytes is the size of one cell (u32).
	cellBytes = 4

	// gridUniformSize is the size of the grid uniform (vec2<f32>).
	gridUniformSize = 8

	// VertexCount is the number of vertices of the cell quad.
	VertexCount = 6

	// DefaultDensity is the probability that a seeded cell starts alive.
	DefaultDensity = 0.5
)

// QuadVertices is the cell quad as two triangles in cell-local coordinates.
var QuadVertices = [VertexCount * 2]float32{
	-0.8, -0.8,
	0.8, -0.8,
	0.8, 0.8,

	-0.8, -0.8,
	0.8, 0.8,
	-0.8, 0.8,
}

// Roles names the cell buffers a bind group reads from and writes to, as
// indices into the state's buffer pair.
type Roles struct {
	Read  int
	Write int
}

// StateConfig configures AllocateState.
type StateConfig struct {
	// GridSize is the width and height of the grid in cells.
	GridSize uint32

	// Density is the probability that a cell starts alive.
	// Nil selects DefaultDensity. Values are clamped to [0, 1]; NaN is
	// rejected.
	Density *float64

	// Rand is the seeding source. Nil selects a randomly seeded generator.
	Rand *rand.Rand

	// Label prefixes every resource label.
	Label string
}

// State holds the grid uniform, the two cell state buffers, the bind group
// pair and the quad vertex buffer. Nothing in it is resized after
// allocation.
type State struct {
	device   hal.Device
	gridSize uint32

	uniform  hal.Buffer
	cells    [2]hal.Buffer
	vertices hal.Buffer
	groups   [2]hal.BindGroup

	seeded []uint32
	alive  int
}

// AllocateState creates every per-grid resource and uploads the initial
// contents: the grid uniform, a random seeding of buffer A and the quad.
// Buffer B is left for the first compute pass to overwrite. On any failure
// everything created so far is released and ErrAllocation is returned.
func AllocateState(device hal.Device, queue hal.Queue, layout *BindingLayout, cfg StateConfig) (*State, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if cfg.GridSize == 0 {
		return nil, ErrInvalidGridSize
	}
	if cfg.Density != nil {
		if err := CheckDensity(*cfg.Density); err != nil {
			return nil, err
		}
	}

	s := &State{device: device, gridSize: cfg.GridSize}
	if err := s.allocate(queue, layout, cfg); err != nil {
		s.Destroy()
		return nil, err
	}

	slogger().Debug("gpu: state allocated",
		"grid", cfg.GridSize,
		"cell_buffer_bytes", CellBufferSize(cfg.GridSize),
		"alive", s.alive)

	return s, nil
}

func (s *State) allocate(queue hal.Queue, layout *BindingLayout, cfg StateConfig) error {
	var err error

	s.uniform, err = s.upload(queue, label(cfg.Label, "grid_uniforms"),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst, GridUniform(cfg.GridSize))
	if err != nil {
		return err
	}

	cellSize := CellBufferSize(cfg.GridSize)
	usage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	for i, name := range [2]string{"cell_state_a", "cell_state_b"} {
		s.cells[i], err = s.device.CreateBuffer(&hal.BufferDescriptor{
			Label: label(cfg.Label, name),
			Size:  cellSize,
			Usage: usage,
		})
		if err != nil {
			return wrapf(ErrAllocation, err, "create %s", name)
		}
	}

	density := DefaultDensity
	if cfg.Density != nil {
		density = *cfg.Density
	}
	s.seeded = SeedCells(int(cfg.GridSize)*int(cfg.GridSize), density, cfg.Rand)
	for _, c := range s.seeded {
		s.alive += int(c)
	}
	if err := queue.WriteBuffer(s.cells[0], 0, EncodeCells(s.seeded)); err != nil {
		return wrapf(ErrAllocation, err, "upload cell_state_a")
	}

	s.vertices, err = s.upload(queue, label(cfg.Label, "cell_vertices"),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst, EncodeVertices(QuadVertices[:]))
	if err != nil {
		return err
	}

	for parity := range s.groups {
		roles := RolesFor(parity)
		s.groups[parity], err = s.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   label(cfg.Label, groupName(parity)),
			Layout:  layout.Group(),
			Entries: s.bindGroupEntries(roles, cellSize),
		})
		if err != nil {
			return wrapf(ErrAllocation, err, "create %s", groupName(parity))
		}
	}
	return nil
}

// upload creates a buffer sized to data and writes data into it.
func (s *State) upload(queue hal.Queue, name string, usage gputypes.BufferUsage, data []byte) (hal.Buffer, error) {
	buf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: name,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, wrapf(ErrAllocation, err, "create %s", name)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		s.device.DestroyBuffer(buf)
		return nil, wrapf(ErrAllocation, err, "upload %s", name)
	}
	return buf, nil
}

// bindGroupEntries fills the three slots from the fixed binding constants.
func (s *State) bindGroupEntries(r Roles, cellSize uint64) []gputypes.BindGroupEntry {
	return []gputypes.BindGroupEntry{
		{Binding: BindingGrid, Resource: gputypes.BufferBinding{Buffer: s.uniform.NativeHandle(), Size: gridUniformSize}},
		{Binding: BindingCellsIn, Resource: gputypes.BufferBinding{Buffer: s.cells[r.Read].NativeHandle(), Size: cellSize}},
		{Binding: BindingCellsOut, Resource: gputypes.BufferBinding{Buffer: s.cells[r.Write].NativeHandle(), Size: cellSize}},
	}
}

// RolesFor returns the buffer roles of the bind group with the given parity:
// group 0 reads A and writes B, group 1 reads B and writes A.
func RolesFor(parity int) Roles {
	return Roles{Read: parity, Write: 1 - parity}
}

func groupName(parity int) string {
	if parity == 0 {
		return "cell_bind_group_a"
	}
	return "cell_bind_group_b"
}

// GridSize returns the grid width and height in cells.
func (s *State) GridSize() uint32 { return s.gridSize }

// CellCount returns the number of cells.
func (s *State) CellCount() uint32 { return s.gridSize * s.gridSize }

// Group returns the bind group with the given parity.
func (s *State) Group(parity int) hal.BindGroup { return s.groups[parity] }

// Roles returns the buffer roles of the bind group with the given parity.
func (s *State) Roles(parity int) Roles { return RolesFor(parity) }

// CellBuffer returns cell buffer A (0) or B (1).
func (s *State) CellBuffer(index int) hal.Buffer { return s.cells[index] }

// Uniform returns the grid uniform buffer.
func (s *State) Uniform() hal.Buffer { return s.uniform }

// Vertices returns the quad vertex buffer.
func (s *State) Vertices() hal.Buffer { return s.vertices }

// Seeded returns a copy of the initial contents of buffer A.
func (s *State) Seeded() []uint32 {
	out := make([]uint32, len(s.seeded))
	copy(out, s.seeded)
	return out
}

// Alive returns the number of live cells seeded into buffer A.
func (s *State) Alive() int { return s.alive }

// Destroy releases every resource in reverse creation order. Safe to call on
// a partially allocated state and more than once.
func (s *State) Destroy() {
	if s == nil || s.device == nil {
		return
	}
	for i := len(s.groups) - 1; i >= 0; i-- {
		if s.groups[i] != nil {
			s.device.DestroyBindGroup(s.groups[i])
			s.groups[i] = nil
		}
	}
	if s.vertices != nil {
		s.device.DestroyBuffer(s.vertices)
		s.vertices = nil
	}
	for i := len(s.cells) - 1; i >= 0; i-- {
		if s.cells[i] != nil {
			s.device.DestroyBuffer(s.cells[i])
			s.cells[i] = nil
		}
	}
	if s.uniform != nil {
		s.device.DestroyBuffer(s.uniform)
		s.uniform = nil
	}
}

// CheckDensity rejects a seeding density that is not a number.
func CheckDensity(density float64) error {
	if math.IsNaN(density) {
		return ErrInvalidDensity
	}
	return nil
}

// SeedCells returns n cells, each alive with probability density clamped to
// [0, 1]. Zero seeds no live cells.
func SeedCells(n int, density float64, r *rand.Rand) []uint32 {
	density = min(max(density, 0), 1)
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // simulation seeding
	}

	cells := make([]uint32, n)
	for i := range cells {
		if r.Float64() < density {
			cells[i] = 1
		}
	}
	return cells
}

// GridUniform encodes the grid uniform as two little-endian f32.
func GridUniform(gridSize uint32) []byte {
	buf := make([]byte, gridUniformSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(gridSize)))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(gridSize)))
	return buf
}

// EncodeCells packs cells as little-endian u32.
func EncodeCells(cells []uint32) []byte {
	buf := make([]byte, len(cells)*cellBytes)
	for i, c := range cells {
		binary.LittleEndian.PutUint32(buf[i*cellBytes:], c)
	}
	return buf
}

// DecodeCells unpacks little-endian u32 cells.
func DecodeCells(data []byte) []uint32 {
	cells := make([]uint32, len(data)/cellBytes)
	for i := range cells {
		cells[i] = binary.LittleEndian.Uint32(data[i*cellBytes:])
	}
	return cells
}

// EncodeVertices packs vertex components as little-endian f32.
func EncodeVertices(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
