// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package shader holds the WGSL programs of the simulation and the helpers
// that prepare them for pipeline creation.
//
// Two programs are embedded:
//   - simulate: one compute entry point (comp_main) that advances a generation
//   - cell: a vertex (vert_main) and fragment (frag_main) entry point that draw
//     one instanced quad per cell
//
// The simulate program carries a textual placeholder for the workgroup size.
// Render substitutes it once, before the program is compiled. Reflect runs the
// naga front end over a program to surface compilation errors early and to
// report the entry points and workgroup sizes the device will see.
package shader

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

//go:embed shaders/simulate.wgsl
var simulateSource string

//go:embed shaders/cell.wgsl
var cellSource string

// WorkgroupSizeToken is the placeholder in the simulate program that Render
// replaces with the decimal workgroup width.
const WorkgroupSizeToken = "${WORKGROUP_SIZE}"

// Entry point names of the embedded programs.
const (
	ComputeEntry  = "comp_main"
	VertexEntry   = "vert_main"
	FragmentEntry = "frag_main"
)

// Shader errors.
var (
	// ErrEmptySource is returned when a program has no text.
	ErrEmptySource = errors.New("shader: source is empty")

	// ErrMissingEntryPoint is returned when a required entry point is absent
	// or declared for a different stage.
	ErrMissingEntryPoint = errors.New("shader: entry point not found")
)

// Simulate returns the WGSL source of the simulate program, placeholder
// included.
func Simulate() string { return simulateSource }

// Cell returns the WGSL source of the cell program.
func Cell() string { return cellSource }

// Params are the values substituted into a program by Render.
type Params struct {
	WorkgroupSize uint32
}

// Render replaces every occurrence of WorkgroupSizeToken in source with the
// decimal form of p.WorkgroupSize. A source without the token is returned
// unchanged.
func Render(source string, p Params) string {
	return strings.ReplaceAll(source, WorkgroupSizeToken, strconv.FormatUint(uint64(p.WorkgroupSize), 10))
}

// HasToken reports whether source still contains the workgroup size
// placeholder.
func HasToken(source string) bool {
	return strings.Contains(source, WorkgroupSizeToken)
}

// Stage is a shader pipeline stage.
type Stage uint8

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = iota
	// StageFragment is the fragment stage.
	StageFragment
	// StageCompute is the compute stage.
	StageCompute
	// StageOther covers stages the simulation never uses (task, mesh).
	StageOther
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "other"
	}
}

func stageOf(s ir.ShaderStage) Stage {
	switch s {
	case ir.StageVertex:
		return StageVertex
	case ir.StageFragment:
		return StageFragment
	case ir.StageCompute:
		return StageCompute
	default:
		return StageOther
	}
}

// EntryPoint describes one entry point of a compiled program.
type EntryPoint struct {
	Name  string
	Stage Stage

	// Workgroup is the @workgroup_size of a compute entry point, zero
	// otherwise.
	Workgroup [3]uint32
}

// Info is the reflection data of a program.
type Info struct {
	EntryPoints []EntryPoint
}

// Lookup returns the entry point with the given name.
func (i *Info) Lookup(name string) (EntryPoint, bool) {
	for _, ep := range i.EntryPoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// Require returns the named entry point if it exists for the given stage.
func (i *Info) Require(stage Stage, name string) (EntryPoint, error) {
	ep, ok := i.Lookup(name)
	if !ok {
		return EntryPoint{}, fmt.Errorf("%w: %s entry %q", ErrMissingEntryPoint, stage, name)
	}
	if ep.Stage != stage {
		return EntryPoint{}, fmt.Errorf("%w: %q is a %s entry, want %s", ErrMissingEntryPoint, name, ep.Stage, stage)
	}
	return ep, nil
}

// Reflect parses, lowers and validates a WGSL program and returns its entry
// points. Errors carry the naga diagnostic.
func Reflect(source string) (*Info, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("shader: %w", err)
	}

	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("shader: lowering error: %w", err)
	}

	validationErrors, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("shader: validation error: %w", err)
	}
	if len(validationErrors) > 0 {
		return nil, fmt.Errorf("shader: validation failed: %w", validationErrors[0])
	}

	info := &Info{EntryPoints: make([]EntryPoint, 0, len(module.EntryPoints))}
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		info.EntryPoints = append(info.EntryPoints, EntryPoint{
			Name:      ep.Name,
			Stage:     stageOf(ep.Stage),
			Workgroup: ep.Workgroup,
		})
	}
	return info, nil
}
