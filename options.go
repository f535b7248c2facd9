package life

import (
	"math/rand/v2"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/life/internal/gpu"
	"github.com/gogpu/life/internal/shader"
)

// Option configures an Engine during creation.
//
// Example:
//
//	e, err := life.New(64, 8, device, queue, target, format,
//	    life.WithSeed(42),
//	    life.WithClearColor(gputypes.Color{A: 1}))
type Option func(*options)

// options holds optional configuration for New.
type options struct {
	clear   *gputypes.Color
	density float64
	rand    *rand.Rand
	limits  gputypes.Limits
	label   string

	simulateSource string
	cellSource     string
}

// defaultOptions returns the default engine options.
func defaultOptions() options {
	return options{
		density:        gpu.DefaultDensity,
		limits:         gputypes.DefaultLimits(),
		label:          "life",
		simulateSource: shader.Simulate(),
		cellSource:     shader.Cell(),
	}
}

// WithClearColor sets the background the render pass clears to.
// The default is opaque white.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clear = &c
	}
}

// WithDensity sets the probability that a cell starts alive. The default is
// one half. Values are clamped to [0, 1], so zero seeds an empty grid. New
// rejects NaN with ErrInvalidDensity.
func WithDensity(d float64) Option {
	return func(o *options) {
		o.density = d
	}
}

// WithRand sets the random source used to seed the initial generation.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rand = r
	}
}

// WithSeed seeds the initial generation deterministically.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.rand = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithLimits sets the device limits the grid and workgroup size are checked
// against. The default is gputypes.DefaultLimits. A zero value disables the
// checks.
func WithLimits(l gputypes.Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}

// WithShaderSources replaces the embedded WGSL programs. Empty arguments keep
// the embedded program. The simulate program should contain
// shader.WorkgroupSizeToken and a compute entry point comp_main; the cell
// program needs vert_main and frag_main.
func WithShaderSources(simulate, cell string) Option {
	return func(o *options) {
		if simulate != "" {
			o.simulateSource = simulate
		}
		if cell != "" {
			o.cellSource = cell
		}
	}
}

// WithLabel sets the prefix of every device object label.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}
