// Command golife runs Conway's Game of Life on the GPU, headless, and
// optionally saves the last generation as a PNG.
//
// Usage:
//
//	golife -grid 128 -workgroup 8 -steps 500 -snapshot life.png
//	golife -backend empty -interval 200ms -v
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/life"
	"github.com/gogpu/life/internal/device"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	_ "github.com/gogpu/wgpu/hal/allbackends"
)

type config struct {
	grid      uint32
	workgroup uint32
	steps     int
	interval  time.Duration
	backend   string
	width     uint32
	height    uint32
	snapshot  string
	scale     int
	seed      uint64
	density   float64
	verbose   bool
}

func main() {
	var (
		grid      = flag.Uint("grid", 64, "grid width and height in cells")
		workgroup = flag.Uint("workgroup", 8, "compute workgroup width and height")
		steps     = flag.Int("steps", 100, "generations to run")
		interval  = flag.Duration("interval", 0, "delay between generations, 0 runs unpaced")
		backend   = flag.String("backend", device.Auto, "backend: auto, vulkan, metal, dx12, gles or empty")
		width     = flag.Uint("width", 512, "render target width")
		height    = flag.Uint("height", 512, "render target height")
		snapshot  = flag.String("snapshot", "", "write the last generation to this PNG file")
		scale     = flag.Int("scale", 8, "snapshot pixels per cell")
		seed      = flag.Uint64("seed", 0, "seed of the first generation, 0 picks one")
		density   = flag.Float64("density", 0.5, "probability that a cell starts alive")
		verbose   = flag.Bool("v", false, "log debug output to stderr")
	)
	flag.Parse()

	for name, v := range map[string]uint{"grid": *grid, "workgroup": *workgroup, "width": *width, "height": *height} {
		if v > math.MaxUint32 {
			log.Fatalf("golife: -%s %d out of range", name, v)
		}
	}

	cfg := config{
		grid:      uint32(*grid),
		workgroup: uint32(*workgroup),
		steps:     *steps,
		interval:  *interval,
		backend:   *backend,
		width:     uint32(*width),
		height:    uint32(*height),
		snapshot:  *snapshot,
		scale:     *scale,
		seed:      *seed,
		density:   *density,
		verbose:   *verbose,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("golife: %v", err)
	}
}

func run(ctx context.Context, cfg config) error {
	if cfg.verbose {
		life.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	d, err := device.Open(device.Options{Backend: cfg.backend, Logger: life.Logger()})
	if err != nil {
		return err
	}
	defer d.Close()

	const format = gputypes.TextureFormatRGBA8Unorm
	target, err := life.NewOffscreenTarget(d.Device, cfg.width, cfg.height, format)
	if err != nil {
		return err
	}
	defer target.Destroy()

	opts := []life.Option{
		life.WithDensity(cfg.density),
		life.WithLimits(d.Info.Limits),
	}
	if cfg.seed != 0 {
		opts = append(opts, life.WithSeed(cfg.seed))
	}

	e, err := life.New(cfg.grid, cfg.workgroup, d.Device, d.Queue, target, format, opts...)
	if err != nil {
		return err
	}
	defer e.Close()

	start := time.Now()
	if err := loop(ctx, e, cfg.steps, cfg.interval); err != nil {
		return err
	}
	elapsed := time.Since(start)

	cells, err := e.Cells(e.Current())
	if err != nil {
		return err
	}
	alive := count(cells)

	p := message.NewPrinter(language.English)
	p.Printf("%s (%s): %d generations of a %dx%d grid in %v\n",
		d.Info.Name, d.Info.Backend, e.Generation(), cfg.grid, cfg.grid, elapsed.Round(time.Millisecond))
	p.Printf("alive: %d of %d cells, seeded with %d\n", alive, len(cells), count(e.Seeded()))

	if cfg.snapshot != "" {
		if err := writeSnapshot(e, cfg.snapshot, cfg.scale); err != nil {
			return err
		}
		p.Printf("snapshot written to %s\n", cfg.snapshot)
	}
	return e.Close()
}

// loop advances e up to steps generations, one per tick when interval is
// positive. An interrupt stops it early without error.
func loop(ctx context.Context, e *life.Engine, steps int, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for range steps {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}
		if err := e.Advance(); err != nil {
			return err
		}
	}
	return nil
}

func writeSnapshot(e *life.Engine, path string, scale int) (err error) {
	img, err := e.Snapshot(e.Current(), scale)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func count(cells []uint32) int {
	n := 0
	for _, c := range cells {
		n += int(c)
	}
	return n
}
