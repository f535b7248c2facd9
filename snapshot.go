package life

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// Snapshot reads cell buffer A (0) or B (1) back and draws it the way the
// cell shader does: live cells in a gradient over the grid position, dead
// cells in the background color. Row 0 of the grid is the bottom row of the
// image. Each cell becomes a scale x scale block.
//
// Snapshot blocks until the device is idle.
func (e *Engine) Snapshot(index, scale int) (*image.RGBA, error) {
	cells, err := e.Cells(index)
	if err != nil {
		return nil, err
	}
	return RenderCells(cells, e.GridSize(), scale, e.background), nil
}

// RenderCells draws a gridSize x gridSize cell slice into an image scaled by
// scale. A scale below 1 is treated as 1. Missing cells are dead.
func RenderCells(cells []uint32, gridSize uint32, scale int, background gputypes.Color) *image.RGBA {
	g := int(gridSize)
	grid := image.NewRGBA(image.Rect(0, 0, g, g))
	bg := toRGBA(background)

	for y := 0; y < g; y++ {
		for x := 0; x < g; x++ {
			c := bg
			if i := y*g + x; i < len(cells) && cells[i] != 0 {
				c = CellColor(uint32(x), uint32(y), gridSize)
			}
			grid.SetRGBA(x, g-1-y, c)
		}
	}

	if scale <= 1 {
		return grid
	}
	dst := image.NewRGBA(image.Rect(0, 0, g*scale, g*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), grid, grid.Bounds(), draw.Src, nil)
	return dst
}

// CellColor returns the color of a live cell at column x, row y.
func CellColor(x, y, gridSize uint32) color.RGBA {
	fx := float64(x) / float64(gridSize)
	fy := float64(y) / float64(gridSize)
	return color.RGBA{R: unit(fx), G: unit(fy), B: unit(1 - fx), A: 255}
}

// toRGBA converts a straight-alpha clear color to premultiplied 8-bit.
func toRGBA(c gputypes.Color) color.RGBA {
	return color.RGBA{R: unit(c.R * c.A), G: unit(c.G * c.A), B: unit(c.B * c.A), A: unit(c.A)}
}

// unit converts a [0, 1] channel to 8 bits.
func unit(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
