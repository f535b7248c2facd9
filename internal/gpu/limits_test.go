package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestCheckLimits(t *testing.T) {
	small := gputypes.DefaultLimits()
	small.MaxComputeWorkgroupsPerDimension = 4
	small.MaxStorageBufferBindingSize = 1024

	tests := []struct {
		name     string
		limits   gputypes.Limits
		grid, wg uint32
		want     error
	}{
		{name: "default config", limits: gputypes.DefaultLimits(), grid: 64, wg: 8},
		{name: "uneven grid only warns", limits: gputypes.DefaultLimits(), grid: 36, wg: 8},
		{name: "grid smaller than workgroup", limits: gputypes.DefaultLimits(), grid: 4, wg: 8},
		{name: "zero grid", limits: gputypes.DefaultLimits(), grid: 0, wg: 8, want: ErrInvalidGridSize},
		{name: "zero workgroup", limits: gputypes.DefaultLimits(), grid: 64, wg: 0, want: ErrInvalidWorkgroupSize},
		{name: "too many invocations", limits: gputypes.DefaultLimits(), grid: 64, wg: 32, want: ErrCapability},
		{name: "too many workgroups", limits: small, grid: 8 * 5, wg: 8, want: ErrCapability},
		{name: "storage binding too large", limits: small, grid: 32, wg: 8, want: ErrCapability},
		{name: "zero limits are unchecked", limits: gputypes.Limits{}, grid: 4096, wg: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLimits(tt.limits, tt.grid, tt.wg)
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCellBufferSize(t *testing.T) {
	if got := CellBufferSize(64); got != 64*64*4 {
		t.Errorf("CellBufferSize(64) = %d, want %d", got, 64*64*4)
	}
	if got := DispatchSize(64, 0); got != 0 {
		t.Errorf("DispatchSize with zero workgroup = %d, want 0", got)
	}
}
