package gpu

import (
	"github.com/gogpu/gputypes"
)

// DispatchSize returns the number of workgroups per dimension for a square
// grid. Cells beyond the last full workgroup are not dispatched.
func DispatchSize(gridSize, workgroupSize uint32) uint32 {
	if workgroupSize == 0 {
		return 0
	}
	return gridSize / workgroupSize
}

// CellBufferSize returns the byte size of one cell state buffer.
func CellBufferSize(gridSize uint32) uint64 {
	return uint64(gridSize) * uint64(gridSize) * cellBytes
}

// CheckLimits validates a grid and workgroup configuration against device
// limits. Violations are reported as ErrCapability. A configuration that
// leaves cells undispatched is only logged.
func CheckLimits(limits gputypes.Limits, gridSize, workgroupSize uint32) error {
	if gridSize == 0 {
		return ErrInvalidGridSize
	}
	if workgroupSize == 0 {
		return ErrInvalidWorkgroupSize
	}

	invocations := uint64(workgroupSize) * uint64(workgroupSize)
	if limit := limits.MaxComputeInvocationsPerWorkgroup; limit > 0 && invocations > uint64(limit) {
		return wrapf(ErrCapability, nil, "workgroup %dx%d needs %d invocations, device allows %d",
			workgroupSize, workgroupSize, invocations, limit)
	}
	if limit := limits.MaxComputeWorkgroupSizeX; limit > 0 && workgroupSize > limit {
		return wrapf(ErrCapability, nil, "workgroup width %d exceeds %d", workgroupSize, limit)
	}
	if limit := limits.MaxComputeWorkgroupSizeY; limit > 0 && workgroupSize > limit {
		return wrapf(ErrCapability, nil, "workgroup height %d exceeds %d", workgroupSize, limit)
	}

	dispatch := DispatchSize(gridSize, workgroupSize)
	if limit := limits.MaxComputeWorkgroupsPerDimension; limit > 0 && dispatch > limit {
		return wrapf(ErrCapability, nil, "dispatch of %d workgroups per dimension exceeds %d", dispatch, limit)
	}

	size := CellBufferSize(gridSize)
	if limit := limits.MaxStorageBufferBindingSize; limit > 0 && size > limit {
		return wrapf(ErrCapability, nil, "cell buffer of %d bytes exceeds storage binding limit %d", size, limit)
	}
	if limit := limits.MaxBufferSize; limit > 0 && size > limit {
		return wrapf(ErrCapability, nil, "cell buffer of %d bytes exceeds buffer limit %d", size, limit)
	}

	if gridSize%workgroupSize != 0 {
		slogger().Warn("gpu: grid size is not a multiple of the workgroup size, edge cells are not simulated",
			"grid", gridSize, "workgroup", workgroupSize, "simulated", dispatch*workgroupSize)
	}
	return nil
}
