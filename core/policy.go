package core

import (
	"github.com/go-spill/spill"
)

// sizeThresholdPolicy spills any buffer which has reached a fixed byte size.
// This caps the peak memory held by a single partition buffer independent of
// key cardinality or value size, at the cost of potentially many small
// appends to the durable store for skewed partitions.
type sizeThresholdPolicy struct {
	threshold int64
}

// CreateSizeThresholdPolicy produces a SpillPolicy which flushes buffers
// once they reach threshold bytes
func CreateSizeThresholdPolicy(threshold int64) spill.SpillPolicy {
	return &sizeThresholdPolicy{threshold: threshold}
}

// ShouldSpill returns true iff a buffer of the given size must be flushed
func (p *sizeThresholdPolicy) ShouldSpill(bufferSizeBytes int64) bool {
	return bufferSizeBytes >= p.threshold
}
