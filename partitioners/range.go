package partitioners

import (
	"github.com/go-spill/spill"
)

// rangePartitioner assigns integer-keyed records to contiguous key ranges
type rangePartitioner struct {
	numPartitions int
	minKey        int64
	maxKey        int64
}

// CreateRangePartitioner produces a Partitioner which divides the key span
// [minKey, maxKey] into numPartitions contiguous ranges. Keys outside the
// span clamp to the end partitions; non-integer keys land in partition 0.
func CreateRangePartitioner(numPartitions int, minKey int64, maxKey int64) spill.Partitioner {
	return &rangePartitioner{numPartitions: numPartitions, minKey: minKey, maxKey: maxKey}
}

// PartitionOf returns the destination partition id for a key
func (p *rangePartitioner) PartitionOf(key interface{}) int {
	var k int64
	switch v := key.(type) {
	case int:
		k = int64(v)
	case int32:
		k = int64(v)
	case int64:
		k = v
	default:
		return 0
	}
	if k <= p.minKey {
		return 0
	}
	if k >= p.maxKey {
		return p.numPartitions - 1
	}
	// unsigned arithmetic so wide spans cannot overflow; a span of 0 means
	// the range covers every int64 value
	span := uint64(p.maxKey) - uint64(p.minKey) + 1
	var width uint64
	if span == 0 {
		width = ^uint64(0)/uint64(p.numPartitions) + 1
	} else if width = span / uint64(p.numPartitions); width == 0 {
		width = 1
	}
	partitionID := int((uint64(k) - uint64(p.minKey)) / width)
	if partitionID >= p.numPartitions {
		partitionID = p.numPartitions - 1
	}
	return partitionID
}
