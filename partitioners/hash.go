package partitioners

import (
	"fmt"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/go-spill/spill"
	iutil "github.com/go-spill/spill/internal/util"
)

// hashPartitioner assigns records to partitions by xxhash of their key bytes
type hashPartitioner struct {
	numPartitions int
}

// CreateHashPartitioner produces a Partitioner which hashes key bytes with
// xxhash and buckets the result into [0, numPartitions). Keys with no stable
// byte representation are hashed via their printed form.
func CreateHashPartitioner(numPartitions int) spill.Partitioner {
	return &hashPartitioner{numPartitions: numPartitions}
}

// PartitionOf returns the destination partition id for a key
func (p *hashPartitioner) PartitionOf(key interface{}) int {
	buf, err := iutil.KeyBytes(key)
	if err != nil {
		buf = []byte(fmt.Sprintf("%v", key))
	}
	return int(xxhash.Sum64(buf) % uint64(p.numPartitions))
}
