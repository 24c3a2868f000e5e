package spill

import "fmt"

// A WriteKey addresses one partition region within a DurableStore. AttemptID
// is a fresh identifier per writer instance, so that retried or speculative
// map-task attempts never collide with one another in the store.
type WriteKey struct {
	StageID     int
	MapTaskID   int
	AttemptID   string
	PartitionID int
}

// String returns a textual representation of this WriteKey, suitable for use
// as a flat storage key
func (k WriteKey) String() string {
	return fmt.Sprintf("%d_%d_%s_%d", k.StageID, k.MapTaskID, k.AttemptID, k.PartitionID)
}

// A DurableStore is an append-only, key-addressed byte store backing written
// shuffle partitions. Implementations must preserve append order per WriteKey
// as issued by a single writer, and must be safe for concurrent use by many
// writer instances.
type DurableStore interface {
	InitializeShuffle(stageID int, mapTaskID int, numPartitions int) error // InitializeShuffle establishes the addressing namespace for one map-task attempt
	EnsureCapacity(key WriteKey, extraBytes int64) error                   // EnsureCapacity reserves space ahead of an append
	Append(key WriteKey, data []byte) error                                // Append appends bytes to the addressed partition region
}
