package core

import (
	"github.com/go-spill/spill"
	"github.com/go-spill/spill/logging"
)

// DefaultSpillThreshold is the partition buffer size, in bytes, at which a
// buffer is flushed to the durable store mid-stream (32 MiB)
const DefaultSpillThreshold = int64(32 * 1024 * 1024)

// WriterOptions configures a ShuffleWriter. Store, Serializer, Partitioner
// and Locator are required. One WriterOptions value configures exactly one
// writer instance (one map-task attempt).
type WriterOptions struct {
	StageID        int                   // id of the shuffle stage this writer belongs to
	MapTaskID      int                   // id of the map task whose output this writer persists
	ExecutorID     string                // identity of the executor running the map task
	NumPartitions  int                   // number of destination partitions. Fixed for the writer's lifetime.
	Store          spill.DurableStore    // the durable store written partitions are appended to
	Serializer     spill.Serializer      // serialization capability for record keys and values
	Partitioner    spill.Partitioner     // assigns each record to a destination partition
	Locator        spill.Locator         // reports the endpoint remote readers fetch from
	MapSideCombine bool                  // whether records are pre-merged by key before routing
	Combiner       spill.Combiner        // the pre-merge stage. Required iff MapSideCombine is set.
	SpillThreshold int64                 // buffer size triggering a mid-stream flush. Defaults to DefaultSpillThreshold.
	Policy         spill.SpillPolicy     // overrides the size-threshold policy entirely, if set
	Compressor     spill.BlockCompressor // optional per-block compression of drained spill bytes
	Log            *logging.Logger       // defaults to an InfoLevel logger
}

// ensureDefaultWriterOptionsValues fills in defaults for certain options if they weren't supplied
func ensureDefaultWriterOptionsValues(opts *WriterOptions) {
	if opts.SpillThreshold <= 0 {
		opts.SpillThreshold = DefaultSpillThreshold
	}
	if opts.Policy == nil {
		opts.Policy = CreateSizeThresholdPolicy(opts.SpillThreshold)
	}
	if opts.Log == nil {
		opts.Log = logging.CreateLogger(logging.InfoLevel)
	}
}
