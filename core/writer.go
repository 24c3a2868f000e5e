// Package core contains the ShuffleWriter, Spill's orchestrator for one
// map-task attempt's shuffle write pass.
package core

import (
	"log"
	"time"

	"github.com/go-spill/spill"
	errors "github.com/go-spill/spill/errors"
	"github.com/go-spill/spill/internal/buffer"
	iutil "github.com/go-spill/spill/internal/util"
	uuid "github.com/gofrs/uuid"
	multierror "github.com/hashicorp/go-multierror"
)

type writerState int

const (
	stateCreated writerState = iota
	stateWriting
	stateFlushingFinal
	stateCompleted
	stateFailed
)

// A ShuffleWriter consumes one record stream, routes each record to a
// per-partition buffer, flushes buffers to the durable store when the spill
// policy demands it, and assembles the per-partition length table on
// completion. A ShuffleWriter is created per map-task attempt, is not safe
// for concurrent use, and is discarded after Stop.
type ShuffleWriter struct {
	opts      *WriterOptions
	attemptID string
	buffers   []*buffer.Buffer
	lengths   []int64
	state     writerState
	stopped   bool
	result    *spill.WriteResult
	started   time.Time
	elapsed   time.Duration
}

// CreateShuffleWriter produces a ShuffleWriter for one map-task attempt
func CreateShuffleWriter(opts *WriterOptions) (*ShuffleWriter, error) {
	ensureDefaultWriterOptionsValues(opts)
	if opts.NumPartitions < 1 {
		return nil, errors.ConfigurationError{Message: "NumPartitions must be at least 1"}
	}
	if opts.Store == nil || opts.Serializer == nil || opts.Partitioner == nil || opts.Locator == nil {
		return nil, errors.ConfigurationError{Message: "Store, Serializer, Partitioner and Locator are required"}
	}
	if opts.MapSideCombine && opts.Combiner == nil {
		return nil, errors.ConfigurationError{Message: "Map-side combine is enabled but no Combiner was supplied"}
	}
	id, err := uuid.NewV4()
	if err != nil {
		log.Fatalf("failed to generate UUID for ShuffleWriter: %v", err)
	}
	return &ShuffleWriter{
		opts:      opts,
		attemptID: id.String(),
		buffers:   make([]*buffer.Buffer, opts.NumPartitions),
		lengths:   make([]int64, opts.NumPartitions),
	}, nil
}

// ID retrieves the attempt id of this ShuffleWriter, which disambiguates its
// output from retried or speculative attempts of the same map task
func (w *ShuffleWriter) ID() string {
	return w.attemptID
}

// Write consumes the supplied record stream to exhaustion, then flushes every
// partition buffer in increasing partition order and assembles the
// WriteResult retrievable via Stop(true). Any failure is fatal for the whole
// pass: the error is returned, the writer transitions to a terminal failed
// state, and initialized buffers are closed best-effort.
func (w *ShuffleWriter) Write(records spill.RecordIterator) error {
	if w.stopped {
		return errors.ConfigurationError{Message: "ShuffleWriter has been stopped"}
	}
	if w.state != stateCreated {
		return errors.ConfigurationError{Message: "ShuffleWriter instances cannot be reused across write passes"}
	}
	w.started = time.Now()
	w.state = stateWriting
	if err := w.opts.Store.InitializeShuffle(w.opts.StageID, w.opts.MapTaskID, w.opts.NumPartitions); err != nil {
		return w.fail(err)
	}
	if w.opts.MapSideCombine {
		records = w.opts.Combiner.Combine(records)
	}
	for records.HasNextRecord() {
		rec, err := records.NextRecord()
		if err != nil {
			return w.fail(err)
		}
		partitionID := w.opts.Partitioner.PartitionOf(rec.Key)
		if partitionID < 0 || partitionID >= w.opts.NumPartitions {
			return w.fail(errors.PartitionRangeError{PartitionID: partitionID, NumPartitions: w.opts.NumPartitions})
		}
		b := w.buffers[partitionID]
		if b == nil {
			b = buffer.CreateBuffer(w.opts.Serializer, w.opts.Compressor)
			w.buffers[partitionID] = b
		}
		size, err := b.Insert(rec)
		if err != nil {
			return w.fail(errors.SerializationError{Err: err})
		}
		if w.opts.Policy.ShouldSpill(size) {
			if err := w.spill(partitionID); err != nil {
				return w.fail(err)
			}
		}
	}
	w.state = stateFlushingFinal
	for partitionID := 0; partitionID < w.opts.NumPartitions; partitionID++ {
		b := w.buffers[partitionID]
		if b == nil {
			// partition never received a record
			continue
		}
		if err := w.spill(partitionID); err != nil {
			return w.fail(err)
		}
		w.lengths[partitionID] = b.TotalBytesWritten()
		if err := b.Close(); err != nil {
			return w.fail(err)
		}
	}
	endpoint, err := w.opts.Locator.CurrentEndpoint()
	if err != nil {
		return w.fail(err)
	}
	lengths := make([]int64, len(w.lengths))
	copy(lengths, w.lengths)
	w.result = &spill.WriteResult{
		PartitionLengths: lengths,
		Location: spill.MapLocation{
			ExecutorID: w.opts.ExecutorID,
			Endpoint:   endpoint,
		},
	}
	w.state = stateCompleted
	return nil
}

// spill drains one partition buffer and appends the drained block to the
// durable store, reserving capacity first. Draining an empty buffer is a
// zero-length no-op with no store call.
func (w *ShuffleWriter) spill(partitionID int) error {
	b := w.buffers[partitionID]
	data, err := b.Drain()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	key := w.writeKey(partitionID)
	if err := w.opts.Store.EnsureCapacity(key, int64(len(data))); err != nil {
		return err
	}
	if err := w.opts.Store.Append(key, data); err != nil {
		return err
	}
	w.opts.Log.Debugf("spilled %d bytes for partition %d of stage %d task %d", len(data), partitionID, w.opts.StageID, w.opts.MapTaskID)
	return nil
}

func (w *ShuffleWriter) writeKey(partitionID int) spill.WriteKey {
	return spill.WriteKey{
		StageID:     w.opts.StageID,
		MapTaskID:   w.opts.MapTaskID,
		AttemptID:   w.attemptID,
		PartitionID: partitionID,
	}
}

// fail transitions the writer to its terminal failed state, closing every
// initialized buffer best-effort. The original error is returned unchanged;
// cleanup failures are logged rather than masking it.
func (w *ShuffleWriter) fail(err error) error {
	w.state = stateFailed
	if closeErrs := w.closeBuffers(); closeErrs != nil {
		w.opts.Log.Errorf("cleanup errors after failed write pass:\n%s", iutil.FormatMultiError(closeErrs.WrappedErrors()))
	}
	return err
}

// closeBuffers closes every initialized, not-yet-closed buffer, aggregating
// any close errors
func (w *ShuffleWriter) closeBuffers() *multierror.Error {
	var result *multierror.Error
	for _, b := range w.buffers {
		if b == nil || b.Closed() {
			continue
		}
		if cerr := b.Close(); cerr != nil {
			result = multierror.Append(result, cerr)
		}
	}
	return result
}

// Stop finalizes this ShuffleWriter. The first call records elapsed-time
// accounting, releases any buffers left open by an abandoned pass, and - iff
// success is true and the write pass completed - returns the assembled
// WriteResult. Every subsequent call returns nil and performs no further
// work. Stop never fails: calling Stop(false) after a failed or abandoned
// write is the caller's designated path for reporting map-task failure.
func (w *ShuffleWriter) Stop(success bool) *spill.WriteResult {
	if w.stopped {
		return nil
	}
	w.stopped = true
	if !w.started.IsZero() {
		w.elapsed = time.Since(w.started)
	}
	if closeErrs := w.closeBuffers(); closeErrs != nil {
		w.opts.Log.Errorf("cleanup errors while stopping writer:\n%s", iutil.FormatMultiError(closeErrs.WrappedErrors()))
	}
	if success && w.state == stateCompleted {
		return w.result
	}
	return nil
}

// WriteDuration returns the elapsed time recorded by the first call to Stop,
// or zero if the writer has not been stopped
func (w *ShuffleWriter) WriteDuration() time.Duration {
	return w.elapsed
}
