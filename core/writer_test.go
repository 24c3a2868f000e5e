package core

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/go-spill/spill"
	"github.com/go-spill/spill/combiners"
	errors "github.com/go-spill/spill/errors"
	"github.com/go-spill/spill/serializers"
	"github.com/go-spill/spill/stores"
	"github.com/go-spill/spill/transport"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// fixedPartitioner routes keys via an explicit assignment table
type fixedPartitioner struct {
	assignments map[interface{}]int
}

func (p *fixedPartitioner) PartitionOf(key interface{}) int {
	return p.assignments[key]
}

// countingIterator tracks how many records a writer consumed
type countingIterator struct {
	inner    spill.RecordIterator
	consumed int
}

func (ci *countingIterator) HasNextRecord() bool {
	return ci.inner.HasNextRecord()
}

func (ci *countingIterator) NextRecord() (spill.Record, error) {
	rec, err := ci.inner.NextRecord()
	if err == nil {
		ci.consumed++
	}
	return rec, err
}

// closeTrackingSerializer counts the encoders it opens and the Close calls
// they receive
type closeTrackingSerializer struct {
	inner  spill.Serializer
	opened int
	closed int
}

func (s *closeTrackingSerializer) OpenEncoder(w io.Writer) spill.RecordEncoder {
	s.opened++
	return &closeTrackingEncoder{RecordEncoder: s.inner.OpenEncoder(w), serializer: s}
}

type closeTrackingEncoder struct {
	spill.RecordEncoder
	serializer *closeTrackingSerializer
}

func (e *closeTrackingEncoder) Close() error {
	e.serializer.closed++
	return e.RecordEncoder.Close()
}

// appendFailingStore fails every Append with a StoreIOError
type appendFailingStore struct {
	*stores.MemoryStore
}

func (s *appendFailingStore) Append(key spill.WriteKey, data []byte) error {
	return errors.StoreIOError{Key: key.String(), Err: fmt.Errorf("injected append failure")}
}

// skewedRecords is 10 records distributed [3, 2, 0, 5] across 4 partitions
// by skewedPartitioner
func skewedRecords() []spill.Record {
	records := make([]spill.Record, 10)
	for i := range records {
		records[i] = spill.Record{Key: fmt.Sprintf("k%d", i), Value: fmt.Sprintf("v%d", i)}
	}
	return records
}

func skewedPartitioner() spill.Partitioner {
	return &fixedPartitioner{assignments: map[interface{}]int{
		"k0": 0, "k1": 0, "k2": 0,
		"k3": 1, "k4": 1,
		"k5": 3, "k6": 3, "k7": 3, "k8": 3, "k9": 3,
	}}
}

func createTestWriterOptions(store spill.DurableStore, numPartitions int, partitioner spill.Partitioner) *WriterOptions {
	return &WriterOptions{
		StageID:       1,
		MapTaskID:     7,
		ExecutorID:    "executor-0",
		NumPartitions: numPartitions,
		Store:         store,
		Serializer:    serializers.CreateBinarySerializer(),
		Partitioner:   partitioner,
		Locator:       transport.CreateStaticLocator("10.0.0.5", 7337, "rack-a"),
	}
}

func partitionKey(w *ShuffleWriter, opts *WriterOptions, partitionID int) spill.WriteKey {
	return spill.WriteKey{
		StageID:     opts.StageID,
		MapTaskID:   opts.MapTaskID,
		AttemptID:   w.ID(),
		PartitionID: partitionID,
	}
}

func TestWriteAssemblesLengthTable(t *testing.T) {
	store := stores.CreateMemoryStore(nil)
	opts := createTestWriterOptions(store, 4, skewedPartitioner())
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	require.Nil(t, w.Write(spill.CreateRecordSliceIterator(skewedRecords())))
	result := w.Stop(true)
	require.NotNil(t, result)
	require.Equal(t, 4, len(result.PartitionLengths))
	require.Equal(t, int64(0), result.PartitionLengths[2])
	// no bytes lost or duplicated across partitions
	sum := int64(0)
	for _, l := range result.PartitionLengths {
		require.True(t, l >= 0)
		sum += l
	}
	require.Equal(t, store.TotalBytes(), sum)
	// each partition region holds exactly the records routed to it
	expectedCounts := []int{3, 2, 0, 5}
	for partitionID, expected := range expectedCounts {
		data := store.PartitionBytes(partitionKey(w, opts, partitionID))
		require.Equal(t, result.PartitionLengths[partitionID], int64(len(data)))
		records, err := serializers.DecodeBinaryRecords(data)
		require.Nil(t, err)
		require.Equal(t, expected, len(records))
	}
	// the location pairs the executor identity with the reported endpoint
	require.Equal(t, "executor-0", result.Location.ExecutorID)
	require.Equal(t, "10.0.0.5", result.Location.Endpoint.Host)
	require.Equal(t, 7337, result.Location.Endpoint.Port)
	require.Equal(t, "rack-a", result.Location.Endpoint.Topology)
}

func TestLengthTableIsThresholdInvariant(t *testing.T) {
	eagerStore := stores.CreateMemoryStore(nil)
	eagerOpts := createTestWriterOptions(eagerStore, 4, skewedPartitioner())
	eagerOpts.SpillThreshold = 1 // every insert spills
	eager, err := CreateShuffleWriter(eagerOpts)
	require.Nil(t, err)
	require.Nil(t, eager.Write(spill.CreateRecordSliceIterator(skewedRecords())))

	lazyStore := stores.CreateMemoryStore(nil)
	lazyOpts := createTestWriterOptions(lazyStore, 4, skewedPartitioner())
	lazy, err := CreateShuffleWriter(lazyOpts)
	require.Nil(t, err)
	require.Nil(t, lazy.Write(spill.CreateRecordSliceIterator(skewedRecords())))

	eagerResult := eager.Stop(true)
	lazyResult := lazy.Stop(true)
	require.NotNil(t, eagerResult)
	require.NotNil(t, lazyResult)
	require.Equal(t, lazyResult.PartitionLengths, eagerResult.PartitionLengths)
	// the eager run appended one block per record, the lazy run one per partition
	require.Equal(t, 5, len(eagerStore.Blocks(partitionKey(eager, eagerOpts, 3))))
	require.Equal(t, 1, len(lazyStore.Blocks(partitionKey(lazy, lazyOpts, 3))))
}

func TestAppendOrderMatchesDrainOrder(t *testing.T) {
	store := stores.CreateMemoryStore(nil)
	opts := createTestWriterOptions(store, 1, &fixedPartitioner{assignments: map[interface{}]int{}})
	opts.SpillThreshold = 1
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	records := make([]spill.Record, 5)
	for i := range records {
		records[i] = spill.Record{Key: "k", Value: int64(i)}
	}
	require.Nil(t, w.Write(spill.CreateRecordSliceIterator(records)))
	blocks := store.Blocks(partitionKey(w, opts, 0))
	require.Equal(t, 5, len(blocks))
	for i, block := range blocks {
		decoded, err := serializers.DecodeBinaryRecords(block)
		require.Nil(t, err)
		require.Equal(t, 1, len(decoded))
		require.Equal(t, int64(i), decoded[0].Value)
	}
}

func TestMapSideCombine(t *testing.T) {
	store := stores.CreateMemoryStore(nil)
	opts := createTestWriterOptions(store, 1, &fixedPartitioner{assignments: map[interface{}]int{}})
	opts.MapSideCombine = true
	opts.Combiner = combiners.CreateMergeCombiner(func(existing interface{}, incoming interface{}) (interface{}, error) {
		return existing.(int64) + incoming.(int64), nil
	})
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	records := []spill.Record{
		{Key: "k1", Value: int64(1)},
		{Key: "k1", Value: int64(2)},
		{Key: "k2", Value: int64(5)},
	}
	require.Nil(t, w.Write(spill.CreateRecordSliceIterator(records)))
	decoded, err := serializers.DecodeBinaryRecords(store.PartitionBytes(partitionKey(w, opts, 0)))
	require.Nil(t, err)
	require.Equal(t, 2, len(decoded))
	require.Equal(t, "k1", decoded[0].Key)
	require.Equal(t, int64(3), decoded[0].Value)
	require.Equal(t, "k2", decoded[1].Key)
	require.Equal(t, int64(5), decoded[1].Value)
}

func TestMapSideCombineRequiresCombiner(t *testing.T) {
	opts := createTestWriterOptions(stores.CreateMemoryStore(nil), 1, skewedPartitioner())
	opts.MapSideCombine = true
	_, err := CreateShuffleWriter(opts)
	require.NotNil(t, err)
	_, ok := err.(errors.ConfigurationError)
	require.True(t, ok)
}

func TestOutOfRangePartitionFailsImmediately(t *testing.T) {
	opts := createTestWriterOptions(stores.CreateMemoryStore(nil), 2, &fixedPartitioner{
		assignments: map[interface{}]int{"good": 0, "bad": 2},
	})
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	records := &countingIterator{inner: spill.CreateRecordSliceIterator([]spill.Record{
		{Key: "good", Value: "v"},
		{Key: "bad", Value: "v"},
		{Key: "good", Value: "v"},
	})}
	err = w.Write(records)
	require.NotNil(t, err)
	rangeErr, ok := err.(errors.PartitionRangeError)
	require.True(t, ok)
	require.Equal(t, 2, rangeErr.PartitionID)
	require.Equal(t, 2, rangeErr.NumPartitions)
	// the pass aborted before consuming any record past the offending one
	require.Equal(t, 2, records.consumed)
	require.Nil(t, w.Stop(false))
}

func TestSerializationFailureAborts(t *testing.T) {
	opts := createTestWriterOptions(stores.CreateMemoryStore(nil), 1, &fixedPartitioner{assignments: map[interface{}]int{}})
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	err = w.Write(spill.CreateRecordSliceIterator([]spill.Record{
		{Key: "k", Value: make(chan int)},
	}))
	require.NotNil(t, err)
	_, ok := err.(errors.SerializationError)
	require.True(t, ok)
	require.Nil(t, w.Stop(true))
}

func TestFailedWriteClosesInitializedBuffers(t *testing.T) {
	serializer := &closeTrackingSerializer{inner: serializers.CreateBinarySerializer()}
	opts := createTestWriterOptions(stores.CreateMemoryStore(nil), 3, &fixedPartitioner{
		assignments: map[interface{}]int{"k0": 0, "k1": 1, "boom": 1},
	})
	opts.Serializer = serializer
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	err = w.Write(spill.CreateRecordSliceIterator([]spill.Record{
		{Key: "k0", Value: "v"},
		{Key: "k1", Value: "v"},
		{Key: "boom", Value: make(chan int)},
	}))
	require.NotNil(t, err)
	_, ok := err.(errors.SerializationError)
	require.True(t, ok)
	// both initialized partition buffers released their encoders
	require.Equal(t, 2, serializer.opened)
	require.Equal(t, 2, serializer.closed)
	require.Nil(t, w.Stop(false))
}

func TestStoreErrorsPropagate(t *testing.T) {
	store := &appendFailingStore{MemoryStore: stores.CreateMemoryStore(nil)}
	opts := createTestWriterOptions(store, 1, &fixedPartitioner{assignments: map[interface{}]int{}})
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	err = w.Write(spill.CreateRecordSliceIterator([]spill.Record{{Key: "k", Value: "v"}}))
	require.NotNil(t, err)
	_, ok := err.(errors.StoreIOError)
	require.True(t, ok)
	require.Nil(t, w.Stop(false))
}

func TestCapacityErrorPropagates(t *testing.T) {
	store := stores.CreateMemoryStore(&stores.MemoryStoreOptions{Capacity: 4})
	opts := createTestWriterOptions(store, 1, &fixedPartitioner{assignments: map[interface{}]int{}})
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	err = w.Write(spill.CreateRecordSliceIterator([]spill.Record{{Key: "k", Value: "a value wider than the store"}}))
	require.NotNil(t, err)
	_, ok := err.(errors.CapacityError)
	require.True(t, ok)
}

func TestStopIsIdempotent(t *testing.T) {
	opts := createTestWriterOptions(stores.CreateMemoryStore(nil), 4, skewedPartitioner())
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	require.Nil(t, w.Write(spill.CreateRecordSliceIterator(skewedRecords())))
	first := w.Stop(true)
	require.NotNil(t, first)
	elapsed := w.WriteDuration()
	require.True(t, elapsed > 0)
	time.Sleep(5 * time.Millisecond)
	require.Nil(t, w.Stop(true))
	// time accounting happens once, on the first call
	require.Equal(t, elapsed, w.WriteDuration())
}

func TestWriterIsSingleUse(t *testing.T) {
	opts := createTestWriterOptions(stores.CreateMemoryStore(nil), 4, skewedPartitioner())
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	require.Nil(t, w.Write(spill.CreateRecordSliceIterator(skewedRecords())))
	err = w.Write(spill.CreateRecordSliceIterator(skewedRecords()))
	require.NotNil(t, err)
	_, ok := err.(errors.ConfigurationError)
	require.True(t, ok)
}

func TestEmptyRecordStream(t *testing.T) {
	store := stores.CreateMemoryStore(nil)
	opts := createTestWriterOptions(store, 3, skewedPartitioner())
	w, err := CreateShuffleWriter(opts)
	require.Nil(t, err)
	require.Nil(t, w.Write(spill.CreateRecordSliceIterator(nil)))
	result := w.Stop(true)
	require.NotNil(t, result)
	require.Equal(t, []int64{0, 0, 0}, result.PartitionLengths)
	require.Equal(t, int64(0), store.TotalBytes())
}

func TestConcurrentWritersShareStore(t *testing.T) {
	store := stores.CreateMemoryStore(nil)
	var group errgroup.Group
	for task := 0; task < 4; task++ {
		taskID := task
		group.Go(func() error {
			opts := createTestWriterOptions(store, 1, &fixedPartitioner{assignments: map[interface{}]int{}})
			opts.MapTaskID = taskID
			opts.SpillThreshold = 32
			w, err := CreateShuffleWriter(opts)
			if err != nil {
				return err
			}
			records := make([]spill.Record, 50)
			for i := range records {
				records[i] = spill.Record{Key: fmt.Sprintf("t%d-k%d", taskID, i), Value: int64(i)}
			}
			if err := w.Write(spill.CreateRecordSliceIterator(records)); err != nil {
				return err
			}
			result := w.Stop(true)
			if result == nil {
				return fmt.Errorf("task %d produced no result", taskID)
			}
			expected := int64(len(store.PartitionBytes(partitionKey(w, opts, 0))))
			if result.PartitionLengths[0] != expected {
				return fmt.Errorf("task %d length table mismatch: %d != %d", taskID, result.PartitionLengths[0], expected)
			}
			return nil
		})
	}
	require.Nil(t, group.Wait())
}
