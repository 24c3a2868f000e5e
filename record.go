package spill

import (
	errors "github.com/go-spill/spill/errors"
)

// A Record is an opaque key/value pair produced by an upstream map task.
// Spill never inspects key or value contents beyond what the supplied
// Partitioner, Combiner and Serializer require.
type Record struct {
	Key   interface{}
	Value interface{}
}

// A RecordIterator iterates over a stream of Records
type RecordIterator interface {
	HasNextRecord() bool         // HasNextRecord returns true iff this RecordIterator can produce another Record
	NextRecord() (Record, error) // NextRecord returns the next Record if one is available, or an error
}

// A Partitioner assigns Records to destination partitions by key. The returned
// id must fall within [0, numPartitions) for the writer consuming it.
type Partitioner interface {
	PartitionOf(key interface{}) int // PartitionOf returns the destination partition id for a key
}

// A Combiner pre-merges Records sharing a key, upstream of partition routing.
// The writer does not implement grouping itself - it forwards iteration to the
// Combiner and consumes its already-merged output stream.
type Combiner interface {
	Combine(records RecordIterator) RecordIterator // Combine consumes a record stream and produces a merged one
}

type recordSliceIterator struct {
	records []Record
	next    int
}

// CreateRecordSliceIterator produces a RecordIterator over a slice of Records
func CreateRecordSliceIterator(records []Record) RecordIterator {
	return &recordSliceIterator{records: records}
}

// HasNextRecord returns true iff this RecordIterator can produce another Record
func (ri *recordSliceIterator) HasNextRecord() bool {
	return ri.next < len(ri.records)
}

// NextRecord returns the next Record if one is available, or an error
func (ri *recordSliceIterator) NextRecord() (Record, error) {
	if ri.next >= len(ri.records) {
		return Record{}, errors.NoMoreRecordsError{}
	}
	rec := ri.records[ri.next]
	ri.next++
	return rec, nil
}
