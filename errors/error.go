package errors

import (
	"fmt"
)

// ConfigurationError occurs when a ShuffleWriter is constructed or used with
// an invalid configuration, such as map-side combine being enabled without a
// Combiner being supplied
type ConfigurationError struct{ Message string }

// Error returns a textual representation of this ConfigurationError
func (e ConfigurationError) Error() string {
	return e.Message
}

// SerializationError occurs when a Record's key or value cannot be serialized
type SerializationError struct{ Err error }

// Error returns a textual representation of this SerializationError
func (e SerializationError) Error() string {
	return fmt.Sprintf("Unable to serialize record: %v", e.Err)
}

// Unwrap returns the underlying serializer error
func (e SerializationError) Unwrap() error {
	return e.Err
}

// PartitionRangeError occurs when a Partitioner returns a partition id outside
// of [0, NumPartitions)
type PartitionRangeError struct {
	PartitionID   int
	NumPartitions int
}

// Error returns a textual representation of this PartitionRangeError
func (e PartitionRangeError) Error() string {
	return fmt.Sprintf("Partition id %d is outside of range [0, %d)", e.PartitionID, e.NumPartitions)
}

// CapacityError occurs when the durable store cannot grow a partition region
// to accommodate a reservation
type CapacityError struct {
	Key       string
	Requested int64
}

// Error returns a textual representation of this CapacityError
func (e CapacityError) Error() string {
	return fmt.Sprintf("Store cannot reserve %d additional bytes for key %s", e.Requested, e.Key)
}

// StoreIOError occurs when the durable store fails to append or read back data
type StoreIOError struct {
	Key string
	Err error
}

// Error returns a textual representation of this StoreIOError
func (e StoreIOError) Error() string {
	return fmt.Sprintf("Store I/O failure for key %s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying store error
func (e StoreIOError) Unwrap() error {
	return e.Err
}

// BufferClosedError occurs when a partition buffer is operated on after Close
type BufferClosedError struct{}

// Error returns a textual representation of this BufferClosedError
func (e BufferClosedError) Error() string {
	return "Partition buffer is closed"
}

// NoMoreRecordsError occurs when there are no more records in a RecordIterator
type NoMoreRecordsError struct{}

// Error returns a textual representation of this NoMoreRecordsError
func (e NoMoreRecordsError) Error() string {
	return "No more records"
}

// NoSuchStoreError occurs when a store handle is requested from the registry
// for a path which has no open handle
type NoSuchStoreError struct{ Path string }

// Error returns a textual representation of this NoSuchStoreError
func (e NoSuchStoreError) Error() string {
	return fmt.Sprintf("No open store handle for path %s", e.Path)
}
