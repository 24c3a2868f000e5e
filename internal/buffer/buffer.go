package buffer

import (
	"bytes"

	"github.com/go-spill/spill"
	errors "github.com/go-spill/spill/errors"
)

// Buffer accumulates serialized records for one destination partition. A
// Buffer is owned exclusively by one writer for the duration of a write pass
// and is not safe for concurrent use.
type Buffer struct {
	serializer spill.Serializer
	compressor spill.BlockCompressor
	enc        spill.RecordEncoder
	data       bytes.Buffer
	active     bool
	closed     bool
	total      int64
}

// CreateBuffer produces a Buffer which serializes records with the given
// Serializer. If compressor is non-nil, each drained block is compressed
// before being handed to the caller, and the running total counts compressed
// bytes.
func CreateBuffer(serializer spill.Serializer, compressor spill.BlockCompressor) *Buffer {
	return &Buffer{serializer: serializer, compressor: compressor}
}

// Insert serializes a record into this Buffer, lazily initializing the
// encoder on first call, and returns the Buffer's current materialized byte
// size (excluding bytes already drained).
func (b *Buffer) Insert(rec spill.Record) (int64, error) {
	if b.closed {
		return 0, errors.BufferClosedError{}
	}
	if b.enc == nil {
		b.enc = b.serializer.OpenEncoder(&b.data)
	}
	if err := b.enc.Encode(rec); err != nil {
		return 0, err
	}
	b.active = true
	return int64(b.data.Len()), nil
}

// Drain flushes the encoder's internal state, returns the accumulated bytes
// as a single contiguous block and resets the in-memory accumulator. The
// drained length is added to the Buffer's running total. Draining a Buffer
// which has seen no inserts since the last Drain returns an empty block and
// leaves the total untouched.
func (b *Buffer) Drain() ([]byte, error) {
	if b.closed {
		return nil, errors.BufferClosedError{}
	}
	if b.enc == nil || !b.active {
		return nil, nil
	}
	if err := b.enc.Flush(); err != nil {
		return nil, err
	}
	out := make([]byte, b.data.Len())
	copy(out, b.data.Bytes())
	b.data.Reset()
	b.active = false
	if b.compressor != nil {
		compressed, err := b.compressor.Compress(out)
		if err != nil {
			return nil, err
		}
		out = compressed
	}
	b.total += int64(len(out))
	return out, nil
}

// TotalBytesWritten returns the cumulative length of every block drained from
// this Buffer. The total survives drains and is never reset - it becomes the
// partition's entry in the final length table.
func (b *Buffer) TotalBytesWritten() int64 {
	return b.total
}

// Closed returns true iff Close has been called on this Buffer
func (b *Buffer) Closed() bool {
	return b.closed
}

// Close releases encoder resources. Must be called at most once, after which
// no further operations on this Buffer are valid.
func (b *Buffer) Close() error {
	if b.closed {
		return errors.BufferClosedError{}
	}
	b.closed = true
	if b.enc != nil {
		return b.enc.Close()
	}
	return nil
}
