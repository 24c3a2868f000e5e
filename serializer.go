package spill

import "io"

// A Serializer opens RecordEncoders which write Records to a byte stream.
// Serializers are supplied by the host framework - Spill treats record
// contents as opaque and delegates all encoding decisions to this capability.
type Serializer interface {
	OpenEncoder(w io.Writer) RecordEncoder // OpenEncoder produces a RecordEncoder targeting w
}

// A RecordEncoder serializes Records to an underlying write stream
type RecordEncoder interface {
	Encode(rec Record) error // Encode serializes a single Record
	Flush() error            // Flush materializes any bytes buffered within the encoder
	Close() error            // Close releases encoder resources. Must be called at most once.
}
