package spill

// A SpillPolicy decides, after each record insertion, whether a partition
// buffer must be flushed to the durable store now. Implementations must be
// pure functions of the supplied size - the writer consults the policy once
// per insertion.
type SpillPolicy interface {
	ShouldSpill(bufferSizeBytes int64) bool // ShouldSpill returns true iff a buffer of the given size must be flushed
}
