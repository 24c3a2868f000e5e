package spill

// A MapLocation pairs the endpoint of a completed write pass with the
// identity of the executor which performed it
type MapLocation struct {
	ExecutorID string
	Endpoint   Endpoint
}

// A WriteResult summarizes one completed write pass: the total bytes written
// to the durable store for each partition (index = partition id), plus the
// location remote readers should fetch from. A WriteResult is immutable once
// returned and is produced exactly once per successful pass.
type WriteResult struct {
	PartitionLengths []int64
	Location         MapLocation
}
