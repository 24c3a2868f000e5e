package spill

// MergeOperation merges two values which share a key, during a map-side
// combine. existing is the previously accumulated value for the key and
// incoming is the value of the newly consumed Record.
type MergeOperation func(existing interface{}, incoming interface{}) (interface{}, error)
