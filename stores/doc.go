// Package stores provides reference DurableStore implementations for Spill
// writers: a bounded in-memory store suitable for tests and single-process
// runs, a file-backed append store with CRC-framed blocks, and a process-wide
// registry of shared file store handles keyed by storage path.
package stores
