// Package spill contains the core components of Spill, a partitioned
// spill-writer for the write side of a distributed data shuffle. This root
// package defines the capability interfaces a host framework supplies to a
// writer (serialization, partitioning, combining, durable storage and
// location reporting), as well as the types a completed write pass produces,
// and is an excellent overview of Spill's key concepts.
package spill
