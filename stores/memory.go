package stores

import (
	"fmt"
	"sync"

	"github.com/go-spill/spill"
	errors "github.com/go-spill/spill/errors"
)

// MemoryStoreOptions configures a MemoryStore
type MemoryStoreOptions struct {
	Capacity int64 // maximum total reserved bytes across all keys. 0 means unbounded.
}

// MemoryStore is an in-memory DurableStore. It preserves append order per
// WriteKey and is safe for concurrent use by many writers. Appends exceeding
// their reservation fail, enforcing the two-step reserve-then-append contract.
type MemoryStore struct {
	lock     sync.Mutex
	opts     *MemoryStoreOptions
	shuffles map[string]int
	reserved map[spill.WriteKey]int64
	blocks   map[spill.WriteKey][][]byte
	used     int64
}

// CreateMemoryStore produces an empty MemoryStore
func CreateMemoryStore(opts *MemoryStoreOptions) *MemoryStore {
	if opts == nil {
		opts = &MemoryStoreOptions{}
	}
	return &MemoryStore{
		opts:     opts,
		shuffles: make(map[string]int),
		reserved: make(map[spill.WriteKey]int64),
		blocks:   make(map[spill.WriteKey][][]byte),
	}
}

// InitializeShuffle establishes the addressing namespace for one map-task attempt
func (s *MemoryStore) InitializeShuffle(stageID int, mapTaskID int, numPartitions int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.shuffles[fmt.Sprintf("%d_%d", stageID, mapTaskID)] = numPartitions
	return nil
}

// EnsureCapacity reserves space ahead of an append
func (s *MemoryStore) EnsureCapacity(key spill.WriteKey, extraBytes int64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.opts.Capacity > 0 && s.used+extraBytes > s.opts.Capacity {
		return errors.CapacityError{Key: key.String(), Requested: extraBytes}
	}
	s.reserved[key] += extraBytes
	s.used += extraBytes
	return nil
}

// Append appends bytes to the addressed partition region
func (s *MemoryStore) Append(key spill.WriteKey, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if int64(len(data)) > s.reserved[key] {
		return errors.StoreIOError{
			Key: key.String(),
			Err: fmt.Errorf("append of %d bytes exceeds reservation of %d", len(data), s.reserved[key]),
		}
	}
	s.reserved[key] -= int64(len(data))
	block := make([]byte, len(data))
	copy(block, data)
	s.blocks[key] = append(s.blocks[key], block)
	return nil
}

// Blocks returns the blocks appended under key, in append order
func (s *MemoryStore) Blocks(key spill.WriteKey) [][]byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.blocks[key]
}

// PartitionBytes returns the concatenation of every block appended under key
func (s *MemoryStore) PartitionBytes(key spill.WriteKey) []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	var out []byte
	for _, block := range s.blocks[key] {
		out = append(out, block...)
	}
	return out
}

// TotalBytes returns the total number of bytes appended across all keys
func (s *MemoryStore) TotalBytes() int64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	total := int64(0)
	for _, blocks := range s.blocks {
		for _, block := range blocks {
			total += int64(len(block))
		}
	}
	return total
}
