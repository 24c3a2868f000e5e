package stores

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io/ioutil"
	"os"
	"path"
	"sync"

	"github.com/go-spill/spill"
	errors "github.com/go-spill/spill/errors"
	multierror "github.com/hashicorp/go-multierror"
)

// Magic is the magic number for partition region files
var Magic = []byte{'s', 'p', 'l', 'f', 's'}

const (
	currentMajor = uint8(0)
	currentMinor = uint8(1)
)

// Region file format:
//
//	Magic: 5 bytes (splfs)
//	Version: 2 bytes (major, minor)
//	[Block]*
//
// where each Block is:
//
//	Length: 4 bytes
//	Data: [Length]byte
//	CRC32: 4 bytes (IEEE, over Data)

// FileStoreOptions configures a FileStore
type FileStoreOptions struct {
	MaxBytes int64 // maximum total reserved bytes across all keys. 0 means unbounded.
}

// FileStore is a file-backed DurableStore. Each WriteKey maps to one region
// file under the store's directory, and each appended block is framed with a
// length prefix and CRC32 trailer so readers can detect torn or corrupt
// writes. Safe for concurrent use by many writers.
type FileStore struct {
	dir      string
	opts     *FileStoreOptions
	lock     sync.Mutex
	handles  map[string]*os.File
	reserved map[string]int64
	used     int64
}

// CreateFileStore produces a FileStore rooted at dir, creating it if necessary
func CreateFileStore(dir string, opts *FileStoreOptions) (*FileStore, error) {
	if opts == nil {
		opts = &FileStoreOptions{}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{
		dir:      dir,
		opts:     opts,
		handles:  make(map[string]*os.File),
		reserved: make(map[string]int64),
	}, nil
}

// Path returns the directory this FileStore is rooted at
func (s *FileStore) Path() string {
	return s.dir
}

// InitializeShuffle establishes the addressing namespace for one map-task attempt
func (s *FileStore) InitializeShuffle(stageID int, mapTaskID int, numPartitions int) error {
	return os.MkdirAll(path.Join(s.dir, fmt.Sprintf("%d_%d", stageID, mapTaskID)), 0755)
}

// EnsureCapacity reserves space ahead of an append
func (s *FileStore) EnsureCapacity(key spill.WriteKey, extraBytes int64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.opts.MaxBytes > 0 && s.used+extraBytes > s.opts.MaxBytes {
		return errors.CapacityError{Key: key.String(), Requested: extraBytes}
	}
	s.reserved[key.String()] += extraBytes
	s.used += extraBytes
	return nil
}

// Append appends one framed block to the addressed partition region
func (s *FileStore) Append(key spill.WriteKey, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	flatKey := key.String()
	if int64(len(data)) > s.reserved[flatKey] {
		return errors.StoreIOError{
			Key: flatKey,
			Err: fmt.Errorf("append of %d bytes exceeds reservation of %d", len(data), s.reserved[flatKey]),
		}
	}
	f, err := s.regionFile(key)
	if err != nil {
		return errors.StoreIOError{Key: flatKey, Err: err}
	}
	frame := make([]byte, 4+len(data)+4)
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)
	binary.BigEndian.PutUint32(frame[4+len(data):], crc32.ChecksumIEEE(data))
	if _, err := f.Write(frame); err != nil {
		return errors.StoreIOError{Key: flatKey, Err: err}
	}
	s.reserved[flatKey] -= int64(len(data))
	return nil
}

// regionFile returns the open handle for a key's region file, creating the
// file (with its header) on first use. Caller must hold the store lock.
func (s *FileStore) regionFile(key spill.WriteKey) (*os.File, error) {
	flatKey := key.String()
	if f, ok := s.handles[flatKey]; ok {
		return f, nil
	}
	p := path.Join(s.dir, fmt.Sprintf("%d_%d", key.StageID, key.MapTaskID), fmt.Sprintf("%s_%d", key.AttemptID, key.PartitionID))
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	header := make([]byte, len(Magic)+2)
	copy(header, Magic)
	header[len(Magic)] = currentMajor
	header[len(Magic)+1] = currentMinor
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	s.handles[flatKey] = f
	return f, nil
}

// Fetch reads back the concatenated payload of every block appended under
// key, verifying the per-block checksums
func (s *FileStore) Fetch(key spill.WriteKey) ([]byte, error) {
	s.lock.Lock()
	if f, ok := s.handles[key.String()]; ok {
		if err := f.Sync(); err != nil {
			s.lock.Unlock()
			return nil, errors.StoreIOError{Key: key.String(), Err: err}
		}
	}
	s.lock.Unlock()
	p := path.Join(s.dir, fmt.Sprintf("%d_%d", key.StageID, key.MapTaskID), fmt.Sprintf("%s_%d", key.AttemptID, key.PartitionID))
	buf, err := ioutil.ReadFile(p)
	if err != nil {
		return nil, errors.StoreIOError{Key: key.String(), Err: err}
	}
	if len(buf) < len(Magic)+2 || string(buf[:len(Magic)]) != string(Magic) {
		return nil, errors.StoreIOError{Key: key.String(), Err: fmt.Errorf("bad region file magic")}
	}
	var out []byte
	offset := len(Magic) + 2
	for offset < len(buf) {
		if len(buf)-offset < 4 {
			return nil, errors.StoreIOError{Key: key.String(), Err: fmt.Errorf("truncated block header")}
		}
		length := int(binary.BigEndian.Uint32(buf[offset:]))
		offset += 4
		if len(buf)-offset < length+4 {
			return nil, errors.StoreIOError{Key: key.String(), Err: fmt.Errorf("truncated block body")}
		}
		data := buf[offset : offset+length]
		offset += length
		crc := binary.BigEndian.Uint32(buf[offset:])
		offset += 4
		if actual := crc32.ChecksumIEEE(data); actual != crc {
			return nil, errors.StoreIOError{Key: key.String(), Err: fmt.Errorf("expected CRC %d, got %d", crc, actual)}
		}
		out = append(out, data...)
	}
	return out, nil
}

// Close closes every open region file handle. The FileStore must not be used
// after Close.
func (s *FileStore) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	var result *multierror.Error
	for flatKey, f := range s.handles {
		if err := f.Close(); err != nil {
			result = multierror.Append(result, errors.StoreIOError{Key: flatKey, Err: err})
		}
	}
	s.handles = make(map[string]*os.File)
	return result.ErrorOrNil()
}
