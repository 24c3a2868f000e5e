package stores

import (
	"sync"

	"github.com/docker/docker/pkg/locker"
	errors "github.com/go-spill/spill/errors"
	multierror "github.com/hashicorp/go-multierror"
)

// The registry holds one shared FileStore handle per storage path, so that
// the many writers of concurrently running map tasks reuse a single handle
// rather than each opening their own. Handles are created on first lookup and
// live until TeardownSharedFileStores.

var (
	registryPathLocks = locker.New()
	registryLock      sync.Mutex
	registry          = make(map[string]*FileStore)
)

// OpenSharedFileStore returns the process-wide FileStore handle for path,
// creating it on first use
func OpenSharedFileStore(path string, opts *FileStoreOptions) (*FileStore, error) {
	registryPathLocks.Lock(path)
	defer registryPathLocks.Unlock(path)
	registryLock.Lock()
	store, ok := registry[path]
	registryLock.Unlock()
	if ok {
		return store, nil
	}
	store, err := CreateFileStore(path, opts)
	if err != nil {
		return nil, err
	}
	registryLock.Lock()
	registry[path] = store
	registryLock.Unlock()
	return store, nil
}

// LookupSharedFileStore returns the open handle for path without creating one
func LookupSharedFileStore(path string) (*FileStore, error) {
	registryLock.Lock()
	defer registryLock.Unlock()
	store, ok := registry[path]
	if !ok {
		return nil, errors.NoSuchStoreError{Path: path}
	}
	return store, nil
}

// TeardownSharedFileStores closes and discards every registered handle
func TeardownSharedFileStores() error {
	registryLock.Lock()
	handles := registry
	registry = make(map[string]*FileStore)
	registryLock.Unlock()
	var result *multierror.Error
	for _, store := range handles {
		if err := store.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
