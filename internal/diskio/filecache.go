package diskio

import (
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/simplelru"
	"github.com/uber-go/tally"
)

// fileCacheEntry is {handle, dirty, optional_mmap, allocated} per §3.
type fileCacheEntry struct {
	path      string
	handle    *os.File
	dirty     bool
	allocated bool
	mmap      []byte // non-nil when a read-only mapping is in effect
}

// FileCache is an LRU of open file handles keyed by absolute path. It is
// owned exclusively by the executor; no external reader exists, so it needs
// no internal locking beyond what's required to satisfy the LRU eviction
// callback signature.
type FileCache struct {
	mu       sync.Mutex
	lru      *lru.LRU
	capacity int
	stats    tally.Scope
}

// NewFileCache returns a FileCache bounded to capacity open handles.
func NewFileCache(capacity int, stats tally.Scope) (*FileCache, error) {
	fc := &FileCache{capacity: capacity, stats: stats}
	l, err := lru.NewLRU(capacity, fc.onEvict)
	if err != nil {
		return nil, err
	}
	fc.lru = l
	return fc, nil
}

func (fc *FileCache) onEvict(key interface{}, value interface{}) {
	e := value.(*fileCacheEntry)
	fc.closeEntry(e)
	if fc.stats != nil {
		fc.stats.Counter("file_cache_evictions").Inc(1)
	}
}

func (fc *FileCache) closeEntry(e *fileCacheEntry) {
	if e.dirty {
		e.handle.Sync()
		e.dirty = false
	}
	if e.mmap != nil {
		munmap(e.mmap)
		e.mmap = nil
	}
	e.handle.Close()
}

// getOrOpen returns the cache entry for path, opening (and, for writes,
// creating) it if absent. Eviction of the least-recently-used entry occurs
// automatically once the cache is at capacity.
func (fc *FileCache) getOrOpen(path string, write bool) (*fileCacheEntry, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if v, ok := fc.lru.Get(path); ok {
		return v.(*fileCacheEntry), nil
	}

	if write {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, newIOErr(err)
		}
	}
	flags := os.O_RDONLY
	if write {
		flags = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{KindNotFound, err}
		}
		return nil, newIOErr(err)
	}
	e := &fileCacheEntry{path: path, handle: f}
	fc.lru.Add(path, e)
	return e, nil
}

// WriteRange opens path if absent (creating parent directories as needed),
// on first open applies fallocate(lenHint) when allocate is true, falls back
// to Truncate when unsupported, writes data at offset, and marks the entry
// dirty.
func (fc *FileCache) WriteRange(path string, lenHint int64, allocate bool, offset int64, data []byte) error {
	e, err := fc.getOrOpen(path, true)
	if err != nil {
		return err
	}
	if !e.allocated {
		if err := fc.preallocate(e, lenHint, allocate); err != nil {
			return err
		}
		e.allocated = true
	}
	if _, err := e.handle.WriteAt(data, offset); err != nil {
		if isNoSpace(err) {
			return newNoSpaceErr(err)
		}
		return newIOErr(err)
	}
	e.dirty = true
	return nil
}

func (fc *FileCache) preallocate(e *fileCacheEntry, lenHint int64, allocate bool) error {
	if lenHint <= 0 {
		return nil
	}
	if allocate {
		if err := fallocate(e.handle, lenHint); err != nil {
			if isNoSpace(err) {
				return newNoSpaceErr(err)
			}
			if !isUnsupported(err) {
				return newIOErr(err)
			}
			// Unsupported: fall through to set_len below.
		} else {
			return nil
		}
	}
	if err := e.handle.Truncate(lenHint); err != nil {
		if isNoSpace(err) {
			return newNoSpaceErr(err)
		}
		return newIOErr(err)
	}
	return nil
}

// ReadRange opens path read-only if absent and reads len(out) bytes at
// offset. When a memory mapping is available for this entry and the
// platform is 64-bit, the read is satisfied from the mapping; otherwise by a
// positional read.
func (fc *FileCache) ReadRange(path string, offset int64, out []byte) error {
	e, err := fc.getOrOpen(path, false)
	if err != nil {
		return err
	}
	if e.mmap != nil && offset >= 0 && offset+int64(len(out)) <= int64(len(e.mmap)) {
		copy(out, e.mmap[offset:offset+int64(len(out))])
		return nil
	}
	if _, err := e.handle.ReadAt(out, offset); err != nil {
		return newIOErr(err)
	}
	return nil
}

// TryMap attempts to install a read-only memory mapping for path's current
// entry, sized to the file's full length. It is a performance knob: failure
// is silently ignored and reads fall back to positional I/O.
func (fc *FileCache) TryMap(path string, size int64) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	v, ok := fc.lru.Get(path)
	if !ok {
		return
	}
	e := v.(*fileCacheEntry)
	if e.mmap != nil || size <= 0 {
		return
	}
	m, err := mmapFile(e.handle, size)
	if err != nil {
		return
	}
	e.mmap = m
}

// FlushFile flushes path's entry and clears its dirty flag, if open.
func (fc *FileCache) FlushFile(path string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	v, ok := fc.lru.Get(path)
	if !ok {
		return nil
	}
	e := v.(*fileCacheEntry)
	if !e.dirty {
		return nil
	}
	if err := e.handle.Sync(); err != nil {
		return newIOErr(err)
	}
	e.dirty = false
	return nil
}

// RemoveFile evicts any open handle for path and closes it. It does not
// itself delete the file from disk.
func (fc *FileCache) RemoveFile(path string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if v, ok := fc.lru.Get(path); ok {
		fc.closeEntry(v.(*fileCacheEntry))
		fc.lru.Remove(path)
	}
}

// Len returns the number of open handles currently cached.
func (fc *FileCache) Len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lru.Len()
}
