package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourusername/signal-engine/pkg/signal"
)

const (
	activeDir    = "signal"
	scheduledDir = "schedule"
)

// FileStore keeps one JSON file per record:
//
//	<root>/signal/<strategy>/<symbol>.json
//	<root>/schedule/<strategy>/<symbol>.json
//
// Writes go through write-temp, fsync, rename, so readers always see a
// complete record and a crash mid-write leaves the previous record intact.
type FileStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-record write locks
}

// NewFileStore creates a store rooted at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root, locks: make(map[string]*sync.Mutex)}
}

func (fs *FileStore) recordLock(path string) *sync.Mutex {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	l, ok := fs.locks[path]
	if !ok {
		l = &sync.Mutex{}
		fs.locks[path] = l
	}
	return l
}

func (fs *FileStore) path(namespace, strategy, symbol string) string {
	return filepath.Join(fs.root, namespace, strategy, symbol+".json")
}

// ReadActive implements Store.
func (fs *FileStore) ReadActive(strategy, symbol string) (*signal.Signal, error) {
	return fs.read(activeDir, strategy, symbol)
}

// WriteActive implements Store.
func (fs *FileStore) WriteActive(strategy, symbol string, sig *signal.Signal) error {
	return fs.write(activeDir, strategy, symbol, sig, StatusOpened)
}

// ReadScheduled implements Store.
func (fs *FileStore) ReadScheduled(strategy, symbol string) (*signal.Signal, error) {
	return fs.read(scheduledDir, strategy, symbol)
}

// WriteScheduled implements Store.
func (fs *FileStore) WriteScheduled(strategy, symbol string, sig *signal.Signal) error {
	return fs.write(scheduledDir, strategy, symbol, sig, StatusScheduled)
}

func (fs *FileStore) read(namespace, strategy, symbol string) (*signal.Signal, error) {
	path := fs.path(namespace, strategy, symbol)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", path, err)
	}
	return rec.Signal, nil
}

func (fs *FileStore) write(namespace, strategy, symbol string, sig *signal.Signal, status Status) error {
	path := fs.path(namespace, strategy, symbol)
	lock := fs.recordLock(path)
	lock.Lock()
	defer lock.Unlock()

	if sig == nil {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete record %s: %w", path, err)
		}
		return nil
	}

	now := time.Now().UnixMilli()
	rec := Record{
		Signal:    sig,
		Status:    status,
		CreatedAt: sig.ScheduledAt,
		UpdatedAt: now,
	}
	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	return atomicWrite(path, data)
}

// atomicWrite writes data to a temp file in the target directory, fsyncs it
// and renames it over path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
