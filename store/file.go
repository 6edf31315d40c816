package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all records in memory and rewrites a single JSON object to
// disk on every Put. The on-disk layout is {"<key>": {"role": id, "channel": id}}.
type FileStore struct {
	mu      sync.Mutex
	path    string
	records map[string]Record
}

// OpenFile loads the store file, treating a missing file as an empty store.
func OpenFile(path string) (*FileStore, error) {
	fs := &FileStore{path: path, records: map[string]Record{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fs, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if err := json.Unmarshal(data, &fs.records); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", path, err)
	}
	return fs, nil
}

func (fs *FileStore) Get(_ context.Context, key string) (Record, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	rec, ok := fs.records[key]
	return rec, ok, nil
}

// Put stores the record and rewrites the whole file. A write failure leaves the
// in-memory map unchanged and must be surfaced to the caller: the role/channel
// already exist in Discord, and losing the record would cause duplicate
// creation on the next reconciliation.
func (fs *FileStore) Put(_ context.Context, key string, rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	prev, existed := fs.records[key]
	fs.records[key] = rec
	if err := fs.saveLocked(); err != nil {
		if existed {
			fs.records[key] = prev
		} else {
			delete(fs.records, key)
		}
		return fmt.Errorf("persist record %q: %w", key, err)
	}
	return nil
}

func (fs *FileStore) Len(_ context.Context) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.records), nil
}

func (fs *FileStore) Close() error { return nil }

// saveLocked writes via a temp file and rename so a crash mid-write cannot
// truncate the store.
func (fs *FileStore) saveLocked() error {
	data, err := json.Marshal(fs.records)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path)
}
