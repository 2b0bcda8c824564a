// Package store persists entity collections as flat JSON-array documents,
// one file per collection, with read-all, append, and lookup operations.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrCorrupt indicates the persisted document could not be decoded.
	ErrCorrupt = errors.New("store: corrupt document")
	// ErrWrite indicates the document could not be written back; the
	// triggering append is not committed.
	ErrWrite = errors.New("store: write failed")
	// ErrNotFound indicates no record matched a FindUnique predicate.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate indicates an AppendUnique predicate matched an existing
	// record, so the append was not committed.
	ErrDuplicate = errors.New("store: duplicate record")
)

// Record is the minimal contract an entity must satisfy so the collection
// can assign identifiers on append.
type Record interface {
	RecordID() string
	SetRecordID(id string)
}

// Collection owns a single JSON-array document on disk. Every append is a
// full read-modify-write of the document, serialized behind a mutex so
// concurrent appends cannot overwrite each other.
type Collection[T Record] struct {
	path  string
	newID func() string
	mu    sync.Mutex
}

// Open prepares a collection backed by the document at path. The parent
// directory is created if needed, and a missing document is initialized to
// an empty array so a fresh deployment starts clean.
func Open[T Record](path string) (*Collection[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(ErrWrite, "create data directory for %s: %v", path, err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, errors.Wrapf(ErrWrite, "initialize %s: %v", path, err)
		}
	} else if err != nil {
		return nil, errors.Wrapf(ErrWrite, "stat %s: %v", path, err)
	}

	return &Collection[T]{
		path:  path,
		newID: uuid.NewString,
	}, nil
}

// SetIDFunc overrides the identifier generator used for appended records
// that arrive without an id.
func (c *Collection[T]) SetIDFunc(fn func() string) {
	if fn != nil {
		c.newID = fn
	}
}

// LoadAll returns every record in the collection in storage order.
func (c *Collection[T]) LoadAll() ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readAll()
}

// Append assigns an id to the record if it has none, rewrites the full
// document with the record added, and returns the stored record. On a write
// failure the previous document is left intact and the append is not
// committed.
func (c *Collection[T]) Append(record T) (T, error) {
	return c.append(record, nil)
}

// AppendUnique appends the record only if no existing record matches the
// predicate, or returns ErrDuplicate. The scan and the write run in one
// critical section, so two concurrent AppendUnique calls with the same
// predicate cannot both commit.
func (c *Collection[T]) AppendUnique(record T, match func(T) bool) (T, error) {
	return c.append(record, match)
}

func (c *Collection[T]) append(record T, conflict func(T) bool) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.readAll()
	if err != nil {
		return zero, err
	}

	if conflict != nil {
		for _, existing := range records {
			if conflict(existing) {
				return zero, ErrDuplicate
			}
		}
	}

	if record.RecordID() == "" {
		record.SetRecordID(c.newID())
	}

	records = append(records, record)
	if err := c.writeAll(records); err != nil {
		return zero, err
	}

	return record, nil
}

// FindUnique scans the collection in storage order and returns the first
// record the predicate matches, or ErrNotFound.
func (c *Collection[T]) FindUnique(match func(T) bool) (T, error) {
	var zero T

	records, err := c.LoadAll()
	if err != nil {
		return zero, err
	}

	for _, record := range records {
		if match(record) {
			return record, nil
		}
	}

	return zero, ErrNotFound
}

func (c *Collection[T]) readAll() ([]T, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "read %s: %v", c.path, err)
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "decode %s: %v", c.path, err)
	}

	return records, nil
}

// writeAll rewrites the document through a temp-file rename so a failed
// write never destroys the previous state.
func (c *Collection[T]) writeAll(records []T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrapf(ErrWrite, "encode %s: %v", c.path, err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(ErrWrite, "write %s: %v", tmp, err)
	}

	if err := os.Rename(tmp, c.path); err != nil {
		return errors.Wrapf(ErrWrite, "replace %s: %v", c.path, err)
	}

	return nil
}
