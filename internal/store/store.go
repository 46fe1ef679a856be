// internal/store/store.go
package store

import (
	"errors"

	"github.com/tamzrod/sensor-relay/internal/record"
)

// Store is the durable record buffer contract.
// Two implementations exist: Ring (fixed byte region) and SQLite.
// Selected at composition time, never at runtime.
type Store interface {
	// Append encodes and persists one record. Once full, each append
	// overwrites the logically oldest slot. Overwrite is steady state,
	// not an error.
	Append(r record.Record) error

	// Read returns the record at logical index (0 = oldest valid).
	Read(index int) (record.Record, error)

	// DropOldest removes the n oldest records. n >= Len() clears.
	DropOldest(n int) error

	// Clear resets the store to empty.
	Clear() error

	Len() int
	Capacity() int
	FreeSpace() int
	IsFull() bool

	// Flush persists any write-behind bookkeeping.
	Flush() error
	Close() error
}

// An uninitialized state is unrepresentable: Open either returns a
// ready store or an error, so there is no "not initialized" sentinel.
var (
	ErrRecordTooLarge  = errors.New("store: record too large for slot")
	ErrIndexOutOfRange = errors.New("store: index out of range")
	ErrCorruptRecord   = errors.New("store: corrupt record")
	ErrCorruptHeader   = errors.New("store: corrupt header")
)
