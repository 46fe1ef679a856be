// internal/store/ring.go
package store

import (
	"errors"
	"fmt"
	"log"

	"github.com/tamzrod/sensor-relay/internal/record"
)

// DefaultFlushEvery is how many appends may pass between header
// rewrites. Lazy header persistence bounds write amplification on
// wear-limited media; a crash loses at most FlushEvery-1 appends of
// bookkeeping, never the already-persisted count.
const DefaultFlushEvery = 8

// Geometry fixes the ring layout. Immutable after Open.
type Geometry struct {
	Capacity   int
	SlotSize   int
	FlushEvery int // 0 means DefaultFlushEvery
}

// Ring is the circular record store over a byte region.
// Single writer; the region belongs to the ring alone.
type Ring struct {
	region Region
	geo    Geometry

	// in-memory mirror of the persisted header; the persistent copy
	// is write-behind backing, never read after Open
	cursor uint16
	count  uint16

	unflushed int
}

// Open loads the header and returns a ready store. A region too small
// for the configured geometry is a configuration error and the only
// fatal condition. Header corruption degrades to an empty store.
func Open(region Region, geo Geometry) (*Ring, error) {
	if geo.Capacity <= 0 || geo.Capacity > 0xFFFF {
		return nil, fmt.Errorf("store: capacity %d out of range", geo.Capacity)
	}
	if geo.SlotSize <= record.PrefixSize {
		return nil, fmt.Errorf("store: slot size %d too small", geo.SlotSize)
	}
	if geo.FlushEvery <= 0 {
		geo.FlushEvery = DefaultFlushEvery
	}

	need := int64(HeaderSize + geo.Capacity*geo.SlotSize)
	if region.Size() < need {
		return nil, fmt.Errorf("store: region %d bytes, geometry needs %d", region.Size(), need)
	}

	r := &Ring{region: region, geo: geo}

	buf := make([]byte, HeaderSize)
	if _, err := region.ReadAt(buf, 0); err != nil {
		log.Printf("store: header read failed, reinitializing: %v", err)
		return r, r.Clear()
	}

	h, err := decodeHeader(buf)
	if err != nil || int(h.count) > geo.Capacity || int(h.cursor) >= geo.Capacity {
		log.Printf("store: invalid header, reinitializing (count=0)")
		return r, r.Clear()
	}

	r.cursor = h.cursor
	r.count = h.count
	return r, nil
}

func (r *Ring) Append(rec record.Record) error {
	slot, err := record.Encode(rec, r.geo.SlotSize)
	if err != nil {
		if errors.Is(err, record.ErrTooLarge) {
			return ErrRecordTooLarge
		}
		return err
	}

	if _, err := r.region.WriteAt(slot, r.slotOffset(int(r.cursor))); err != nil {
		return fmt.Errorf("store: slot write: %w", err)
	}

	wrapped := int(r.cursor)+1 == r.geo.Capacity
	r.cursor = uint16((int(r.cursor) + 1) % r.geo.Capacity)
	if int(r.count) < r.geo.Capacity {
		r.count++
	}

	r.unflushed++
	if wrapped || r.unflushed >= r.geo.FlushEvery {
		return r.writeHeader()
	}
	return nil
}

func (r *Ring) Read(index int) (record.Record, error) {
	if index < 0 || index >= int(r.count) {
		return record.Record{}, ErrIndexOutOfRange
	}

	physical := (int(r.cursor) - int(r.count) + index + r.geo.Capacity) % r.geo.Capacity

	slot := make([]byte, r.geo.SlotSize)
	if _, err := r.region.ReadAt(slot, r.slotOffset(physical)); err != nil {
		return record.Record{}, fmt.Errorf("store: slot read: %w", err)
	}

	rec, err := record.Decode(slot)
	if err != nil {
		return record.Record{}, ErrCorruptRecord
	}
	return rec, nil
}

// DropOldest shrinks the valid window from the oldest end, leaving the
// cursor alone; the logical-to-physical translation shifts with count.
// Rewrites the header immediately: a drop reflects confirmed remote
// delivery and must survive power loss.
func (r *Ring) DropOldest(n int) error {
	if n <= 0 {
		return nil
	}
	if n >= int(r.count) {
		return r.Clear()
	}
	r.count -= uint16(n)
	return r.writeHeader()
}

// Clear resets bookkeeping. Slot payloads are left as-is: with
// count=0 they are unreachable.
func (r *Ring) Clear() error {
	r.cursor = 0
	r.count = 0
	return r.writeHeader()
}

func (r *Ring) Len() int       { return int(r.count) }
func (r *Ring) Capacity() int  { return r.geo.Capacity }
func (r *Ring) FreeSpace() int { return r.geo.Capacity - int(r.count) }
func (r *Ring) IsFull() bool   { return int(r.count) >= r.geo.Capacity }

func (r *Ring) Flush() error {
	if err := r.writeHeader(); err != nil {
		return err
	}
	return r.region.Sync()
}

func (r *Ring) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	return r.region.Close()
}

func (r *Ring) writeHeader() error {
	b := encodeHeader(header{cursor: r.cursor, count: r.count})
	if _, err := r.region.WriteAt(b, 0); err != nil {
		return fmt.Errorf("store: header write: %w", err)
	}
	r.unflushed = 0
	return nil
}

func (r *Ring) slotOffset(physical int) int64 {
	return int64(HeaderSize + physical*r.geo.SlotSize)
}
