// internal/record/codec.go
package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Encoded slot layout:
//
//	0-1  payload length (big-endian)
//	2+   payload: ts,m0,...,mN,status,f0,f1 (ASCII)
//	rest zero padding up to slot size
//
// The payload is text so a slot pulled off a decommissioned region is
// still readable by eye.

// PrefixSize is the byte count of the length prefix.
const PrefixSize = 2

var (
	ErrTooLarge = errors.New("record: encoded form exceeds slot payload capacity")
	ErrCorrupt  = errors.New("record: corrupt slot payload")
)

// Encode serializes r into a slot of exactly slotSize bytes.
// Fails without side effects if the payload does not fit.
func Encode(r Record, slotSize int) ([]byte, error) {
	if len(r.Measurements) > MaxMeasurements {
		return nil, fmt.Errorf("record: %d measurements exceeds max %d", len(r.Measurements), MaxMeasurements)
	}

	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(r.Timestamp), 10))
	for _, m := range r.Measurements {
		b.WriteByte(',')
		// 'g'/-1 round-trips float32 exactly; the wire is not human-pretty
		// but decode(encode(r)) == r holds.
		b.WriteString(strconv.FormatFloat(float64(m), 'g', -1, 32))
	}
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(uint64(r.Status), 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(uint64(r.Flags[0]), 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(uint64(r.Flags[1]), 10))

	payload := b.String()
	if len(payload) > slotSize-PrefixSize {
		return nil, ErrTooLarge
	}

	slot := make([]byte, slotSize)
	slot[0] = byte(len(payload) >> 8)
	slot[1] = byte(len(payload))
	copy(slot[PrefixSize:], payload)
	return slot, nil
}

// Decode parses one slot back into a Record.
// A zero or out-of-range length prefix means the slot was never
// written or has rotted; both are ErrCorrupt.
func Decode(slot []byte) (Record, error) {
	if len(slot) < PrefixSize {
		return Record{}, ErrCorrupt
	}

	n := int(slot[0])<<8 | int(slot[1])
	if n == 0 || n > len(slot)-PrefixSize {
		return Record{}, ErrCorrupt
	}

	fields := strings.Split(string(slot[PrefixSize:PrefixSize+n]), ",")
	// ts + status + 2 flags is the floor; measurements fill the middle.
	if len(fields) < 4 {
		return Record{}, ErrCorrupt
	}

	ts, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return Record{}, ErrCorrupt
	}

	mFields := fields[1 : len(fields)-3]
	if len(mFields) > MaxMeasurements {
		return Record{}, ErrCorrupt
	}

	r := Record{Timestamp: uint32(ts)}
	if len(mFields) > 0 {
		r.Measurements = make([]float32, len(mFields))
		for i, f := range mFields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return Record{}, ErrCorrupt
			}
			r.Measurements[i] = float32(v)
		}
	}

	st, err := strconv.ParseUint(fields[len(fields)-3], 10, 8)
	if err != nil {
		return Record{}, ErrCorrupt
	}
	r.Status = uint8(st)

	for i := 0; i < 2; i++ {
		v, err := strconv.ParseUint(fields[len(fields)-2+i], 10, 8)
		if err != nil {
			return Record{}, ErrCorrupt
		}
		r.Flags[i] = uint8(v)
	}

	return r, nil
}
