// internal/record/codec_test.go
package record

import (
	"reflect"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []Record{
		{Timestamp: 0, Status: StatusError},
		{Timestamp: 1700000000, Measurements: []float32{25.5, 100.25}, Status: StatusOK, Flags: [2]uint8{1, 0}},
		{Timestamp: 4294967295, Measurements: []float32{-50.0, 0, 0.001, 1e20, -1e-20, 3.1415927}, Status: 7, Flags: [2]uint8{255, 255}},
		{Timestamp: 42, Measurements: []float32{1.0 / 3.0}, Status: StatusOK},
	}

	for i, want := range cases {
		slot, err := Encode(want, 128)
		if err != nil {
			t.Fatalf("case %d: Encode err=%v", i, err)
		}
		if len(slot) != 128 {
			t.Fatalf("case %d: slot %d bytes, want 128", i, len(slot))
		}

		got, err := Decode(slot)
		if err != nil {
			t.Fatalf("case %d: Decode err=%v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("case %d: round trip mismatch\n got=%+v\nwant=%+v", i, got, want)
		}
	}
}

func TestEncode_RejectsOversize(t *testing.T) {
	r := Record{
		Timestamp:    1700000000,
		Measurements: []float32{1.2345678, 2.3456789, 3.4567891, 4.5678912, 5.6789123, 6.7891234},
		Status:       StatusOK,
	}

	if _, err := Encode(r, 16); err != ErrTooLarge {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestEncode_RejectsTooManyMeasurements(t *testing.T) {
	r := Record{Measurements: make([]float32, MaxMeasurements+1)}
	if _, err := Encode(r, 256); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestDecode_CorruptPrefix(t *testing.T) {
	// zero length prefix: never written
	slot := make([]byte, 32)
	if _, err := Decode(slot); err != ErrCorrupt {
		t.Fatalf("zero prefix: expected ErrCorrupt, got %v", err)
	}

	// prefix past slot capacity
	slot[0] = 0xFF
	slot[1] = 0xFF
	if _, err := Decode(slot); err != ErrCorrupt {
		t.Fatalf("oversize prefix: expected ErrCorrupt, got %v", err)
	}

	// plausible length, garbage payload
	good, err := Encode(Record{Timestamp: 100, Status: 1}, 32)
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}
	good[4] = 'x'
	if _, err := Decode(good); err != ErrCorrupt {
		t.Fatalf("garbage payload: expected ErrCorrupt, got %v", err)
	}
}
