// internal/store/header.go
package store

// Persistent header layout (10 bytes at region offset 0):
//
//	0-1  magic 0xABCD (big-endian)
//	2    version
//	3-4  write cursor (big-endian)
//	5-6  record count (big-endian)
//	7    xor checksum over bytes 0-6
//	8-9  reserved (zero)
//
// An invalid header always degrades to an empty store; slot data is
// presumed lost.

const (
	HeaderSize = 10

	magicHi byte = 0xAB
	magicLo byte = 0xCD

	headerVersion byte = 1
)

type header struct {
	cursor uint16
	count  uint16
}

func encodeHeader(h header) []byte {
	b := make([]byte, HeaderSize)
	b[0] = magicHi
	b[1] = magicLo
	b[2] = headerVersion
	b[3] = byte(h.cursor >> 8)
	b[4] = byte(h.cursor)
	b[5] = byte(h.count >> 8)
	b[6] = byte(h.count)
	b[7] = xor7(b)
	return b
}

func decodeHeader(b []byte) (header, error) {
	if len(b) < HeaderSize {
		return header{}, ErrCorruptHeader
	}
	if b[0] != magicHi || b[1] != magicLo {
		return header{}, ErrCorruptHeader
	}
	if b[2] != headerVersion {
		return header{}, ErrCorruptHeader
	}
	if b[7] != xor7(b) {
		return header{}, ErrCorruptHeader
	}
	if b[8] != 0 || b[9] != 0 {
		return header{}, ErrCorruptHeader
	}
	return header{
		cursor: uint16(b[3])<<8 | uint16(b[4]),
		count:  uint16(b[5])<<8 | uint16(b[6]),
	}, nil
}

func xor7(b []byte) byte {
	var c byte
	for i := 0; i < 7; i++ {
		c ^= b[i]
	}
	return c
}
