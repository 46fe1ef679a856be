// internal/timesync/anchorfile.go
package timesync

import (
	"errors"
	"fmt"
	"os"
)

// Persisted anchor layout (9 bytes):
//
//	0    valid flag 0xAB
//	1-4  wall seconds (big-endian)
//	5-8  local clock at save (big-endian)

const anchorFlag byte = 0xAB

// AnchorFile persists the anchor across power loss on the network node.
type AnchorFile struct {
	path string
}

func NewAnchorFile(path string) *AnchorFile {
	return &AnchorFile{path: path}
}

func (f *AnchorFile) Save(a Anchor) error {
	b := make([]byte, 9)
	b[0] = anchorFlag
	putU32(b[1:5], a.WallSeconds)
	putU32(b[5:9], a.LocalAtAnchor)

	if err := os.WriteFile(f.path, b, 0o644); err != nil {
		return fmt.Errorf("timesync: write anchor %s: %w", f.path, err)
	}
	return nil
}

func (f *AnchorFile) Load() (Anchor, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return Anchor{}, err
	}
	if len(b) != 9 || b[0] != anchorFlag {
		return Anchor{}, errors.New("timesync: anchor file invalid")
	}
	return Anchor{
		WallSeconds:   getU32(b[1:5]),
		LocalAtAnchor: getU32(b[5:9]),
	}, nil
}

func putU32(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}

func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
