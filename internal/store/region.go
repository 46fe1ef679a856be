// internal/store/region.go
package store

import (
	"fmt"
	"os"
)

// Region is the exact contract the ring store needs from its
// persistent backing. os.File satisfies the I/O half; FileRegion
// adds the size and lifecycle pieces.
type Region interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Sync() error
	Size() int64
	Close() error
}

// FileRegion is a fixed-size file standing in for the device's
// byte-addressable non-volatile region.
type FileRegion struct {
	f    *os.File
	size int64
}

// OpenFileRegion opens (creating if absent) a region file and grows it
// to exactly size bytes. Shrinking an existing larger file would eat
// slot data, so only growth is applied.
func OpenFileRegion(path string, size int64) (*FileRegion, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("region: open %s: %w", path, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("region: stat %s: %w", path, err)
	}
	if st.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("region: grow %s: %w", path, err)
		}
	}

	sz := size
	if st.Size() > sz {
		sz = st.Size()
	}

	return &FileRegion{f: f, size: sz}, nil
}

func (r *FileRegion) ReadAt(p []byte, off int64) (int, error)  { return r.f.ReadAt(p, off) }
func (r *FileRegion) WriteAt(p []byte, off int64) (int, error) { return r.f.WriteAt(p, off) }
func (r *FileRegion) Sync() error                              { return r.f.Sync() }
func (r *FileRegion) Size() int64                              { return r.size }
func (r *FileRegion) Close() error                             { return r.f.Close() }

// MemRegion is an in-memory Region for tests and volatile mirrors.
type MemRegion struct {
	buf []byte
}

func NewMemRegion(size int) *MemRegion {
	return &MemRegion{buf: make([]byte, size)}
}

func (m *MemRegion) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, fmt.Errorf("region: read past end")
	}
	n := copy(p, m.buf[off:])
	return n, nil
}

func (m *MemRegion) WriteAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > int64(len(m.buf)) {
		return 0, fmt.Errorf("region: write past end")
	}
	return copy(m.buf[off:], p), nil
}

func (m *MemRegion) Sync() error  { return nil }
func (m *MemRegion) Size() int64  { return int64(len(m.buf)) }
func (m *MemRegion) Close() error { return nil }

// Bytes exposes the raw region for corruption tests.
func (m *MemRegion) Bytes() []byte { return m.buf }
