// internal/timesync/clock.go
package timesync

import "time"

// BootClock counts whole seconds since process start using Go's
// monotonic time reading.
type BootClock struct {
	start time.Time
}

func NewBootClock() *BootClock {
	return &BootClock{start: time.Now()}
}

func (c *BootClock) Seconds() uint32 {
	return uint32(time.Since(c.start) / time.Second)
}
