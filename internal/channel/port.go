// internal/channel/port.go
package channel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/tarm/serial"
)

// Port carries the line protocol over a serial link (or any
// ReadWriteCloser in tests). A single reader goroutine feeds a bounded
// buffer; Poll never blocks, matching the cooperative tick loop.
type Port struct {
	rw    io.ReadWriteCloser
	lines chan string
}

const lineBuffer = 32

// Open opens a serial port and starts the reader.
func Open(name string, baud int) (*Port, error) {
	s, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("channel: open %s: %w", name, err)
	}
	return NewPort(s), nil
}

// NewPort wraps an already-open link.
func NewPort(rw io.ReadWriteCloser) *Port {
	p := &Port{
		rw:    rw,
		lines: make(chan string, lineBuffer),
	}
	go p.read()
	return p
}

func (p *Port) read() {
	r := bufio.NewReader(p.rw)

	// Accumulation is capped at the line ceiling (+2 for \r\n): a noisy
	// link that never sends a newline discards instead of growing.
	buf := make([]byte, 0, MaxLineBytes+2)
	overflow := false

	for {
		chunk, err := r.ReadSlice('\n')
		if overflow || len(buf)+len(chunk) > cap(buf) {
			overflow = true
		} else {
			buf = append(buf, chunk...)
		}

		switch {
		case err == nil:
			if overflow {
				log.Printf("channel: dropping oversize inbound line")
			} else if len(buf) > 0 {
				select {
				case p.lines <- string(buf):
				default:
					// Inbound faster than the tick loop drains. The durable
					// stores on both ends make the drop survivable.
					log.Printf("channel: inbound buffer full, dropping line")
				}
			}
			buf = buf[:0]
			overflow = false

		case errors.Is(err, bufio.ErrBufferFull):
			// newline not seen yet, keep consuming

		default:
			// a partial line at close never parses; drop it
			return
		}
	}
}

// Poll returns the next parseable inbound message without blocking.
// Oversize and malformed lines are dropped with a warning and the next
// line is tried within the same call.
func (p *Port) Poll() (Message, bool) {
	for {
		select {
		case line := <-p.lines:
			line = strings.TrimRight(line, "\r\n")
			if len(line) > MaxLineBytes {
				log.Printf("channel: dropping %d-byte line over %d ceiling", len(line), MaxLineBytes)
				continue
			}
			m, err := Parse(line)
			if err != nil {
				log.Printf("channel: dropping line: %v", err)
				continue
			}
			return m, true
		default:
			return Message{}, false
		}
	}
}

// Send writes one line. Lines over the ceiling are refused, never
// truncated.
func (p *Port) Send(line string) error {
	if len(line) > MaxLineBytes {
		return fmt.Errorf("channel: outbound line %d bytes over ceiling", len(line))
	}
	if _, err := io.WriteString(p.rw, line+"\n"); err != nil {
		return fmt.Errorf("channel: write: %w", err)
	}
	return nil
}

func (p *Port) Close() error {
	return p.rw.Close()
}
