// internal/channel/message.go
package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tamzrod/sensor-relay/internal/record"
)

// Line protocol between the two nodes, newline-delimited:
//
//	{"ts":...,"m":[...],"st":1,"fl":[0,0]}  outbound sensor reading
//	TIME:<unix>                             time-anchor push
//	CLEARED:<n>                             mirror-truncation ack
//	STATUS:<text>                           free-form status, logged only
//
// Anything else, or any line over MaxLineBytes, is dropped with a
// logged warning. Never partially parsed.

// MaxLineBytes is the inbound and outbound line ceiling.
const MaxLineBytes = 300

type Kind int

const (
	KindReading Kind = iota
	KindTime
	KindCleared
	KindStatus
)

type Message struct {
	Kind    Kind
	Reading record.Record // KindReading; Timestamp 0 = unset
	Wall    uint32        // KindTime
	Cleared int           // KindCleared
	Text    string        // KindStatus
}

var ErrBadLine = errors.New("channel: unrecognized line")

// readingWire keeps the JSON compact; every byte counts against the
// line ceiling.
type readingWire struct {
	TS    uint32    `json:"ts,omitempty"`
	M     []float32 `json:"m"`
	St    uint8     `json:"st"`
	Flags [2]uint8  `json:"fl"`
}

// Parse decodes one inbound line. The caller has already enforced the
// length ceiling.
func Parse(line string) (Message, error) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "{"):
		var w readingWire
		if err := json.Unmarshal([]byte(line), &w); err != nil {
			return Message{}, fmt.Errorf("channel: reading parse: %w", err)
		}
		if len(w.M) > record.MaxMeasurements {
			return Message{}, fmt.Errorf("channel: %d measurements over max", len(w.M))
		}
		return Message{Kind: KindReading, Reading: record.Record{
			Timestamp:    w.TS,
			Measurements: w.M,
			Status:       w.St,
			Flags:        w.Flags,
		}}, nil

	case strings.HasPrefix(line, "TIME:"):
		v, err := strconv.ParseUint(line[len("TIME:"):], 10, 32)
		if err != nil {
			return Message{}, fmt.Errorf("channel: time parse: %w", err)
		}
		return Message{Kind: KindTime, Wall: uint32(v)}, nil

	case strings.HasPrefix(line, "CLEARED:"):
		v, err := strconv.Atoi(line[len("CLEARED:"):])
		if err != nil || v < 0 {
			return Message{}, fmt.Errorf("channel: cleared parse: %q", line)
		}
		return Message{Kind: KindCleared, Cleared: v}, nil

	case strings.HasPrefix(line, "STATUS:"):
		return Message{Kind: KindStatus, Text: line[len("STATUS:"):]}, nil
	}
	return Message{}, ErrBadLine
}

// FormatReading builds the outbound reading line, without newline.
func FormatReading(r record.Record) (string, error) {
	b, err := json.Marshal(readingWire{
		TS:    r.Timestamp,
		M:     r.Measurements,
		St:    r.Status,
		Flags: r.Flags,
	})
	if err != nil {
		return "", fmt.Errorf("channel: reading marshal: %w", err)
	}
	if len(b) > MaxLineBytes {
		return "", fmt.Errorf("channel: reading line %d bytes over ceiling", len(b))
	}
	return string(b), nil
}

func FormatTime(wall uint32) string {
	return "TIME:" + strconv.FormatUint(uint64(wall), 10)
}

func FormatCleared(n int) string {
	return "CLEARED:" + strconv.Itoa(n)
}

func FormatStatus(text string) string {
	return "STATUS:" + text
}
