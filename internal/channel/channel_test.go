// internal/channel/channel_test.go
package channel

import (
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tamzrod/sensor-relay/internal/record"
)

func TestParse_Reading(t *testing.T) {
	m, err := Parse(`{"ts":1700000000,"m":[25.5,100.25],"st":1,"fl":[1,0]}`)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if m.Kind != KindReading {
		t.Fatalf("Kind=%d, want KindReading", m.Kind)
	}

	want := record.Record{
		Timestamp:    1700000000,
		Measurements: []float32{25.5, 100.25},
		Status:       record.StatusOK,
		Flags:        [2]uint8{1, 0},
	}
	if !reflect.DeepEqual(m.Reading, want) {
		t.Fatalf("Reading=%+v, want %+v", m.Reading, want)
	}
}

func TestParse_ReadingWithoutTimestamp(t *testing.T) {
	m, err := Parse(`{"m":[21.0],"st":1,"fl":[0,0]}`)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if m.Reading.Timestamp != 0 {
		t.Fatalf("Timestamp=%d, want 0 (unset, receiver stamps it)", m.Reading.Timestamp)
	}
}

func TestParse_ControlLines(t *testing.T) {
	m, err := Parse("TIME:1700000000\n")
	if err != nil || m.Kind != KindTime || m.Wall != 1700000000 {
		t.Fatalf("TIME parse: %+v err=%v", m, err)
	}

	m, err = Parse("CLEARED:10")
	if err != nil || m.Kind != KindCleared || m.Cleared != 10 {
		t.Fatalf("CLEARED parse: %+v err=%v", m, err)
	}

	m, err = Parse("STATUS:stored=3/100 synced=42 time=ok")
	if err != nil || m.Kind != KindStatus {
		t.Fatalf("STATUS parse: %+v err=%v", m, err)
	}
	if m.Text != "stored=3/100 synced=42 time=ok" {
		t.Fatalf("Text=%q", m.Text)
	}
}

func TestParse_BadLines(t *testing.T) {
	for _, line := range []string{
		"",
		"garbage",
		"TIME:notanumber",
		"CLEARED:-3",
		`{"m":[1,2,3,4,5,6,7],"st":1,"fl":[0,0]}`, // too many measurements
		`{"m":[1,`,                                // truncated JSON
	} {
		if _, err := Parse(line); err == nil {
			t.Fatalf("Parse(%q): expected error, got nil", line)
		}
	}
}

func TestFormatReading_RoundTrip(t *testing.T) {
	want := record.Record{
		Timestamp:    1700000123,
		Measurements: []float32{70.5, 98.25, 14.3},
		Status:       record.StatusOK,
		Flags:        [2]uint8{1, 1},
	}

	line, err := FormatReading(want)
	if err != nil {
		t.Fatalf("FormatReading err=%v", err)
	}
	if len(line) > MaxLineBytes {
		t.Fatalf("line %d bytes over ceiling", len(line))
	}

	m, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if !reflect.DeepEqual(m.Reading, want) {
		t.Fatalf("round trip: got %+v, want %+v", m.Reading, want)
	}
}

// ---- port over an in-memory link ----

// halfPipe adapts an io.Pipe pair into the ReadWriteCloser the port
// wants.
type halfPipe struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (h *halfPipe) Read(p []byte) (int, error)  { return h.r.Read(p) }
func (h *halfPipe) Write(p []byte) (int, error) { return h.w.Write(p) }
func (h *halfPipe) Close() error {
	h.r.Close()
	return h.w.Close()
}

func newLink() (local *halfPipe, remote *halfPipe) {
	ar, aw := io.Pipe()
	br, bw := io.Pipe()
	return &halfPipe{r: ar, w: bw}, &halfPipe{r: br, w: aw}
}

func waitPoll(t *testing.T, p *Port) Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m, ok := p.Poll(); ok {
			return m
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no message within deadline")
	return Message{}
}

func TestPort_PollAndSend(t *testing.T) {
	local, remote := newLink()
	p := NewPort(local)
	defer p.Close()

	if _, ok := p.Poll(); ok {
		t.Fatalf("Poll on idle port must not block or yield")
	}

	go io.WriteString(remote, "TIME:1700000000\n")
	m := waitPoll(t, p)
	if m.Kind != KindTime || m.Wall != 1700000000 {
		t.Fatalf("got %+v", m)
	}

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := remote.Read(buf)
		done <- string(buf[:n])
	}()
	if err := p.Send(FormatCleared(7)); err != nil {
		t.Fatalf("Send err=%v", err)
	}
	if got := <-done; got != "CLEARED:7\n" {
		t.Fatalf("peer saw %q", got)
	}
}

func TestPort_DropsOversizeAndGarbage(t *testing.T) {
	local, remote := newLink()
	p := NewPort(local)
	defer p.Close()

	go func() {
		io.WriteString(remote, strings.Repeat("x", MaxLineBytes+10)+"\n")
		io.WriteString(remote, "not a message\n")
		io.WriteString(remote, "CLEARED:3\n")
	}()

	// the two bad lines are dropped; the good one comes through
	m := waitPoll(t, p)
	if m.Kind != KindCleared || m.Cleared != 3 {
		t.Fatalf("got %+v, want CLEARED:3", m)
	}
}

func TestPort_BoundsNewlinelessNoise(t *testing.T) {
	local, remote := newLink()
	p := NewPort(local)
	defer p.Close()

	// a long newline-less burst, far past any internal read buffer,
	// must be discarded rather than accumulated
	go func() {
		io.WriteString(remote, strings.Repeat("z", MaxLineBytes*40))
		io.WriteString(remote, "\n")
		io.WriteString(remote, "TIME:1700000000\n")
	}()

	m := waitPoll(t, p)
	if m.Kind != KindTime || m.Wall != 1700000000 {
		t.Fatalf("got %+v, want the TIME line after the noise", m)
	}
}

func TestPort_RefusesOversizeOutbound(t *testing.T) {
	local, _ := newLink()
	p := NewPort(local)
	defer p.Close()

	if err := p.Send(strings.Repeat("y", MaxLineBytes+1)); err == nil {
		t.Fatalf("expected error for oversize outbound line")
	}
}
