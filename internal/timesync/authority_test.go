// internal/timesync/authority_test.go
package timesync

import (
	"errors"
	"path/filepath"
	"testing"
)

// fakeClock is a hand-cranked monotonic clock.
type fakeClock struct {
	s uint32
}

func (c *fakeClock) Seconds() uint32 { return c.s }

type fakeSource struct {
	wall uint32
	err  error
}

func (s *fakeSource) FetchUnixTime() (uint32, error) { return s.wall, s.err }

func TestNow_UnsyncedReturnsNotOK(t *testing.T) {
	a := New(&fakeClock{s: 100}, nil)

	if _, ok := a.Now(); ok {
		t.Fatalf("expected ok=false with no anchor")
	}
	if a.Synced() {
		t.Fatalf("expected unsynced")
	}
	if got := a.NowOrBoot(); got != 100 {
		t.Fatalf("NowOrBoot()=%d, want boot-relative 100", got)
	}
}

func TestReceiveExternalAnchor_TracksLocalClock(t *testing.T) {
	clock := &fakeClock{s: 50}
	a := New(clock, nil)

	if err := a.ReceiveExternalAnchor(1700000000); err != nil {
		t.Fatalf("ReceiveExternalAnchor err=%v", err)
	}

	clock.s = 55
	got, ok := a.Now()
	if !ok {
		t.Fatalf("expected synced")
	}
	if got != 1700000005 {
		t.Fatalf("Now()=%d, want 1700000005", got)
	}
}

func TestReceiveExternalAnchor_RejectsBelowFloor(t *testing.T) {
	a := New(&fakeClock{}, nil)

	if err := a.ReceiveExternalAnchor(PlausibilityFloor - 1); !errors.Is(err, ErrInvalidAnchor) {
		t.Fatalf("expected ErrInvalidAnchor, got %v", err)
	}
	if a.Synced() {
		t.Fatalf("rejected anchor must not sync")
	}

	// a later valid anchor still lands
	if err := a.ReceiveExternalAnchor(PlausibilityFloor); err != nil {
		t.Fatalf("floor value itself must pass: %v", err)
	}
}

func TestResync_FailureKeepsPreviousAnchor(t *testing.T) {
	clock := &fakeClock{s: 10}
	a := New(clock, nil)

	if err := a.Resync(&fakeSource{wall: 1700000000}); err != nil {
		t.Fatalf("Resync err=%v", err)
	}

	// a failing source must leave the prior anchor authoritative
	clock.s = 30
	if err := a.Resync(&fakeSource{err: errors.New("dns down")}); !errors.Is(err, ErrUnsynced) {
		t.Fatalf("expected ErrUnsynced, got %v", err)
	}

	got, ok := a.Now()
	if !ok || got != 1700000020 {
		t.Fatalf("Now()=%d ok=%v, want 1700000020 from prior anchor", got, ok)
	}
}

func TestResync_AttemptGapThrottles(t *testing.T) {
	clock := &fakeClock{s: 10}
	a := New(clock, nil)

	if err := a.Resync(&fakeSource{err: errors.New("down")}); !errors.Is(err, ErrUnsynced) {
		t.Fatalf("expected ErrUnsynced, got %v", err)
	}

	// 5s later: inside the attempt gap, the source is not even queried
	clock.s = 15
	hot := &fakeSource{wall: 1700000000}
	if err := a.Resync(hot); !errors.Is(err, ErrUnsynced) {
		t.Fatalf("expected throttled ErrUnsynced, got %v", err)
	}
	if a.Synced() {
		t.Fatalf("throttled attempt must not anchor")
	}

	clock.s = 21
	if err := a.Resync(hot); err != nil {
		t.Fatalf("post-gap Resync err=%v", err)
	}
}

func TestResync_ThrottleAppliesAtBoot(t *testing.T) {
	// an attempt at local second 0 counts like any other
	clock := &fakeClock{s: 0}
	a := New(clock, nil)

	if err := a.Resync(&fakeSource{err: errors.New("down")}); !errors.Is(err, ErrUnsynced) {
		t.Fatalf("expected ErrUnsynced, got %v", err)
	}

	clock.s = 5
	if err := a.Resync(&fakeSource{wall: 1700000000}); !errors.Is(err, ErrUnsynced) {
		t.Fatalf("attempt inside the gap after a boot-second failure must throttle, got %v", err)
	}
	if a.Synced() {
		t.Fatalf("throttled attempt must not anchor")
	}

	clock.s = 10
	if err := a.Resync(&fakeSource{wall: 1700000000}); err != nil {
		t.Fatalf("post-gap Resync err=%v", err)
	}
}

func TestShouldPush_CadenceFromBootSecondZero(t *testing.T) {
	clock := &fakeClock{s: 0}
	a := New(clock, nil)

	if err := a.ReceiveExternalAnchor(1700000000); err != nil {
		t.Fatalf("anchor err=%v", err)
	}
	if !a.ShouldPush() {
		t.Fatalf("first push at second 0 should fire")
	}

	clock.s = 5
	if a.ShouldPush() {
		t.Fatalf("push inside interval should not fire, even when the first push landed at second 0")
	}

	clock.s = PushInterval
	if !a.ShouldPush() {
		t.Fatalf("push after interval should fire")
	}
}

func TestMaybeResync_HonorsInterval(t *testing.T) {
	clock := &fakeClock{s: 100}
	a := New(clock, nil)
	src := &fakeSource{wall: 1700000000}

	if !a.MaybeResync(src) {
		t.Fatalf("unsynced authority must attempt resync")
	}

	clock.s += 1000
	if a.MaybeResync(src) {
		t.Fatalf("resync attempted inside the interval")
	}

	clock.s += ResyncInterval
	if !a.MaybeResync(src) {
		t.Fatalf("resync not attempted after interval elapsed")
	}
}

func TestPersistedAnchor_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anchor.bin")
	file := NewAnchorFile(path)

	clock := &fakeClock{s: 500}
	a := New(clock, file)
	if err := a.ReceiveExternalAnchor(1700000000); err != nil {
		t.Fatalf("anchor err=%v", err)
	}

	// 100 local seconds later the process restarts
	clock2 := &fakeClock{s: 600}
	b := New(clock2, file)
	if !b.LoadPersisted() {
		t.Fatalf("expected persisted anchor to load")
	}

	got, ok := b.Now()
	if !ok || got != 1700000100 {
		t.Fatalf("Now()=%d ok=%v, want 1700000100", got, ok)
	}
}

func TestPersistedAnchor_StaleRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anchor.bin")
	file := NewAnchorFile(path)

	clock := &fakeClock{s: 0}
	a := New(clock, file)
	if err := a.ReceiveExternalAnchor(1700000000); err != nil {
		t.Fatalf("anchor err=%v", err)
	}

	clock2 := &fakeClock{s: StaleBound + 1}
	b := New(clock2, file)
	if b.LoadPersisted() {
		t.Fatalf("stale persisted anchor must be rejected")
	}
	if b.Synced() {
		t.Fatalf("expected unsynced after stale rejection")
	}
}

func TestPersistedAnchor_MissingFile(t *testing.T) {
	file := NewAnchorFile(filepath.Join(t.TempDir(), "nope.bin"))
	a := New(&fakeClock{}, file)
	if a.LoadPersisted() {
		t.Fatalf("missing file must not load")
	}
}

func TestShouldPush_Cadence(t *testing.T) {
	clock := &fakeClock{s: 10}
	a := New(clock, nil)

	if a.ShouldPush() {
		t.Fatalf("unsynced authority must not push")
	}

	if err := a.ReceiveExternalAnchor(1700000000); err != nil {
		t.Fatalf("anchor err=%v", err)
	}
	if !a.ShouldPush() {
		t.Fatalf("first push should fire")
	}
	if a.ShouldPush() {
		t.Fatalf("second push inside interval should not fire")
	}

	clock.s += PushInterval
	if !a.ShouldPush() {
		t.Fatalf("push after interval should fire")
	}
}
