// internal/timesync/authority.go
package timesync

import (
	"errors"
	"log"
)

// Tuning constants. Floors and bounds come from field experience with
// offline drift; they are deliberately not configurable.
const (
	// PlausibilityFloor is 2021-01-01 UTC. Any wall time before it is
	// corrupt or stale and is rejected outright.
	PlausibilityFloor uint32 = 1609459200

	// ResyncInterval bounds drift accumulation between source queries.
	ResyncInterval uint32 = 24 * 60 * 60

	// minAttemptGap keeps a flaky source from being hammered.
	minAttemptGap uint32 = 10

	// StaleBound rejects persisted anchors older than 7 days of local
	// clock; offline drift compounds unboundedly past that.
	StaleBound uint32 = 7 * 24 * 60 * 60

	// PushInterval is how often the network node broadcasts its anchor
	// to the dependent node.
	PushInterval uint32 = 60
)

var (
	ErrUnsynced      = errors.New("timesync: no anchor accepted")
	ErrStaleAnchor   = errors.New("timesync: persisted anchor too stale")
	ErrInvalidAnchor = errors.New("timesync: wall time below plausibility floor")
)

// Anchor maps a monotonic local clock reading to wall-clock seconds.
type Anchor struct {
	WallSeconds   uint32
	LocalAtAnchor uint32
}

// Clock yields monotonic local seconds since boot. Interface so tests
// can drive time by hand.
type Clock interface {
	Seconds() uint32
}

// Source is an external wall-time provider.
type Source interface {
	FetchUnixTime() (uint32, error)
}

// Authority maintains the wall-clock estimate for one node.
// The network node persists its anchor and pushes it to the dependent
// node, which holds its copy in volatile memory only.
type Authority struct {
	clock Clock
	file  *AnchorFile // nil on the dependent node

	anchor Anchor
	synced bool

	// attempted/pushed distinguish "never happened" from an event at
	// local second 0; the timestamps alone cannot.
	attempted   bool
	lastAttempt uint32
	lastSuccess uint32
	pushed      bool
	lastPush    uint32
}

// New builds an authority. file may be nil for volatile-only nodes.
func New(clock Clock, file *AnchorFile) *Authority {
	return &Authority{clock: clock, file: file}
}

// Now returns the wall-clock estimate, or ok=false when no anchor has
// ever been accepted.
func (a *Authority) Now() (uint32, bool) {
	if !a.synced {
		return 0, false
	}
	return a.anchor.WallSeconds + (a.clock.Seconds() - a.anchor.LocalAtAnchor), true
}

// NowOrBoot falls back to boot-relative seconds when unsynced.
// Inferior but monotonic; callers that need to know which they got
// use Now directly.
func (a *Authority) NowOrBoot() uint32 {
	if w, ok := a.Now(); ok {
		return w
	}
	return a.clock.Seconds()
}

func (a *Authority) Synced() bool { return a.synced }

// ReceiveExternalAnchor re-anchors from a pushed wall time. One-way
// trust: accepted unconditionally past the plausibility floor.
func (a *Authority) ReceiveExternalAnchor(wall uint32) error {
	return a.accept(wall)
}

// Resync queries the external source and establishes a new anchor.
// Failure leaves the previous anchor authoritative.
func (a *Authority) Resync(src Source) error {
	local := a.clock.Seconds()
	if a.attempted && local-a.lastAttempt < minAttemptGap {
		return ErrUnsynced
	}
	a.attempted = true
	a.lastAttempt = local

	wall, err := src.FetchUnixTime()
	if err != nil {
		log.Printf("timesync: resync failed: %v", err)
		return ErrUnsynced
	}
	if err := a.accept(wall); err != nil {
		return err
	}
	a.lastSuccess = a.clock.Seconds()
	return nil
}

// MaybeResync runs Resync when unsynced or when the resync interval
// has elapsed. Returns true if a resync was attempted.
func (a *Authority) MaybeResync(src Source) bool {
	local := a.clock.Seconds()
	if a.synced && local-a.lastSuccess < ResyncInterval {
		return false
	}
	if err := a.Resync(src); err == nil {
		log.Printf("timesync: anchored, wall=%d", a.anchor.WallSeconds)
	}
	return true
}

// ShouldPush reports whether the anchor broadcast is due and records
// the push when it is.
func (a *Authority) ShouldPush() bool {
	if !a.synced {
		return false
	}
	local := a.clock.Seconds()
	if a.pushed && local-a.lastPush < PushInterval {
		return false
	}
	a.pushed = true
	a.lastPush = local
	return true
}

// LoadPersisted restores the anchor saved by a previous run. Accepted
// only when the local-clock delta since save is under StaleBound; the
// elapsed delta is folded into the restored wall time.
func (a *Authority) LoadPersisted() bool {
	if a.file == nil {
		return false
	}
	saved, err := a.file.Load()
	if err != nil {
		return false
	}
	if saved.WallSeconds < PlausibilityFloor {
		log.Printf("timesync: persisted anchor below plausibility floor, discarding")
		return false
	}

	elapsed := a.clock.Seconds() - saved.LocalAtAnchor
	if elapsed > StaleBound {
		log.Printf("timesync: persisted anchor stale (%ds), discarding", elapsed)
		return false
	}

	a.anchor = Anchor{
		WallSeconds:   saved.WallSeconds + elapsed,
		LocalAtAnchor: a.clock.Seconds(),
	}
	a.synced = true
	log.Printf("timesync: restored persisted anchor, wall=%d", a.anchor.WallSeconds)
	return true
}

func (a *Authority) accept(wall uint32) error {
	if wall < PlausibilityFloor {
		return ErrInvalidAnchor
	}
	a.anchor = Anchor{WallSeconds: wall, LocalAtAnchor: a.clock.Seconds()}
	a.synced = true
	if a.file != nil {
		if err := a.file.Save(a.anchor); err != nil {
			log.Printf("timesync: anchor persist failed: %v", err)
		}
	}
	return nil
}
