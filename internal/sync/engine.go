// internal/sync/engine.go
package sync

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/tamzrod/sensor-relay/internal/record"
	"github.com/tamzrod/sensor-relay/internal/store"
)

// DefaultBatchSize bounds how many records one cycle uploads.
const DefaultBatchSize = 10

// Config is the minimal runtime config the engine needs. Immutable.
type Config struct {
	BatchSize int
	Interval  uint32 // seconds between forced syncs

	// KeyPrefix prepends the remote key; the record timestamp is the
	// natural key under it.
	KeyPrefix string
	Device    string

	// FieldNames label measurements in the remote document, by index.
	// Missing names fall back to m<i>.
	FieldNames []string
}

// Engine drains the durable store to the remote sink in batches.
// It never writes slot bytes itself; the store API is the only door.
type Engine struct {
	cfg       Config
	store     store.Store
	transport Transport

	// staging exists purely to detect a full batch without re-reading
	// the store every tick. Disposable; the store is the truth.
	staging []record.Record

	lastSync    uint32
	retry       bool
	syncedTotal int

	// notify fires after a confirmed clear so the acquisition node can
	// truncate its mirror. Synchronous by contract.
	notify func(cleared int)
}

func New(cfg Config, st store.Store, tr Transport, notify func(cleared int)) (*Engine, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Interval == 0 {
		return nil, errors.New("sync: interval must be > 0")
	}
	if cfg.KeyPrefix == "" {
		return nil, errors.New("sync: key prefix required")
	}
	if st == nil || tr == nil {
		return nil, errors.New("sync: store and transport required")
	}
	return &Engine{
		cfg:       cfg,
		store:     st,
		transport: tr,
		staging:   make([]record.Record, 0, cfg.BatchSize),
		notify:    notify,
	}, nil
}

// Offer hands a freshly produced record to the staging buffer. The
// durable append happens elsewhere; this is trigger bookkeeping only.
func (e *Engine) Offer(r record.Record) {
	if len(e.staging) >= e.cfg.BatchSize {
		// Bounded: drop the oldest staged entry. The store still has it.
		copy(e.staging, e.staging[1:])
		e.staging = e.staging[:len(e.staging)-1]
	}
	e.staging = append(e.staging, r)
}

// SyncedTotal is the lifetime count of confirmed uploads.
func (e *Engine) SyncedTotal() int { return e.syncedTotal }

// Pending is the staged count since the last attempt.
func (e *Engine) Pending() int { return len(e.staging) }

// MaybeSync runs one sync cycle if due. A cycle is due when the
// staging buffer reached batch capacity or the interval elapsed since
// the last successful sync, whichever first.
func (e *Engine) MaybeSync(now uint32) Outcome {
	if e.lastSync == 0 {
		e.lastSync = now
	}

	due := e.retry || len(e.staging) >= e.cfg.BatchSize || now-e.lastSync >= e.cfg.Interval
	if !due {
		return Outcome{Status: Skipped}
	}

	if e.store.Len() == 0 {
		e.staging = e.staging[:0]
		e.lastSync = now
		e.retry = false
		return Outcome{Status: Skipped}
	}

	if !e.transport.Connected() {
		return Outcome{Status: Skipped, Reason: ErrNoConnectivity}
	}

	// Staging served its trigger purpose; the batch is rebuilt from
	// the durable store so nothing short of a confirmed upload is lost.
	e.staging = e.staging[:0]

	n := e.cfg.BatchSize
	if e.store.Len() < n {
		n = e.store.Len()
	}

	confirmed := 0
	uploaded := 0
	for i := 0; i < n; i++ {
		rec, err := e.store.Read(i)
		if err != nil {
			if errors.Is(err, store.ErrCorruptRecord) {
				// A corrupt slot can never upload. Counting it confirmed
				// keeps it from wedging the queue forever.
				log.Printf("sync: corrupt record at index %d, skipping", i)
				confirmed++
				continue
			}
			return e.abort(confirmed, fmt.Errorf("sync: read index %d: %w", i, err))
		}

		if err := e.transport.Upsert(e.key(rec), e.fields(rec)); err != nil {
			var remote *RemoteError
			if errors.As(err, &remote) && remote.Definitive {
				log.Printf("sync: upsert %s rejected by sink: %v", e.key(rec), err)
			} else {
				log.Printf("sync: upsert %s failed: %v", e.key(rec), err)
			}
			return e.abort(confirmed, err)
		}
		confirmed++
		uploaded++
	}

	// Entire requested batch confirmed: clear exactly those entries.
	if err := e.store.DropOldest(confirmed); err != nil {
		log.Printf("sync: drop after confirm failed: %v", err)
	}
	e.syncedTotal += uploaded
	e.lastSync = now
	e.retry = false
	if e.notify != nil && confirmed > 0 {
		e.notify(confirmed)
	}
	return Outcome{Status: Synced, Confirmed: confirmed}
}

// abort ends the batch early. Nothing is cleared: the next cycle
// retries from the same oldest record, and upserts make the replay of
// the confirmed prefix idempotent. The retry flag makes that next
// cycle due regardless of staging or interval.
func (e *Engine) abort(confirmed int, reason error) Outcome {
	e.retry = true
	st := Failed
	if confirmed > 0 {
		st = Partial
	}
	return Outcome{Status: st, Confirmed: confirmed, Reason: reason}
}

func (e *Engine) key(r record.Record) string {
	return e.cfg.KeyPrefix + "/" + strconv.FormatUint(uint64(r.Timestamp), 10)
}

func (e *Engine) fields(r record.Record) map[string]interface{} {
	f := map[string]interface{}{
		"timestamp": r.Timestamp,
		"status":    r.Status,
		"relay1":    r.Flags[0],
		"relay2":    r.Flags[1],
	}
	if e.cfg.Device != "" {
		f["device"] = e.cfg.Device
	}
	for i, m := range r.Measurements {
		name := "m" + strconv.Itoa(i)
		if i < len(e.cfg.FieldNames) && e.cfg.FieldNames[i] != "" {
			name = e.cfg.FieldNames[i]
		}
		f[name] = m
	}
	return f
}
