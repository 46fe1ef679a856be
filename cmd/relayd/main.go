// cmd/relayd/main.go
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tamzrod/sensor-relay/internal/channel"
	"github.com/tamzrod/sensor-relay/internal/config"
	"github.com/tamzrod/sensor-relay/internal/status"
	"github.com/tamzrod/sensor-relay/internal/store"
	syncengine "github.com/tamzrod/sensor-relay/internal/sync"
	"github.com/tamzrod/sensor-relay/internal/sync/firebase"
	"github.com/tamzrod/sensor-relay/internal/sync/mqttsink"
	"github.com/tamzrod/sensor-relay/internal/timesync"
)

// relayd is the network node: it receives readings over the inter-node
// channel, buffers them durably, drains batches to the remote sink,
// and owns the time authority the sensor node depends on.

const tickInterval = 100 * time.Millisecond

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: relayd <config.yaml>")
	}

	// Secrets live in the environment, optionally seeded from .env.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	// --------------------
	// Durable store
	// --------------------

	st, err := buildStore(cfg.Logger.Store)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer st.Close()

	// --------------------
	// Time authority (network variant: persisted anchor + HTTP source)
	// --------------------

	clock := timesync.NewBootClock()
	var anchorFile *timesync.AnchorFile
	if cfg.Logger.Time.AnchorPath != "" {
		anchorFile = timesync.NewAnchorFile(cfg.Logger.Time.AnchorPath)
	}
	authority := timesync.New(clock, anchorFile)
	authority.LoadPersisted()
	timeSource := timesync.NewHTTPSource(cfg.Logger.Time.SourceURL, 5*time.Second)

	// --------------------
	// Inter-node channel
	// --------------------

	port, err := channel.Open(cfg.Logger.Channel.Port, cfg.Logger.Channel.Baud)
	if err != nil {
		log.Fatalf("channel open failed: %v", err)
	}
	defer port.Close()

	// --------------------
	// Remote transport + sync engine
	// --------------------

	transport, err := buildTransport(cfg.Logger.Sync)
	if err != nil {
		log.Fatalf("transport build failed: %v", err)
	}

	notify := func(cleared int) {
		if err := port.Send(channel.FormatCleared(cleared)); err != nil {
			log.Printf("cleared notify failed: %v", err)
		}
	}

	engine, err := syncengine.New(syncengine.Config{
		BatchSize:  cfg.Logger.Sync.BatchSize,
		Interval:   uint32(cfg.Logger.Sync.IntervalS),
		KeyPrefix:  cfg.Logger.Sync.KeyPrefix,
		Device:     cfg.Logger.Device,
		FieldNames: pointNames(cfg.Logger.Sample.Points),
	}, st, transport, notify)
	if err != nil {
		log.Fatalf("sync engine build failed: %v", err)
	}

	// --------------------
	// Cooperative tick loop
	// --------------------

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var lastStatus uint32

	log.Printf("relayd up, store %d/%d records", st.Len(), st.Capacity())

	for {
		select {
		case <-sig:
			log.Printf("shutting down")
			if err := st.Flush(); err != nil {
				log.Printf("store flush failed: %v", err)
			}
			return

		case <-ticker.C:
			// 1) drain inbound channel
			for {
				msg, ok := port.Poll()
				if !ok {
					break
				}
				handleInbound(msg, st, engine, authority)
			}

			// 2) periodic work
			authority.MaybeResync(timeSource)

			if authority.ShouldPush() {
				if wall, ok := authority.Now(); ok {
					if err := port.Send(channel.FormatTime(wall)); err != nil {
						log.Printf("time push failed: %v", err)
					}
				}
			}

			outcome := engine.MaybeSync(authority.NowOrBoot())
			switch outcome.Status {
			case syncengine.Synced:
				log.Printf("sync: %d records confirmed, %d remain", outcome.Confirmed, st.Len())
			case syncengine.Partial, syncengine.Failed:
				log.Printf("sync %s: confirmed=%d err=%v", outcome.Status, outcome.Confirmed, outcome.Reason)
			}

			local := authority.NowOrBoot()
			if local-lastStatus >= 15 {
				lastStatus = local
				snap := status.Snapshot{
					Stored:      st.Len(),
					Capacity:    st.Capacity(),
					SyncedTotal: engine.SyncedTotal(),
					TimeSynced:  authority.Synced(),
				}
				line := status.Encode(snap)
				log.Printf("status: %s", line)
				if err := port.Send(channel.FormatStatus(line)); err != nil {
					log.Printf("status send failed: %v", err)
				}
			}
		}
	}
}

func handleInbound(msg channel.Message, st store.Store, engine *syncengine.Engine, authority *timesync.Authority) {
	switch msg.Kind {
	case channel.KindReading:
		rec := msg.Reading
		if rec.Timestamp == 0 {
			rec.Timestamp = authority.NowOrBoot()
		}
		if err := st.Append(rec); err != nil {
			log.Printf("append failed: %v", err)
			return
		}
		engine.Offer(rec)

	case channel.KindStatus:
		log.Printf("peer: %s", msg.Text)

	default:
		// TIME and CLEARED originate here; a loopback is harmless noise.
		log.Printf("ignoring inbound message kind %d", msg.Kind)
	}
}

func buildStore(sc config.StoreConfig) (store.Store, error) {
	if sc.Backend == "sqlite" {
		return store.OpenSQLite(sc.Path, sc.Capacity, sc.SlotSize)
	}

	size := int64(store.HeaderSize + sc.Capacity*sc.SlotSize)
	region, err := store.OpenFileRegion(sc.Path, size)
	if err != nil {
		return nil, err
	}
	return store.Open(region, store.Geometry{
		Capacity:   sc.Capacity,
		SlotSize:   sc.SlotSize,
		FlushEvery: sc.FlushEvery,
	})
}

func buildTransport(sc config.SyncConfig) (syncengine.Transport, error) {
	switch sc.Sink {
	case "mqtt":
		return mqttsink.New(mqttsink.Config{
			BrokerURL: sc.MQTT.BrokerURL,
			ClientID:  sc.MQTT.ClientID,
			Prefix:    sc.MQTT.Prefix,
		})
	default:
		return firebase.New(firebase.Config{
			BaseURL: sc.Firebase.BaseURL,
			Auth:    os.Getenv("FIREBASE_AUTH"),
			Timeout: time.Duration(sc.Firebase.TimeoutMs) * time.Millisecond,
		})
	}
}

func pointNames(points []config.PointConfig) []string {
	names := make([]string, len(points))
	for i, p := range points {
		names[i] = p.Name
	}
	return names
}
