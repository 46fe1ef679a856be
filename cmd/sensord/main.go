// cmd/sensord/main.go
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
	"github.com/tamzrod/sensor-relay/internal/sampler"
	"github.com/tamzrod/sensor-relay/internal/status"
	"github.com/tamzrod/sensor-relay/internal/store"
	"github.com/tamzrod/sensor-relay/internal/timesync"
)

// sensord is the acquisition node: it samples sensors on a fixed
// interval, mirrors every reading into its own durable store, and
// forwards readings over the inter-node channel. Its clock is slaved
// to the relay node's anchor pushes; its mirror is truncated on
// CLEARED acknowledgments.

const tickInterval = 100 * time.Millisecond

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: sensord <config.yaml>")
	}

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
	// Mirror store
	// --------------------

	st, err := buildStore(cfg.Logger.Store)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer st.Close()

	// --------------------
	// Time authority (dependent variant: volatile, anchor pushed in)
	// --------------------

	clock := timesync.NewBootClock()
	authority := timesync.New(clock, nil)

	// --------------------
	// Reading source
	// --------------------

	src, closeSampler, err := buildSampler(cfg.Logger.Sample)
	if err != nil {
		log.Fatalf("sampler build failed: %v", err)
	}
	defer closeSampler()

	// --------------------
	// Inter-node channel
	// --------------------

	port, err := channel.Open(cfg.Logger.Channel.Port, cfg.Logger.Channel.Baud)
	if err != nil {
		log.Fatalf("channel open failed: %v", err)
	}
	defer port.Close()

	// --------------------
	// Cooperative tick loop
	// --------------------

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	sampleEvery := time.Duration(cfg.Logger.Sample.IntervalMs) * time.Millisecond
	lastSample := time.Now()
	var lastStatus uint32

	log.Printf("sensord up, mirror %d/%d records", st.Len(), st.Capacity())

	for {
		select {
		case <-sig:
			log.Printf("shutting down")
			if err := st.Flush(); err != nil {
				log.Printf("store flush failed: %v", err)
			}
			return

		case <-ticker.C:
			// 1) drain inbound control messages
			for {
				msg, ok := port.Poll()
				if !ok {
					break
				}
				switch msg.Kind {
				case channel.KindTime:
					if err := authority.ReceiveExternalAnchor(msg.Wall); err != nil {
						log.Printf("time anchor rejected: %v", err)
					}
				case channel.KindCleared:
					if err := st.DropOldest(msg.Cleared); err != nil {
						log.Printf("mirror truncate failed: %v", err)
					} else {
						log.Printf("mirror truncated %d records, %d remain", msg.Cleared, st.Len())
					}
				case channel.KindStatus:
					log.Printf("peer: %s", msg.Text)
				default:
					log.Printf("ignoring inbound message kind %d", msg.Kind)
				}
			}

			// 2) sample when due
			if time.Since(lastSample) >= sampleEvery {
				lastSample = time.Now()
				sampleOnce(src, st, port, authority)
			}

			// 3) occasional status line
			local := clock.Seconds()
			if local-lastStatus >= 30 {
				lastStatus = local
				log.Printf("status: %s", status.Encode(status.Snapshot{
					Stored:     st.Len(),
					Capacity:   st.Capacity(),
					TimeSynced: authority.Synced(),
				}))
			}
		}
	}
}

func sampleOnce(src sampler.Sampler, st store.Store, port *channel.Port, authority *timesync.Authority) {
	rec, err := src.Sample()
	if err != nil {
		log.Printf("sample failed: %v", err)
		return
	}
	rec.Timestamp = authority.NowOrBoot()

	// Mirror first: the reading must survive even if the link is down.
	if err := st.Append(rec); err != nil {
		log.Printf("mirror append failed: %v", err)
	}

	line, err := channel.FormatReading(rec)
	if err != nil {
		log.Printf("reading format failed: %v", err)
		return
	}
	if err := port.Send(line); err != nil {
		log.Printf("reading send failed: %v", err)
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

func buildSampler(sc config.SampleConfig) (sampler.Sampler, func() error, error) {
	points := make([]sampler.Point, len(sc.Points))
	for i, p := range sc.Points {
		points[i] = sampler.Point{Name: p.Name, Address: p.Address, Scale: p.Scale}
	}

	if sc.Source == "modbus" {
		m, err := sampler.NewModbus(sampler.ModbusConfig{
			Endpoint:    sc.Modbus.Endpoint,
			UnitID:      sc.Modbus.UnitID,
			Timeout:     time.Duration(sc.Modbus.TimeoutMs) * time.Millisecond,
			Points:      points,
			FlagAddress: sc.Modbus.FlagAddress,
		})
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	}

	return sampler.NewSim(points), func() error { return nil }, nil
}
