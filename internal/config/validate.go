// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/tamzrod/sensor-relay/internal/record"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	l := &cfg.Logger

	// ------------------------------------------------------------
	// STORE GEOMETRY
	// ------------------------------------------------------------

	switch l.Store.Backend {
	case "", "ring", "sqlite":
	default:
		return fmt.Errorf("store: unknown backend %q", l.Store.Backend)
	}

	if l.Store.Capacity <= 0 || l.Store.Capacity > 0xFFFF {
		return fmt.Errorf("store: capacity %d out of range 1..65535", l.Store.Capacity)
	}

	if l.Store.SlotSize <= record.PrefixSize {
		return fmt.Errorf("store: slot_size %d must exceed the %d-byte prefix", l.Store.SlotSize, record.PrefixSize)
	}

	if l.Store.FlushEvery < 0 {
		return fmt.Errorf("store: flush_every must be >= 0")
	}

	if l.Store.Path == "" {
		return fmt.Errorf("store: path required")
	}

	// ------------------------------------------------------------
	// SAMPLING
	// ------------------------------------------------------------

	switch l.Sample.Source {
	case "", "sim", "modbus":
	default:
		return fmt.Errorf("sample: unknown source %q", l.Sample.Source)
	}

	if len(l.Sample.Points) > record.MaxMeasurements {
		return fmt.Errorf("sample: %d points exceeds max %d", len(l.Sample.Points), record.MaxMeasurements)
	}

	seen := make(map[string]bool)
	for _, p := range l.Sample.Points {
		if p.Name == "" {
			return fmt.Errorf("sample: point name required")
		}
		for i := 0; i < len(p.Name); i++ {
			if p.Name[i] > 0x7F {
				return fmt.Errorf("sample: point %q must be ASCII only", p.Name)
			}
		}
		if seen[p.Name] {
			return fmt.Errorf("sample: duplicate point %q", p.Name)
		}
		seen[p.Name] = true
	}

	if l.Sample.Source == "modbus" && l.Sample.Modbus.Endpoint == "" {
		return fmt.Errorf("sample: modbus source requires an endpoint")
	}

	// ------------------------------------------------------------
	// SYNC
	// ------------------------------------------------------------

	if l.Sync.BatchSize < 0 {
		return fmt.Errorf("sync: batch_size must be >= 0")
	}

	if l.Sync.IntervalS < 0 {
		return fmt.Errorf("sync: interval_s must be >= 0")
	}

	switch l.Sync.Sink {
	case "", "firebase", "mqtt":
	default:
		return fmt.Errorf("sync: unknown sink %q", l.Sync.Sink)
	}

	if l.Sync.Sink == "firebase" && l.Sync.Firebase.BaseURL == "" {
		return fmt.Errorf("sync: firebase sink requires base_url")
	}

	if l.Sync.Sink == "mqtt" && l.Sync.MQTT.BrokerURL == "" {
		return fmt.Errorf("sync: mqtt sink requires broker_url")
	}

	return nil
}
