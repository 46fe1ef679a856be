// internal/config/normalize.go
package config

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	l := &cfg.Logger

	if l.Store.Backend == "" {
		l.Store.Backend = "ring"
	}
	if l.Store.FlushEvery == 0 {
		l.Store.FlushEvery = 8
	}

	if l.Channel.Baud == 0 {
		l.Channel.Baud = 115200
	}

	if l.Sample.Source == "" {
		l.Sample.Source = "sim"
	}
	if l.Sample.IntervalMs == 0 {
		l.Sample.IntervalMs = 1000
	}
	if l.Sample.Modbus.TimeoutMs == 0 {
		l.Sample.Modbus.TimeoutMs = 2000
	}

	if l.Sync.BatchSize == 0 {
		l.Sync.BatchSize = 10
	}
	if l.Sync.IntervalS == 0 {
		l.Sync.IntervalS = 300
	}
	if l.Sync.KeyPrefix == "" {
		l.Sync.KeyPrefix = "sensor_data"
	}
	if l.Sync.Firebase.TimeoutMs == 0 {
		l.Sync.Firebase.TimeoutMs = 10000
	}

	if l.Time.SourceURL == "" {
		l.Time.SourceURL = "http://worldtimeapi.org/api/timezone/Etc/UTC"
	}
}
