// internal/config/config.go
package config

type Config struct {
	Logger LoggerConfig `yaml:"logger"`
}

type LoggerConfig struct {
	Device  string        `yaml:"device"`
	Store   StoreConfig   `yaml:"store"`
	Channel ChannelConfig `yaml:"channel"`
	Sample  SampleConfig  `yaml:"sample"`
	Sync    SyncConfig    `yaml:"sync"`
	Time    TimeConfig    `yaml:"time"`
}

// ---- STORE ----

type StoreConfig struct {
	Backend    string `yaml:"backend"` // ring | sqlite
	Path       string `yaml:"path"`
	Capacity   int    `yaml:"capacity"`
	SlotSize   int    `yaml:"slot_size"`
	FlushEvery int    `yaml:"flush_every"` // header persistence cadence, in appends
}

// ---- INTER-NODE CHANNEL ----

type ChannelConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// ---- SAMPLING (sensord only) ----

type SampleConfig struct {
	IntervalMs int           `yaml:"interval_ms"`
	Source     string        `yaml:"source"` // sim | modbus
	Modbus     ModbusConfig  `yaml:"modbus"`
	Points     []PointConfig `yaml:"points"`
}

type ModbusConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	UnitID      uint8   `yaml:"unit_id"`
	TimeoutMs   int     `yaml:"timeout_ms"`
	FlagAddress *uint16 `yaml:"flag_address"` // first of two actuator coils (optional)
}

type PointConfig struct {
	Name    string  `yaml:"name"`
	Address uint16  `yaml:"address"`
	Scale   float32 `yaml:"scale"`
}

// ---- REMOTE SYNC (relayd only) ----

type SyncConfig struct {
	BatchSize int    `yaml:"batch_size"`
	IntervalS int    `yaml:"interval_s"`
	KeyPrefix string `yaml:"key_prefix"`
	Sink      string `yaml:"sink"` // firebase | mqtt

	Firebase FirebaseConfig `yaml:"firebase"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
}

type FirebaseConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Auth token comes from the environment (FIREBASE_AUTH), never YAML.
}

type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	Prefix    string `yaml:"prefix"`
}

// ---- TIME AUTHORITY ----

type TimeConfig struct {
	SourceURL  string `yaml:"source_url"`
	AnchorPath string `yaml:"anchor_path"`
}
