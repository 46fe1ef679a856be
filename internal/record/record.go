// internal/record/record.go
package record

// MaxMeasurements bounds the measurement array per record.
// Deployments configure the actual count; the codec only enforces the ceiling.
const MaxMeasurements = 6

// Record is one sensor observation.
// Timestamp doubles as the idempotency key for remote sync.
type Record struct {
	Timestamp    uint32
	Measurements []float32
	Status       uint8

	// Flags carries auxiliary digital state (relay outputs etc.)
	// captured alongside the reading. Context only, not correctness.
	Flags [2]uint8
}

// StatusOK / StatusError mirror the device-side status codes.
const (
	StatusError uint8 = 0
	StatusOK    uint8 = 1
)
