// internal/sampler/modbus.go
package sampler

import (
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/sensor-relay/internal/record"
)

// registerReader is the exact contract the sampler uses from Modbus.
type registerReader interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	ReadCoils(address, quantity uint16) ([]byte, error)
}

// Modbus reads each configured point as one input register and, when
// FlagAddress is set, two coils for the actuator flags. All-or-nothing:
// any read failure fails the whole sample.
type Modbus struct {
	client registerReader
	points []Point

	// FlagAddress, if non-nil, is the first of two coils mirrored into
	// the record's actuator flags.
	flagAddr *uint16

	closer func() error
}

type ModbusConfig struct {
	Endpoint    string // host:port (TCP)
	UnitID      uint8
	Timeout     time.Duration
	Points      []Point
	FlagAddress *uint16
}

func NewModbus(cfg ModbusConfig) (*Modbus, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("sampler: endpoint required")
	}
	if len(cfg.Points) == 0 {
		return nil, errors.New("sampler: at least one point required")
	}
	if len(cfg.Points) > record.MaxMeasurements {
		return nil, fmt.Errorf("sampler: %d points over max %d", len(cfg.Points), record.MaxMeasurements)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	handler := modbus.NewTCPClientHandler(cfg.Endpoint)
	handler.Timeout = cfg.Timeout
	handler.SlaveId = cfg.UnitID
	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("sampler: connect %s: %w", cfg.Endpoint, err)
	}

	return &Modbus{
		client:   modbus.NewClient(handler),
		points:   cfg.Points,
		flagAddr: cfg.FlagAddress,
		closer:   handler.Close,
	}, nil
}

func (m *Modbus) Sample() (record.Record, error) {
	values := make([]float32, len(m.points))
	for i, pt := range m.points {
		raw, err := m.client.ReadInputRegisters(pt.Address, 1)
		if err != nil {
			return record.Record{}, fmt.Errorf("sampler: read %s: %w", pt.Name, err)
		}
		if len(raw) < 2 {
			return record.Record{}, fmt.Errorf("sampler: short response for %s", pt.Name)
		}
		v := float32(uint16(raw[0])<<8 | uint16(raw[1]))
		scale := pt.Scale
		if scale == 0 {
			scale = 1
		}
		values[i] = v * scale
	}

	rec := record.Record{
		Measurements: values,
		Status:       record.StatusOK,
	}

	if m.flagAddr != nil {
		bits, err := m.client.ReadCoils(*m.flagAddr, 2)
		if err != nil {
			return record.Record{}, fmt.Errorf("sampler: read flags: %w", err)
		}
		if len(bits) >= 1 {
			if bits[0]&0x01 != 0 {
				rec.Flags[0] = 1
			}
			if bits[0]&0x02 != 0 {
				rec.Flags[1] = 1
			}
		}
	}

	return rec, nil
}

func (m *Modbus) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}
