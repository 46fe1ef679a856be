// internal/sampler/sampler.go
package sampler

import (
	"math/rand"

	"github.com/tamzrod/sensor-relay/internal/record"
)

// Sampler produces one reading per call. Timestamp is left zero; the
// caller stamps it from the time authority at ingestion.
type Sampler interface {
	Sample() (record.Record, error)
}

// Point is one measurement channel: a raw register scaled to
// engineering units.
type Point struct {
	Name    string
	Address uint16
	Scale   float32 // raw * Scale = value; 0 treated as 1
}

// Sim is a bench sampler emitting plausible drifting values, one per
// configured point.
type Sim struct {
	points []Point
	last   []float32
}

func NewSim(points []Point) *Sim {
	s := &Sim{points: points, last: make([]float32, len(points))}
	for i := range s.last {
		s.last[i] = 20 + rand.Float32()*10
	}
	return s
}

func (s *Sim) Sample() (record.Record, error) {
	m := make([]float32, len(s.points))
	for i := range s.points {
		s.last[i] += rand.Float32() - 0.5
		m[i] = s.last[i]
	}
	return record.Record{
		Measurements: m,
		Status:       record.StatusOK,
	}, nil
}
