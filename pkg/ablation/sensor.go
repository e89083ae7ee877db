package ablation

import (
	"math/rand"
	"sync"
)

// ImpedanceSensor reads tissue impedance in ohms at the laser tip.
type ImpedanceSensor interface {
	Read() float64
}

// SimulatedSensor reports a baseline impedance with uniform integer jitter
// in [-Jitter, Jitter).
type SimulatedSensor struct {
	Baseline float64
	Jitter   int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedSensor returns a 400 Ω ± 10 sensor seeded with seed.
func NewSimulatedSensor(seed int64) *SimulatedSensor {
	return &SimulatedSensor{
		Baseline: 400,
		Jitter:   10,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Read returns the next reading.
func (s *SimulatedSensor) Read() float64 {
	if s.Jitter <= 0 {
		return s.Baseline
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Baseline + float64(s.rng.Intn(2*s.Jitter)-s.Jitter)
}

// FixedSensor always returns the same reading.
type FixedSensor float64

// Read returns the fixed value.
func (f FixedSensor) Read() float64 { return float64(f) }
