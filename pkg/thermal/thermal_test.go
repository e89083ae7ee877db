package thermal

import (
	"errors"
	"math"
	"testing"

	"oncosim/pkg/config"
)

// TestAbsorption verifies nearest-wavelength lookup
func TestAbsorption(t *testing.T) {
	tests := []struct {
		in      float64
		nearest float64
		muA     float64
	}{
		{980, 980, 0.15},
		{1000, 980, 0.15},
		{1050, 1064, 0.12},
		{1400, 1470, 1.20},
		{500, 810, 0.08},
		{20000, 10600, 20.0},
		{895, 810, 0.08}, // equidistant from 810 and 980
	}
	for _, tt := range tests {
		nearest, muA := Absorption(tt.in)
		if nearest != tt.nearest || muA != tt.muA {
			t.Errorf("Absorption(%v): expected (%v, %v), got (%v, %v)", tt.in, tt.nearest, tt.muA, nearest, muA)
		}
	}
}

// TestCalculateLaserParams verifies the dose for a 20 mm tumor at the surface
func TestCalculateLaserParams(t *testing.T) {
	p, err := CalculateLaserParams(20, 0, 980)
	if err != nil {
		t.Fatalf("CalculateLaserParams failed: %v", err)
	}
	// 4/3·π·10³ mm³ = 4.18879 cm³; ×4.18×28 = 490.256 J
	if math.Abs(p.EnergyJ-490.26) > 1e-6 {
		t.Errorf("Expected energy 490.26 J, got %f", p.EnergyJ)
	}
	if math.Abs(p.PowerW-16.34) > 1e-6 {
		t.Errorf("Expected power 16.34 W, got %f", p.PowerW)
	}
	if p.DurationS != 30 {
		t.Errorf("Expected duration 30 s, got %f", p.DurationS)
	}
	if p.TargetTempC != 65 {
		t.Errorf("Expected target 65, got %f", p.TargetTempC)
	}
}

// TestCalculateLaserParamsDepth verifies deeper tumors need more energy
func TestCalculateLaserParamsDepth(t *testing.T) {
	shallow, _ := CalculateLaserParams(20, 1, 980)
	deep, _ := CalculateLaserParams(20, 10, 980)
	if deep.EnergyJ <= shallow.EnergyJ {
		t.Errorf("Expected deeper tumor to need more energy, got %f <= %f", deep.EnergyJ, shallow.EnergyJ)
	}
	want := shallow.EnergyJ * math.Exp(0.15*9)
	if math.Abs(deep.EnergyJ-want)/want > 0.001 {
		t.Errorf("Expected energy %f, got %f", want, deep.EnergyJ)
	}
}

// TestCalculateLaserParamsClamp verifies the power cap stretches the duration
func TestCalculateLaserParamsClamp(t *testing.T) {
	p, err := CalculateLaserParams(40, 20, 1470)
	if err != nil {
		t.Fatalf("CalculateLaserParams failed: %v", err)
	}
	if p.PowerW != 100 {
		t.Errorf("Expected power clamped to 100 W, got %f", p.PowerW)
	}
	if math.Abs(p.DurationS-p.EnergyJ/100) > 0.05 {
		t.Errorf("Expected duration %f, got %f", p.EnergyJ/100, p.DurationS)
	}
	if p.DurationS <= 30 {
		t.Errorf("Expected duration above 30 s, got %f", p.DurationS)
	}
}

// TestCalculateLaserParamsErrors verifies invalid inputs are rejected
func TestCalculateLaserParamsErrors(t *testing.T) {
	if _, err := CalculateLaserParams(10, 5, 0); !errors.Is(err, ErrInvalidWavelength) {
		t.Errorf("Expected ErrInvalidWavelength, got %v", err)
	}
	if _, err := CalculateLaserParams(-1, 5, 980); !errors.Is(err, ErrNegativeGeometry) {
		t.Errorf("Expected ErrNegativeGeometry, got %v", err)
	}
	if _, err := CalculateLaserParams(10, -5, 980); !errors.Is(err, ErrNegativeGeometry) {
		t.Errorf("Expected ErrNegativeGeometry, got %v", err)
	}
	p, err := CalculateLaserParams(0, 5, 980)
	if err != nil || p.EnergyJ != 0 || p.PowerW != 0 {
		t.Errorf("Expected zero dose for zero size, got %+v, %v", p, err)
	}
}

// TestLaserParamsValidate verifies the input contract of the real-time loop
func TestLaserParamsValidate(t *testing.T) {
	good := LaserParams{PowerW: 10, EnergyJ: 300, DurationS: 30, TargetTempC: 60, WavelengthNM: 980}
	if err := good.Validate(); err != nil {
		t.Errorf("Expected valid params, got %v", err)
	}

	tests := []struct {
		name   string
		modify func(*LaserParams)
	}{
		{"negative power", func(p *LaserParams) { p.PowerW = -1 }},
		{"negative energy", func(p *LaserParams) { p.EnergyJ = -1 }},
		{"negative duration", func(p *LaserParams) { p.DurationS = -1 }},
		{"zero wavelength", func(p *LaserParams) { p.WavelengthNM = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := good
			tt.modify(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

// TestStepHeats verifies a powered tick at baseline raises temperature
func TestStepHeats(t *testing.T) {
	e := NewEngine()
	tick := e.Step(37, 60, 15, 1000)

	// mass = 1050·(15+50)·1e-6·0.005; rise = 1.5/(mass·3600)
	mass := 1050 * 65e-6 * 0.005
	want := 37 + 1.5/(mass*3600)
	if math.Abs(tick.Next-want) > 1e-9 {
		t.Errorf("Expected %f, got %f", want, tick.Next)
	}
	if tick.Next <= 37 {
		t.Errorf("Expected heating, got %f", tick.Next)
	}
	if tick.Margin <= 37 || tick.Margin >= tick.Next {
		t.Errorf("Expected margin between baseline and centroid, got %f", tick.Margin)
	}
	if tick.Destroyed {
		t.Error("Expected not destroyed after one tick")
	}
}

// TestStepCools verifies an unpowered hot centroid relaxes toward baseline
func TestStepCools(t *testing.T) {
	e := NewEngine()
	tick := e.Step(50, 60, 0, 1000)
	if tick.Next >= 50 || tick.Next <= 37 {
		t.Errorf("Expected cooling toward 37, got %f", tick.Next)
	}

	at := e.Step(37, 60, 0, 1000)
	if at.Next != 37 {
		t.Errorf("Expected equilibrium at baseline, got %f", at.Next)
	}
}

// TestStepDestroyed verifies the destroyed flag is first set on the tick
// that reaches the target and that Step is deterministic
func TestStepDestroyed(t *testing.T) {
	e := NewEngine()
	temp := 37.0
	var prev, tick Tick
	ticks := 0
	for ticks < 1000 && !tick.Destroyed {
		prev = tick
		tick = e.Step(temp, 60, 20, 500)
		temp = tick.Next
		ticks++
	}
	if !tick.Destroyed || tick.Next < 60 {
		t.Fatalf("Expected destruction at 60, got %f destroyed=%v", tick.Next, tick.Destroyed)
	}
	if ticks < 2 {
		t.Fatalf("Expected more than one tick to reach the target, got %d", ticks)
	}
	if prev.Destroyed || prev.Next >= 60 {
		t.Errorf("Expected previous tick below target and not destroyed, got %f destroyed=%v", prev.Next, prev.Destroyed)
	}

	a := e.Step(prev.Next, 60, 20, 500)
	b := e.Step(prev.Next, 60, 20, 500)
	if a != b {
		t.Errorf("Expected identical ticks for identical inputs, got %+v and %+v", a, b)
	}
	if a != tick {
		t.Errorf("Expected re-evaluation to reproduce %+v, got %+v", tick, a)
	}
}

// TestPerfusion verifies vasodilation and shutdown
func TestPerfusion(t *testing.T) {
	e := NewEngine()
	if got := e.Perfusion(30); got != 0.004 {
		t.Errorf("Expected base perfusion below baseline, got %f", got)
	}
	if got := e.Perfusion(45); got <= 0.004 {
		t.Errorf("Expected vasodilation above baseline, got %f", got)
	}
	if got := e.Perfusion(61); got != 0 {
		t.Errorf("Expected shutdown above 60, got %f", got)
	}
}

// TestEngineFromConfig verifies config overrides
func TestEngineFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Thermal.MarginFraction = 0.3
	e := EngineFromConfig(cfg)
	if e.MarginFraction != 0.3 || e.TimeStep != 0.1 || e.BaselineTemp != 37 {
		t.Errorf("Unexpected engine: %+v", e)
	}
}

// TestDosimetryFromConfig verifies that the power cap comes from the config
func TestDosimetryFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Thermal.MaxPowerW = 5
	d := DosimetryFromConfig(cfg)

	p, err := d.Calculate(20, 0, 980)
	if err != nil {
		t.Fatalf("Failed to calculate: %v", err)
	}
	if p.PowerW != 5 {
		t.Errorf("Expected power clamped to 5 W, got %f", p.PowerW)
	}
	if p.DurationS <= 30 {
		t.Errorf("Expected stretched duration, got %f", p.DurationS)
	}
}

// TestHistoryFIFO verifies eviction order and capacity
func TestHistoryFIFO(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 15; i++ {
		h.Push(float64(i))
	}
	if h.Len() != 10 {
		t.Fatalf("Expected 10 samples, got %d", h.Len())
	}
	vals := h.Values()
	for i, v := range vals {
		if v != float64(i+5) {
			t.Errorf("Expected sample %d to be %d, got %f", i, i+5, v)
		}
	}
	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Expected empty history, got %d", h.Len())
	}
}

// TestStateLifecycle verifies apply and reset
func TestStateLifecycle(t *testing.T) {
	s := NewState(37, 10)
	s.Apply(Tick{Next: 40, Margin: 38, Destroyed: false})
	s.Apply(Tick{Next: 61, Margin: 45, Destroyed: true})
	if s.Current != 61 || s.Margin != 45 || !s.Destroyed || s.Ticks != 2 {
		t.Errorf("Unexpected state: %+v", s)
	}
	if s.History.Len() != 2 {
		t.Errorf("Expected 2 samples, got %d", s.History.Len())
	}

	s.Reset()
	if s.Current != 37 || s.Destroyed || s.History.Len() != 0 || s.Ticks != 0 {
		t.Errorf("Expected baseline after reset, got %+v", s)
	}
}
