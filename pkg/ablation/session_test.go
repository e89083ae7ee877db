package ablation

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"oncosim/internal/phantom"
	"oncosim/pkg/safety"
	"oncosim/pkg/thermal"
)

func testOptions() Options {
	o := DefaultOptions()
	o.Sensor = FixedSensor(400)
	o.Interval = time.Millisecond
	return o
}

func params(power, target float64) thermal.LaserParams {
	return thermal.LaserParams{PowerW: power, EnergyJ: 500, DurationS: 30, TargetTempC: target, WavelengthNM: 980}
}

// TestSessionID verifies each session gets a UUID
func TestSessionID(t *testing.T) {
	a, b := NewSession(testOptions()), NewSession(testOptions())
	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("Expected UUID, got %q", a.ID)
	}
	if a.ID == b.ID {
		t.Error("Expected distinct session IDs")
	}
}

// TestAdvanceRequiresSetup verifies the input contract
func TestAdvanceRequiresSetup(t *testing.T) {
	s := NewSession(testOptions())
	if _, err := s.Advance(); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("Expected ErrNotPrepared, got %v", err)
	}

	tests := []struct {
		name  string
		setup Setup
	}{
		{"negative power", Setup{Params: params(-1, 60)}},
		{"unknown mode", Setup{Params: params(10, 60), Mode: "burst"}},
		{"mask size", Setup{
			Params:    params(10, 60),
			TumorMask: phantom.Disk(10, 10, 5, 5, 2),
			Base:      image.NewGray(image.Rect(0, 0, 20, 20)),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Prepare(tt.setup); !errors.Is(err, ErrInvalidSetup) {
				t.Errorf("Expected ErrInvalidSetup, got %v", err)
			}
			if err := s.Start(tt.setup, nil); !errors.Is(err, ErrInvalidSetup) {
				t.Errorf("Expected ErrInvalidSetup from Start, got %v", err)
			}
		})
	}
}

// TestAdvanceUntilDestroyed verifies heating ends in destruction and halts
func TestAdvanceUntilDestroyed(t *testing.T) {
	s := NewSession(testOptions())
	if err := s.Prepare(Setup{Params: params(15, 60)}); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	var last Report
	for i := 0; i < 1000; i++ {
		r, err := s.Advance()
		if err != nil {
			t.Fatalf("Advance failed at tick %d: %v", i+1, err)
		}
		if r.Tick != i+1 {
			t.Fatalf("Expected tick %d, got %d", i+1, r.Tick)
		}
		last = r
		if r.Halted {
			break
		}
	}
	if !last.Halted || !last.Destroyed {
		t.Fatalf("Expected destruction, got %+v", last)
	}
	if last.CentroidC < 60 {
		t.Errorf("Expected centroid at target, got %f", last.CentroidC)
	}
	if _, err := s.Advance(); !errors.Is(err, ErrHalted) {
		t.Errorf("Expected ErrHalted, got %v", err)
	}

	s.Reset()
	snap := s.Snapshot()
	if snap.CentroidC != 37 || snap.Ticks != 0 || snap.Halted || len(snap.History) != 0 {
		t.Errorf("Expected baseline after reset, got %+v", snap)
	}
	if _, err := s.Advance(); err != nil {
		t.Errorf("Expected Advance after reset, got %v", err)
	}
}

// TestImpedanceSpikeStops verifies a STOP verdict halts the session
func TestImpedanceSpikeStops(t *testing.T) {
	o := testOptions()
	o.Sensor = FixedSensor(700)
	s := NewSession(o)
	if err := s.Prepare(Setup{Params: params(5, 60)}); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	r, err := s.Advance()
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if r.Verdict.Action != safety.Stop || !r.Halted || r.Destroyed {
		t.Errorf("Expected impedance stop, got %+v", r)
	}
}

// TestPulsedMode verifies the off phase cools the centroid
func TestPulsedMode(t *testing.T) {
	run := func(mode Mode) []float64 {
		s := NewSession(testOptions())
		if err := s.Prepare(Setup{Params: params(1, 60), Mode: mode}); err != nil {
			t.Fatalf("Prepare failed: %v", err)
		}
		var temps []float64
		for i := 0; i < 10; i++ {
			r, err := s.Advance()
			if err != nil {
				t.Fatalf("Advance failed: %v", err)
			}
			temps = append(temps, r.CentroidC)
		}
		return temps
	}

	cw := run(Continuous)
	pulsed := run(Pulsed)
	for i := 0; i < 6; i++ {
		if pulsed[i] != cw[i] {
			t.Errorf("Expected identical on-phase tick %d, got %f vs %f", i+1, pulsed[i], cw[i])
		}
	}
	if pulsed[6] >= pulsed[5] {
		t.Errorf("Expected off-phase cooling at tick 7, got %f after %f", pulsed[6], pulsed[5])
	}
	if pulsed[9] >= cw[9] {
		t.Errorf("Expected pulsed run cooler than continuous, got %f vs %f", pulsed[9], cw[9])
	}
}

// TestReportFrame verifies a heatmap frame accompanies each tick with a base image
func TestReportFrame(t *testing.T) {
	o := phantom.Default()
	base := phantom.Slice(o).ToRGBA()
	mask := phantom.LesionMask(o)

	s := NewSession(testOptions())
	if err := s.Prepare(Setup{Params: params(15, 60), Base: base, TumorMask: mask}); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	r, err := s.Advance()
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if r.Frame == nil || r.Frame.Bounds() != base.Bounds() {
		t.Fatalf("Expected frame of base size, got %v", r.Frame)
	}
}

// TestStartRunsToCompletion verifies the loop ticks sequentially and exits on halt
func TestStartRunsToCompletion(t *testing.T) {
	s := NewSession(testOptions())

	var mu sync.Mutex
	var ticks []int
	err := s.Start(Setup{Params: params(20, 60)}, func(r Report) {
		mu.Lock()
		ticks = append(ticks, r.Tick)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(Setup{Params: params(20, 60)}, nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected loop to finish")
	}
	if s.Running() {
		t.Error("Expected session not running after halt")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) == 0 {
		t.Fatal("Expected at least one tick")
	}
	for i, tk := range ticks {
		if tk != i+1 {
			t.Fatalf("Expected tick %d, got %d", i+1, tk)
		}
	}
	if !s.Snapshot().Destroyed {
		t.Error("Expected destroyed state")
	}
}

// TestStopIdempotent verifies repeated and early stops are safe
func TestStopIdempotent(t *testing.T) {
	s := NewSession(testOptions())
	s.Stop()

	if err := s.Start(Setup{Params: params(0, 60)}, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	s.Stop()
	s.Stop()

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected loop to stop")
	}
	if s.Running() {
		t.Error("Expected session not running after stop")
	}
	s.Stop()

	// The session can be started again after a stop.
	if err := s.Start(Setup{Params: params(0, 60)}, nil); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	s.Reset()
	if s.Running() {
		t.Error("Expected reset to stop the loop")
	}
}

// TestStopFromCallback verifies onTick may stop its own session
func TestStopFromCallback(t *testing.T) {
	s := NewSession(testOptions())
	count := 0
	err := s.Start(Setup{Params: params(0, 60)}, func(r Report) {
		count++
		s.Stop()
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected loop to stop")
	}
	if count != 1 {
		t.Errorf("Expected one tick, got %d", count)
	}
}

// TestSimulatedSensor verifies readings stay within the jitter band
func TestSimulatedSensor(t *testing.T) {
	s := NewSimulatedSensor(42)
	for i := 0; i < 200; i++ {
		v := s.Read()
		if v < 390 || v >= 410 {
			t.Fatalf("Expected reading in [390, 410), got %f", v)
		}
	}
}
