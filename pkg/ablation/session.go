// Package ablation runs the real-time laser ablation loop: one thermal
// update, one safety evaluation and one heatmap frame per tick, until the
// operator stops, the monitor orders a stop or the tumor is destroyed.
package ablation

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"oncosim/internal/log"
	"oncosim/internal/models"
	"oncosim/pkg/config"
	"oncosim/pkg/heatmap"
	"oncosim/pkg/safety"
	"oncosim/pkg/thermal"
)

// Mode is the laser emission mode.
type Mode string

const (
	Continuous Mode = "continuous"
	Pulsed     Mode = "pulsed"
)

// Pulsed emission: in every cycle of pulseCycle ticks the laser is off from
// tick pulseOffFrom on and the centroid loses pulseCooling °C per tick.
const (
	pulseCycle   = 10
	pulseOffFrom = 6
	pulseCooling = 0.3
)

// defaultAreaPx is the tumor area assumed when no mask is supplied.
const defaultAreaPx = 1000

// Setup describes one procedure.
type Setup struct {
	// Params are the laser settings; PowerW and TargetTempC drive the loop
	Params thermal.LaserParams

	// StartTempC is the tissue temperature at the start, 0 for body temperature
	StartTempC float64

	// Mode selects continuous or pulsed emission, empty means continuous
	Mode Mode

	// TumorMask sizes the heated zone and shapes the heatmap; optional
	TumorMask *models.Mask

	// Base is the image the heatmap is drawn on; no frames without it
	Base image.Image
}

func (s Setup) validate() error {
	if err := s.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetup, err)
	}
	if s.Mode != "" && s.Mode != Continuous && s.Mode != Pulsed {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSetup, s.Mode)
	}
	if s.TumorMask != nil && s.Base != nil {
		b := s.Base.Bounds()
		if err := s.TumorMask.CheckCongruent(b.Dx(), b.Dy()); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSetup, err)
		}
	}
	return nil
}

// Report is published after every tick.
type Report struct {
	// Tick is the 1-based tick number
	Tick int

	// ElapsedS is the simulated time in seconds
	ElapsedS float64

	// CentroidC and MarginC are the new temperatures
	CentroidC float64
	MarginC   float64

	// TargetC is the absolute ablation target
	TargetC float64

	// Impedance is the sensor reading used for this tick
	Impedance float64

	// Verdict is the safety recommendation
	Verdict safety.Verdict

	// Destroyed is set once the centroid reached the target
	Destroyed bool

	// Halted is set when this tick ended the procedure
	Halted bool

	// Frame is the heatmap overlay, nil without a base image
	Frame *image.RGBA
}

// Options configure a session's collaborators.
type Options struct {
	Engine      thermal.Engine
	Limits      safety.Limits
	Sensor      ImpedanceSensor
	Interval    time.Duration
	HistorySize int
}

// DefaultOptions returns the standard engine and limits with a simulated
// sensor and a 100 ms tick.
func DefaultOptions() Options {
	return Options{
		Engine:      thermal.NewEngine(),
		Limits:      safety.DefaultLimits(),
		Sensor:      NewSimulatedSensor(time.Now().UnixNano()),
		Interval:    100 * time.Millisecond,
		HistorySize: 10,
	}
}

// OptionsFromConfig builds Options from the thermal and safety sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	o := DefaultOptions()
	o.Engine = thermal.EngineFromConfig(cfg)
	o.Limits = safety.LimitsFromConfig(cfg)
	o.Interval = time.Duration(cfg.Thermal.TickIntervalMS) * time.Millisecond
	o.HistorySize = cfg.Safety.HistorySize
	return o
}

// Session owns the thermal state and safety monitor of one procedure.
// Ticks never overlap: the loop re-arms its timer only after a tick and its
// notification have completed.
type Session struct {
	// ID identifies the session in logs and reports
	ID string

	engine   thermal.Engine
	monitor  *safety.Monitor
	sensor   ImpedanceSensor
	interval time.Duration
	renderer heatmap.Renderer

	mu       sync.Mutex
	state    *thermal.State
	setup    *Setup
	areaPx   float64
	halted   bool
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce *sync.Once
}

// NewSession creates an idle session.
func NewSession(opts Options) *Session {
	if opts.Sensor == nil {
		opts.Sensor = NewSimulatedSensor(time.Now().UnixNano())
	}
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	return &Session{
		ID:       uuid.New().String(),
		engine:   opts.Engine,
		monitor:  safety.NewMonitor(opts.Limits),
		sensor:   opts.Sensor,
		interval: opts.Interval,
		renderer: heatmap.NewRenderer(opts.Engine.BaselineTemp),
		state:    thermal.NewState(opts.Engine.BaselineTemp, opts.HistorySize),
	}
}

// Prepare validates setup and resets the session to its start temperature.
func (s *Session) Prepare(setup Setup) error {
	if err := setup.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	start := setup.StartTempC
	if start == 0 {
		start = s.engine.BaselineTemp
	}
	s.state = thermal.NewState(start, s.state.History.Cap())
	s.renderer.Baseline = start
	s.monitor.Reset()
	s.halted = false

	s.areaPx = defaultAreaPx
	if setup.TumorMask != nil && !setup.TumorMask.Empty() {
		s.areaPx = float64(setup.TumorMask.Count())
	}
	s.setup = &setup

	log.Info("ablation prepared",
		"session", s.ID,
		"power", setup.Params.PowerW,
		"target", setup.Params.TargetTempC,
		"mode", setup.Mode,
		"area", s.areaPx)
	return nil
}

// Advance runs exactly one tick on the caller's goroutine.
func (s *Session) Advance() (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

func (s *Session) advanceLocked() (Report, error) {
	if s.setup == nil {
		return Report{}, ErrNotPrepared
	}
	if s.halted {
		return Report{}, ErrHalted
	}
	setup := s.setup
	target := setup.Params.TargetTempC

	tick := s.engine.Step(s.state.Current, target, setup.Params.PowerW, s.areaPx)
	if setup.Mode == Pulsed && s.state.Ticks%pulseCycle >= pulseOffFrom {
		tick.Next -= pulseCooling
	}
	s.state.Apply(tick)

	impedance := s.sensor.Read()
	verdict := s.monitor.Analyze(s.state.Current, target, impedance, s.state.Margin)

	var frame *image.RGBA
	if setup.Base != nil {
		frame = s.renderer.Render(setup.Base, s.state.Current, target, setup.TumorMask)
	}

	r := Report{
		Tick:      s.state.Ticks,
		ElapsedS:  float64(s.state.Ticks) * s.engine.TimeStep,
		CentroidC: s.state.Current,
		MarginC:   s.state.Margin,
		TargetC:   target,
		Impedance: impedance,
		Verdict:   verdict,
		Destroyed: tick.Destroyed,
		Frame:     frame,
	}
	if verdict.Halts() || tick.Destroyed {
		s.halted = true
		r.Halted = true
		log.Info("ablation halted",
			"session", s.ID,
			"tick", r.Tick,
			"action", verdict.Action,
			"destroyed", tick.Destroyed,
			"centroid", r.CentroidC)
	}
	return r, nil
}

// Start validates setup and runs the loop on its own goroutine, calling
// onTick after every tick. onTick runs on the loop goroutine and may call
// Stop.
func (s *Session) Start(setup Setup, onTick func(Report)) error {
	if err := s.Prepare(setup); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.stopOnce = &sync.Once{}
	stop, done := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.loop(stop, done, onTick)
	return nil
}

func (s *Session) loop(stop, done chan struct{}, onTick func(Report)) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		// A Stop that raced with the timer wins over the pending tick.
		select {
		case <-stop:
			return
		default:
		}

		r, err := s.Advance()
		if err != nil {
			return
		}
		if onTick != nil {
			onTick(r)
		}
		if r.Halted {
			return
		}
		timer.Reset(s.interval)
	}
}

// Stop ends the loop at the next tick boundary. It is safe to call at any
// time, from any goroutine and more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	stop, once := s.stopCh, s.stopOnce
	s.mu.Unlock()
	if once == nil {
		return
	}
	once.Do(func() { close(stop) })
}

// Done returns a channel closed when the current loop exits, or nil if the
// loop was never started.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneCh
}

// Running reports whether the loop goroutine is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reset stops the loop, waits for it to exit and restores the start
// temperature so the same setup can be run again. It must not be called
// from onTick.
func (s *Session) Reset() {
	s.Stop()
	if done := s.Done(); done != nil {
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reset()
	s.monitor.Reset()
	s.halted = false
}

// Snapshot is a copy of the session's thermal state.
type Snapshot struct {
	CentroidC float64
	MarginC   float64
	Destroyed bool
	Ticks     int
	History   []float64
	Halted    bool
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		CentroidC: s.state.Current,
		MarginC:   s.state.Margin,
		Destroyed: s.state.Destroyed,
		Ticks:     s.state.Ticks,
		History:   s.state.History.Values(),
		Halted:    s.halted,
	}
}
