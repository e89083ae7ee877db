package classifier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"oncosim/internal/log"
	"oncosim/internal/models"
)

// State is the service lifecycle stage.
type State int

const (
	Uninitialized State = iota
	Loaded
	Ready
)

// String returns the stage name.
func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Service owns the predictor chosen at startup. It moves from
// uninitialized to loaded once a predictor is selected and to ready after a
// warm-up prediction succeeds.
type Service struct {
	mu        sync.RWMutex
	state     State
	predictor Predictor
	simulated bool
}

// NewService returns an uninitialized service.
func NewService() *Service {
	return &Service{}
}

// Init selects the predictor: the model at modelPath when it loads,
// otherwise the simulated predictor. A missing model file is not an error;
// a malformed one is logged and also falls back to simulation.
func (s *Service) Init(ctx context.Context, modelPath string) error {
	var p Predictor
	simulated := false

	m, err := LoadModel(modelPath)
	switch {
	case err == nil:
		p = m
		log.Info("classifier model loaded", "path", modelPath)
	case errors.Is(err, fs.ErrNotExist) || modelPath == "":
		p, simulated = NewSimulatedPredictor(time.Now().UnixNano()), true
		log.Info("classifier model not found, using simulation", "path", modelPath)
	default:
		p, simulated = NewSimulatedPredictor(time.Now().UnixNano()), true
		log.Warn("classifier model failed to load, using simulation", "path", modelPath, "error", err)
	}
	return s.install(ctx, p, simulated)
}

// InitWith installs a specific predictor, for callers that build their own.
func (s *Service) InitWith(ctx context.Context, p Predictor) error {
	_, simulated := p.(*SimulatedPredictor)
	return s.install(ctx, p, simulated)
}

func (s *Service) install(ctx context.Context, p Predictor, simulated bool) error {
	s.mu.Lock()
	s.predictor = p
	s.simulated = simulated
	s.state = Loaded
	s.mu.Unlock()

	if _, err := p.Predict(ctx, models.NewImage(8, 8)); err != nil {
		return fmt.Errorf("classifier warm-up failed: %w", err)
	}

	s.mu.Lock()
	s.state = Ready
	s.mu.Unlock()
	return nil
}

// State returns the lifecycle stage.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Simulated reports whether predictions are simulated.
func (s *Service) Simulated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simulated
}

// Predict classifies img with the installed predictor.
func (s *Service) Predict(ctx context.Context, img *models.Image) (Prediction, error) {
	s.mu.RLock()
	p, state := s.predictor, s.state
	s.mu.RUnlock()
	if state != Ready {
		return Prediction{}, ErrNotReady
	}
	return p.Predict(ctx, img)
}
