package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"oncosim/internal/models"
)

var (
	// ErrInvalidModel is returned when a weights file is malformed.
	ErrInvalidModel = errors.New("classifier: invalid model")

	// ErrNotReady is returned by Service.Predict before Init completed.
	ErrNotReady = errors.New("classifier: service not ready")
)

// Predictor classifies a slice.
type Predictor interface {
	Predict(ctx context.Context, img *models.Image) (Prediction, error)
}

// SimulatedPredictor returns a random class with a plausible confidence.
type SimulatedPredictor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// simulatedClasses are the display names the simulation draws from.
var simulatedClasses = []string{"Glioma", "Meningioma", "Pituitary", "No_tumor"}

// NewSimulatedPredictor creates a simulated predictor seeded with seed.
func NewSimulatedPredictor(seed int64) *SimulatedPredictor {
	return &SimulatedPredictor{rng: rand.New(rand.NewSource(seed))}
}

// Predict ignores the image and draws a class uniformly with confidence in
// [88.5, 99.1].
func (s *SimulatedPredictor) Predict(ctx context.Context, img *models.Image) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	s.mu.Lock()
	class := simulatedClasses[s.rng.Intn(len(simulatedClasses))]
	conf := 88.5 + s.rng.Float64()*(99.1-88.5)
	s.mu.Unlock()
	return FormatResult(class, conf), nil
}

// modelFile is the on-disk layout of a linear model.
type modelFile struct {
	Classes []string    `yaml:"classes"`
	Bins    int         `yaml:"bins"`
	Weights [][]float64 `yaml:"weights"`
	Bias    []float64   `yaml:"bias"`
}

// ModelPredictor is a linear softmax classifier over the normalized
// intensity histogram of the slice.
type ModelPredictor struct {
	classes []string
	bins    int
	weights *mat.Dense
	bias    *mat.VecDense
}

// LoadModel reads a YAML weights file.
func LoadModel(path string) (*ModelPredictor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading model file: %w", err)
	}
	var f modelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return NewModelPredictor(f.Classes, f.Bins, f.Weights, f.Bias)
}

// NewModelPredictor validates shapes and builds a predictor. weights has one
// row of bins coefficients per class.
func NewModelPredictor(classes []string, bins int, weights [][]float64, bias []float64) (*ModelPredictor, error) {
	k := len(classes)
	switch {
	case k < 2:
		return nil, fmt.Errorf("%w: need at least 2 classes, got %d", ErrInvalidModel, k)
	case bins < 1:
		return nil, fmt.Errorf("%w: bins must be positive, got %d", ErrInvalidModel, bins)
	case len(weights) != k:
		return nil, fmt.Errorf("%w: %d weight rows for %d classes", ErrInvalidModel, len(weights), k)
	case len(bias) != k:
		return nil, fmt.Errorf("%w: %d biases for %d classes", ErrInvalidModel, len(bias), k)
	}

	flat := make([]float64, 0, k*bins)
	for i, row := range weights {
		if len(row) != bins {
			return nil, fmt.Errorf("%w: row %d has %d weights, want %d", ErrInvalidModel, i, len(row), bins)
		}
		flat = append(flat, row...)
	}

	return &ModelPredictor{
		classes: append([]string(nil), classes...),
		bins:    bins,
		weights: mat.NewDense(k, bins, flat),
		bias:    mat.NewVecDense(k, append([]float64(nil), bias...)),
	}, nil
}

// Probabilities returns the softmax class probabilities for img.
func (m *ModelPredictor) Probabilities(img *models.Image) []float64 {
	features := mat.NewVecDense(m.bins, Histogram(img, m.bins))

	var logits mat.VecDense
	logits.MulVec(m.weights, features)
	logits.AddVec(&logits, m.bias)

	out := make([]float64, logits.Len())
	for i := range out {
		out[i] = logits.AtVec(i)
	}
	// Shift by the max logit so exp cannot overflow.
	floats.AddConst(-floats.Max(out), out)
	for i, v := range out {
		out[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// Predict returns the most probable class.
func (m *ModelPredictor) Predict(ctx context.Context, img *models.Image) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if img.Empty() {
		return Prediction{}, fmt.Errorf("classifier: empty image")
	}
	probs := m.Probabilities(img)
	best := floats.MaxIdx(probs)
	return FormatResult(capitalize(m.classes[best]), 100*probs[best]), nil
}

// Histogram returns the fraction of pixels in each of bins equal-width bins
// over [0, 1].
func Histogram(img *models.Image, bins int) []float64 {
	h := make([]float64, bins)
	if img.Empty() {
		return h
	}
	for _, v := range img.Pix {
		b := int(math.Max(0, math.Min(1, v)) * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		h[b]++
	}
	floats.Scale(1/float64(len(img.Pix)), h)
	return h
}
