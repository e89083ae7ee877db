package segmentation

import (
	"errors"
	"math"
	"testing"

	"oncosim/internal/models"
)

// TestDiffuseConstant verifies a flat image is a fixed point
func TestDiffuseConstant(t *testing.T) {
	img := models.NewImage(8, 8)
	for i := range img.Pix {
		img.Pix[i] = 0.3
	}
	out := Diffuse(img, 10, 50, 0.1)
	for i, v := range out.Pix {
		if math.Abs(v-0.3) > 1e-12 {
			t.Fatalf("Expected 0.3 at %d, got %f", i, v)
		}
	}
}

// TestDiffuseConservesMass verifies insulated borders keep the total intensity
func TestDiffuseConservesMass(t *testing.T) {
	img := models.NewImage(16, 16)
	img.Set(8, 8, 1)
	img.Set(0, 0, 1)
	out := Diffuse(img, 15, 50, 0.1)

	sum := 0.0
	for _, v := range out.Pix {
		sum += v
	}
	if math.Abs(sum-2) > 1e-9 {
		t.Errorf("Expected total 2, got %f", sum)
	}
	if out.At(8, 8) >= 1 || out.At(9, 8) <= 0 {
		t.Error("Expected the spike to spread to its neighbours")
	}
	if img.At(9, 8) != 0 {
		t.Error("Expected input to be left untouched")
	}
}

// TestMultiOtsuSeparatesClusters verifies thresholds fall between clusters
func TestMultiOtsuSeparatesClusters(t *testing.T) {
	centers := []float64{0.1, 0.35, 0.6, 0.85}
	var values []float64
	for _, c := range centers {
		for k := 0; k < 100; k++ {
			values = append(values, c+0.02*math.Sin(float64(k)))
		}
	}

	th, err := MultiOtsu(values, 4, 256)
	if err != nil {
		t.Fatalf("MultiOtsu failed: %v", err)
	}
	if len(th) != 3 {
		t.Fatalf("Expected 3 thresholds, got %d", len(th))
	}
	for k, v := range th {
		lo, hi := centers[k], centers[k+1]
		if v < lo || v > hi {
			t.Errorf("Expected threshold %d between %.2f and %.2f, got %f", k, lo, hi, v)
		}
	}
	for k, c := range centers {
		if got := Digitize(c, th); got != k {
			t.Errorf("Expected %f in class %d, got %d", c, k, got)
		}
	}
}

// TestMultiOtsuExactClasses verifies the occupied-bins shortcut
func TestMultiOtsuExactClasses(t *testing.T) {
	values := []float64{0.1, 0.1, 0.5, 0.5, 0.9, 0.9}
	th, err := MultiOtsu(values, 3, 256)
	if err != nil {
		t.Fatalf("MultiOtsu failed: %v", err)
	}
	labels := []int{Digitize(0.1, th), Digitize(0.5, th), Digitize(0.9, th)}
	if labels[0] != 0 || labels[1] != 1 || labels[2] != 2 {
		t.Errorf("Expected labels [0 1 2], got %v", labels)
	}
}

// TestMultiOtsuTooFewValues verifies degenerate histograms are rejected
func TestMultiOtsuTooFewValues(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"empty", nil},
		{"uniform", []float64{0.4, 0.4, 0.4}},
		{"two levels", []float64{0.2, 0.8, 0.2, 0.8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MultiOtsu(tt.values, 4, 256)
			if !errors.Is(err, ErrTooFewValues) {
				t.Errorf("Expected ErrTooFewValues, got %v", err)
			}
		})
	}
}

// TestEntropy verifies the extreme cases
func TestEntropy(t *testing.T) {
	if e := Entropy([]float64{0.5, 0.5, 0.5}); e > 1e-6 {
		t.Errorf("Expected zero entropy for a single value, got %f", e)
	}

	var spread []float64
	for i := 0; i < 256; i++ {
		spread = append(spread, (float64(i)+0.5)/256)
	}
	if e := Entropy(spread); math.Abs(e-8) > 1e-3 {
		t.Errorf("Expected 8 bits for a flat histogram, got %f", e)
	}

	if e := Entropy(nil); e != 0 {
		t.Errorf("Expected 0 for no values, got %f", e)
	}
}

// TestConfidence verifies the ratio to percentage mapping
func TestConfidence(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{1.0, 0},
		{2.0, 0},
		{3.5, 74.5},
		{5.0, 99},
		{5.1, 99},
		{100, 99},
	}
	for _, tt := range tests {
		if got := Confidence(tt.ratio); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Confidence(%v): expected %v, got %v", tt.ratio, tt.want, got)
		}
	}
}

// TestRatioWithSilentOthers verifies that zero-scoring other clusters give
// ratio 100, full confidence and a ratio that passes the separation gate
func TestRatioWithSilentOthers(t *testing.T) {
	p := Proposal{BestScore: 0.7, MeanOtherScore: 0}
	if r := p.Ratio(); r != 100 {
		t.Fatalf("Expected ratio 100, got %f", r)
	}
	if c := Confidence(p.Ratio()); c != 99 {
		t.Errorf("Expected confidence 99, got %f", c)
	}
	if p.Ratio() < MinSeparation {
		t.Error("Expected ratio above the separation gate")
	}
}
