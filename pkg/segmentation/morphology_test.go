package segmentation

import (
	"testing"

	"oncosim/internal/models"
)

func fullMask(w, h int) *models.Mask {
	m := models.NewMask(w, h)
	for i := range m.Bits {
		m.Bits[i] = true
	}
	return m
}

// TestErode verifies the border retreat for odd and even elements
func TestErode(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		iterations int
		want       int
	}{
		{"3x3 once", 3, 1, 18 * 18},
		{"3x3 twice", 3, 2, 16 * 16},
		{"15x15 once", 15, 1, 6 * 6},
		{"identity", 1, 3, 20 * 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Erode(fullMask(20, 20), tt.size, tt.iterations).Count()
			if got != tt.want {
				t.Errorf("Expected %d pixels, got %d", tt.want, got)
			}
		})
	}
}

// TestErodeEvenOrigin verifies an even element is anchored at size/2
func TestErodeEvenOrigin(t *testing.T) {
	out := Erode(fullMask(30, 30), 10, 1)
	if got := out.Count(); got != 21*21 {
		t.Fatalf("Expected %d pixels, got %d", 21*21, got)
	}
	if !out.At(5, 5) || out.At(4, 5) {
		t.Error("Expected left edge at column 5")
	}
	if !out.At(25, 25) || out.At(26, 25) {
		t.Error("Expected right edge at column 25")
	}
}

// TestFillHoles verifies enclosed background is filled and open background kept
func TestFillHoles(t *testing.T) {
	m := models.NewMask(10, 10)
	for i := 2; i <= 7; i++ {
		m.Set(i, 2, true)
		m.Set(i, 7, true)
		m.Set(2, i, true)
		m.Set(7, i, true)
	}
	out := FillHoles(m)
	if !out.At(4, 4) {
		t.Error("Expected hole inside ring to be filled")
	}
	if out.At(0, 0) || out.At(9, 9) {
		t.Error("Expected outside background to stay empty")
	}
	if got := out.Count(); got != 36 {
		t.Errorf("Expected 36 pixels, got %d", got)
	}

	// Open ring: a gap connects the interior to the border.
	m.Set(2, 4, false)
	m.Set(1, 4, false)
	if FillHoles(m).At(4, 4) {
		t.Error("Expected open ring interior to stay empty")
	}
}

// TestLargestComponent verifies selection and 4-connectivity
func TestLargestComponent(t *testing.T) {
	m := models.NewMask(10, 10)
	// 2x2 block
	m.Set(0, 0, true)
	m.Set(1, 0, true)
	m.Set(0, 1, true)
	m.Set(1, 1, true)
	// 3x2 block
	for x := 5; x < 8; x++ {
		m.Set(x, 5, true)
		m.Set(x, 6, true)
	}
	// diagonal neighbour of the 3x2 block: not 4-connected
	m.Set(8, 7, true)

	out := LargestComponent(m)
	if got := out.Count(); got != 6 {
		t.Errorf("Expected 6 pixels, got %d", got)
	}
	if out.At(0, 0) || out.At(8, 7) {
		t.Error("Expected only the 3x2 block to survive")
	}

	_, sizes := LabelComponents(m)
	if len(sizes) != 4 {
		t.Errorf("Expected 3 components, got %d", len(sizes)-1)
	}

	if !LargestComponent(models.NewMask(5, 5)).Empty() {
		t.Error("Expected empty result for empty mask")
	}
}
