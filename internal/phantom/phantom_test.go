package phantom

import "testing"

// TestSliceDeterministic verifies the same seed reproduces the same pixels
func TestSliceDeterministic(t *testing.T) {
	a := Slice(Default())
	b := Slice(Default())
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("Expected identical pixel %d, got %f and %f", i, a.Pix[i], b.Pix[i])
		}
	}
}

// TestSliceLayout verifies background, skull and lesion land where expected
func TestSliceLayout(t *testing.T) {
	o := Default()
	img := Slice(o)

	if v := img.At(0, 0); v != 0 {
		t.Errorf("Expected background 0 at corner, got %f", v)
	}
	if v := img.At(int(o.LesionX), int(o.LesionY)); v < 0.75 {
		t.Errorf("Expected bright lesion center, got %f", v)
	}
	if v := img.At(o.Width/2-20, o.Height/2+40); v > 0.55 {
		t.Errorf("Expected brain intensity away from lesion, got %f", v)
	}
	// Leftmost head column sits on the skull ring.
	cx, cy, ax, _ := o.head()
	if v := img.At(int(cx-ax)+2, int(cy)); v < 0.75 {
		t.Errorf("Expected skull intensity at head edge, got %f", v)
	}
}

// TestLesionMask verifies the ground-truth disk area
func TestLesionMask(t *testing.T) {
	o := Default()
	m := LesionMask(o)
	want := 3.14159 * o.LesionRadius * o.LesionRadius
	got := float64(m.Count())
	if got < want*0.9 || got > want*1.1 {
		t.Errorf("Expected about %.0f lesion pixels, got %.0f", want, got)
	}

	o.LesionRadius = 0
	if !LesionMask(o).Empty() {
		t.Error("Expected empty mask without a lesion")
	}
}
