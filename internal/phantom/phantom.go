// Package phantom builds deterministic synthetic head slices for demos and
// tests: an elliptical head with a bright skull ring, noisy brain tissue
// and an optional round lesion.
package phantom

import (
	"math"
	"math/rand"

	"oncosim/internal/models"
)

// Options describes the phantom geometry and intensities.
type Options struct {
	// Width and Height are the raster size in pixels
	Width, Height int

	// SkullThickness is the ring width in pixels
	SkullThickness float64

	// LesionX, LesionY and LesionRadius place the lesion; radius 0 omits it
	LesionX, LesionY, LesionRadius float64

	// Skull, Brain and Lesion are the tissue intensities in [0, 1]
	Skull, Brain, Lesion float64

	// Noise is the standard deviation of the Gaussian noise inside the head
	Noise float64

	// Seed makes the noise reproducible
	Seed int64
}

// Default returns a 256×256 slice with an 18 px lesion up and to the right
// of the center.
func Default() Options {
	return Options{
		Width:          256,
		Height:         256,
		SkullThickness: 6,
		LesionX:        150,
		LesionY:        110,
		LesionRadius:   18,
		Skull:          0.9,
		Brain:          0.4,
		Lesion:         0.9,
		Noise:          0.03,
		Seed:           1,
	}
}

// head returns the center and semi-axes of the outer head ellipse.
func (o Options) head() (cx, cy, ax, ay float64) {
	return float64(o.Width) / 2, float64(o.Height) / 2, 0.42 * float64(o.Width), 0.45 * float64(o.Height)
}

func inEllipse(x, y, cx, cy, ax, ay float64) bool {
	if ax <= 0 || ay <= 0 {
		return false
	}
	dx, dy := (x-cx)/ax, (y-cy)/ay
	return dx*dx+dy*dy <= 1
}

// Slice renders the phantom image.
func Slice(o Options) *models.Image {
	img := models.NewImage(o.Width, o.Height)
	rng := rand.New(rand.NewSource(o.Seed))
	cx, cy, ax, ay := o.head()
	t := o.SkullThickness

	for y := 0; y < o.Height; y++ {
		for x := 0; x < o.Width; x++ {
			fx, fy := float64(x), float64(y)
			if !inEllipse(fx, fy, cx, cy, ax, ay) {
				continue
			}
			v := o.Skull
			if inEllipse(fx, fy, cx, cy, ax-t, ay-t) {
				v = o.Brain
				if o.inLesion(fx, fy) {
					v = o.Lesion
				}
			}
			v += rng.NormFloat64() * o.Noise
			img.Set(x, y, math.Min(1, math.Max(0.01, v)))
		}
	}
	return img
}

func (o Options) inLesion(x, y float64) bool {
	if o.LesionRadius <= 0 {
		return false
	}
	return math.Hypot(x-o.LesionX, y-o.LesionY) <= o.LesionRadius
}

// LesionMask returns the ground-truth lesion disk.
func LesionMask(o Options) *models.Mask {
	m := models.NewMask(o.Width, o.Height)
	for y := 0; y < o.Height; y++ {
		for x := 0; x < o.Width; x++ {
			m.Set(x, y, o.inLesion(float64(x), float64(y)))
		}
	}
	return m
}

// Disk returns a filled circle mask, a convenience for callers that need a
// lesion without a full slice.
func Disk(width, height int, cx, cy, r float64) *models.Mask {
	m := models.NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Set(x, y, math.Hypot(float64(x)-cx, float64(y)-cy) <= r)
		}
	}
	return m
}
