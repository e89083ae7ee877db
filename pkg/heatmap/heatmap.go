// Package heatmap renders a colorized thermal overlay on top of a slice.
package heatmap

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"gonum.org/v1/gonum/floats"

	"oncosim/internal/models"
)

// Renderer turns a temperature into a JET-colored overlay.
type Renderer struct {
	// Baseline is the temperature drawn as no heat
	Baseline float64

	// Headroom is how far above target the color scale saturates
	Headroom float64

	// KernelSize and Sigma configure the Gaussian blur of the mask layer
	KernelSize int
	Sigma      float64

	// FallbackRadius is the spot radius in pixels used without a mask
	FallbackRadius int

	// Opacity is the weight of the heat color in the blend
	Opacity float64

	// MinIntensity is the scaled heat at or below which nothing is drawn
	MinIntensity float64
}

// NewRenderer returns the standard overlay settings for a body-temperature baseline.
func NewRenderer(baseline float64) Renderer {
	return Renderer{
		Baseline:       baseline,
		Headroom:       10,
		KernelSize:     21,
		Sigma:          3.5,
		FallbackRadius: 50,
		Opacity:        0.4,
		MinIntensity:   0.05,
	}
}

// Intensity scales current into [0, 1] between the baseline and target
// plus headroom. A non-positive scale saturates at 1.
func (r Renderer) Intensity(current, target float64) float64 {
	span := target + r.Headroom - r.Baseline
	if span <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, (current-r.Baseline)/span))
}

// Render draws the heat overlay. With a mask the heat fills the mask and is
// blurred; without one a disk is drawn at the image center. Below the
// minimum intensity an unmodified copy of base is returned. A nil base
// yields nil.
func (r Renderer) Render(base image.Image, current, target float64, mask *models.Mask) *image.RGBA {
	if base == nil {
		return nil
	}
	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)

	intensity := r.Intensity(current, target)
	if intensity <= r.MinIntensity {
		return out
	}

	w, h := b.Dx(), b.Dy()
	level := float64(uint8(255 * intensity))
	layer := make([]float64, w*h)
	if mask != nil && mask.SameSize(w, h) {
		for i, in := range mask.Bits {
			if in {
				layer[i] = level
			}
		}
		layer = GaussianBlur(layer, w, h, r.KernelSize, r.Sigma)
	} else {
		cx, cy := w/2, h/2
		rr := r.FallbackRadius * r.FallbackRadius
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dx, dy := x-cx, y-cy
				if dx*dx+dy*dy <= rr {
					layer[y*w+x] = level
				}
			}
		}
	}

	for i, v := range layer {
		q := uint8(math.Round(math.Min(255, v)))
		if q <= 10 {
			continue
		}
		c := Jet(q)
		p := out.Pix[4*i : 4*i+4]
		p[0] = blend(p[0], c.R, r.Opacity)
		p[1] = blend(p[1], c.G, r.Opacity)
		p[2] = blend(p[2], c.B, r.Opacity)
	}
	return out
}

func blend(base, heat uint8, opacity float64) uint8 {
	v := float64(base)*(1-opacity) + float64(heat)*opacity
	return uint8(math.Round(math.Min(255, v)))
}

// Jet maps v to the blue→cyan→yellow→red JET palette.
func Jet(v uint8) color.RGBA {
	x := float64(v) / 255
	ch := func(center float64) uint8 {
		c := 1.5 - math.Abs(4*x-center)
		return uint8(math.Round(255 * math.Max(0, math.Min(1, c))))
	}
	return color.RGBA{R: ch(3), G: ch(2), B: ch(1), A: 255}
}

// GaussianBlur convolves a w×h field with a size×size Gaussian kernel,
// reflecting at the borders without repeating the edge sample. A
// non-positive sigma is derived from the kernel size.
func GaussianBlur(src []float64, w, h, size int, sigma float64) []float64 {
	if size < 1 {
		size = 1
	}
	if size%2 == 0 {
		size++
	}
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}

	half := size / 2
	kernel := make([]float64, size)
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)

	tmp := make([]float64, len(src))
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			s := 0.0
			for k, kv := range kernel {
				s += kv * src[row+models.Reflect101(x+k-half, w)]
			}
			tmp[row+x] = s
		}
	}

	out := make([]float64, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := 0.0
			for k, kv := range kernel {
				s += kv * tmp[models.Reflect101(y+k-half, h)*w+x]
			}
			out[y*w+x] = s
		}
	}
	return out
}
