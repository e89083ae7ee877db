package segmentation

import (
	"math"

	"oncosim/internal/models"
)

// Diffuse smooths img with Perona–Malik anisotropic diffusion using the
// exponential conductance exp(-(Δ/kappa)²). Boundaries are insulated: no
// flux crosses the image border. gamma is the integration step and should
// stay at or below 0.25 for stability.
func Diffuse(img *models.Image, iterations int, kappa, gamma float64) *models.Image {
	out := img.Clone()
	w, h := img.Width, img.Height
	if iterations <= 0 || w == 0 || h == 0 {
		return out
	}

	// fx[i] is the flux from pixel i to its right neighbour, fy[i] to the
	// pixel below. The last column/row keeps a zero flux.
	fx := make([]float64, w*h)
	fy := make([]float64, w*h)
	conduct := func(d float64) float64 {
		return math.Exp(-(d/kappa)*(d/kappa)) * d
	}

	for it := 0; it < iterations; it++ {
		for y := 0; y < h; y++ {
			row := y * w
			for x := 0; x < w-1; x++ {
				fx[row+x] = conduct(out.Pix[row+x+1] - out.Pix[row+x])
			}
		}
		for y := 0; y < h-1; y++ {
			row := y * w
			for x := 0; x < w; x++ {
				fy[row+x] = conduct(out.Pix[row+w+x] - out.Pix[row+x])
			}
		}

		for y := 0; y < h; y++ {
			row := y * w
			for x := 0; x < w; x++ {
				i := row + x
				div := fx[i] + fy[i]
				if x > 0 {
					div -= fx[i-1]
				}
				if y > 0 {
					div -= fy[i-w]
				}
				out.Pix[i] += gamma * div
			}
		}
	}
	return out
}
