package segmentation

import (
	"math"

	"oncosim/internal/models"
)

// LevelSetOptions configures the two-phase contour evolution.
type LevelSetOptions struct {
	// Iterations is the number of explicit Euler steps
	Iterations int

	// Step is the Euler time step
	Step float64

	// Epsilon is the width of the regularized Heaviside and Dirac
	Epsilon float64

	// Mu weights the curvature (length) term
	Mu float64
}

// DefaultLevelSetOptions returns 50 steps of 0.05 with ε=1 and μ=0.1.
func DefaultLevelSetOptions() LevelSetOptions {
	return LevelSetOptions{Iterations: 50, Step: 0.05, Epsilon: 1.0, Mu: 0.1}
}

// Levels of the signed initialization: negative inside, positive outside.
const (
	phiInside  = -2.0
	phiOutside = 2.0
)

// RefineLevelSet evolves a contour initialized on proposal with a
// four-region piecewise-constant energy, the second phase fixed to brain.
// The returned mask is the zero sublevel set with holes filled.
func RefineLevelSet(img *models.Image, proposal, brain *models.Mask, opts LevelSetOptions) *models.Mask {
	w, h := img.Width, img.Height
	n := w * h
	phi1 := signedInit(proposal)
	phi2 := signedInit(brain)
	eps := opts.Epsilon

	h1 := make([]float64, n)
	h2 := make([]float64, n)
	for i, v := range phi2 {
		h2[i] = heaviside(v, eps)
	}

	gx := make([]float64, n)
	gy := make([]float64, n)
	nx := make([]float64, n)
	ny := make([]float64, n)
	dnx := make([]float64, n)
	dny := make([]float64, n)

	for it := 0; it < opts.Iterations; it++ {
		var s11, s10, s01, s00 float64
		var d11, d10, d01, d00 float64
		for i, v := range phi1 {
			a := heaviside(v, eps)
			h1[i] = a
			b := h2[i]
			p := img.Pix[i]
			d11 += a * b
			d10 += a * (1 - b)
			d01 += (1 - a) * b
			d00 += (1 - a) * (1 - b)
			s11 += p * a * b
			s10 += p * a * (1 - b)
			s01 += p * (1 - a) * b
			s00 += p * (1 - a) * (1 - b)
		}
		c11 := s11 / (d11 + 1e-8)
		c10 := s10 / (d10 + 1e-8)
		c01 := s01 / (d01 + 1e-8)
		c00 := s00 / (d00 + 1e-8)

		gradientX(phi1, gx, w, h)
		gradientY(phi1, gy, w, h)
		for i := range phi1 {
			norm := math.Sqrt(gx[i]*gx[i] + gy[i]*gy[i] + 1e-8)
			nx[i] = gx[i] / norm
			ny[i] = gy[i] / norm
		}
		gradientX(nx, dnx, w, h)
		gradientY(ny, dny, w, h)

		for i, v := range phi1 {
			p := img.Pix[i]
			b := h2[i]
			force := (-sq(p-c11)+sq(p-c01))*b + (-sq(p-c10)+sq(p-c00))*(1-b)
			curvature := dnx[i] + dny[i]
			phi1[i] = v + opts.Step*dirac(v, eps)*(opts.Mu*curvature+force)
		}
	}

	out := models.NewMask(w, h)
	for i, v := range phi1 {
		out.Bits[i] = v < 0
	}
	return FillHoles(out)
}

func signedInit(m *models.Mask) []float64 {
	phi := make([]float64, len(m.Bits))
	for i, in := range m.Bits {
		if in {
			phi[i] = phiInside
		} else {
			phi[i] = phiOutside
		}
	}
	return phi
}

func heaviside(v, eps float64) float64 {
	return 0.5 * (1 + (2/math.Pi)*math.Atan(v/eps))
}

func dirac(v, eps float64) float64 {
	return (eps / math.Pi) / (eps*eps + v*v)
}

func sq(v float64) float64 { return v * v }

// gradientX writes ∂f/∂x into dst: central differences inside, one-sided
// at the left and right edges.
func gradientX(f, dst []float64, w, h int) {
	for y := 0; y < h; y++ {
		row := y * w
		if w == 1 {
			dst[row] = 0
			continue
		}
		dst[row] = f[row+1] - f[row]
		dst[row+w-1] = f[row+w-1] - f[row+w-2]
		for x := 1; x < w-1; x++ {
			dst[row+x] = (f[row+x+1] - f[row+x-1]) / 2
		}
	}
}

// gradientY is gradientX along rows.
func gradientY(f, dst []float64, w, h int) {
	for x := 0; x < w; x++ {
		if h == 1 {
			dst[x] = 0
			continue
		}
		dst[x] = f[w+x] - f[x]
		last := (h - 1) * w
		dst[last+x] = f[last+x] - f[last-w+x]
		for y := 1; y < h-1; y++ {
			i := y*w + x
			dst[i] = (f[i+w] - f[i-w]) / 2
		}
	}
}
