// Package growth projects tumor spread with the Fisher–KPP
// reaction-diffusion equation, confined to brain tissue.
package growth

import (
	"context"
	"fmt"
	"math"

	"oncosim/internal/log"
	"oncosim/internal/models"
	"oncosim/pkg/config"
)

// Grade is the coarse aggressiveness label attached to each frame.
type Grade string

const (
	Stable    Grade = "Stable"
	Increased Grade = "Increased"
)

// Params are the biological and timing inputs of one projection.
type Params struct {
	// D is the diffusion coefficient (invasion)
	D float64

	// Rho is the proliferation rate
	Rho float64

	// Beta is the treatment-induced death rate
	Beta float64

	// Unit is the unit of Horizon and of frame timestamps
	Unit models.TimeUnit

	// Horizon is how far to project, in Unit
	Horizon float64
}

// DefaultParams returns D=0.8, ρ=0.5, β=0.1 over 24 hours.
func DefaultParams() Params {
	return Params{D: 0.8, Rho: 0.5, Beta: 0.1, Unit: models.Hours, Horizon: 24}
}

// Options control discretization and sampling.
type Options struct {
	// HoursPerStepDays and HoursPerStepHours are the step lengths used
	// for each caller-facing unit
	HoursPerStepDays  float64
	HoursPerStepHours float64

	// SaveEvery keeps every n-th step; the last step is always kept
	SaveEvery int

	// PixelScaleMM is the pixel edge length used for radii
	PixelScaleMM float64
}

// DefaultOptions returns 2.4 h steps for days, 0.1 h for hours, every 5th step.
func DefaultOptions() Options {
	return Options{
		HoursPerStepDays:  2.4,
		HoursPerStepHours: 0.1,
		SaveEvery:         5,
		PixelScaleMM:      0.5,
	}
}

// OptionsFromConfig maps the growth section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		HoursPerStepDays:  cfg.Growth.HoursPerStepDays,
		HoursPerStepHours: cfg.Growth.HoursPerStepHours,
		SaveEvery:         cfg.Growth.SaveEvery,
		PixelScaleMM:      cfg.Growth.PixelScaleMM,
	}
}

// Frame is one sampled density field. Frames are immutable once returned.
type Frame struct {
	// Step is the solver step the frame was taken at, starting from 1
	Step int

	// Width and Height give the raster size of Density
	Width, Height int

	// Density is the tumor cell density in [0, 1], row-major
	Density []float64

	// Elapsed is the simulated time in Unit
	Elapsed float64

	// Unit is the unit of Elapsed
	Unit models.TimeUnit

	// RadiusMM is the equivalent radius of the u > 0.5 region
	RadiusMM float64

	// GrowthDeltaMM is RadiusMM minus the initial radius
	GrowthDeltaMM float64

	// Grade is Increased when the core is saturated and proliferation is fast
	Grade Grade
}

// Image returns the density as a grayscale image.
func (f Frame) Image() *models.Image {
	img := models.NewImage(f.Width, f.Height)
	copy(img.Pix, f.Density)
	return img
}

// stabilityLimit is the explicit 5-point scheme bound on D·dt.
const stabilityLimit = 0.25

// maxSteps bounds the solver step count of one projection.
const maxSteps = 10_000_000

// StepHours returns the internal step length for unit.
func (o Options) StepHours(unit models.TimeUnit) (float64, error) {
	switch unit {
	case models.Days:
		return o.HoursPerStepDays, nil
	case models.Hours:
		return o.HoursPerStepHours, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
}

// Steps returns the number of solver steps needed to cover p.Horizon.
func (o Options) Steps(p Params) (int, error) {
	dt, err := o.StepHours(p.Unit)
	if err != nil {
		return 0, err
	}
	hours := p.Horizon
	if p.Unit == models.Days {
		hours *= 24
	}
	n := hours / dt
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n > maxSteps {
		return 0, fmt.Errorf("%w: horizon %g %s needs %g steps, limit %d", ErrInvalidOptions, p.Horizon, p.Unit, n, maxSteps)
	}
	// The epsilon keeps exact multiples such as 0.3 h / 0.1 h from
	// truncating one step short.
	return int(math.Floor(n + 1e-9)), nil
}

func (o Options) validate() error {
	switch {
	case o.HoursPerStepDays <= 0 || o.HoursPerStepHours <= 0:
		return fmt.Errorf("%w: step lengths must be positive", ErrInvalidOptions)
	case o.SaveEvery < 1:
		return fmt.Errorf("%w: saveEvery must be at least 1, got %d", ErrInvalidOptions, o.SaveEvery)
	case o.PixelScaleMM <= 0:
		return fmt.Errorf("%w: pixel scale must be positive", ErrInvalidOptions)
	}
	return nil
}

// Simulate integrates
//
//	∂u/∂t = D∇²u + ρu(1−u) − βu
//
// with explicit Euler steps, masking every update by brain so density never
// appears outside it, and clipping u to [0, 1]. The initial density is 1 on
// initial ∩ brain. Frames are sampled every SaveEvery steps and at the last
// step. A zero-step horizon or an empty initial mask yields no frames.
func Simulate(ctx context.Context, initial, brain *models.Mask, p Params, opts Options) ([]Frame, error) {
	if initial == nil || brain == nil {
		return nil, fmt.Errorf("%w: nil mask", ErrSizeMismatch)
	}
	if err := brain.CheckCongruent(initial.Width, initial.Height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSizeMismatch, err)
	}
	if !p.Unit.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnit, p.Unit)
	}
	if !nonNegative(p.D) || !nonNegative(p.Rho) || !nonNegative(p.Beta) {
		return nil, fmt.Errorf("%w: D=%g rho=%g beta=%g", ErrNegativeCoefficient, p.D, p.Rho, p.Beta)
	}
	if !nonNegative(p.Horizon) {
		return nil, fmt.Errorf("%w: horizon must be finite and non-negative, got %g", ErrInvalidOptions, p.Horizon)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	dt, _ := opts.StepHours(p.Unit)
	steps, err := opts.Steps(p)
	if err != nil {
		return nil, err
	}
	seed := initial.And(brain)
	if steps == 0 || seed.Empty() {
		return nil, nil
	}
	if p.D*dt > stabilityLimit {
		log.Warn("growth step exceeds explicit stability bound", "D", p.D, "dt", dt, "limit", stabilityLimit)
	}

	w, h := initial.Width, initial.Height
	u := make([]float64, w*h)
	for i, in := range seed.Bits {
		if in {
			u[i] = 1
		}
	}
	lap := make([]float64, w*h)
	initialRadius := opts.radius(u)

	frames := make([]Frame, 0, steps/opts.SaveEvery+1)
	for step := 1; step <= steps; step++ {
		if step%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		laplacian(u, lap, w, h)
		for i, in := range brain.Bits {
			if !in {
				continue
			}
			v := u[i]
			v += dt * (p.D*lap[i] + p.Rho*v*(1-v) - p.Beta*v)
			u[i] = math.Max(0, math.Min(1, v))
		}

		if step%opts.SaveEvery == 0 || step == steps {
			frames = append(frames, opts.frame(u, w, h, step, dt, p, initialRadius))
		}
	}

	log.Debug("growth simulated", "steps", steps, "frames", len(frames), "unit", p.Unit)
	return frames, nil
}

func (o Options) frame(u []float64, w, h, step int, dt float64, p Params, initialRadius float64) Frame {
	density := make([]float64, len(u))
	copy(density, u)

	elapsed := float64(step) * dt
	if p.Unit == models.Days {
		elapsed /= 24
	}

	r := o.radius(u)
	grade := Stable
	if coreDensity(u) > 0.95 && p.Rho > 0.5 {
		grade = Increased
	}

	return Frame{
		Step:          step,
		Width:         w,
		Height:        h,
		Density:       density,
		Elapsed:       elapsed,
		Unit:          p.Unit,
		RadiusMM:      r,
		GrowthDeltaMM: r - initialRadius,
		Grade:         grade,
	}
}

// radius is the radius of a disk with the area of the u > 0.5 region.
func (o Options) radius(u []float64) float64 {
	n := 0
	for _, v := range u {
		if v > 0.5 {
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(float64(n) * o.PixelScaleMM * o.PixelScaleMM / math.Pi)
}

// coreDensity is the mean density over cells above 0.8, or 0 if none are.
func coreDensity(u []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range u {
		if v > 0.8 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// laplacian applies the 5-point stencil with reflect-101 borders.
func laplacian(u, dst []float64, w, h int) {
	for y := 0; y < h; y++ {
		up := models.Reflect101(y-1, h) * w
		down := models.Reflect101(y+1, h) * w
		row := y * w
		for x := 0; x < w; x++ {
			left := models.Reflect101(x-1, w)
			right := models.Reflect101(x+1, w)
			dst[row+x] = u[row+left] + u[row+right] + u[up+x] + u[down+x] - 4*u[row+x]
		}
	}
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
