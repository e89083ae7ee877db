package thermal

import (
	"math"

	"oncosim/pkg/config"
)

// Engine advances the centroid temperature by one tick. The heated volume is
// a small optical zone around the tip that grows slightly with tumor area,
// cooled by blood perfusion and by conduction into the surrounding tissue.
type Engine struct {
	// Density is tissue density in kg/m³
	Density float64

	// SpecificHeat is tissue specific heat in J/(kg·K)
	SpecificHeat float64

	// Conductivity is tissue thermal conductivity in W/(m·K)
	Conductivity float64

	// TimeStep is the simulated seconds per tick
	TimeStep float64

	// BaselineTemp is body temperature in °C
	BaselineTemp float64

	// BasePerfusion is the resting blood perfusion rate in 1/s
	BasePerfusion float64

	// ShutdownTemp is where coagulation stops perfusion
	ShutdownTemp float64

	// MarginFraction is the share of the centroid rise that reaches the edge
	MarginFraction float64
}

// NewEngine returns an engine with brain-tissue constants.
func NewEngine() Engine {
	return Engine{
		Density:        1050,
		SpecificHeat:   3600,
		Conductivity:   0.52,
		TimeStep:       0.1,
		BaselineTemp:   37,
		BasePerfusion:  0.004,
		ShutdownTemp:   60,
		MarginFraction: 0.45,
	}
}

// EngineFromConfig applies the thermal section of cfg to NewEngine.
func EngineFromConfig(cfg *config.Config) Engine {
	e := NewEngine()
	e.TimeStep = cfg.Thermal.TimeStep
	e.BaselineTemp = cfg.Thermal.BaselineTemp
	e.MarginFraction = cfg.Thermal.MarginFraction
	return e
}

// Blood properties used by the perfusion term.
const (
	bloodSpecificHeat = 3800.0
	bloodDensity      = 1060.0
	// conduction path length from the tip, in metres
	conductionLength = 0.005
)

// Tick is the result of one thermal update.
type Tick struct {
	// Next is the new centroid temperature
	Next float64

	// Margin is the estimated temperature at the tumor edge
	Margin float64

	// Destroyed is set once the centroid reaches the target
	Destroyed bool
}

// Step advances one tick from current with powerW delivered into a tumor of
// areaPx pixels.
func (e Engine) Step(current, target, powerW, areaPx float64) Tick {
	tipVolume := (15 + areaPx*0.05) * 1e-6 * 0.005
	mass := e.Density * tipVolume
	rise := powerW * e.TimeStep / (mass * e.SpecificHeat)

	dT := current - e.BaselineTemp
	perfusion := e.Perfusion(current)
	cooling := perfusion * bloodSpecificHeat * bloodDensity * dT * e.TimeStep / (e.Density * e.SpecificHeat)
	conduction := e.Conductivity * dT * e.TimeStep / (e.Density * e.SpecificHeat * conductionLength)

	next := current + rise - cooling - conduction

	distance := 1 / (1 + math.Sqrt(math.Max(areaPx, 0))*0.1)
	margin := e.BaselineTemp + (next-e.BaselineTemp)*e.MarginFraction*distance

	return Tick{
		Next:      next,
		Margin:    margin,
		Destroyed: next >= target,
	}
}

// Perfusion is the blood perfusion rate at temperature t: vasodilation
// raises it above baseline, coagulation shuts it off above ShutdownTemp.
func (e Engine) Perfusion(t float64) float64 {
	switch {
	case t > e.ShutdownTemp:
		return 0
	case t > e.BaselineTemp:
		return e.BasePerfusion * (1 + 3.5*(1-math.Exp(-0.5*(t-e.BaselineTemp))))
	default:
		return e.BasePerfusion
	}
}
