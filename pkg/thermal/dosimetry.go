// Package thermal models laser dosimetry and the tick-by-tick heating of
// the tissue around the laser tip.
package thermal

import (
	"fmt"
	"math"

	"oncosim/internal/log"
	"oncosim/pkg/config"
)

// absorption lists brain-tissue absorption coefficients (1/mm) for common
// medical laser lines, ascending by wavelength.
var absorption = []struct {
	WavelengthNM float64
	MuA          float64
}{
	{810, 0.08},
	{980, 0.15},
	{1064, 0.12},
	{1320, 0.35},
	{1470, 1.20},
	{10600, 20.0},
}

// Absorption returns the tabulated wavelength closest to wavelengthNM and
// its absorption coefficient. On a tie the shorter wavelength wins.
func Absorption(wavelengthNM float64) (nearestNM, muA float64) {
	best := 0
	for i := 1; i < len(absorption); i++ {
		if math.Abs(absorption[i].WavelengthNM-wavelengthNM) < math.Abs(absorption[best].WavelengthNM-wavelengthNM) {
			best = i
		}
	}
	return absorption[best].WavelengthNM, absorption[best].MuA
}

// LaserParams are the dosimetry results shown to the operator.
type LaserParams struct {
	// PowerW is the laser output power
	PowerW float64 `yaml:"powerW"`

	// EnergyJ is the total delivered energy
	EnergyJ float64 `yaml:"energyJ"`

	// DurationS is the exposure time
	DurationS float64 `yaml:"durationS"`

	// TargetTempC is the centroid temperature that counts as ablation
	TargetTempC float64 `yaml:"targetTempC"`

	// WavelengthNM is the laser line the parameters were computed for
	WavelengthNM float64 `yaml:"wavelengthNm"`
}

// Validate rejects parameters the real-time loop cannot run with.
func (p LaserParams) Validate() error {
	switch {
	case p.PowerW < 0 || math.IsNaN(p.PowerW):
		return fmt.Errorf("%w: power %g W", ErrInvalidParams, p.PowerW)
	case p.EnergyJ < 0 || math.IsNaN(p.EnergyJ):
		return fmt.Errorf("%w: energy %g J", ErrInvalidParams, p.EnergyJ)
	case p.DurationS < 0 || math.IsNaN(p.DurationS):
		return fmt.Errorf("%w: duration %g s", ErrInvalidParams, p.DurationS)
	case p.WavelengthNM <= 0:
		return fmt.Errorf("%w: wavelength %g nm", ErrInvalidParams, p.WavelengthNM)
	}
	return nil
}

// Dosimetry holds the constants of the static energy calculation.
type Dosimetry struct {
	// BaselineTemp is body temperature in °C
	BaselineTemp float64

	// TargetTemp is the ablation temperature in °C
	TargetTemp float64

	// VolumetricHeat is the tissue heat capacity in J/(cm³·K)
	VolumetricHeat float64

	// DurationS is the nominal procedure length
	DurationS float64

	// MaxPowerW caps the laser power; duration stretches instead
	MaxPowerW float64
}

// DefaultDosimetry returns a 37→65 °C ablation over 30 s capped at 100 W.
func DefaultDosimetry() Dosimetry {
	return Dosimetry{
		BaselineTemp:   37,
		TargetTemp:     65,
		VolumetricHeat: 4.18,
		DurationS:      30,
		MaxPowerW:      100,
	}
}

// DosimetryFromConfig takes body temperature and the power cap from cfg.
func DosimetryFromConfig(cfg *config.Config) Dosimetry {
	d := DefaultDosimetry()
	d.BaselineTemp = cfg.Thermal.BaselineTemp
	d.MaxPowerW = cfg.Thermal.MaxPowerW
	return d
}

// CalculateLaserParams computes parameters with DefaultDosimetry.
func CalculateLaserParams(sizeMM, depthMM, wavelengthNM float64) (LaserParams, error) {
	return DefaultDosimetry().Calculate(sizeMM, depthMM, wavelengthNM)
}

// Calculate sizes the dose for a spherical tumor of diameter sizeMM at
// depthMM below the surface. The energy to heat the sphere is scaled by the
// Beer–Lambert attenuation exp(−μa·depth). Energy and power are rounded to
// 0.01 and duration to 0.1.
func (d Dosimetry) Calculate(sizeMM, depthMM, wavelengthNM float64) (LaserParams, error) {
	if wavelengthNM <= 0 || math.IsNaN(wavelengthNM) {
		return LaserParams{}, fmt.Errorf("%w: got %g", ErrInvalidWavelength, wavelengthNM)
	}
	if sizeMM < 0 || depthMM < 0 {
		return LaserParams{}, fmt.Errorf("%w: size %g mm, depth %g mm", ErrNegativeGeometry, sizeMM, depthMM)
	}

	nearest, muA := Absorption(wavelengthNM)
	penetration := math.Exp(-muA * depthMM)
	intensity := 1 / math.Max(penetration, 1e-6)

	r := sizeMM / 2
	volumeCM3 := 4.0 / 3.0 * math.Pi * r * r * r / 1000
	energy := volumeCM3 * d.VolumetricHeat * (d.TargetTemp - d.BaselineTemp) * intensity

	duration := d.DurationS
	power := energy / duration
	if power > d.MaxPowerW {
		power = d.MaxPowerW
		duration = energy / power
	}

	log.Debug("laser dosimetry",
		"wavelength", nearest,
		"muA", muA,
		"penetration", penetration,
		"energy", energy)

	return LaserParams{
		PowerW:       round(power, 2),
		EnergyJ:      round(energy, 2),
		DurationS:    round(duration, 1),
		TargetTempC:  d.TargetTemp,
		WavelengthNM: wavelengthNM,
	}, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
