// Package planning suggests starting laser settings from tumor size and type.
package planning

import (
	"math"
	"strings"
)

// Plan is a suggested treatment.
type Plan struct {
	PowerW      float64  `yaml:"powerW"`
	EnergyJ     float64  `yaml:"energyJ"`
	TargetTempC float64  `yaml:"targetTempC"`
	DurationS   float64  `yaml:"durationS"`
	Tips        []string `yaml:"tips"`
}

// GenerateTreatmentPlan picks power and energy by lesion size and the
// ablation temperature by histology. tumorType is matched by substring so
// labels such as "Glioblastoma (Grade IV)" are recognized.
func GenerateTreatmentPlan(sizeMM float64, tumorType string) Plan {
	p := Plan{TargetTempC: 60}

	switch {
	case sizeMM < 15:
		p.PowerW, p.EnergyJ = 8, 400
		p.Tips = append(p.Tips, "Small lesion: low power recommended to preserve healthy tissue.")
	case sizeMM < 30:
		p.PowerW, p.EnergyJ = 15, 1200
		p.Tips = append(p.Tips, "Medium lesion: standard ablation protocol applicable.")
	default:
		p.PowerW, p.EnergyJ = 25, 2500
		p.Tips = append(p.Tips, "Large mass: high power required. Monitor cooling actively.")
	}

	switch {
	case strings.Contains(tumorType, "Glioblastoma"):
		p.TargetTempC = 65
		p.Tips = append(p.Tips,
			"Malignancy detected: target temperature increased to 65°C.",
			"Margin safety: ablate 2 mm beyond the visible margin.")
	case strings.Contains(tumorType, "Benign"):
		p.TargetTempC = 55
		p.Tips = append(p.Tips, "Benign tissue: lower temperature sufficient.")
	}

	p.DurationS = math.Round(p.EnergyJ/p.PowerW*10) / 10
	return p
}
