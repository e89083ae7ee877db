package planning

import "testing"

// TestGenerateTreatmentPlan verifies the size and type rules
func TestGenerateTreatmentPlan(t *testing.T) {
	tests := []struct {
		name     string
		size     float64
		kind     string
		power    float64
		energy   float64
		target   float64
		duration float64
		tips     int
	}{
		{"small benign", 10, "Benign", 8, 400, 55, 50, 2},
		{"medium unknown", 20, "Meningioma", 15, 1200, 60, 80, 1},
		{"large glioblastoma", 35, "Glioblastoma (Grade IV)", 25, 2500, 65, 100, 3},
		{"boundary 15", 15, "", 15, 1200, 60, 80, 1},
		{"boundary 30", 30, "", 25, 2500, 60, 100, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := GenerateTreatmentPlan(tt.size, tt.kind)
			if p.PowerW != tt.power || p.EnergyJ != tt.energy {
				t.Errorf("Expected %v W / %v J, got %v W / %v J", tt.power, tt.energy, p.PowerW, p.EnergyJ)
			}
			if p.TargetTempC != tt.target {
				t.Errorf("Expected target %v, got %v", tt.target, p.TargetTempC)
			}
			if p.DurationS != tt.duration {
				t.Errorf("Expected duration %v, got %v", tt.duration, p.DurationS)
			}
			if len(p.Tips) != tt.tips {
				t.Errorf("Expected %d tips, got %d", tt.tips, len(p.Tips))
			}
		})
	}
}
