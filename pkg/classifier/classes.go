// Package classifier labels a slice with a tumor type. A trained model is
// used when one is available; otherwise a simulated predictor stands in so
// the rest of the workflow can still be exercised.
package classifier

import (
	"math"
	"strings"
)

// Class names as produced by the model head, in output order.
var ModelClasses = []string{"glioma", "meningioma", "no_tumor", "pituitary"}

// Prediction is a formatted classification result.
type Prediction struct {
	// Class is the display name of the predicted class
	Class string `yaml:"class"`

	// Confidence is a percentage rounded to 0.1
	Confidence float64 `yaml:"confidence"`

	// Grade is the WHO-style grade shown to the operator
	Grade string `yaml:"grade"`

	// Description summarizes the finding
	Description string `yaml:"description"`

	// Action is the recommended next step
	Action string `yaml:"action"`
}

// FormatResult attaches grade, description and recommended action to a
// raw class name. Unknown classes keep generic text.
func FormatResult(class string, confidence float64) Prediction {
	p := Prediction{
		Class:       class,
		Confidence:  math.Round(confidence*10) / 10,
		Grade:       "Unknown",
		Description: "Analysis complete.",
		Action:      "Consult specialist.",
	}

	lower := strings.ToLower(class)
	switch {
	case strings.Contains(lower, "glioma"):
		p.Grade = "Grade III/IV"
		p.Description = "Aggressive malignant tumor arising from glial cells. High vascularity detected."
		p.Action = "Immediate ablation/resection recommended."
	case strings.Contains(lower, "meningioma"):
		p.Grade = "Grade I/II"
		p.Description = "Tumor arising from the meninges. Likely benign but compressing adjacent tissue."
		p.Action = "Monitor growth. Ablation if symptomatic."
	case strings.Contains(lower, "pituitary"):
		p.Grade = "Grade I"
		p.Description = "Adenoma located in the pituitary fossa. Hormonal evaluation suggested."
		p.Action = "Endocrine consult required. Low-power ablation."
	case strings.Contains(lower, "no_tumor"), strings.Contains(lower, "no tumor"):
		p.Class = "No Tumor"
		p.Grade = "Healthy"
		p.Description = "No pathological anomalies detected."
		p.Action = "Routine follow-up."
	}
	return p
}

// TumorType maps a prediction onto the histology keyword used by treatment
// planning.
func (p Prediction) TumorType() string {
	switch p.Grade {
	case "Grade III/IV":
		return "Glioblastoma"
	case "Grade I/II", "Grade I":
		return "Benign"
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
