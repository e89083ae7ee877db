// Package safety evaluates ablation telemetry against layered rules and
// recommends what the operator should do next.
package safety

import (
	"fmt"

	"oncosim/internal/log"
	"oncosim/pkg/config"
	"oncosim/pkg/thermal"
)

// Action is a recommended operator action.
type Action string

const (
	Stop     Action = "STOP"
	Warning  Action = "WARNING"
	Pause    Action = "PAUSE"
	Adjust   Action = "ADJUST"
	Continue Action = "CONTINUE"
	Boost    Action = "BOOST"
)

// Display colors for each outcome.
const (
	ColorCritical = "#FF0000"
	ColorWarning  = "#ff9800"
	ColorPause    = "#FFA500"
	ColorAchieved = "#28a745"
	ColorAdjust   = "#FFFF00"
	ColorOK       = "#00FF00"
	ColorBoost    = "#00d4ff"
)

// Verdict is one evaluation result.
type Verdict struct {
	Action  Action
	Color   string
	Message string
}

// Halts reports whether the verdict ends the procedure.
func (v Verdict) Halts() bool { return v.Action == Stop }

// Limits are the thresholds the rules compare against.
type Limits struct {
	// MarginStop and MarginWarn bound the healthy-tissue temperature
	MarginStop float64
	MarginWarn float64

	// Overshoot is how far above target the centroid may go
	Overshoot float64

	// ImpedanceJump is the rise over the previous reading that signals charring
	ImpedanceJump float64

	// BaselineImpedance is assumed before the first reading
	BaselineImpedance float64

	// HistorySize is the smoothing window
	HistorySize int

	// LookaheadTicks projects the current rate this many ticks ahead
	LookaheadTicks float64
}

// DefaultLimits returns the standard thresholds.
func DefaultLimits() Limits {
	return Limits{
		MarginStop:        45,
		MarginWarn:        42,
		Overshoot:         8,
		ImpedanceJump:     200,
		BaselineImpedance: 400,
		HistorySize:       10,
		LookaheadTicks:    50,
	}
}

// LimitsFromConfig maps the safety section of cfg onto Limits.
func LimitsFromConfig(cfg *config.Config) Limits {
	l := DefaultLimits()
	l.MarginStop = cfg.Safety.MarginStopTemp
	l.MarginWarn = cfg.Safety.MarginWarnTemp
	l.Overshoot = cfg.Safety.OvershootLimit
	l.ImpedanceJump = cfg.Safety.ImpedanceJump
	l.BaselineImpedance = cfg.Safety.BaselineImpedance
	l.HistorySize = cfg.Safety.HistorySize
	return l
}

// Monitor is a stateful rule engine fed one telemetry sample per tick. It
// keeps a rolling window of centroid temperatures and the previous
// impedance reading. A Monitor belongs to one session and is not safe for
// concurrent use.
type Monitor struct {
	limits        Limits
	history       *thermal.History
	lastImpedance float64
}

// NewMonitor creates a monitor with the given limits.
func NewMonitor(limits Limits) *Monitor {
	return &Monitor{
		limits:        limits,
		history:       thermal.NewHistory(limits.HistorySize),
		lastImpedance: limits.BaselineImpedance,
	}
}

// Analyze records current and evaluates the rules in priority order:
// margin safety, hard limits, predicted overshoot, target approach and
// finally normal heating. The impedance reading becomes the reference for
// the next call.
func (m *Monitor) Analyze(current, target, impedance, margin float64) Verdict {
	m.history.Push(current)
	v := m.evaluate(current, target, impedance, margin)
	m.lastImpedance = impedance

	if v.Action == Stop || v.Action == Warning {
		log.Warn("safety verdict", "action", v.Action, "centroid", current, "margin", margin, "impedance", impedance)
	}
	return v
}

func (m *Monitor) evaluate(current, target, impedance, margin float64) Verdict {
	n := m.history.Len()
	smooth := 0.0
	for i := 0; i < n; i++ {
		smooth += m.history.At(i)
	}
	smooth /= float64(n)

	rate := 0.0
	if n > 1 {
		rate = m.history.At(n-1) - m.history.At(n-2)
	}
	predicted := smooth + rate*m.limits.LookaheadTicks
	maxSafe := target + m.limits.Overshoot

	if margin > m.limits.MarginStop {
		return Verdict{Stop, ColorCritical, "CRITICAL: heat leak detected. Risk of permanent necrosis in surrounding healthy tissue."}
	}
	if margin > m.limits.MarginWarn {
		return Verdict{Warning, ColorWarning, "ALERT: margin approaching unsafe levels. Collateral damage risk increasing."}
	}

	if current >= maxSafe {
		return Verdict{Stop, ColorCritical, fmt.Sprintf("CRITICAL: temperature limit exceeded (%.1f°C)!", current)}
	}
	if impedance > m.lastImpedance+m.limits.ImpedanceJump {
		return Verdict{Stop, ColorCritical, "EMERGENCY: impedance spike! Tissue charring detected."}
	}

	if predicted > maxSafe {
		return Verdict{Pause, ColorPause, "WARNING: thermal runaway predicted. Pausing to stabilize."}
	}

	remaining := target - smooth
	switch {
	case remaining <= 0:
		if rate > 0.1 {
			return Verdict{Pause, ColorPause, "Target reached. Cooling down."}
		}
		return Verdict{Pause, ColorAchieved, "Target achieved. Maintaining thermal dose."}
	case remaining < 3:
		if rate > 0.5 {
			return Verdict{Adjust, ColorAdjust, "Near target: reduce power."}
		}
		return Verdict{Continue, ColorOK, "Final approach. Precision heating active."}
	}

	if rate < 0.05 && n > 5 {
		return Verdict{Boost, ColorBoost, "Heating inefficient. Suggest increasing power."}
	}
	return Verdict{Continue, ColorOK, fmt.Sprintf("Stable. Heating at %.2f°C/sec.", rate/0.1)}
}

// History returns the buffered centroid temperatures, oldest first.
func (m *Monitor) History() []float64 {
	return m.history.Values()
}

// Reset clears the window and restores the baseline impedance.
func (m *Monitor) Reset() {
	m.history.Clear()
	m.lastImpedance = m.limits.BaselineImpedance
}
