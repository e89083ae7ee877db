package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"oncosim/pkg/ablation"
	"oncosim/pkg/growth"
)

// minRange keeps chart axes from collapsing on flat series.
const minRange = 1.0

// GrowthChart plots the growth delta of each frame against elapsed time
// and writes it as a PNG.
func GrowthChart(path string, frames []growth.Frame) error {
	if len(frames) < 2 {
		return fmt.Errorf("%w: growth chart needs at least 2 frames, got %d", ErrNoFrames, len(frames))
	}

	xs := make([]float64, len(frames))
	ys := make([]float64, len(frames))
	for i, f := range frames {
		xs[i] = f.Elapsed
		ys[i] = f.GrowthDeltaMM
	}

	graph := chart.Chart{
		Title:  "Tumor Growth",
		Width:  800,
		Height: 400,
		XAxis: chart.XAxis{
			Name:  fmt.Sprintf("Time (%s)", frames[0].Unit),
			Style: chart.Style{FontSize: 10.0},
			Range: paddedRange(xs),
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.1f", v.(float64))
			},
		},
		YAxis: chart.YAxis{
			Name:  "Growth (mm)",
			Style: chart.Style{FontSize: 10.0},
			Range: paddedRange(ys),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Radius delta",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: drawing.Color{R: 255, G: 165, B: 0, A: 255},
					StrokeWidth: 4.0,
				},
			},
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return fmt.Errorf("error rendering growth chart: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buffer.Bytes(), 0644)
}

func paddedRange(values []float64) *chart.ContinuousRange {
	lo, hi := floats.Min(values), floats.Max(values)
	if hi-lo < minRange {
		mid := (lo + hi) / 2
		lo, hi = mid-minRange/2, mid+minRange/2
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

// ThermalTrace plots centroid, margin and target temperature of an
// ablation run against simulated time and saves it as an image.
func ThermalTrace(path string, reports []ablation.Report) error {
	if len(reports) == 0 {
		return ErrNoFrames
	}

	p := plot.New()
	p.Title.Text = "Thermal Ablation"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Temperature (°C)"

	centroid := make(plotter.XYs, len(reports))
	margin := make(plotter.XYs, len(reports))
	target := make(plotter.XYs, len(reports))
	for i, r := range reports {
		centroid[i].X, centroid[i].Y = r.ElapsedS, r.CentroidC
		margin[i].X, margin[i].Y = r.ElapsedS, r.MarginC
		target[i].X, target[i].Y = r.ElapsedS, r.TargetC
	}

	if err := plotutil.AddLines(p, "Centroid", centroid, "Margin", margin, "Target", target); err != nil {
		return fmt.Errorf("error adding thermal series: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("error saving thermal trace: %w", err)
	}
	return nil
}
