package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"sync"
	"time"

	"oncosim/internal/log"
	"oncosim/internal/models"
	"oncosim/internal/phantom"
	"oncosim/pkg/ablation"
	"oncosim/pkg/background"
	"oncosim/pkg/classifier"
	"oncosim/pkg/config"
	"oncosim/pkg/growth"
	"oncosim/pkg/measurement"
	"oncosim/pkg/planning"
	"oncosim/pkg/report"
	"oncosim/pkg/safety"
	"oncosim/pkg/segmentation"
	"oncosim/pkg/thermal"
	"oncosim/pkg/visualization"
)

var errNoTumor = errors.New("no tumor detected")

// videoEvery keeps one ablation heatmap per this many ticks for the video.
const videoEvery = 10

type growthFlags struct {
	D, Rho, Beta float64
	Unit         models.TimeUnit
	Horizon      float64
}

type runOptions struct {
	Input     string
	ModelPath string
	Mode      ablation.Mode
	MaxTicks  int
	Realtime  bool
	Growth    growthFlags
	Playback  bool
}

type summary struct {
	Reason        segmentation.Reason
	SegConfidence float64
	Stats         measurement.GeometryStats
	Prediction    classifier.Prediction
	Simulated     bool
	Plan          planning.Plan
	Laser         thermal.LaserParams
	SessionID     string
	Ticks         int
	CentroidC     float64
	MarginC       float64
	Destroyed     bool
	Verdict       safety.Verdict
	GrowthFrames  int
	GrowthMM      float64
	Grade         growth.Grade
}

// Print writes a human-readable report of the run.
func (s summary) Print(w io.Writer) {
	g := s.Stats.Rounded()
	fmt.Fprintf(w, "\nSegmentation (confidence %.1f%%):\n", s.SegConfidence)
	fmt.Fprintf(w, "- Area: %.2f mm²\n", g.AreaMM2)
	fmt.Fprintf(w, "- Equivalent diameter: %.2f mm\n", g.EquivalentDiameterMM)
	fmt.Fprintf(w, "- Size: %.2f x %.2f mm, center (%d, %d)\n", g.WidthMM, g.HeightMM, g.Center.X, g.Center.Y)
	fmt.Fprintf(w, "- Eccentricity %.2f, elongation %.2f\n", g.Eccentricity, g.Elongation)

	source := "model"
	if s.Simulated {
		source = "simulated"
	}
	fmt.Fprintf(w, "\nClassification (%s):\n", source)
	fmt.Fprintf(w, "- %s, %s (%.1f%%)\n", s.Prediction.Class, s.Prediction.Grade, s.Prediction.Confidence)
	fmt.Fprintf(w, "- %s\n", s.Prediction.Description)
	fmt.Fprintf(w, "- %s\n", s.Prediction.Action)

	fmt.Fprintf(w, "\nTreatment plan: %.0f W, %.0f J, %.0f °C\n", s.Plan.PowerW, s.Plan.EnergyJ, s.Plan.TargetTempC)
	for _, tip := range s.Plan.Tips {
		fmt.Fprintf(w, "- %s\n", tip)
	}
	fmt.Fprintf(w, "Dosimetry at %.0f nm: %.2f W, %.2f J over %.1f s\n",
		s.Laser.WavelengthNM, s.Laser.PowerW, s.Laser.EnergyJ, s.Laser.DurationS)

	fmt.Fprintf(w, "\nAblation session %s:\n", s.SessionID)
	fmt.Fprintf(w, "- %d ticks, centroid %.2f °C, margin %.2f °C\n", s.Ticks, s.CentroidC, s.MarginC)
	fmt.Fprintf(w, "- Destroyed: %t\n", s.Destroyed)
	fmt.Fprintf(w, "- Last verdict: %s (%s)\n", s.Verdict.Action, s.Verdict.Message)

	fmt.Fprintf(w, "\nGrowth projection: %d frames, +%.2f mm, grade %s\n", s.GrowthFrames, s.GrowthMM, s.Grade)
}

func run(ctx context.Context, cfg *config.Config, opts runOptions) (summary, error) {
	var sum summary
	outDir := cfg.Output.Directory

	img, err := loadSlice(opts.Input)
	if err != nil {
		return sum, err
	}
	log.Info("slice loaded", "width", img.Width, "height", img.Height, "source", sourceName(opts.Input))

	runner := background.NewRunner(ctx)
	defer runner.Shutdown()

	// Segmentation and classification are independent; run them side by side.
	var (
		segOut background.Outcome[segmentation.Result]
		clsOut background.Outcome[classifier.Prediction]
	)
	segmenter := segmentation.NewSegmenter(segmentation.OptionsFromConfig(cfg))
	background.Submit(runner, "segmentation",
		func(ctx context.Context) (segmentation.Result, error) { return segmenter.Segment(ctx, img) },
		func(o background.Outcome[segmentation.Result]) { segOut = o })

	svc := classifier.NewService()
	background.Submit(runner, "classification",
		func(ctx context.Context) (classifier.Prediction, error) {
			if err := svc.Init(ctx, opts.ModelPath); err != nil {
				return classifier.Prediction{}, err
			}
			return svc.Predict(ctx, img)
		},
		func(o background.Outcome[classifier.Prediction]) { clsOut = o })
	runner.Wait()

	if !segOut.OK {
		return sum, fmt.Errorf("segmentation: %w", segOut.Err)
	}
	seg := segOut.Value
	sum.Reason = seg.Reason
	if !seg.Found {
		return sum, errNoTumor
	}
	sum.SegConfidence = seg.Confidence

	spacing := models.Spacing{X: cfg.Measurement.PixelSpacingX, Y: cfg.Measurement.PixelSpacingY}
	stats, ok := measurement.Measure(seg.TumorMask, spacing)
	if !ok {
		return sum, errNoTumor
	}
	sum.Stats = stats

	viewer := visualization.NewViewer(img, seg.TumorMask)
	if err := visualization.SaveImage(viewer.Overlay(stats), filepath.Join(outDir, "segmentation.png")); err != nil {
		return sum, fmt.Errorf("saving overlay: %w", err)
	}
	if region, err := viewer.ExtractRegion(stats.BBox, 10); err == nil {
		if err := visualization.SaveImage(region, filepath.Join(outDir, "tumor_region.png")); err != nil {
			log.Warn("failed to save tumor region", "error", err)
		}
	}

	if clsOut.OK {
		sum.Prediction = clsOut.Value
		sum.Simulated = svc.Simulated()
	} else {
		log.Warn("classification unavailable", "error", clsOut.Err)
		sum.Prediction = classifier.FormatResult("unavailable", 0)
	}

	sizeMM := stats.EquivalentDiameterMM
	sum.Plan = planning.GenerateTreatmentPlan(sizeMM, sum.Prediction.TumorType())
	sum.Laser, err = thermal.DosimetryFromConfig(cfg).Calculate(sizeMM, cfg.Thermal.DefaultDepthMM, cfg.Thermal.DefaultWavelengthNM)
	if err != nil {
		return sum, fmt.Errorf("dosimetry: %w", err)
	}

	setup := ablation.Setup{
		Params:    sum.Laser,
		Mode:      opts.Mode,
		TumorMask: seg.TumorMask,
		Base:      viewer.Tinted(),
	}
	session := ablation.NewSession(ablation.OptionsFromConfig(cfg))
	sum.SessionID = session.ID

	rec := &traceRecorder{every: videoEvery}
	if opts.Realtime {
		err = runRealtime(ctx, session, setup, opts.MaxTicks, rec)
	} else {
		err = runStepped(ctx, session, setup, opts.MaxTicks, rec)
	}
	if err != nil {
		return sum, fmt.Errorf("ablation: %w", err)
	}
	if err := rec.save(outDir, cfg.Output.VideoFPS); err != nil {
		return sum, err
	}
	snap := session.Snapshot()
	sum.Ticks, sum.CentroidC, sum.MarginC, sum.Destroyed = snap.Ticks, snap.CentroidC, snap.MarginC, snap.Destroyed
	if last, ok := rec.last(); ok {
		sum.Verdict = last.Verdict
	}

	frames, err := runGrowth(ctx, runner, cfg, opts.Growth, seg.TumorMask, seg.BrainMask)
	if err != nil {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		log.Warn("growth projection failed", "error", err)
		frames = nil
	}
	if len(frames) == 0 {
		log.Warn("growth projection produced no frames", "horizon", opts.Growth.Horizon, "unit", opts.Growth.Unit)
		return sum, nil
	}
	if opts.Playback {
		interval := time.Duration(cfg.Growth.PlaybackIntervalMS) * time.Millisecond
		err := growth.Play(ctx, frames, interval, func(i int, f growth.Frame) {
			log.Info("growth frame", "index", i, "elapsed", f.Elapsed, "unit", f.Unit, "delta_mm", f.GrowthDeltaMM, "grade", f.Grade)
		})
		if err != nil {
			return sum, err
		}
	}
	if err := report.GrowthVideo(filepath.Join(outDir, "growth.avi"), img, frames, cfg.Output.VideoFPS); err != nil {
		return sum, err
	}
	if len(frames) >= 2 {
		if err := report.GrowthChart(filepath.Join(outDir, "growth.png"), frames); err != nil {
			return sum, err
		}
	}
	last := frames[len(frames)-1]
	sum.GrowthFrames, sum.GrowthMM, sum.Grade = len(frames), last.GrowthDeltaMM, last.Grade

	return sum, nil
}

func loadSlice(path string) (*models.Image, error) {
	if path == "" {
		return phantom.Slice(phantom.Default()), nil
	}
	return visualization.LoadImage(path)
}

func sourceName(path string) string {
	if path == "" {
		return "phantom"
	}
	return path
}

// runStepped advances the session as fast as possible.
func runStepped(ctx context.Context, s *ablation.Session, setup ablation.Setup, maxTicks int, rec *traceRecorder) error {
	if err := s.Prepare(setup); err != nil {
		return err
	}
	for i := 0; i < maxTicks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := s.Advance()
		if errors.Is(err, ablation.ErrHalted) {
			return nil
		}
		if err != nil {
			return err
		}
		rec.record(r)
		if r.Halted {
			return nil
		}
	}
	log.Warn("ablation tick limit reached", "ticks", maxTicks)
	return nil
}

// runRealtime drives the session on its own timer until it halts, the tick
// limit is hit or ctx is cancelled.
func runRealtime(ctx context.Context, s *ablation.Session, setup ablation.Setup, maxTicks int, rec *traceRecorder) error {
	err := s.Start(setup, func(r ablation.Report) {
		rec.record(r)
		if r.Tick >= maxTicks {
			s.Stop()
		}
	})
	if err != nil {
		return err
	}

	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		s.Stop()
		<-s.Done()
		return ctx.Err()
	}
}

func runGrowth(ctx context.Context, runner *background.Runner, cfg *config.Config, g growthFlags, tumor, brain *models.Mask) ([]growth.Frame, error) {
	p := growth.Params{D: g.D, Rho: g.Rho, Beta: g.Beta, Unit: g.Unit, Horizon: g.Horizon}
	gopts := growth.OptionsFromConfig(cfg)

	result := make(chan background.Outcome[[]growth.Frame], 1)
	background.Submit(runner, "growth",
		func(ctx context.Context) ([]growth.Frame, error) { return growth.Simulate(ctx, tumor, brain, p, gopts) },
		func(o background.Outcome[[]growth.Frame]) { result <- o })

	out := <-result
	if !out.OK {
		return nil, out.Err
	}
	return out.Value, nil
}

// traceRecorder keeps every report for the trace plot and a subsample of
// heatmap frames for the video. Frames are dropped from stored reports.
type traceRecorder struct {
	mu      sync.Mutex
	every   int
	reports []ablation.Report
	frames  []image.Image
}

func (t *traceRecorder) record(r ablation.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.Frame != nil && (r.Tick%t.every == 1 || r.Halted) {
		t.frames = append(t.frames, r.Frame)
	}
	r.Frame = nil
	t.reports = append(t.reports, r)
}

func (t *traceRecorder) last() (ablation.Report, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.reports) == 0 {
		return ablation.Report{}, false
	}
	return t.reports[len(t.reports)-1], true
}

func (t *traceRecorder) save(dir string, fps int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.reports) == 0 {
		return nil
	}
	if err := report.ThermalTrace(filepath.Join(dir, "thermal.png"), t.reports); err != nil {
		return err
	}
	if len(t.frames) > 0 {
		if err := visualization.SaveImage(t.frames[len(t.frames)-1], filepath.Join(dir, "heatmap.png")); err != nil {
			return err
		}
		if err := report.WriteVideo(filepath.Join(dir, "ablation.avi"), t.frames, fps); err != nil {
			return err
		}
	}
	return nil
}
