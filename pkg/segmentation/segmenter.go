// Package segmentation locates a lesion on a single grayscale brain slice.
//
// The pipeline strips the skull, smooths the brain with anisotropic
// diffusion, clusters brain intensities with multi-Otsu, scores each
// cluster for suspicion and finally refines the winning region with a
// two-phase level set. A slice without a convincing lesion is a normal
// outcome reported through Result.Found, not an error.
package segmentation

import (
	"context"
	"fmt"

	"oncosim/internal/log"
	"oncosim/internal/models"
	"oncosim/pkg/config"
)

// Reason explains why no lesion was reported.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNoBrain       Reason = "no brain tissue detected"
	ReasonBrainTooSmall Reason = "brain region too small to score"
	ReasonNoContrast    Reason = "brain intensities cannot be split into classes"
	ReasonNoCandidate   Reason = "no candidate cluster inside the brain"
	ReasonLowSeparation Reason = "no cluster stands out from the rest"
)

// MinSeparation is the smallest best/others score ratio accepted as a lesion.
const MinSeparation = 1.5

// Options bundles every stage's parameters.
type Options struct {
	Brain     BrainOptions
	Proposal  ProposalOptions
	LevelSet  LevelSetOptions
	Diffusion struct {
		Iterations int
		Kappa      float64
		Gamma      float64
	}
}

// DefaultOptions returns the standard pipeline parameters.
func DefaultOptions() Options {
	opts := Options{
		Brain:    DefaultBrainOptions(),
		Proposal: DefaultProposalOptions(),
		LevelSet: DefaultLevelSetOptions(),
	}
	opts.Diffusion.Iterations = 15
	opts.Diffusion.Kappa = 50
	opts.Diffusion.Gamma = 0.1
	return opts
}

// OptionsFromConfig maps the segmentation section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	s := cfg.Segmentation
	opts := DefaultOptions()
	opts.Brain = BrainOptions{
		ThresholdFactor:        s.HeadThresholdFactor,
		SkullErosionSize:       s.SkullErosionSize,
		SkullErosionIterations: s.SkullErosionIterations,
		ShrinkErosionSize:      s.ShrinkErosionSize,
	}
	opts.Proposal.Classes = s.Classes
	opts.Proposal.MinBrainPixels = s.MinBrainPixels
	opts.LevelSet = LevelSetOptions{
		Iterations: s.LevelSetIterations,
		Step:       s.LevelSetStep,
		Epsilon:    s.LevelSetEpsilon,
		Mu:         s.LevelSetMu,
	}
	opts.Diffusion.Iterations = s.DiffusionIterations
	opts.Diffusion.Kappa = s.DiffusionKappa
	opts.Diffusion.Gamma = s.DiffusionGamma
	return opts
}

// Result is the outcome of one segmentation run. Masks are never modified
// after they are returned.
type Result struct {
	// Found reports whether a lesion was accepted
	Found bool

	// Reason is set when Found is false
	Reason Reason

	// BrainMask is the extracted brain region; empty when none was detected
	BrainMask *models.Mask

	// Proposal is the cluster region before refinement, nil if none
	Proposal *models.Mask

	// TumorMask is the refined lesion, nil unless Found
	TumorMask *models.Mask

	// Confidence is a 0-99 percentage derived from Ratio
	Confidence float64

	// Ratio is best score over the mean of the other scores
	Ratio float64

	// BestScore and MeanOtherScore are the raw suspicion scores
	BestScore      float64
	MeanOtherScore float64

	// Clusters describes every scored intensity class
	Clusters []ClusterDescriptor
}

// Segmenter runs the full detection pipeline.
type Segmenter struct {
	opts Options
}

// NewSegmenter creates a segmenter with the given options.
func NewSegmenter(opts Options) *Segmenter {
	return &Segmenter{opts: opts}
}

// Segment detects a lesion on img. The only errors are an empty input and
// context cancellation; every other failure is reported through Result.
func (s *Segmenter) Segment(ctx context.Context, img *models.Image) (Result, error) {
	if img.Empty() {
		return Result{}, ErrEmptyImage
	}
	if len(img.Pix) != img.Width*img.Height {
		return Result{}, fmt.Errorf("%w: %d samples for %dx%d", ErrSizeMismatch, len(img.Pix), img.Width, img.Height)
	}

	brain := ExtractBrain(img, s.opts.Brain)
	if brain.Empty() {
		return Result{Reason: ReasonNoBrain, BrainMask: brain}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	d := s.opts.Diffusion
	smoothed := Diffuse(img.Masked(brain), d.Iterations, d.Kappa, d.Gamma)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	p := ProposeTumor(smoothed, brain, s.opts.Proposal)
	ratio := p.Ratio()
	res := Result{
		BrainMask:      brain,
		Proposal:       p.Mask,
		Ratio:          ratio,
		Confidence:     Confidence(ratio),
		BestScore:      p.BestScore,
		MeanOtherScore: p.MeanOtherScore,
		Clusters:       p.Clusters,
	}

	switch {
	case p.Mask == nil:
		res.Reason = p.Reason
		res.Ratio, res.Confidence = 0, 0
		return res, nil
	case p.Mask.Empty():
		res.Reason = ReasonNoCandidate
		return res, nil
	case ratio < MinSeparation:
		res.Reason = ReasonLowSeparation
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	refined := RefineLevelSet(smoothed, p.Mask, brain, s.opts.LevelSet)
	res.TumorMask = refined.And(brain)
	if res.TumorMask.Empty() {
		res.TumorMask = nil
		res.Reason = ReasonNoCandidate
		return res, nil
	}
	res.Found = true

	log.Debug("segmentation complete",
		"ratio", ratio,
		"confidence", res.Confidence,
		"pixels", res.TumorMask.Count())
	return res, nil
}
