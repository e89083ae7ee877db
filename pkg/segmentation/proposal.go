package segmentation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"oncosim/internal/log"
	"oncosim/internal/models"
)

// ClusterDescriptor summarizes one intensity class inside the brain.
type ClusterDescriptor struct {
	// Label is the class index produced by multi-Otsu digitization
	Label int

	// Pixels is the number of brain pixels in the class
	Pixels int

	// Entropy is the Shannon entropy of the class intensities in bits
	Entropy float64

	// MeanIntensity is the mean class intensity
	MeanIntensity float64

	// Suspicion is the hybrid contrast/texture score; higher is more lesion-like
	Suspicion float64
}

// ProposalOptions configures clustering and scoring.
type ProposalOptions struct {
	Classes        int
	Bins           int
	MinBrainPixels int
}

// DefaultProposalOptions returns 4 classes over 256 bins with a 100 pixel floor.
func DefaultProposalOptions() ProposalOptions {
	return ProposalOptions{Classes: 4, Bins: 256, MinBrainPixels: 100}
}

// Proposal is the outcome of cluster scoring. Mask is nil when no candidate
// could be produced, in which case Reason says why.
type Proposal struct {
	Mask           *models.Mask
	Clusters       []ClusterDescriptor
	BestLabel      int
	BestScore      float64
	MeanOtherScore float64
	Reason         Reason
}

// Ratio is how far the best cluster stands out from the others. A lone
// cluster, or others scoring zero, gives 100.
func (p Proposal) Ratio() float64 {
	if p.MeanOtherScore == 0 {
		return 100
	}
	return p.BestScore / p.MeanOtherScore
}

// Confidence maps a separation ratio to a 0-99 percentage: above 5 is 99,
// between 2 and 5 rises linearly from 50 to 99, anything lower is 0.
func Confidence(ratio float64) float64 {
	switch {
	case ratio > 5:
		return 99
	case ratio > 2:
		return 50 + (ratio-2)/3*49
	default:
		return 0
	}
}

// ProposeTumor clusters the brain pixels of img into intensity classes and
// returns the largest connected region of the most suspicious class.
//
// Suspicion is 1.5 × |class mean − brain mean| / brain std plus 0.5 × the
// class entropy relative to the most entropic class. The darkest class
// (label 0) is never scored.
func ProposeTumor(img *models.Image, brain *models.Mask, opts ProposalOptions) Proposal {
	var brainPix []float64
	for i, in := range brain.Bits {
		if in {
			brainPix = append(brainPix, img.Pix[i])
		}
	}
	if len(brainPix) < opts.MinBrainPixels {
		return Proposal{Reason: ReasonBrainTooSmall}
	}

	thresholds, err := MultiOtsu(brainPix, opts.Classes, opts.Bins)
	if err != nil {
		log.Debug("multi-otsu failed", "error", err)
		return Proposal{Reason: ReasonNoContrast}
	}

	brainMean, brainStd := stat.PopMeanStdDev(brainPix, nil)
	if brainStd == 0 {
		brainStd = 1e-9
	}

	regions := make([]int, len(img.Pix))
	for i, in := range brain.Bits {
		if in {
			regions[i] = Digitize(img.Pix[i], thresholds)
		}
	}

	members := make([][]float64, len(thresholds)+1)
	for i, l := range regions {
		if l > 0 {
			members[l] = append(members[l], img.Pix[i])
		}
	}

	var clusters []ClusterDescriptor
	for l := 1; l < len(members); l++ {
		if len(members[l]) == 0 {
			continue
		}
		clusters = append(clusters, ClusterDescriptor{
			Label:         l,
			Pixels:        len(members[l]),
			Entropy:       Entropy(members[l]),
			MeanIntensity: stat.Mean(members[l], nil),
		})
	}
	if len(clusters) == 0 {
		return Proposal{Reason: ReasonNoCandidate}
	}

	maxEntropy := 0.0
	for _, c := range clusters {
		maxEntropy = math.Max(maxEntropy, c.Entropy)
	}
	best := 0
	for i := range clusters {
		c := &clusters[i]
		entropyScore := 0.0
		if maxEntropy > 0 {
			entropyScore = c.Entropy / maxEntropy
		}
		c.Suspicion = 1.5*math.Abs(c.MeanIntensity-brainMean)/brainStd + 0.5*entropyScore
		if c.Suspicion > clusters[best].Suspicion {
			best = i
		}
	}

	p := Proposal{
		Clusters:  clusters,
		BestLabel: clusters[best].Label,
		BestScore: clusters[best].Suspicion,
	}
	if len(clusters) > 1 {
		others := make([]float64, 0, len(clusters)-1)
		for i, c := range clusters {
			if i != best {
				others = append(others, c.Suspicion)
			}
		}
		p.MeanOtherScore = stat.Mean(others, nil)
	}

	candidate := models.NewMask(img.Width, img.Height)
	for i, l := range regions {
		candidate.Bits[i] = l == p.BestLabel
	}
	p.Mask = LargestComponent(candidate)

	log.Debug("tumor proposal scored",
		"clusters", len(clusters),
		"bestLabel", p.BestLabel,
		"bestScore", p.BestScore,
		"meanOther", p.MeanOtherScore,
		"pixels", p.Mask.Count())
	return p
}
