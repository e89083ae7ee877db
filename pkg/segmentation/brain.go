package segmentation

import (
	"oncosim/internal/log"
	"oncosim/internal/models"
)

// BrainOptions configures skull stripping.
type BrainOptions struct {
	// ThresholdFactor scales the mean non-zero intensity into the head threshold
	ThresholdFactor float64

	// SkullErosionSize and SkullErosionIterations strip the skull ring
	SkullErosionSize       int
	SkullErosionIterations int

	// ShrinkErosionSize is the final inward erosion that drops residual edge
	ShrinkErosionSize int
}

// DefaultBrainOptions returns the standard skull-stripping parameters.
func DefaultBrainOptions() BrainOptions {
	return BrainOptions{
		ThresholdFactor:        0.5,
		SkullErosionSize:       15,
		SkullErosionIterations: 2,
		ShrinkErosionSize:      10,
	}
}

// ExtractBrain isolates brain tissue from a head slice:
//
//  1. threshold at ThresholdFactor × mean of the non-zero pixels
//  2. fill holes in the head silhouette
//  3. erode away the skull
//  4. keep the largest 4-connected component
//  5. shrink once more to drop the skull edge
//
// An image with no non-zero pixels or no contrast yields an empty mask,
// which callers treat as "no brain detected".
func ExtractBrain(img *models.Image, opts BrainOptions) *models.Mask {
	empty := models.NewMask(img.Width, img.Height)
	if img.Empty() {
		return empty
	}

	sum, n := 0.0, 0
	lo, hi := img.Pix[0], img.Pix[0]
	for _, v := range img.Pix {
		if v > 0 {
			sum += v
			n++
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if n == 0 || hi <= lo {
		log.Debug("brain extraction skipped", "nonzero", n, "contrast", hi-lo)
		return empty
	}

	threshold := opts.ThresholdFactor * sum / float64(n)
	head := models.NewMask(img.Width, img.Height)
	for i, v := range img.Pix {
		head.Bits[i] = v > threshold
	}

	head = FillHoles(head)
	brain := Erode(head, opts.SkullErosionSize, opts.SkullErosionIterations)
	brain = LargestComponent(brain)
	brain = Erode(brain, opts.ShrinkErosionSize, 1)

	log.Debug("brain extracted", "threshold", threshold, "head", head.Count(), "brain", brain.Count())
	return brain
}
