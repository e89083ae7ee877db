package segmentation

import "errors"

var (
	// ErrEmptyImage is returned when the input raster has no pixels.
	ErrEmptyImage = errors.New("segmentation: empty image")

	// ErrSizeMismatch is returned when a mask is not congruent to its image.
	ErrSizeMismatch = errors.New("segmentation: mask and image sizes differ")

	// ErrTooFewValues is returned by MultiOtsu when the histogram has fewer
	// occupied bins than requested classes.
	ErrTooFewValues = errors.New("segmentation: not enough distinct intensities for thresholding")
)
