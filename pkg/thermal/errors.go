package thermal

import "errors"

var (
	// ErrInvalidWavelength is returned for a non-positive wavelength.
	ErrInvalidWavelength = errors.New("thermal: wavelength must be positive")

	// ErrNegativeGeometry is returned for a negative tumor size or depth.
	ErrNegativeGeometry = errors.New("thermal: size and depth must not be negative")

	// ErrInvalidParams is wrapped by LaserParams.Validate failures.
	ErrInvalidParams = errors.New("thermal: invalid laser parameters")
)
