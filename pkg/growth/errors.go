package growth

import "errors"

var (
	// ErrSizeMismatch is returned when the initial and brain masks differ in size.
	ErrSizeMismatch = errors.New("growth: mask sizes differ")

	// ErrUnknownUnit is returned for a time unit other than hours or days.
	ErrUnknownUnit = errors.New("growth: unknown time unit")

	// ErrNegativeCoefficient is returned for a negative or non-finite D, rho or beta.
	ErrNegativeCoefficient = errors.New("growth: coefficients must not be negative")

	// ErrInvalidOptions is returned for unusable step or sampling settings.
	ErrInvalidOptions = errors.New("growth: invalid options")
)
