package ablation

import "errors"

var (
	// ErrAlreadyRunning is returned by Start while the loop is active.
	ErrAlreadyRunning = errors.New("ablation: session already running")

	// ErrNotPrepared is returned by Advance before any setup was accepted.
	ErrNotPrepared = errors.New("ablation: session has no setup")

	// ErrHalted is returned by Advance after a stop verdict or destruction
	// until the session is reset.
	ErrHalted = errors.New("ablation: session halted")

	// ErrInvalidSetup is wrapped by setup validation failures.
	ErrInvalidSetup = errors.New("ablation: invalid setup")
)
