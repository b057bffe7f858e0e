package executor

import (
	"errors"
)

// Standard errors.
var (
	// ErrAlreadyRunning is returned when Run is called on an executor that is already running.
	ErrAlreadyRunning = errors.New("executor: already running")

	// ErrLoopAttached is returned when Run is called on an executor that is driven by an event loop.
	ErrLoopAttached = errors.New("executor: driven by an event loop")

	// ErrInvalidOption is returned (wrapped) by New, when an option is invalid.
	ErrInvalidOption = errors.New("executor: invalid option")
)
