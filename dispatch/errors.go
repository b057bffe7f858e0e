package dispatch

import (
	"errors"
)

// ErrInvalidOption is returned (wrapped) by New, when an option is invalid.
var ErrInvalidOption = errors.New("dispatch: invalid option")
