package scenario

import (
	"errors"
	"fmt"
)

// ErrElementAbsent is returned (wrapped) by Page implementations when an
// element does not appear within the bounded wait. Steps marked Optional
// turn it into a warning; all other steps record a failure.
var ErrElementAbsent = errors.New("element not found within timeout")

// NavigationError is fatal: the target page never reached a ready state
// within the navigation timeout, so no step can meaningfully execute.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }
