package browser

import "fmt"

// LaunchError is fatal to the entire run: the browser resource could not be
// acquired (missing executable, sandboxing unavailable, allocator failure).
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch browser: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
