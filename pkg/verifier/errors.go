package verifier

import (
	"errors"
	"fmt"
	"time"
)

// ErrWaitTimeout is wrapped by Session.WaitVisible when the bound elapses
// before the element is visible.
var ErrWaitTimeout = errors.New("wait timed out")

// NavigationError reports that the target page could not be loaded.
type NavigationError struct {
	URL        string
	StatusCode int // Zero when no response arrived
	Err        error
}

func (e *NavigationError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("navigation to %s failed with status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("navigation to %s failed with status %d", e.URL, e.StatusCode)
	}
}

func (e *NavigationError) Unwrap() error { return e.Err }

// VisibilityTimeoutError reports that the locator did not match a visible
// element in time.
type VisibilityTimeoutError struct {
	Locator string
	Elapsed time.Duration
	Err     error
}

func (e *VisibilityTimeoutError) Error() string {
	return fmt.Sprintf("%s not visible after %v", e.Locator, e.Elapsed.Round(time.Millisecond))
}

func (e *VisibilityTimeoutError) Unwrap() error { return e.Err }

// FilesystemError reports that the screenshot could not be written.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }
