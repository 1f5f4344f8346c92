package registry

import "fmt"

// Error reports a failed or malformed registry response.
type Error struct {
	Kind       string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("registry %s request failed with status %d: %s", e.Kind, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("registry %s request: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("registry %s request failed", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }
