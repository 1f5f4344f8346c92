package auth

import (
	"errors"
	"fmt"
)

// ErrNotLoggedIn is returned by Subject before the first successful exchange.
var ErrNotLoggedIn = errors.New("session has no access token")

// AuthenticationError reports a failed credential exchange.
type AuthenticationError struct {
	Grant      Grant
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthenticationError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("authentication failed (%s grant): token endpoint returned %d: %s", e.Grant, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("authentication failed (%s grant): %v", e.Grant, e.Err)
	default:
		return fmt.Sprintf("authentication failed (%s grant)", e.Grant)
	}
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// RefreshRejectedError reports that the identity provider no longer accepts
// the refresh token. The session recovers from it with a full login.
type RefreshRejectedError struct {
	Code        string
	Description string
}

func (e *RefreshRejectedError) Error() string {
	return fmt.Sprintf("refresh token rejected: %s: %s", e.Code, e.Description)
}

// IsRefreshRejected reports whether err is, or wraps, a RefreshRejectedError.
func IsRefreshRejected(err error) bool {
	var rr *RefreshRejectedError
	return errors.As(err, &rr)
}
