package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyLedger is returned when the ledger end is zero and no contracts can exist.
	ErrEmptyLedger = errors.New("ledger is empty, no contracts exist")

	// ErrSecuritySensitive is returned when the participant redacts a stream error.
	ErrSecuritySensitive = errors.New("security-sensitive error received from participant")
)

// SubmissionError reports a failed ledger submission: either a transport
// failure (Err set) or a non-success response (StatusCode and Body set).
type SubmissionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ledger submission failed [%d]: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("ledger submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
