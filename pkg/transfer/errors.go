package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecipients is returned when a chain has nothing to pay.
	ErrNoRecipients = errors.New("no recipients to process")

	// ErrInsufficientHoldings marks a chain item attempted with an empty holding pool.
	ErrInsufficientHoldings = errors.New("no holdings available")

	// ErrNoHoldings is returned when an operation needs at least one holding.
	ErrNoHoldings = errors.New("no holdings to operate on")

	// ErrInsufficientFundsForSplit is returned when a split runs out of change
	// before every output is created.
	ErrInsufficientFundsForSplit = errors.New("insufficient funds for split")
)

// ParseKind classifies a ResponseParseError.
type ParseKind int

const (
	ParseInvalidJSON ParseKind = iota
	ParseMissingEvent
	ParseWrongChoice
	ParseMissingField
	ParseTypeMismatch
)

func (k ParseKind) String() string {
	switch k {
	case ParseInvalidJSON:
		return "invalid_json"
	case ParseMissingEvent:
		return "missing_event"
	case ParseWrongChoice:
		return "wrong_choice"
	case ParseMissingField:
		return "missing_field"
	case ParseTypeMismatch:
		return "type_mismatch"
	default:
		return "unknown"
	}
}

// ResponseParseError reports a committed submission whose response could not
// be interpreted. The ledger state after such a response is unknown.
type ResponseParseError struct {
	Kind  ParseKind
	Field string
	Err   error
}

func (e *ResponseParseError) Error() string {
	msg := "failed to parse transfer response: " + e.Kind.String()
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// IsResponseParseError reports whether err is or wraps a ResponseParseError.
func IsResponseParseError(err error) bool {
	var pe *ResponseParseError
	return errors.As(err, &pe)
}
