// Package recipients parses bulk payout files.
//
// A file is CSV with a header row naming at least the receiver and amount
// columns; an optional reference column supplies per-row idempotency
// references. Column order is free and header names are case-insensitive.
package recipients

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
	"github.com/chainsafe/canton-cbtc/pkg/transfer"
)

const (
	colReceiver  = "receiver"
	colAmount    = "amount"
	colReference = "reference"
)

var (
	// ErrEmpty is returned for a file with a header but no rows.
	ErrEmpty = errors.New("no recipients")
	// ErrMissingColumn is returned when a required header column is absent.
	ErrMissingColumn = errors.New("missing column")
)

// RowError reports an invalid row. Line is 1-based and counts the header.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ReadFile parses the recipients file at path.
func ReadFile(path string) ([]transfer.Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recipients file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads recipients in file order. Blank lines are skipped and fields
// are trimmed.
func Parse(r io.Reader) ([]transfer.Recipient, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := columns(header)
	if err != nil {
		return nil, err
	}

	var out []transfer.Recipient
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read recipients: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}

		rcpt, err := cols.recipient(rec)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		out = append(out, rcpt)
	}

	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

type columnIndex struct {
	receiver, amount, reference int
}

func columns(header []string) (columnIndex, error) {
	idx := columnIndex{receiver: -1, amount: -1, reference: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case colReceiver:
			idx.receiver = i
		case colAmount:
			idx.amount = i
		case colReference:
			idx.reference = i
		}
	}
	if idx.receiver < 0 {
		return idx, fmt.Errorf("%w %q", ErrMissingColumn, colReceiver)
	}
	if idx.amount < 0 {
		return idx, fmt.Errorf("%w %q", ErrMissingColumn, colAmount)
	}
	return idx, nil
}

func (c columnIndex) recipient(rec []string) (transfer.Recipient, error) {
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	r := transfer.Recipient{
		Receiver:  field(c.receiver),
		Amount:    field(c.amount),
		Reference: field(c.reference),
	}
	if r.Receiver == "" {
		return r, errors.New("receiver is empty")
	}
	if !strings.Contains(r.Receiver, "::") {
		return r, fmt.Errorf("receiver %q is not a party id", r.Receiver)
	}
	if err := token.ValidateAmount(r.Amount); err != nil {
		return r, fmt.Errorf("amount %q: %w", r.Amount, err)
	}
	return r, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
