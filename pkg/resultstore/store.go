// Package resultstore persists transfer runs and their per-item results.
package resultstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRunNotFound is returned when a run lookup finds no record.
	ErrRunNotFound = errors.New("run not found")
	// ErrResultNotFound is returned when a result lookup finds no record.
	ErrResultNotFound = errors.New("result not found")
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one recorded distribute, accept or withdraw invocation.
type Run struct {
	ID            string     `json:"id"`
	Operation     string     `json:"operation"`
	Party         string     `json:"party"`
	ReferenceBase string     `json:"reference_base,omitempty"`
	Items         int        `json:"items"`
	SuccessCount  int        `json:"success_count"`
	FailCount     int        `json:"fail_count"`
	Status        Status     `json:"status"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Result is the persisted form of one item result.
type Result struct {
	RunID          string    `json:"run_id"`
	Index          int       `json:"index"`
	Receiver       string    `json:"receiver"`
	Amount         string    `json:"amount"`
	Success        bool      `json:"success"`
	StateUnknown   bool      `json:"state_unknown,omitempty"`
	Reference      string    `json:"reference,omitempty"`
	UpdateID       string    `json:"update_id,omitempty"`
	InstructionCid string    `json:"instruction_cid,omitempty"`
	ChangeCids     []string  `json:"change_cids,omitempty"`
	Error          string    `json:"error,omitempty"`
	RawResponse    string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunStore records runs.
type RunStore interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, id string, status Status, successCount, failCount int, runErr string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
}

// ResultStore records item results.
type ResultStore interface {
	InsertResult(ctx context.Context, result *Result) error
	ListResults(ctx context.Context, runID string) ([]*Result, error)

	// GetResultByReference returns the most recent result carrying reference,
	// preferring successful ones, then state-unknown ones. It lets callers
	// skip logical transfers that already committed before a crash.
	GetResultByReference(ctx context.Context, reference string) (*Result, error)
}

// Store is the full persistence interface.
type Store interface {
	RunStore
	ResultStore
}
