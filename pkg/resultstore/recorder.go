package resultstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainsafe/canton-cbtc/pkg/transfer"
)

// Recorder persists runs and results as they are produced.
// It is safe for concurrent use by parallel chains.
type Recorder struct {
	store  Store
	logger *zap.Logger
}

// NewRecorder creates a recorder backed by store.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// StartRun creates the run record and returns an observer for its results.
func (r *Recorder) StartRun(ctx context.Context, info transfer.RunInfo) (transfer.RunObserver, error) {
	run := &Run{
		ID:            uuid.NewString(),
		Operation:     info.Operation,
		Party:         info.Party,
		ReferenceBase: info.ReferenceBase,
		Items:         info.Items,
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	r.logger.Info("Recording run",
		zap.String("run_id", run.ID),
		zap.String("operation", run.Operation),
		zap.Int("items", run.Items),
	)
	return &runObserver{
		ctx:    context.WithoutCancel(ctx),
		runID:  run.ID,
		store:  r.store,
		logger: r.logger.With(zap.String("run_id", run.ID)),
	}, nil
}

type runObserver struct {
	ctx    context.Context
	runID  string
	store  Store
	logger *zap.Logger

	mu       sync.Mutex
	failures int
	lastErr  error
}

// ID returns the run id.
func (o *runObserver) ID() string { return o.runID }

func (o *runObserver) OnResult(res transfer.Result) {
	rec := &Result{
		RunID:          o.runID,
		Index:          res.Index,
		Receiver:       res.Receiver,
		Amount:         res.Amount,
		Success:        res.Success,
		StateUnknown:   res.StateUnknown,
		Reference:      res.Reference,
		UpdateID:       res.UpdateID,
		InstructionCid: res.InstructionCid,
		ChangeCids:     res.ChangeCids,
		Error:          res.ErrMessage(),
	}
	// Raw responses are kept only where the ledger state needs reconciling.
	if res.StateUnknown {
		rec.RawResponse = string(res.RawResponse)
	}

	if err := o.store.InsertResult(o.ctx, rec); err != nil {
		o.logger.Error("Failed to persist result", zap.Int("index", res.Index), zap.Error(err))
		o.mu.Lock()
		o.failures++
		o.lastErr = err
		o.mu.Unlock()
	}
}

func (o *runObserver) Finish(ctx context.Context, out *transfer.Outcome, runErr error) error {
	status := StatusCompleted
	var success, failed int
	if out != nil {
		success, failed = out.SuccessCount, out.FailCount
	}
	msg := ""
	if runErr != nil {
		status = StatusFailed
		msg = runErr.Error()
	}

	err := o.store.FinishRun(ctx, o.runID, status, success, failed, msg)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failures > 0 {
		err = errors.Join(err, fmt.Errorf("%d results not persisted: %w", o.failures, o.lastErr))
	}
	return err
}
