// Package transfer implements sequential chained CBTC transfers.
//
// A chain spends a pool of holdings across many independent ledger
// submissions: the change of each successful transfer becomes the input pool
// of the next. Consolidation, splitting and offer batching are built on the
// same primitives.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainsafe/canton-cbtc/internal/metrics"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/auth"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/registry"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"go.uber.org/zap"
)

const (
	// DefaultExecuteBefore is the validity window of each chained transfer.
	DefaultExecuteBefore = 168 * time.Hour

	// contextExecuteBefore is the window of the representative transfer used
	// to fetch the factory context.
	contextExecuteBefore = 30 * 24 * time.Hour

	OperationDistribute  = "distribute"
	OperationConsolidate = "consolidate"
	OperationSplit       = "split"
	OperationAccept      = "accept"
	OperationWithdraw    = "withdraw"
)

// Submitter submits commands to the ledger and returns the raw transaction tree.
type Submitter interface {
	SubmitAndWaitForTransactionTree(ctx context.Context, accessToken string, req *ledger.SubmitRequest) ([]byte, error)
}

// ContextFetcher fetches the transfer factory context.
type ContextFetcher interface {
	FetchTransferContext(ctx context.Context, representative *token.Transfer) (*registry.TransferContext, error)
}

// TokenSource yields a bearer token valid for the next call.
type TokenSource interface {
	EnsureFresh(ctx context.Context) (string, error)
}

// ChainRequest describes one sequential chain.
type ChainRequest struct {
	Session    TokenSource
	Sender     string
	Recipients []Recipient

	// Holdings is the initial input pool. It is copied, never mutated.
	Holdings   []string
	Instrument token.InstrumentID

	// ReferenceBase, when set, gives every transfer a deterministic reference.
	ReferenceBase string

	// Context is a cached factory context; nil fetches one before the loop.
	Context *registry.TransferContext

	// ExecuteBefore defaults to DefaultExecuteBefore.
	ExecuteBefore time.Duration

	// Meta is merged into every transfer's meta.
	Meta map[string]string

	// Operation labels metrics and logs; defaults to OperationDistribute.
	Operation string

	// IndexOffset is added to every result index, so chains that share a run
	// keep distinct item indexes.
	IndexOffset int
}

// Runner runs one chain.
type Runner interface {
	Run(ctx context.Context, req ChainRequest, obs Observer) (*Outcome, error)
}

// Executor runs chains against the ledger.
type Executor struct {
	submitter Submitter
	fetcher   ContextFetcher
	now       func() time.Time
	logger    *zap.Logger
}

// NewExecutor creates a chain executor.
func NewExecutor(submitter Submitter, fetcher ContextFetcher, opts ...Option) (*Executor, error) {
	if submitter == nil {
		return nil, errors.New("nil submitter")
	}
	if fetcher == nil {
		return nil, errors.New("nil context fetcher")
	}
	s := applyOptions(opts)
	return &Executor{
		submitter: submitter,
		fetcher:   fetcher,
		now:       s.now,
		logger:    s.logger,
	}, nil
}

// Run executes the chain, producing exactly one result per recipient in input
// order. Individual failures never abort the chain; only an empty recipient
// list or a failed context fetch are returned as errors.
func (e *Executor) Run(ctx context.Context, req ChainRequest, obs Observer) (*Outcome, error) {
	if len(req.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if req.Session == nil {
		return nil, errors.New("nil session")
	}
	if req.ExecuteBefore <= 0 {
		req.ExecuteBefore = DefaultExecuteBefore
	}
	if req.Operation == "" {
		req.Operation = OperationDistribute
	}
	obs = observerOrNop(obs)

	tc := req.Context
	if tc == nil {
		var err error
		tc, err = e.fetcher.FetchTransferContext(ctx, e.representative(req))
		if err != nil {
			return nil, fmt.Errorf("fetch transfer context: %w", err)
		}
	}

	logger := e.logger.With(zap.String("operation", req.Operation), zap.String("sender", req.Sender))
	logger.Info("Starting sequential chained transfers",
		zap.Int("recipients", len(req.Recipients)),
		zap.Int("holdings", len(req.Holdings)),
		zap.String("factory_id", tc.FactoryID),
	)

	pool := append([]string(nil), req.Holdings...)
	agg := NewAggregator(len(req.Recipients))
	emit := func(r Result) {
		agg.Add(r)
		metrics.TransfersTotal.WithLabelValues(req.Operation, metrics.StatusLabel(r.Success)).Inc()
		obs.OnResult(r)
	}

	for i, rcpt := range req.Recipients {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(req.Recipients); j++ {
				r := req.Recipients[j]
				emit(Result{
					Index:     req.IndexOffset + j,
					Receiver:  r.Receiver,
					Amount:    r.Amount,
					Reference: ResolveReference(req.ReferenceBase, req.Sender, r),
					Err:       err,
				})
			}
			break
		}

		var res Result
		res, pool = e.step(ctx, req, tc, req.IndexOffset+i, rcpt, pool)
		if res.Success {
			logger.Info("Transfer committed",
				zap.Int("index", res.Index),
				zap.String("receiver", res.Receiver),
				zap.String("amount", res.Amount),
				zap.String("update_id", res.UpdateID),
				zap.Int("change_holdings", len(pool)),
			)
		} else {
			logger.Warn("Transfer failed",
				zap.Int("index", res.Index),
				zap.String("receiver", res.Receiver),
				zap.String("amount", res.Amount),
				zap.Bool("state_unknown", res.StateUnknown),
				zap.Error(res.Err),
			)
		}
		emit(res)
	}

	metrics.HoldingPoolSize.Set(float64(len(pool)))
	out := agg.Outcome()
	logger.Info("Sequential chained transfers finished",
		zap.Int("succeeded", out.SuccessCount),
		zap.Int("failed", out.FailCount),
	)
	return out, nil
}

// step performs one chain item and returns its result with the next pool.
// The pool is replaced only after a committed and parsed submission.
func (e *Executor) step(
	ctx context.Context,
	req ChainRequest,
	tc *registry.TransferContext,
	index int,
	rcpt Recipient,
	pool []string,
) (Result, []string) {
	res := Result{
		Index:     index,
		Receiver:  rcpt.Receiver,
		Amount:    rcpt.Amount,
		Reference: ResolveReference(req.ReferenceBase, req.Sender, rcpt),
	}

	if len(pool) == 0 {
		res.Err = fmt.Errorf("transfer %d: %w", index, ErrInsufficientHoldings)
		return res, pool
	}

	accessToken, err := req.Session.EnsureFresh(ctx)
	if err != nil {
		var ae *auth.AuthenticationError
		if !errors.As(err, &ae) {
			err = &auth.AuthenticationError{Grant: auth.GrantRefreshToken, Err: err}
		}
		res.Err = err
		return res, pool
	}

	meta := map[string]string{token.MetaReason: ""}
	for k, v := range req.Meta {
		meta[k] = v
	}
	if res.Reference != "" {
		meta[token.MetaReference] = res.Reference
	}

	transfer := token.NewTransfer(token.TransferSpec{
		Sender:        req.Sender,
		Receiver:      rcpt.Receiver,
		Amount:        rcpt.Amount,
		Instrument:    req.Instrument,
		Inputs:        pool,
		Now:           e.now(),
		ExecuteBefore: req.ExecuteBefore,
		Meta:          meta,
	})

	start := time.Now()
	raw, err := e.submitter.SubmitAndWaitForTransactionTree(ctx, accessToken, &ledger.SubmitRequest{
		ActAs:              []string{req.Sender},
		DisclosedContracts: tc.DisclosedContracts,
		Commands: []ledger.Command{
			token.TransferCommand(tc.FactoryID, req.Instrument.Admin, transfer, tc.ChoiceContextData),
		},
	})
	metrics.SubmissionDuration.WithLabelValues(req.Operation).Observe(time.Since(start).Seconds())
	if err != nil {
		var se *ledger.SubmissionError
		if !errors.As(err, &se) {
			err = &ledger.SubmissionError{Err: err}
		}
		res.Err = err
		return res, pool
	}

	extracted, err := Extract(raw)
	if err != nil {
		res.Err = err
		res.RawResponse = raw
		res.StateUnknown = true
		return res, pool
	}

	res.Success = true
	res.ChangeCids = extracted.ChangeCids
	res.InstructionCid = extracted.InstructionCid
	res.UpdateID = extracted.UpdateID
	res.RawResponse = raw
	return res, extracted.ChangeCids
}

// representative is the transfer used to obtain the shared factory context.
func (e *Executor) representative(req ChainRequest) *token.Transfer {
	first := req.Recipients[0]
	meta := map[string]string{token.MetaReason: ""}
	for k, v := range req.Meta {
		meta[k] = v
	}
	return token.NewTransfer(token.TransferSpec{
		Sender:        req.Sender,
		Receiver:      first.Receiver,
		Amount:        first.Amount,
		Instrument:    req.Instrument,
		Inputs:        req.Holdings,
		Now:           e.now(),
		ExecuteBefore: contextExecuteBefore,
		Meta:          meta,
	})
}
