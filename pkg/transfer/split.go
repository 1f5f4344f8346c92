package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"go.uber.org/zap"
)

// SplitResult holds one output holding per requested amount plus the change.
type SplitResult struct {
	OutputCids []string
	ChangeCids []string
}

// Splitter carves exact-amount holdings out of a pool by chaining
// self-transfers; each step spends the previous step's change.
type Splitter struct {
	submitter  Submitter
	fetcher    ContextFetcher
	instrument token.InstrumentID
	now        func() time.Time
	logger     *zap.Logger
}

// NewSplitter creates a splitter for instrument.
func NewSplitter(submitter Submitter, fetcher ContextFetcher, instrument token.InstrumentID, opts ...Option) (*Splitter, error) {
	if submitter == nil || fetcher == nil {
		return nil, errors.New("submitter and context fetcher are required")
	}
	s := applyOptions(opts)
	return &Splitter{
		submitter:  submitter,
		fetcher:    fetcher,
		instrument: instrument,
		now:        s.now,
		logger:     s.logger,
	}, nil
}

// Split creates one holding per amount, in order, from holdings.
func (s *Splitter) Split(ctx context.Context, session TokenSource, party string, holdings []string, amounts []string) (*SplitResult, error) {
	if len(holdings) == 0 {
		return nil, ErrNoHoldings
	}
	if len(amounts) == 0 {
		return nil, errors.New("no amounts to split")
	}
	for _, a := range amounts {
		if err := token.ValidateAmount(a); err != nil {
			return nil, fmt.Errorf("split amount %q: %w", a, err)
		}
	}

	out := &SplitResult{OutputCids: make([]string, 0, len(amounts))}
	pool := append([]string(nil), holdings...)

	for i, amount := range amounts {
		if len(pool) == 0 {
			return out, fmt.Errorf("split %d of %d: %w", i+1, len(amounts), ErrInsufficientFundsForSplit)
		}

		res, err := selfTransfer(ctx, s.submitter, s.fetcher, s.now, session, selfTransferRequest{
			party:      party,
			amount:     amount,
			instrument: s.instrument,
			inputs:     pool,
			meta: map[string]string{
				token.MetaReason: token.TxKindMergeSplit,
				token.MetaTxKind: token.TxKindMergeSplit,
			},
			operation: OperationSplit,
		})
		if err != nil {
			return out, fmt.Errorf("split %d of %d: %w", i+1, len(amounts), err)
		}
		if len(res.receiver) == 0 {
			return out, &ResponseParseError{Kind: ParseMissingField, Field: "output.value.receiverHoldingCids[0]"}
		}

		out.OutputCids = append(out.OutputCids, res.receiver[0])
		pool = res.change
		s.logger.Info("Split holding created",
			zap.Int("index", i),
			zap.String("amount", amount),
			zap.String("holding", res.receiver[0]),
			zap.Int("change_holdings", len(pool)),
		)
	}

	out.ChangeCids = pool
	return out, nil
}
