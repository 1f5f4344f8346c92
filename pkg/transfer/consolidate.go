package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"go.uber.org/zap"
)

const (
	// DefaultConsolidateThreshold is the holding count at which consolidation runs.
	DefaultConsolidateThreshold = 10

	consolidationReason = "UTXO consolidation"
)

// HoldingLister lists the unlocked holdings of a party.
type HoldingLister interface {
	Holdings(ctx context.Context, accessToken, party string) ([]*token.Holding, error)
}

// ConsolidationResult reports a consolidation check.
type ConsolidationResult struct {
	Consolidated bool
	HoldingCids  []string
	Before       int
	After        int
	UpdateID     string
}

// Consolidator merges many holdings into one through a self-transfer.
type Consolidator struct {
	submitter  Submitter
	fetcher    ContextFetcher
	holdings   HoldingLister
	instrument token.InstrumentID
	now        func() time.Time
	logger     *zap.Logger
}

// NewConsolidator creates a consolidator for instrument.
func NewConsolidator(submitter Submitter, fetcher ContextFetcher, holdings HoldingLister, instrument token.InstrumentID, opts ...Option) (*Consolidator, error) {
	if submitter == nil || fetcher == nil || holdings == nil {
		return nil, errors.New("submitter, context fetcher and holding lister are required")
	}
	s := applyOptions(opts)
	return &Consolidator{
		submitter:  submitter,
		fetcher:    fetcher,
		holdings:   holdings,
		instrument: instrument,
		now:        s.now,
		logger:     s.logger,
	}, nil
}

// Consolidate merges holdings into as few as the registry produces, normally
// one. A single holding is returned unchanged.
func (c *Consolidator) Consolidate(ctx context.Context, session TokenSource, party string, holdings []*token.Holding) (*ConsolidationResult, error) {
	switch len(holdings) {
	case 0:
		return nil, ErrNoHoldings
	case 1:
		return &ConsolidationResult{HoldingCids: token.ContractIDs(holdings), Before: 1, After: 1}, nil
	}

	total, err := token.Balance(holdings)
	if err != nil {
		return nil, fmt.Errorf("sum holdings: %w", err)
	}
	if err := token.ValidateAmount(total); err != nil {
		return nil, fmt.Errorf("total to consolidate: %w", err)
	}

	c.logger.Info("Consolidating holdings",
		zap.String("party", party),
		zap.Int("holdings", len(holdings)),
		zap.String("total", total),
	)

	res, err := selfTransfer(ctx, c.submitter, c.fetcher, c.now, session, selfTransferRequest{
		party:      party,
		amount:     total,
		instrument: c.instrument,
		inputs:     token.ContractIDs(holdings),
		meta: map[string]string{
			token.MetaReason: consolidationReason,
			token.MetaTxKind: token.TxKindMergeSplit,
		},
		operation: OperationConsolidate,
	})
	if err != nil {
		return nil, fmt.Errorf("consolidate holdings: %w", err)
	}

	c.logger.Info("Holdings consolidated",
		zap.String("update_id", res.updateID),
		zap.Int("before", len(holdings)),
		zap.Int("after", len(res.receiver)),
	)
	return &ConsolidationResult{
		Consolidated: true,
		HoldingCids:  res.receiver,
		Before:       len(holdings),
		After:        len(res.receiver),
		UpdateID:     res.updateID,
	}, nil
}

// CheckAndConsolidate consolidates the party's holdings when there are at
// least threshold of them. A non-positive threshold uses the default.
func (c *Consolidator) CheckAndConsolidate(ctx context.Context, session TokenSource, party string, threshold int) (*ConsolidationResult, error) {
	if threshold <= 0 {
		threshold = DefaultConsolidateThreshold
	}

	accessToken, err := session.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}
	holdings, err := c.holdings.Holdings(ctx, accessToken, party)
	if err != nil {
		return nil, err
	}

	if len(holdings) < threshold {
		c.logger.Debug("Consolidation not needed",
			zap.Int("holdings", len(holdings)),
			zap.Int("threshold", threshold),
		)
		return &ConsolidationResult{
			HoldingCids: token.ContractIDs(holdings),
			Before:      len(holdings),
			After:       len(holdings),
		}, nil
	}
	return c.Consolidate(ctx, session, party, holdings)
}
