package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/chainsafe/canton-cbtc/internal/metrics"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
)

// mergeSplitExecuteBefore is the deadline of consolidation and split transfers.
const mergeSplitExecuteBefore = 5 * time.Hour

type selfTransferRequest struct {
	party      string
	amount     string
	instrument token.InstrumentID
	inputs     []string
	meta       map[string]string
	operation  string
}

type selfTransferResult struct {
	updateID string
	receiver []string
	change   []string
}

// selfTransfer executes a sender == receiver transfer, which the registry
// settles as a merge-split returning the new holdings directly.
func selfTransfer(
	ctx context.Context,
	submitter Submitter,
	fetcher ContextFetcher,
	now func() time.Time,
	session TokenSource,
	req selfTransferRequest,
) (*selfTransferResult, error) {
	t := token.NewTransfer(token.TransferSpec{
		Sender:        req.party,
		Receiver:      req.party,
		Amount:        req.amount,
		Instrument:    req.instrument,
		Inputs:        req.inputs,
		Now:           now(),
		ExecuteBefore: mergeSplitExecuteBefore,
		Meta:          req.meta,
	})

	tc, err := fetcher.FetchTransferContext(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("fetch transfer context: %w", err)
	}

	accessToken, err := session.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := submitter.SubmitAndWaitForTransactionTree(ctx, accessToken, &ledger.SubmitRequest{
		ActAs:              []string{req.party},
		DisclosedContracts: tc.DisclosedContracts,
		Commands: []ledger.Command{
			token.TransferCommand(tc.FactoryID, req.instrument.Admin, t, tc.ChoiceContextData),
		},
	})
	metrics.SubmissionDuration.WithLabelValues(req.operation).Observe(time.Since(start).Seconds())
	metrics.TransfersTotal.WithLabelValues(req.operation, metrics.StatusLabel(err == nil)).Inc()
	if err != nil {
		return nil, err
	}

	updateID, receiver, change, err := ExtractReceiverHoldings(raw, token.ChoiceTransferFactoryTransfer)
	if err != nil {
		return nil, err
	}
	return &selfTransferResult{updateID: updateID, receiver: receiver, change: change}, nil
}
