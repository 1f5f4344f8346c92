package transfer

import (
	"context"
	"fmt"

	"github.com/chainsafe/canton-cbtc/internal/metrics"
)

// DefaultBatchSize is the number of commands submitted per batch.
const DefaultBatchSize = 5

// BatchItem is one command of a batched submission.
type BatchItem struct {
	// ContractID identifies the item, e.g. the transfer instruction exercised.
	ContractID string
	Receiver   string
	Amount     string
}

// BatchSubmitFunc submits one group as a single transaction and returns its
// update id. A group either commits entirely or not at all. Context shared by
// every group, such as a registry choice context, is captured by the func.
type BatchSubmitFunc func(ctx context.Context, group []BatchItem) (updateID string, err error)

// RunBatches submits items in ceil(n/size) sequential groups. Every item of a
// failed group fails with the group error; later groups still run.
func RunBatches(ctx context.Context, operation string, items []BatchItem, batchSize int, submit BatchSubmitFunc, obs Observer) *Outcome {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	obs = observerOrNop(obs)
	agg := NewAggregator(len(items))

	emit := func(r Result) {
		agg.Add(r)
		metrics.TransfersTotal.WithLabelValues(operation, metrics.StatusLabel(r.Success)).Inc()
		obs.OnResult(r)
	}

	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		group := items[start:end]

		var (
			updateID string
			err      = ctx.Err()
		)
		if err == nil {
			updateID, err = submit(ctx, group)
			metrics.BatchesTotal.WithLabelValues(operation, metrics.StatusLabel(err == nil)).Inc()
			if err != nil {
				err = fmt.Errorf("batch %d: %w", start/batchSize+1, err)
			}
		}

		for i, it := range group {
			emit(Result{
				Index:          start + i,
				Receiver:       it.Receiver,
				Amount:         it.Amount,
				InstructionCid: it.ContractID,
				Success:        err == nil,
				UpdateID:       updateID,
				Err:            err,
			})
		}
	}

	return agg.Outcome()
}
