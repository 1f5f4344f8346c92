package resultstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chainsafe/canton-cbtc/pkg/transfer"
)

// Skipped is a recipient left out because its reference already has a result.
type Skipped struct {
	Recipient transfer.Recipient
	Reference string
	Result    *Result
}

// FilterCommitted drops recipients whose reference already has a successful
// or state-unknown result. Recipients without a reference are always kept.
// A state-unknown result may be a committed transfer, so it is skipped too
// and must be checked on the ledger by the operator.
func FilterCommitted(
	ctx context.Context,
	store ResultStore,
	base, sender string,
	recipients []transfer.Recipient,
	logger *zap.Logger,
) ([]transfer.Recipient, []Skipped, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pending := make([]transfer.Recipient, 0, len(recipients))
	var skipped []Skipped
	for _, r := range recipients {
		ref := transfer.ResolveReference(base, sender, r)
		if ref == "" {
			pending = append(pending, r)
			continue
		}

		prev, err := store.GetResultByReference(ctx, ref)
		if errors.Is(err, ErrResultNotFound) {
			pending = append(pending, r)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("look up reference %s: %w", ref, err)
		}
		if !prev.Success && !prev.StateUnknown {
			pending = append(pending, r)
			continue
		}

		if prev.StateUnknown {
			logger.Warn("Skipping recipient with unconfirmed earlier transfer",
				zap.String("receiver", r.Receiver),
				zap.String("reference", ref),
				zap.String("run_id", prev.RunID),
			)
		}
		skipped = append(skipped, Skipped{Recipient: r, Reference: ref, Result: prev})
	}
	return pending, skipped, nil
}
