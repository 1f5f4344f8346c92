package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/registry"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"go.uber.org/zap"
)

// OfferAction selects what to do with pending transfer instructions.
type OfferAction int

const (
	// ActionAccept accepts incoming offers as the receiver.
	ActionAccept OfferAction = iota
	// ActionWithdraw withdraws outgoing offers as the sender.
	ActionWithdraw
)

func (a OfferAction) String() string {
	if a == ActionWithdraw {
		return OperationWithdraw
	}
	return OperationAccept
}

func (a OfferAction) role() token.Role {
	if a == ActionWithdraw {
		return token.RoleSender
	}
	return token.RoleReceiver
}

// InstructionLister lists pending transfer instructions.
type InstructionLister interface {
	PendingInstructions(ctx context.Context, accessToken, party string, role token.Role) ([]*token.PendingInstruction, error)
}

// ChoiceContextFetcher fetches instruction choice contexts.
type ChoiceContextFetcher interface {
	FetchAcceptContext(ctx context.Context, instructionCid string) (*registry.ChoiceContext, error)
	FetchWithdrawContext(ctx context.Context, instructionCid string) (*registry.ChoiceContext, error)
}

// OfferBatcher accepts or withdraws every pending CBTC offer of a party in
// multi-command batches.
type OfferBatcher struct {
	submitter Submitter
	lister    InstructionLister
	contexts  ChoiceContextFetcher
	batchSize int
	logger    *zap.Logger
}

// NewOfferBatcher creates an offer batcher.
func NewOfferBatcher(submitter Submitter, lister InstructionLister, contexts ChoiceContextFetcher, opts ...Option) (*OfferBatcher, error) {
	if submitter == nil || lister == nil || contexts == nil {
		return nil, errors.New("submitter, lister and context fetcher are required")
	}
	s := applyOptions(opts)
	return &OfferBatcher{
		submitter: submitter,
		lister:    lister,
		contexts:  contexts,
		batchSize: s.batchSize,
		logger:    s.logger,
	}, nil
}

// Run processes all pending instructions of party. Listing and choice context
// failures are returned; per-batch failures are reported as failed results.
func (b *OfferBatcher) Run(ctx context.Context, session TokenSource, party string, action OfferAction, obs Observer) (*Outcome, error) {
	if session == nil {
		return nil, errors.New("nil session")
	}
	accessToken, err := session.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := b.lister.PendingInstructions(ctx, accessToken, party, action.role())
	if err != nil {
		return nil, fmt.Errorf("list pending instructions: %w", err)
	}

	logger := b.logger.With(zap.String("operation", action.String()), zap.String("party", party))
	if len(pending) == 0 {
		logger.Info("No pending transfer instructions")
		return &Outcome{}, nil
	}

	items := make([]BatchItem, len(pending))
	for i, p := range pending {
		counterparty := p.Receiver
		if action == ActionAccept {
			counterparty = p.Sender
		}
		items[i] = BatchItem{ContractID: p.ContractID, Receiver: counterparty, Amount: p.Amount}
	}

	// The registry context is the same for every instruction of the
	// instrument, so it is fetched once and reused by every group.
	shared, err := b.fetchContext(ctx, action, pending[0].ContractID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s choice context: %w", action, err)
	}

	logger.Info("Submitting transfer instructions in batches",
		zap.Int("instructions", len(items)),
		zap.Int("batch_size", b.batchSize),
	)

	out := RunBatches(ctx, action.String(), items, b.batchSize, func(ctx context.Context, group []BatchItem) (string, error) {
		return b.submitGroup(ctx, session, party, action, shared, group)
	}, obs)

	logger.Info("Transfer instruction batches finished",
		zap.Int("succeeded", out.SuccessCount),
		zap.Int("failed", out.FailCount),
	)
	return out, nil
}

func (b *OfferBatcher) submitGroup(
	ctx context.Context,
	session TokenSource,
	party string,
	action OfferAction,
	shared *registry.ChoiceContext,
	group []BatchItem,
) (string, error) {
	commands := make([]ledger.Command, 0, len(group))
	for _, it := range group {
		if action == ActionWithdraw {
			commands = append(commands, token.WithdrawCommand(it.ContractID, shared.ChoiceContextData))
		} else {
			commands = append(commands, token.AcceptCommand(it.ContractID, shared.ChoiceContextData))
		}
	}

	accessToken, err := session.EnsureFresh(ctx)
	if err != nil {
		return "", err
	}

	raw, err := b.submitter.SubmitAndWaitForTransactionTree(ctx, accessToken, &ledger.SubmitRequest{
		ActAs:              []string{party},
		DisclosedContracts: shared.DisclosedContracts,
		Commands:           commands,
	})
	if err != nil {
		return "", err
	}

	updateID, err := ExtractUpdateID(raw)
	if err != nil {
		// The batch committed; only the id is unreadable.
		b.logger.Warn("Batch committed without readable update id", zap.Error(err))
		return "", nil
	}
	return updateID, nil
}

func (b *OfferBatcher) fetchContext(ctx context.Context, action OfferAction, cid string) (*registry.ChoiceContext, error) {
	if action == ActionWithdraw {
		return b.contexts.FetchWithdrawContext(ctx, cid)
	}
	return b.contexts.FetchAcceptContext(ctx, cid)
}
