// Package token implements the CBTC token-standard model: transfer
// payloads, unlocked holdings and pending transfer offers.
package token

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainsafe/canton-cbtc/internal/metrics"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"

	"go.uber.org/zap"
)

// Token defines the CBTC read operations against the active contract set.
type Token interface {
	// Holdings returns the unlocked holdings of the instrument owned by party.
	Holdings(ctx context.Context, accessToken, party string) ([]*Holding, error)

	// PendingInstructions returns the transfer offers on which party plays role.
	PendingInstructions(ctx context.Context, accessToken, party string, role Role) ([]*PendingInstruction, error)

	// Watch streams CBTC activity of party after offset until the stream ends.
	Watch(ctx context.Context, accessToken, party string, offset int64, handle func(*Activity) error) (int64, error)
}

// Client implements CBTC token queries.
type Client struct {
	cfg    *Config
	ledger ledger.Ledger
	logger *zap.Logger
}

// New creates a new token client.
func New(cfg *Config, l ledger.Ledger, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if l == nil {
		return nil, fmt.Errorf("nil ledger client")
	}

	s := applyOptions(opts)
	return &Client{
		cfg:    cfg,
		ledger: l,
		logger: s.logger,
	}, nil
}

// Instrument returns the configured instrument.
func (c *Client) Instrument() InstrumentID { return c.cfg.Instrument }

func (c *Client) Holdings(ctx context.Context, accessToken, party string) ([]*Holding, error) {
	contracts, err := c.ledger.GetActiveContracts(ctx, accessToken, &ledger.ActiveContractsQuery{
		Party:  party,
		Filter: ledger.ByInterface(InterfaceHolding),
	})
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}

	out := make([]*Holding, 0, len(contracts))
	for _, ac := range contracts {
		view, err := decodeHolding(&ac.CreatedEvent)
		if err != nil {
			c.logger.Warn("Skipping undecodable holding", zap.String("contract_id", ac.CreatedEvent.ContractID), zap.Error(err))
			continue
		}
		if view == nil || view.locked() || !c.instrumentMatches(view.InstrumentID) {
			continue
		}
		if view.Owner != "" && view.Owner != party {
			continue
		}
		out = append(out, &Holding{
			ContractID:   ac.CreatedEvent.ContractID,
			Owner:        view.Owner,
			Amount:       view.Amount,
			InstrumentID: view.InstrumentID,
			Disclosed:    ac.Disclosed(),
		})
	}

	metrics.HoldingPoolSize.Set(float64(len(out)))
	c.logger.Debug("Fetched holdings", zap.String("party", party), zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) PendingInstructions(ctx context.Context, accessToken, party string, role Role) ([]*PendingInstruction, error) {
	contracts, err := c.ledger.GetActiveContracts(ctx, accessToken, &ledger.ActiveContractsQuery{
		Party:  party,
		Filter: ledger.ByTemplate(TemplateTransferOffer),
	})
	if err != nil {
		return nil, fmt.Errorf("list transfer offers: %w", err)
	}

	var out []*PendingInstruction
	for _, ac := range contracts {
		offer, err := decodeOffer(&ac.CreatedEvent)
		if err != nil {
			c.logger.Warn("Skipping undecodable transfer offer", zap.String("contract_id", ac.CreatedEvent.ContractID), zap.Error(err))
			continue
		}
		if offer == nil || !c.instrumentMatches(offer.Transfer.InstrumentID) {
			continue
		}
		side := offer.Transfer.Receiver
		if role == RoleSender {
			side = offer.Transfer.Sender
		}
		if side != party {
			continue
		}
		out = append(out, &PendingInstruction{
			ContractID:    ac.CreatedEvent.ContractID,
			Sender:        offer.Transfer.Sender,
			Receiver:      offer.Transfer.Receiver,
			Amount:        offer.Transfer.Amount,
			InstrumentID:  offer.Transfer.InstrumentID,
			RequestedAt:   offer.Transfer.RequestedAt,
			ExecuteBefore: offer.Transfer.ExecuteBefore,
		})
	}

	c.logger.Debug("Fetched pending instructions",
		zap.String("party", party),
		zap.Stringer("role", role),
		zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) instrumentMatches(id InstrumentID) bool {
	return strings.EqualFold(id.ID, c.cfg.Instrument.ID)
}

// ContractIDs returns the contract ids of holdings in order.
func ContractIDs(holdings []*Holding) []string {
	out := make([]string, len(holdings))
	for i, h := range holdings {
		out[i] = h.ContractID
	}
	return out
}

// Balance sums the amounts of holdings.
func Balance(holdings []*Holding) (string, error) {
	amounts := make([]string, len(holdings))
	for i, h := range holdings {
		amounts[i] = h.Amount
	}
	return SumAmounts(amounts...)
}
