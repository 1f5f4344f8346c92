package token

import (
	"context"
	"fmt"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"

	"go.uber.org/zap"
)

// ActivityKind classifies an event reported by Watch.
type ActivityKind string

const (
	ActivityHoldingCreated ActivityKind = "holding_created"
	ActivityOfferCreated   ActivityKind = "offer_created"
	ActivityArchived       ActivityKind = "archived"
)

// Activity is one CBTC ledger event of the watched party.
type Activity struct {
	Kind       ActivityKind
	UpdateID   string
	Offset     int64
	ContractID string
	TemplateID string

	// Amount is set for created holdings and offers; Sender and Receiver
	// for offers only.
	Amount   string
	Sender   string
	Receiver string
}

// Watch streams the party's unlocked CBTC holdings, the transfer offers it
// sends or receives, and the archival of either, starting after offset. A
// zero offset starts at the current ledger end. It returns the offset of
// the last transaction seen, so a caller can resubscribe from there.
func (c *Client) Watch(ctx context.Context, accessToken, party string, offset int64, handle func(*Activity) error) (int64, error) {
	if offset == 0 {
		end, err := c.ledger.GetLedgerEnd(ctx, accessToken)
		if err != nil {
			return 0, fmt.Errorf("get ledger end: %w", err)
		}
		offset = end
	}

	last := offset
	err := c.ledger.SubscribeUpdates(ctx, accessToken, &ledger.UpdatesQuery{
		Party: party,
		Filters: []ledger.IdentifierFilter{
			ledger.ByInterface(InterfaceHolding),
			ledger.ByTemplate(TemplateTransferOffer),
		},
		BeginExclusive: offset,
	}, func(tx *ledger.Transaction) error {
		for _, ev := range tx.Events {
			a := c.activity(party, &ev)
			if a == nil {
				continue
			}
			a.UpdateID = tx.UpdateID
			a.Offset = tx.Offset
			if err := handle(a); err != nil {
				return err
			}
		}
		last = tx.Offset
		return nil
	})
	return last, err
}

// activity maps ev to the party's CBTC activity, or nil when it is not one.
func (c *Client) activity(party string, ev *ledger.Event) *Activity {
	if ev.ArchivedEvent != nil {
		return &Activity{
			Kind:       ActivityArchived,
			ContractID: ev.ArchivedEvent.ContractID,
			TemplateID: ev.ArchivedEvent.TemplateID,
		}
	}
	ce := ev.CreatedEvent
	if ce == nil {
		return nil
	}

	view, err := decodeHolding(ce)
	if err != nil {
		c.logger.Warn("Skipping undecodable holding", zap.String("contract_id", ce.ContractID), zap.Error(err))
		return nil
	}
	if view != nil {
		if view.locked() || !c.instrumentMatches(view.InstrumentID) || (view.Owner != "" && view.Owner != party) {
			return nil
		}
		return &Activity{
			Kind:       ActivityHoldingCreated,
			ContractID: ce.ContractID,
			TemplateID: ce.TemplateID,
			Amount:     view.Amount,
		}
	}

	offer, err := decodeOffer(ce)
	if err != nil {
		c.logger.Warn("Skipping undecodable transfer offer", zap.String("contract_id", ce.ContractID), zap.Error(err))
		return nil
	}
	if offer == nil || !c.instrumentMatches(offer.Transfer.InstrumentID) {
		return nil
	}
	if offer.Transfer.Sender != party && offer.Transfer.Receiver != party {
		return nil
	}
	return &Activity{
		Kind:       ActivityOfferCreated,
		ContractID: ce.ContractID,
		TemplateID: ce.TemplateID,
		Amount:     offer.Transfer.Amount,
		Sender:     offer.Transfer.Sender,
		Receiver:   offer.Transfer.Receiver,
	}
}
