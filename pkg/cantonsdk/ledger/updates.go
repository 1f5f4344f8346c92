package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/httpclient"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// UpdatesQuery selects the transactions visible to Party after an offset.
type UpdatesQuery struct {
	Party   string
	Filters []IdentifierFilter

	// BeginExclusive is the offset to stream after; zero resolves the current ledger end.
	BeginExclusive int64
}

type updatesRequest struct {
	Filter         transactionFilter `json:"filter"`
	Verbose        bool              `json:"verbose"`
	BeginExclusive int64             `json:"beginExclusive"`
}

func (q *UpdatesQuery) request(offset int64) updatesRequest {
	cumulative := make([]cumulativeFilter, len(q.Filters))
	for i, f := range q.Filters {
		cumulative[i] = cumulativeFilter{IdentifierFilter: f}
	}
	return updatesRequest{
		Filter: transactionFilter{FiltersByParty: map[string]filters{
			q.Party: {Cumulative: cumulative},
		}},
		Verbose:        true,
		BeginExclusive: offset,
	}
}

// Transaction is one committed transaction of the update stream.
type Transaction struct {
	UpdateID    string  `json:"updateId"`
	CommandID   string  `json:"commandId"`
	Offset      int64   `json:"offset"`
	EffectiveAt string  `json:"effectiveAt"`
	Events      []Event `json:"events"`
}

// Event is a created or archived event of a transaction. Exactly one field is set.
type Event struct {
	CreatedEvent  *CreatedEvent  `json:"CreatedEvent,omitempty"`
	ArchivedEvent *ArchivedEvent `json:"ArchivedEvent,omitempty"`
}

// ArchivedEvent records the consumption of a contract.
type ArchivedEvent struct {
	ContractID string `json:"contractId"`
	TemplateID string `json:"templateId"`
	Offset     int64  `json:"offset"`
}

type updateMessage struct {
	Update *struct {
		Transaction *struct {
			Value *Transaction `json:"value"`
		} `json:"Transaction"`
		OffsetCheckpoint *struct {
			Value struct {
				Offset int64 `json:"offset"`
			} `json:"value"`
		} `json:"OffsetCheckpoint"`
	} `json:"update"`
}

// decodeUpdateMessage returns the transaction carried by msg, or nil for
// checkpoints and other stream messages.
func decodeUpdateMessage(msg []byte) (*Transaction, error) {
	var m updateMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("decode update message: %w", err)
	}
	if m.Update == nil || m.Update.Transaction == nil {
		return nil, nil
	}
	return m.Update.Transaction.Value, nil
}

func (c *Client) SubscribeUpdates(ctx context.Context, accessToken string, q *UpdatesQuery, handle func(*Transaction) error) error {
	if q == nil || q.Party == "" {
		return fmt.Errorf("at least one party is required")
	}
	if len(q.Filters) == 0 {
		return fmt.Errorf("an identifier filter is required")
	}
	if handle == nil {
		return fmt.Errorf("nil update handler")
	}

	offset := q.BeginExclusive
	if offset == 0 {
		end, err := c.GetLedgerEnd(ctx, accessToken)
		if err != nil {
			return err
		}
		offset = end
	}

	conn, err := c.dial(ctx, accessToken, pathUpdates)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(q.request(offset)); err != nil {
		return fmt.Errorf("failed to send updates request: %w", err)
	}
	c.logger.Info("Subscribed to ledger updates", zap.String("party", q.Party), zap.Int64("begin_exclusive", offset))

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("websocket error: %w", err)
		}
		if mt != websocket.TextMessage {
			c.logger.Debug("Ignoring non-text websocket message", zap.Int("type", mt))
			continue
		}
		if strings.Contains(string(msg), securitySensitiveMarker) {
			return fmt.Errorf("%w: %s", ErrSecuritySensitive, httpclient.Truncate(msg))
		}

		tx, err := decodeUpdateMessage(msg)
		if err != nil {
			return err
		}
		if tx == nil {
			continue
		}
		if err := handle(tx); err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return err
		}
	}
}
