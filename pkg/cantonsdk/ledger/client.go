// Package ledger implements the low-level Canton JSON Ledger API client.
//
// It submits commands over HTTP and reads the active contract set over the
// participant's websocket endpoint. Callers supply the bearer token on every
// call; token lifecycle is owned by the auth session.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/httpclient"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pathSubmitTree      = "/v2/commands/submit-and-wait-for-transaction-tree"
	pathLedgerEnd       = "/v2/state/ledger-end"
	pathActiveContracts = "/v2/state/active-contracts"
	pathUpdates         = "/v2/updates"

	securitySensitiveMarker = "A security-sensitive error has been received"
)

// Ledger defines the public Canton ledger client interface.
type Ledger interface {
	// SubmitAndWaitForTransactionTree submits req and returns the raw
	// transaction tree document of the committed transaction.
	SubmitAndWaitForTransactionTree(ctx context.Context, accessToken string, req *SubmitRequest) ([]byte, error)

	// GetLedgerEnd retrieves the current absolute ledger offset.
	GetLedgerEnd(ctx context.Context, accessToken string) (int64, error)

	// GetActiveContracts retrieves the active contracts matching q.
	GetActiveContracts(ctx context.Context, accessToken string, q *ActiveContractsQuery) ([]*ActiveContract, error)

	// SubscribeUpdates streams the transactions matching q to handle until
	// the participant closes the stream, ctx ends or handle fails.
	SubscribeUpdates(ctx context.Context, accessToken string, q *UpdatesQuery, handle func(*Transaction) error) error
}

// Client is the concrete implementation of the Ledger interface.
type Client struct {
	cfg    *Config
	http   *resty.Client
	dialer *websocket.Dialer
	logger *zap.Logger
}

// New creates a new Ledger client using the provided configuration.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := applyOptions(opts)

	s.logger.Info("Configured Canton JSON Ledger API client", zap.String("host", cfg.Host))

	return &Client{
		cfg: cfg,
		http: httpclient.New(httpclient.Config{
			BaseURL:    cfg.Host,
			Timeout:    cfg.Timeout,
			RetryCount: cfg.RetryCount,
		}, s.httpClient, s.logger),
		dialer: s.dialer,
		logger: s.logger,
	}, nil
}

func (c *Client) SubmitAndWaitForTransactionTree(ctx context.Context, accessToken string, req *SubmitRequest) ([]byte, error) {
	if req == nil || len(req.Commands) == 0 {
		return nil, &SubmissionError{Err: errors.New("no commands to submit")}
	}
	if len(req.ActAs) == 0 {
		return nil, &SubmissionError{Err: errors.New("actAs is required")}
	}
	if req.CommandID == "" {
		req.CommandID = uuid.NewString()
	}
	if req.DisclosedContracts == nil {
		req.DisclosedContracts = []DisclosedContract{}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(req).
		Post(pathSubmitTree)
	if err != nil {
		return nil, &SubmissionError{Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &SubmissionError{StatusCode: resp.StatusCode(), Body: httpclient.Truncate(resp.Body())}
	}

	c.logger.Debug("Submission committed",
		zap.String("command_id", req.CommandID),
		zap.Int("commands", len(req.Commands)),
	)
	return resp.Body(), nil
}

func (c *Client) GetLedgerEnd(ctx context.Context, accessToken string) (int64, error) {
	var out ledgerEndResponse
	resp, err := c.http.R().
		SetContext(httpclient.Retryable(ctx)).
		SetAuthToken(accessToken).
		SetResult(&out).
		Get(pathLedgerEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to get ledger end: %w", err)
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("failed to get ledger end: status %d: %s", resp.StatusCode(), httpclient.Truncate(resp.Body()))
	}
	return out.Offset, nil
}

func (c *Client) GetActiveContracts(ctx context.Context, accessToken string, q *ActiveContractsQuery) ([]*ActiveContract, error) {
	if q == nil || q.Party == "" {
		return nil, fmt.Errorf("at least one party is required")
	}
	if q.Filter.InterfaceFilter == nil && q.Filter.TemplateFilter == nil {
		return nil, fmt.Errorf("an identifier filter is required")
	}

	offset := q.ActiveAtOffset
	if offset == 0 {
		end, err := c.GetLedgerEnd(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		if end == 0 {
			return nil, ErrEmptyLedger
		}
		offset = end
	}

	return c.streamActiveContracts(ctx, accessToken, q.request(offset))
}

// dial opens a JSON API websocket on path, authenticating through the
// jwt.token subprotocol.
func (c *Client) dial(ctx context.Context, accessToken, path string) (*websocket.Conn, error) {
	d := *c.dialer
	d.Subprotocols = []string{"jwt.token." + accessToken, "daml.ws.auth"}

	conn, resp, err := d.DialContext(ctx, websocketURL(c.cfg.Host)+path, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connection error (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connection error: %w", err)
	}
	return conn, nil
}

func (c *Client) streamActiveContracts(ctx context.Context, accessToken string, req activeContractsRequest) ([]*ActiveContract, error) {
	conn, err := c.dial(ctx, accessToken, pathActiveContracts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send active contracts request: %w", err)
	}

	var out []*ActiveContract
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("websocket error: %w", err)
		}
		if mt != websocket.TextMessage {
			c.logger.Debug("Ignoring non-text websocket message", zap.Int("type", mt))
			continue
		}
		if strings.Contains(string(msg), securitySensitiveMarker) {
			return nil, fmt.Errorf("%w: %s", ErrSecuritySensitive, httpclient.Truncate(msg))
		}

		ac, err := decodeContractMessage(msg)
		if err != nil {
			return nil, err
		}
		if ac != nil {
			out = append(out, ac)
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	c.logger.Debug("Fetched active contracts", zap.Int("count", len(out)), zap.Int64("offset", req.ActiveAtOffset))
	return out, nil
}

func websocketURL(host string) string {
	host = strings.TrimSuffix(host, "/")
	switch {
	case strings.HasPrefix(host, "https://"):
		return "wss://" + strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		return "ws://" + strings.TrimPrefix(host, "http://")
	default:
		return host
	}
}
