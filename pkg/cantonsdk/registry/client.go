// Package registry implements the Splice token-standard registry client used
// to obtain transfer-factory and transfer-instruction choice contexts.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/chainsafe/canton-cbtc/internal/metrics"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/httpclient"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	kindTransferFactory = "transfer_factory"
	kindAccept          = "accept"
	kindWithdraw        = "withdraw"
)

// Registry defines the context fetch operations.
type Registry interface {
	// FetchTransferContext returns the factory context for transfers shaped like representative.
	FetchTransferContext(ctx context.Context, representative *token.Transfer) (*TransferContext, error)

	// FetchAcceptContext returns the choice context for accepting instructionCid.
	FetchAcceptContext(ctx context.Context, instructionCid string) (*ChoiceContext, error)

	// FetchWithdrawContext returns the choice context for withdrawing instructionCid.
	FetchWithdrawContext(ctx context.Context, instructionCid string) (*ChoiceContext, error)
}

// Client implements Registry over the registry HTTP API.
type Client struct {
	cfg    *Config
	http   *resty.Client
	logger *zap.Logger
}

// New creates a new registry client.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := applyOptions(opts)

	return &Client{
		cfg: cfg,
		http: httpclient.New(httpclient.Config{
			BaseURL:    cfg.URL,
			Timeout:    cfg.Timeout,
			RetryCount: cfg.RetryCount,
		}, s.httpClient, s.logger),
		logger: s.logger,
	}, nil
}

func (c *Client) basePath() string {
	return "/api/token-standard/v0/registrars/" + url.PathEscape(c.cfg.DecentralizedPartyID) +
		"/registry/transfer-instruction/v1"
}

func (c *Client) FetchTransferContext(ctx context.Context, representative *token.Transfer) (*TransferContext, error) {
	if representative == nil {
		return nil, &Error{Kind: kindTransferFactory, Err: errors.New("nil transfer")}
	}

	body := transferFactoryRequest{
		ChoiceArguments: token.TransferFactoryArgs{
			ExpectedAdmin: c.cfg.DecentralizedPartyID,
			Transfer:      representative,
			ExtraArgs:     token.NewExtraArgs(nil),
		},
		ExcludeDebugFields: true,
	}

	var out transferFactoryResponse
	if err := c.post(ctx, kindTransferFactory, c.basePath()+"/transfer-factory", body, &out); err != nil {
		return nil, err
	}
	if out.FactoryID == "" {
		return nil, &Error{Kind: kindTransferFactory, Err: errors.New("response missing factoryId")}
	}

	c.logger.Debug("Fetched transfer factory context",
		zap.String("factory_id", out.FactoryID),
		zap.String("transfer_kind", out.TransferKind),
		zap.Int("disclosed_contracts", len(out.ChoiceContext.DisclosedContracts)),
	)

	return &TransferContext{
		FactoryID:          out.FactoryID,
		TransferKind:       out.TransferKind,
		ChoiceContextData:  contextValues(out.ChoiceContext.ChoiceContextData.Values),
		DisclosedContracts: nonNil(out.ChoiceContext.DisclosedContracts),
	}, nil
}

func (c *Client) FetchAcceptContext(ctx context.Context, instructionCid string) (*ChoiceContext, error) {
	return c.fetchChoiceContext(ctx, kindAccept, instructionCid)
}

func (c *Client) FetchWithdrawContext(ctx context.Context, instructionCid string) (*ChoiceContext, error) {
	return c.fetchChoiceContext(ctx, kindWithdraw, instructionCid)
}

func (c *Client) fetchChoiceContext(ctx context.Context, kind, instructionCid string) (*ChoiceContext, error) {
	if instructionCid == "" {
		return nil, &Error{Kind: kind, Err: errors.New("instruction contract id is required")}
	}

	path := c.basePath() + "/" + url.PathEscape(instructionCid) + "/choice-contexts/" + kind
	var out choiceContextResponse
	if err := c.post(ctx, kind, path, choiceContextRequest{}, &out); err != nil {
		return nil, err
	}

	return &ChoiceContext{
		ChoiceContextData:  contextValues(out.ChoiceContextData.Values),
		DisclosedContracts: nonNil(out.DisclosedContracts),
	}, nil
}

func (c *Client) post(ctx context.Context, kind, path string, body, out any) (err error) {
	defer func() {
		metrics.RegistryRequests.WithLabelValues(kind, metrics.StatusLabel(err == nil)).Inc()
	}()

	resp, err := c.http.R().
		SetContext(httpclient.Retryable(ctx)).
		SetBody(body).
		Post(path)
	if err != nil {
		return &Error{Kind: kind, Err: err}
	}
	if !resp.IsSuccess() {
		return &Error{Kind: kind, StatusCode: resp.StatusCode(), Body: httpclient.Truncate(resp.Body())}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &Error{Kind: kind, Body: httpclient.Truncate(resp.Body()), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func contextValues(v json.RawMessage) json.RawMessage {
	if len(v) == 0 || string(v) == "null" {
		return json.RawMessage(`{}`)
	}
	return v
}

func nonNil(dcs []ledger.DisclosedContract) []ledger.DisclosedContract {
	if dcs == nil {
		return []ledger.DisclosedContract{}
	}
	return dcs
}
