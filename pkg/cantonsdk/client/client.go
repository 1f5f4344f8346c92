// Package client wires the Canton SDK components for one participant,
// one identity provider realm and one token registry.
package client

import (
	"errors"
	"fmt"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/auth"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/registry"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"go.uber.org/zap"
)

// Client bundles the SDK components.
type Client struct {
	Ledger   *ledger.Client
	Registry *registry.Client
	Token    *token.Client
	Identity *auth.Client

	authCfg *auth.Config
	logger  *zap.Logger
}

// New creates all SDK components from cfg.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	s := applyOptions(opts)

	l, err := ledger.New(cfg.Ledger,
		ledger.WithLogger(s.logger.Named("ledger")),
		ledger.WithHTTPClient(s.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create ledger client: %w", err)
	}

	reg, err := registry.New(cfg.Registry,
		registry.WithLogger(s.logger.Named("registry")),
		registry.WithHTTPClient(s.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create registry client: %w", err)
	}

	tok, err := token.New(cfg.Token, l, token.WithLogger(s.logger.Named("token")))
	if err != nil {
		return nil, fmt.Errorf("create token client: %w", err)
	}

	idp, err := auth.NewClient(cfg.Auth,
		auth.WithLogger(s.logger.Named("auth")),
		auth.WithHTTPClient(s.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create identity provider client: %w", err)
	}

	return &Client{
		Ledger:   l,
		Registry: reg,
		Token:    tok,
		Identity: idp,
		authCfg:  cfg.Auth,
		logger:   s.logger,
	}, nil
}

// NewSession returns a fresh, not yet logged in session for the configured
// identity. Each concurrent chain needs its own session.
func (c *Client) NewSession() (*auth.Session, error) {
	return auth.NewSession(c.authCfg, c.Identity, auth.WithLogger(c.logger.Named("session")))
}

// Instrument returns the configured token instrument.
func (c *Client) Instrument() token.InstrumentID {
	return c.Token.Instrument()
}
