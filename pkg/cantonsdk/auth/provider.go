// Package auth implements the Keycloak grant flows and the single-owner
// session that keeps a ledger access token fresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/chainsafe/canton-cbtc/internal/metrics"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/httpclient"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Grant names an OAuth2 grant type.
type Grant string

const (
	GrantPassword          Grant = "password"
	GrantRefreshToken      Grant = "refresh_token"
	GrantClientCredentials Grant = "client_credentials"
)

const errInvalidGrant = "invalid_grant"

// Token is the result of a successful exchange.
type Token struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Provider performs the identity provider grant exchanges.
type Provider interface {
	// Password exchanges a username and password for a token pair.
	Password(ctx context.Context, username, password string) (*Token, error)

	// Refresh exchanges a refresh token. A token the provider no longer
	// accepts yields a *RefreshRejectedError.
	Refresh(ctx context.Context, refreshToken string) (*Token, error)

	// ClientCredentials exchanges the client secret for an access token.
	ClientCredentials(ctx context.Context, clientSecret string) (*Token, error)
}

// Client implements Provider against a Keycloak realm.
type Client struct {
	cfg    *Config
	http   *resty.Client
	logger *zap.Logger
}

type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// NewClient creates a new Keycloak client.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := applyOptions(opts)
	return &Client{
		cfg:    cfg,
		http:   httpclient.New(httpclient.Config{Timeout: cfg.Timeout, RetryCount: 2}, s.httpClient, s.logger),
		logger: s.logger,
	}, nil
}

func (c *Client) Password(ctx context.Context, username, password string) (*Token, error) {
	return c.exchange(ctx, GrantPassword, map[string]string{
		"username": username,
		"password": password,
	})
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	return c.exchange(ctx, GrantRefreshToken, map[string]string{
		"refresh_token": refreshToken,
	})
}

func (c *Client) ClientCredentials(ctx context.Context, clientSecret string) (*Token, error) {
	return c.exchange(ctx, GrantClientCredentials, map[string]string{
		"client_secret": clientSecret,
	})
}

func (c *Client) exchange(ctx context.Context, grant Grant, form map[string]string) (*Token, error) {
	form["grant_type"] = string(grant)
	form["client_id"] = c.cfg.ClientID

	var (
		tok    Token
		oerr   oauthError
		status = metrics.StatusFailed
	)
	defer func() { metrics.TokenExchanges.WithLabelValues(string(grant), status).Inc() }()

	resp, err := c.http.R().
		SetContext(httpclient.Retryable(ctx)).
		SetFormData(form).
		SetResult(&tok).
		SetError(&oerr).
		Post(c.cfg.TokenURL())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &AuthenticationError{Grant: grant, Err: err}
		}
		return nil, &AuthenticationError{Grant: grant, Err: fmt.Errorf("call token endpoint: %w", err)}
	}

	if !resp.IsSuccess() {
		if grant == GrantRefreshToken && resp.StatusCode() == http.StatusBadRequest && oerr.Error == errInvalidGrant {
			c.logger.Info("Refresh token rejected by identity provider", zap.String("description", oerr.Description))
			return nil, &RefreshRejectedError{Code: oerr.Error, Description: oerr.Description}
		}
		return nil, &AuthenticationError{
			Grant:      grant,
			StatusCode: resp.StatusCode(),
			Body:       httpclient.Truncate(resp.Body()),
		}
	}

	if tok.AccessToken == "" {
		return nil, &AuthenticationError{Grant: grant, Err: errors.New("token response missing access_token")}
	}

	status = metrics.StatusSuccess
	return &tok, nil
}
