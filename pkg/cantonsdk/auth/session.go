package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	defaultExpiryLeeway = 60 * time.Second

	// If token endpoint doesn't give expires_in, use a conservative fallback.
	fallbackTokenTTL = 5 * time.Minute

	halfDivisor = 2
)

// Session owns one identity's token pair and refresh deadline.
//
// A Session has exactly one owner and is not safe for concurrent use;
// parallel chains each get their own Session.
type Session struct {
	cfg      *Config
	provider Provider
	leeway   time.Duration
	now      func() time.Time
	logger   *zap.Logger

	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// NewSession creates a session that re-authenticates with the grant selected by cfg.
func NewSession(cfg *Config, provider Provider, opts ...Option) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("nil identity provider")
	}

	s := applyOptions(opts)
	leeway := cfg.ExpiryLeeway
	if leeway == 0 {
		leeway = defaultExpiryLeeway
	}

	return &Session{
		cfg:      cfg,
		provider: provider,
		leeway:   leeway,
		now:      s.now,
		logger:   s.logger,
	}, nil
}

// Login performs a full credential exchange with the long-lived secret.
func (s *Session) Login(ctx context.Context) error {
	grant := s.cfg.LoginGrant()

	var (
		tok *Token
		err error
	)
	switch grant {
	case GrantPassword:
		tok, err = s.provider.Password(ctx, s.cfg.Username, s.cfg.Password)
	default:
		tok, err = s.provider.ClientCredentials(ctx, s.cfg.ClientSecret)
	}
	if err != nil {
		return asAuthenticationError(grant, err)
	}

	s.store(tok)
	s.logger.Debug("Logged in", zap.String("grant", string(grant)), zap.Time("refresh_by", s.expiresAt))
	return nil
}

// EnsureFresh returns an access token that is valid for at least the leeway.
//
// No network call is made while the cached token is before its deadline.
// Once the deadline passes the refresh token is exchanged; if the provider
// rejects it, the session falls back to a full login.
func (s *Session) EnsureFresh(ctx context.Context) (string, error) {
	if s.accessToken != "" && s.now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.accessToken == "" || s.refreshToken == "" {
		if err := s.Login(ctx); err != nil {
			return "", err
		}
		return s.accessToken, nil
	}

	tok, err := s.provider.Refresh(ctx, s.refreshToken)
	switch {
	case err == nil:
		s.store(tok)
		s.logger.Debug("Access token refreshed", zap.Time("refresh_by", s.expiresAt))
		return s.accessToken, nil
	case IsRefreshRejected(err):
		s.logger.Info("Refresh rejected, re-authenticating", zap.Error(err))
		if err := s.Login(ctx); err != nil {
			return "", err
		}
		return s.accessToken, nil
	default:
		return "", asAuthenticationError(GrantRefreshToken, err)
	}
}

// ExpiresAt returns the refresh-by deadline of the cached token.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Subject returns the JWT subject ("sub") of the current access token.
func (s *Session) Subject() (string, error) {
	if s.accessToken == "" {
		return "", ErrNotLoggedIn
	}
	return extractJWTSubject(s.accessToken)
}

func (s *Session) store(tok *Token) {
	s.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	s.expiresAt = computeRefreshBy(s.now(), tok.ExpiresIn, s.leeway)
}

func asAuthenticationError(grant Grant, err error) error {
	var ae *AuthenticationError
	if errors.As(err, &ae) {
		return err
	}
	return &AuthenticationError{Grant: grant, Err: err}
}

// extractJWTSubject parses the JWT token and extracts the 'sub' claim
func extractJWTSubject(tokenString string) (string, error) {
	// Parse without validating signature (Canton handles verification)
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("failed to parse JWT: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid JWT claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("JWT missing 'sub' claim")
	}
	return sub, nil
}

// computeRefreshBy returns a "refresh-by" timestamp, leeway-adjusted.
func computeRefreshBy(now time.Time, expiresInSeconds int, leeway time.Duration) time.Time {
	if expiresInSeconds <= 0 {
		return now.Add(fallbackTokenTTL)
	}

	exp := now.Add(time.Duration(expiresInSeconds) * time.Second)
	refreshBy := exp.Add(-leeway)

	// If leeway overshoots, fall back to a reasonable midpoint.
	if refreshBy.Before(now) {
		half := expiresInSeconds / halfDivisor
		return now.Add(time.Duration(half) * time.Second)
	}

	return refreshBy
}
