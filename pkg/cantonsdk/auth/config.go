package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config contains the Keycloak realm and credentials used to obtain
// ledger access tokens.
type Config struct {
	Host     string
	Realm    string
	ClientID string

	// ClientSecret selects the client credentials grant for machine identities.
	ClientSecret string //nolint:gosec // standard OAuth2 config field name

	// Username and Password select the password grant.
	Username string
	Password string //nolint:gosec // standard OAuth2 config field name

	// ExpiryLeeway specifies how long before actual token expiry
	// the token should be considered expired. If zero, a default is applied.
	ExpiryLeeway time.Duration

	Timeout time.Duration
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if cfg.Host == "" || cfg.Realm == "" || cfg.ClientID == "" {
		return errors.New("host, realm and client_id are required")
	}
	if cfg.Username == "" && cfg.ClientSecret == "" {
		return errors.New("either username/password or client_secret is required")
	}
	if cfg.Username != "" && cfg.Password == "" {
		return errors.New("password is required with username")
	}
	return nil
}

// TokenURL returns the realm's OpenID Connect token endpoint.
func (cfg *Config) TokenURL() string {
	return fmt.Sprintf("%s/auth/realms/%s/protocol/openid-connect/token", strings.TrimSuffix(cfg.Host, "/"), cfg.Realm)
}

// LoginGrant returns the long-lived grant used for full re-authentication.
func (cfg *Config) LoginGrant() Grant {
	if cfg.Username != "" {
		return GrantPassword
	}
	return GrantClientCredentials
}
