package registry

import (
	"errors"
	"strings"
	"time"
)

// Config contains the configuration for the token-standard registry client.
type Config struct {
	// URL is the registry base URL, e.g. https://api.utilities.digitalasset-dev.com
	URL string

	// DecentralizedPartyID is the registrar of the instrument.
	DecentralizedPartyID string

	Timeout    time.Duration
	RetryCount int
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if c.URL == "" {
		return errors.New("registry url is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return errors.New("registry url must be http(s)")
	}
	if c.DecentralizedPartyID == "" {
		return errors.New("decentralized party id is required")
	}
	return nil
}
