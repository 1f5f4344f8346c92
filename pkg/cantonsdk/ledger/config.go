package ledger

import (
	"errors"
	"net/url"
	"time"
)

// Config contains the configuration required to reach a Canton
// participant's JSON Ledger API.
type Config struct {
	// Host is the participant base URL, e.g. https://participant.example.com.
	Host string

	Timeout time.Duration

	// RetryCount applies to reads (ledger end); submissions are never retried.
	RetryCount int
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if cfg.Host == "" {
		return errors.New("ledger host is required")
	}
	u, err := url.Parse(cfg.Host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("ledger host must be an http(s) URL")
	}
	return nil
}
