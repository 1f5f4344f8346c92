package ledger

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Option configures ledger client settings using
// the functional options pattern.
type Option func(*settings)

// settings holds internal configurable dependencies
// used during ledger client initialization.
type settings struct {
	logger     *zap.Logger
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// WithLogger sets a custom logger for the ledger client.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithHTTPClient sets a custom HTTP client for JSON API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithDialer overrides the websocket dialer used for active contract streams.
func WithDialer(d *websocket.Dialer) Option {
	return func(s *settings) { s.dialer = d }
}

// applyOptions applies the provided options and returns the resulting settings.
// Defaults are applied before user-defined options.
func applyOptions(opts []Option) settings {
	s := settings{
		logger: zap.NewNop(),
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
