// Package httpclient builds the resty clients shared by the Canton ledger,
// token registry and identity provider adapters.
package httpclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryWait    = 250 * time.Millisecond
	defaultRetryMaxWait = 5 * time.Second

	// MaxErrBodyBytes bounds how much of an error body is kept in errors and logs.
	MaxErrBodyBytes = 4096
)

type retryableKey struct{}
type startKey struct{}

// Config holds transport settings for one upstream service.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// RetryCount applies only to requests marked with Retryable.
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// New creates a resty client for cfg.BaseURL that logs each exchange on logger.
//
// Retries are opt-in per request: ledger submissions must never be replayed
// by the transport, while reads and context fetches may be.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *resty.Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	var c *resty.Client
	if httpClient != nil {
		c = resty.NewWithClient(httpClient)
	} else {
		c = resty.New()
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL != "" {
		c.SetBaseURL(baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.SetTimeout(timeout)

	c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx := req.Context()
		if ctx.Value(startKey{}) == nil {
			req.SetContext(context.WithValue(ctx, startKey{}, time.Now()))
		}
		logger.Debug("==> HTTP request", zap.String("method", req.Method), zap.String("url", baseURL+req.URL))
		return nil
	})

	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		var elapsed time.Duration
		if start, ok := resp.Request.Context().Value(startKey{}).(time.Time); ok {
			elapsed = time.Since(start)
		}
		fields := []zap.Field{
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("elapsed", elapsed),
		}
		if resp.StatusCode() >= http.StatusMultipleChoices {
			logger.Warn("<== HTTP response", append(fields, zap.String("body", Truncate(resp.Body())))...)
			return nil
		}
		logger.Debug("<== HTTP response", fields...)
		return nil
	})

	if cfg.RetryCount > 0 {
		wait := cfg.RetryWait
		if wait <= 0 {
			wait = defaultRetryWait
		}
		maxWait := cfg.RetryMaxWait
		if maxWait <= 0 {
			maxWait = defaultRetryMaxWait
		}

		c.SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if r == nil || r.Request == nil {
					return false
				}
				if retryable, _ := r.Request.Context().Value(retryableKey{}).(bool); !retryable {
					return false
				}
				if err != nil {
					logger.Info("Retrying request after transport error", zap.String("url", r.Request.URL), zap.Error(err))
					return true
				}
				switch r.StatusCode() {
				case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
					logger.Info("Retrying request", zap.String("url", r.Request.URL), zap.Int("status", r.StatusCode()))
					return true
				}
				return false
			})
	}

	return c
}

// Retryable marks ctx so requests issued with it may be retried by the transport.
func Retryable(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryableKey{}, true)
}

// Truncate returns body as a string, cut to MaxErrBodyBytes.
func Truncate(body []byte) string {
	if len(body) > MaxErrBodyBytes {
		return string(body[:MaxErrBodyBytes])
	}
	return string(body)
}
