package transfer

import (
	"time"

	"go.uber.org/zap"
)

type settings struct {
	logger    *zap.Logger
	now       func() time.Time
	batchSize int
}

// Option configures transfer components.
type Option func(*settings)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithClock overrides the time source used for requestedAt and deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithBatchSize sets the number of commands per offer batch.
func WithBatchSize(n int) Option {
	return func(s *settings) { s.batchSize = n }
}

func applyOptions(opts []Option) settings {
	s := settings{
		logger:    zap.NewNop(),
		now:       time.Now,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	return s
}
