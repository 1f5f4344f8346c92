package api

import (
	"context"
	"sync"

	"github.com/chainsafe/canton-cbtc/pkg/transfer"
)

// SharedSession serializes access to a single-owner token source so that
// concurrent HTTP handlers can use it. The wrapped source must not be used
// elsewhere while the server runs.
type SharedSession struct {
	mu  sync.Mutex
	src transfer.TokenSource
}

// NewSharedSession wraps src.
func NewSharedSession(src transfer.TokenSource) *SharedSession {
	return &SharedSession{src: src}
}

// EnsureFresh returns a fresh access token; at most one refresh runs at a time.
func (s *SharedSession) EnsureFresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.EnsureFresh(ctx)
}
