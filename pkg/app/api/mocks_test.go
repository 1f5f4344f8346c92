package api

import (
	"context"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
	"github.com/chainsafe/canton-cbtc/pkg/resultstore"
)

// MockStore is a mock implementation of resultstore.Store.
type MockStore struct {
	CreateRunFunc            func(ctx context.Context, run *resultstore.Run) error
	FinishRunFunc            func(ctx context.Context, id string, status resultstore.Status, successCount, failCount int, runErr string) error
	GetRunFunc               func(ctx context.Context, id string) (*resultstore.Run, error)
	ListRunsFunc             func(ctx context.Context, limit int) ([]*resultstore.Run, error)
	InsertResultFunc         func(ctx context.Context, result *resultstore.Result) error
	ListResultsFunc          func(ctx context.Context, runID string) ([]*resultstore.Result, error)
	GetResultByReferenceFunc func(ctx context.Context, reference string) (*resultstore.Result, error)
}

func (m *MockStore) CreateRun(ctx context.Context, run *resultstore.Run) error {
	if m.CreateRunFunc != nil {
		return m.CreateRunFunc(ctx, run)
	}
	return nil
}

func (m *MockStore) FinishRun(ctx context.Context, id string, status resultstore.Status, successCount, failCount int, runErr string) error {
	if m.FinishRunFunc != nil {
		return m.FinishRunFunc(ctx, id, status, successCount, failCount, runErr)
	}
	return nil
}

func (m *MockStore) GetRun(ctx context.Context, id string) (*resultstore.Run, error) {
	if m.GetRunFunc != nil {
		return m.GetRunFunc(ctx, id)
	}
	return nil, resultstore.ErrRunNotFound
}

func (m *MockStore) ListRuns(ctx context.Context, limit int) ([]*resultstore.Run, error) {
	if m.ListRunsFunc != nil {
		return m.ListRunsFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockStore) InsertResult(ctx context.Context, result *resultstore.Result) error {
	if m.InsertResultFunc != nil {
		return m.InsertResultFunc(ctx, result)
	}
	return nil
}

func (m *MockStore) ListResults(ctx context.Context, runID string) ([]*resultstore.Result, error) {
	if m.ListResultsFunc != nil {
		return m.ListResultsFunc(ctx, runID)
	}
	return nil, nil
}

func (m *MockStore) GetResultByReference(ctx context.Context, reference string) (*resultstore.Result, error) {
	if m.GetResultByReferenceFunc != nil {
		return m.GetResultByReferenceFunc(ctx, reference)
	}
	return nil, resultstore.ErrResultNotFound
}

// MockHoldingLister returns fixed holdings.
type MockHoldingLister struct {
	HoldingsFunc func(ctx context.Context, accessToken, party string) ([]*token.Holding, error)
}

func (m *MockHoldingLister) Holdings(ctx context.Context, accessToken, party string) ([]*token.Holding, error) {
	if m.HoldingsFunc != nil {
		return m.HoldingsFunc(ctx, accessToken, party)
	}
	return nil, nil
}

// MockSession is a transfer.TokenSource.
type MockSession struct {
	EnsureFreshFunc func(ctx context.Context) (string, error)
}

func (m *MockSession) EnsureFresh(ctx context.Context) (string, error) {
	if m.EnsureFreshFunc != nil {
		return m.EnsureFreshFunc(ctx)
	}
	return "access-token", nil
}
