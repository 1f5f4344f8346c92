package token

import (
	"context"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
)

// MockLedger is a hand-written ledger.Ledger for token tests.
type MockLedger struct {
	SubmitFunc             func(ctx context.Context, accessToken string, req *ledger.SubmitRequest) ([]byte, error)
	GetLedgerEndFunc       func(ctx context.Context, accessToken string) (int64, error)
	GetActiveContractsFunc func(ctx context.Context, accessToken string, q *ledger.ActiveContractsQuery) ([]*ledger.ActiveContract, error)
	SubscribeUpdatesFunc   func(ctx context.Context, accessToken string, q *ledger.UpdatesQuery, handle func(*ledger.Transaction) error) error

	Queries       []*ledger.ActiveContractsQuery
	UpdateQueries []*ledger.UpdatesQuery
}

func (m *MockLedger) SubmitAndWaitForTransactionTree(ctx context.Context, accessToken string, req *ledger.SubmitRequest) ([]byte, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, accessToken, req)
	}
	return []byte(`{}`), nil
}

func (m *MockLedger) GetLedgerEnd(ctx context.Context, accessToken string) (int64, error) {
	if m.GetLedgerEndFunc != nil {
		return m.GetLedgerEndFunc(ctx, accessToken)
	}
	return 1, nil
}

func (m *MockLedger) GetActiveContracts(ctx context.Context, accessToken string, q *ledger.ActiveContractsQuery) ([]*ledger.ActiveContract, error) {
	m.Queries = append(m.Queries, q)
	if m.GetActiveContractsFunc != nil {
		return m.GetActiveContractsFunc(ctx, accessToken, q)
	}
	return nil, nil
}

func (m *MockLedger) SubscribeUpdates(ctx context.Context, accessToken string, q *ledger.UpdatesQuery, handle func(*ledger.Transaction) error) error {
	m.UpdateQueries = append(m.UpdateQueries, q)
	if m.SubscribeUpdatesFunc != nil {
		return m.SubscribeUpdatesFunc(ctx, accessToken, q, handle)
	}
	return nil
}
