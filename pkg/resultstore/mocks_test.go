package resultstore

import (
	"context"
	"sync"
)

// MockStore is an in-memory Store.
type MockStore struct {
	CreateRunFunc    func(ctx context.Context, run *Run) error
	InsertResultFunc func(ctx context.Context, result *Result) error

	mu       sync.Mutex
	Runs     map[string]*Run
	Results  []*Result
	Finished []string
}

func (m *MockStore) CreateRun(ctx context.Context, run *Run) error {
	if m.CreateRunFunc != nil {
		if err := m.CreateRunFunc(ctx, run); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Runs == nil {
		m.Runs = map[string]*Run{}
	}
	cp := *run
	cp.Status = StatusRunning
	m.Runs[run.ID] = &cp
	return nil
}

func (m *MockStore) FinishRun(_ context.Context, id string, status Status, successCount, failCount int, runErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[id]
	if !ok {
		return ErrRunNotFound
	}
	run.Status = status
	run.SuccessCount = successCount
	run.FailCount = failCount
	run.Error = runErr
	m.Finished = append(m.Finished, id)
	return nil
}

func (m *MockStore) GetRun(_ context.Context, id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

func (m *MockStore) ListRuns(context.Context, int) ([]*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Run, 0, len(m.Runs))
	for _, r := range m.Runs {
		out = append(out, r)
	}
	return out, nil
}

func (m *MockStore) InsertResult(ctx context.Context, result *Result) error {
	if m.InsertResultFunc != nil {
		if err := m.InsertResultFunc(ctx, result); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results = append(m.Results, result)
	return nil
}

func (m *MockStore) ListResults(_ context.Context, runID string) ([]*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Result
	for _, r := range m.Results {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockStore) GetResultByReference(_ context.Context, reference string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Results {
		if r.Reference == reference {
			return r, nil
		}
	}
	return nil, ErrResultNotFound
}
