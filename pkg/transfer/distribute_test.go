package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributor_Distribute(t *testing.T) {
	runner := &MockRunner{
		RunFunc: func(_ context.Context, req ChainRequest, obs Observer) (*Outcome, error) {
			agg := NewAggregator(len(req.Recipients))
			for i, r := range req.Recipients {
				res := Result{Index: i, Receiver: r.Receiver, Amount: r.Amount, Success: true}
				agg.Add(res)
				obs.OnResult(res)
			}
			return agg.Outcome(), nil
		},
	}
	lister := &MockHoldingLister{HoldingsFunc: func(context.Context, string, string) ([]*token.Holding, error) {
		return holdings("1", "2"), nil
	}}
	recorder := &MockRunRecorder{}
	extra := &recordingObserver{}

	d, err := NewDistributor(runner, lister, recorder, instrument)
	require.NoError(t, err)

	out, err := d.Distribute(context.Background(), DistributeRequest{
		Session:       &MockSession{},
		Sender:        sender,
		Recipients:    recipients("0.1", "0.2"),
		ReferenceBase: "payroll-7",
	}, extra)
	require.NoError(t, err)
	assert.Equal(t, 2, out.SuccessCount)

	require.Len(t, runner.Requests, 1)
	req := runner.Requests[0]
	assert.Equal(t, []string{"h0", "h1"}, req.Holdings)
	assert.Equal(t, instrument, req.Instrument)
	assert.Equal(t, "payroll-7", req.ReferenceBase)
	assert.Equal(t, OperationDistribute, req.Operation)

	require.Len(t, recorder.Runs, 1)
	run := recorder.Runs[0]
	assert.Equal(t, RunInfo{Operation: OperationDistribute, Party: sender, ReferenceBase: "payroll-7", Items: 2}, run.Info)
	assert.Len(t, run.Results, 2)
	assert.True(t, run.Finished)
	assert.Same(t, out, run.Outcome)
	assert.NoError(t, run.RunErr)
	assert.Len(t, extra.results, 2)
}

func TestDistributor_Distribute_Errors(t *testing.T) {
	d, err := NewDistributor(&MockRunner{}, &MockHoldingLister{}, nil, instrument)
	require.NoError(t, err)

	_, err = d.Distribute(context.Background(), DistributeRequest{Session: &MockSession{}, Sender: sender}, nil)
	require.ErrorIs(t, err, ErrNoRecipients)

	boom := errors.New("acs down")
	d, err = NewDistributor(&MockRunner{}, &MockHoldingLister{HoldingsFunc: func(context.Context, string, string) ([]*token.Holding, error) {
		return nil, boom
	}}, nil, instrument)
	require.NoError(t, err)

	_, err = d.Distribute(context.Background(), DistributeRequest{Session: &MockSession{}, Sender: sender, Recipients: recipients("1")}, nil)
	require.ErrorIs(t, err, boom)

	_, err = NewDistributor(nil, &MockHoldingLister{}, nil, instrument)
	require.Error(t, err)
}

func TestDistributor_RecordsHardError(t *testing.T) {
	boom := errors.New("registry down")
	recorder := &MockRunRecorder{}
	d, err := NewDistributor(&MockRunner{RunFunc: func(context.Context, ChainRequest, Observer) (*Outcome, error) {
		return nil, boom
	}}, &MockHoldingLister{}, recorder, instrument)
	require.NoError(t, err)

	_, err = d.Distribute(context.Background(), DistributeRequest{Session: &MockSession{}, Sender: sender, Recipients: recipients("1")}, nil)
	require.ErrorIs(t, err, boom)
	require.Len(t, recorder.Runs, 1)
	assert.ErrorIs(t, recorder.Runs[0].RunErr, boom)
}

func TestPartition(t *testing.T) {
	req := ChainRequest{
		Recipients: recipients("1", "2", "3", "4", "5"),
		Holdings:   []string{"h0", "h1", "h2", "h3", "h4", "h5", "h6"},
	}

	chains := partition(req, 2)
	require.Len(t, chains, 2)
	assert.Len(t, chains[0].Recipients, 3)
	assert.Len(t, chains[1].Recipients, 2)
	assert.Equal(t, []string{"h0", "h2", "h4", "h6"}, chains[0].Holdings)
	assert.Equal(t, []string{"h1", "h3", "h5"}, chains[1].Holdings)
	assert.Equal(t, 0, chains[0].IndexOffset)
	assert.Equal(t, 3, chains[1].IndexOffset)
	assert.Equal(t, "r3::1220", chains[1].Recipients[0].Receiver)

	// Never more chains than holdings or recipients.
	assert.Len(t, partition(ChainRequest{Recipients: recipients("1", "2", "3"), Holdings: []string{"h0", "h1"}}, 8), 2)
	assert.Len(t, partition(ChainRequest{Recipients: recipients("1"), Holdings: []string{"h0", "h1"}}, 8), 1)
	assert.Len(t, partition(req, 0), 1)
	assert.Len(t, partition(ChainRequest{Recipients: recipients("1", "2")}, 4), 1)
}

func TestDistributor_Distribute_Parallel(t *testing.T) {
	runner := &MockRunner{
		RunFunc: func(_ context.Context, req ChainRequest, obs Observer) (*Outcome, error) {
			agg := NewAggregator(len(req.Recipients))
			for i, r := range req.Recipients {
				res := Result{Index: req.IndexOffset + i, Receiver: r.Receiver, Amount: r.Amount, Success: true}
				agg.Add(res)
				obs.OnResult(res)
			}
			return agg.Outcome(), nil
		},
	}
	lister := &MockHoldingLister{HoldingsFunc: func(context.Context, string, string) ([]*token.Holding, error) {
		return holdings("1", "1", "1", "1"), nil
	}}
	recorder := &MockRunRecorder{}
	first := &MockSession{}
	var created []*MockSession

	d, err := NewDistributor(runner, lister, recorder, instrument)
	require.NoError(t, err)

	out, err := d.Distribute(context.Background(), DistributeRequest{
		Session:    first,
		Sender:     sender,
		Recipients: recipients("0.1", "0.2", "0.3", "0.4", "0.5"),
		Workers:    3,
		NewSession: func() (TokenSource, error) {
			s := &MockSession{}
			created = append(created, s)
			return s, nil
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, out.SuccessCount)
	require.Len(t, out.Results, 5)
	for i, r := range out.Results {
		assert.Equal(t, i, r.Index)
	}

	require.Len(t, runner.Requests, 3)
	assert.Len(t, created, 2)

	sessions := map[TokenSource]bool{}
	spent := map[string]bool{}
	for _, req := range runner.Requests {
		sessions[req.Session] = true
		for _, cid := range req.Holdings {
			assert.False(t, spent[cid], "holding %s spent twice", cid)
			spent[cid] = true
		}
	}
	assert.Len(t, sessions, 3)
	assert.Len(t, spent, 4)

	require.Len(t, recorder.Runs, 1)
	assert.Len(t, recorder.Runs[0].Results, 5)
}

func TestDistributor_Distribute_ParallelRequiresSessionFactory(t *testing.T) {
	lister := &MockHoldingLister{HoldingsFunc: func(context.Context, string, string) ([]*token.Holding, error) {
		return holdings("1", "1"), nil
	}}
	d, err := NewDistributor(&MockRunner{}, lister, nil, instrument)
	require.NoError(t, err)

	_, err = d.Distribute(context.Background(), DistributeRequest{
		Session:    &MockSession{},
		Sender:     sender,
		Recipients: recipients("1", "1"),
		Workers:    2,
	}, nil)
	require.Error(t, err)
}

func TestMergeOutcomes(t *testing.T) {
	boom := errors.New("context fetch failed")
	out, err := mergeOutcomes([]ChainOutcome{
		{Outcome: &Outcome{Results: []Result{{Index: 0, Success: true}}, SuccessCount: 1}},
		{Err: boom},
		{Outcome: &Outcome{Results: []Result{{Index: 2}}, FailCount: 1}},
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "chain 1")
	assert.Equal(t, 1, out.SuccessCount)
	assert.Equal(t, 1, out.FailCount)
	assert.Len(t, out.Results, 2)
}
