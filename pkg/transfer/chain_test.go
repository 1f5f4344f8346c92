package transfer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/auth"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/registry"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestExecutor(t *testing.T, sub *MockSubmitter, fetch *MockFetcher) *Executor {
	t.Helper()
	e, err := NewExecutor(sub, fetch, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return e
}

// chainingSubmitter answers call n with change ["c<n>"] and instruction "ti-<n>".
func chainingSubmitter() *MockSubmitter {
	sub := &MockSubmitter{}
	sub.SubmitFunc = func(context.Context, string, *ledger.SubmitRequest) ([]byte, error) {
		n := len(sub.Requests)
		return transferTree(fmt.Sprintf("upd-%d", n), []string{fmt.Sprintf("c%d", n)}, fmt.Sprintf("ti-%d", n)), nil
	}
	return sub
}

func recipients(amounts ...string) []Recipient {
	out := make([]Recipient, len(amounts))
	for i, a := range amounts {
		out[i] = Recipient{Receiver: fmt.Sprintf("r%d::1220", i), Amount: a}
	}
	return out
}

func chainRequest(session TokenSource, holdings []string, rs []Recipient) ChainRequest {
	return ChainRequest{
		Session:    session,
		Sender:     sender,
		Recipients: rs,
		Holdings:   holdings,
		Instrument: instrument,
	}
}

func TestNewExecutor_Validation(t *testing.T) {
	_, err := NewExecutor(nil, &MockFetcher{})
	require.Error(t, err)
	_, err = NewExecutor(&MockSubmitter{}, nil)
	require.Error(t, err)
}

func TestExecutor_Run_ChainsChange(t *testing.T) {
	sub := chainingSubmitter()
	fetch := &MockFetcher{}
	e := newTestExecutor(t, sub, fetch)
	obs := &recordingObserver{}

	holdings := []string{"h1", "h2"}
	out, err := e.Run(context.Background(), chainRequest(&MockSession{}, holdings, recipients("1.0", "2.0", "0.5")), obs)
	require.NoError(t, err)

	require.Len(t, out.Results, 3)
	assert.Equal(t, 3, out.SuccessCount)
	assert.Equal(t, 0, out.FailCount)
	for i, r := range out.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, fmt.Sprintf("r%d::1220", i), r.Receiver)
		assert.True(t, r.Success)
		assert.Equal(t, fmt.Sprintf("upd-%d", i+1), r.UpdateID)
		assert.Equal(t, fmt.Sprintf("ti-%d", i+1), r.InstructionCid)
		assert.NotEmpty(t, r.RawResponse)
	}
	assert.Equal(t, []string{"1.0", "2.0", "0.5"}, []string{out.Results[0].Amount, out.Results[1].Amount, out.Results[2].Amount})

	transfers := sub.Transfers()
	require.Len(t, transfers, 3)
	assert.Equal(t, []string{"h1", "h2"}, transfers[0].InputHoldingCids)
	assert.Equal(t, []string{"c1"}, transfers[1].InputHoldingCids)
	assert.Equal(t, []string{"c2"}, transfers[2].InputHoldingCids)

	// Caller's slice is never mutated.
	assert.Equal(t, []string{"h1", "h2"}, holdings)

	assert.Equal(t, out.Results, obs.results)
	assert.Equal(t, 1, fetch.Calls)
}

func TestExecutor_Run_SubmissionShape(t *testing.T) {
	sub := chainingSubmitter()
	e := newTestExecutor(t, sub, &MockFetcher{})

	_, err := e.Run(context.Background(), chainRequest(&MockSession{}, []string{"h1"}, recipients("1.0")), nil)
	require.NoError(t, err)

	require.Len(t, sub.Requests, 1)
	req := sub.Requests[0]
	assert.Equal(t, []string{sender}, req.ActAs)
	assert.Equal(t, testContext().DisclosedContracts, req.DisclosedContracts)
	assert.Equal(t, "access-token", sub.Tokens[0])

	cmd := req.Commands[0].ExerciseCommand
	assert.Equal(t, token.TemplateTransferFactory, cmd.TemplateID)
	assert.Equal(t, factory, cmd.ContractID)
	assert.Equal(t, token.ChoiceTransferFactoryTransfer, cmd.Choice)

	args := cmd.ChoiceArgument.(*token.TransferFactoryArgs)
	assert.Equal(t, admin, args.ExpectedAdmin)
	assert.JSONEq(t, string(testContext().ChoiceContextData), string(args.ExtraArgs.Context.Values))

	tr := args.Transfer
	assert.Equal(t, sender, tr.Sender)
	assert.Equal(t, "r0::1220", tr.Receiver)
	assert.Equal(t, instrument, tr.InstrumentID)
	assert.Equal(t, "2025-06-01T12:00:00Z", tr.RequestedAt)
	assert.Equal(t, "2025-06-08T12:00:00Z", tr.ExecuteBefore)
	assert.Equal(t, map[string]string{token.MetaReason: ""}, tr.Meta.Values)
}

func TestExecutor_Run_RepresentativeTransfer(t *testing.T) {
	fetch := &MockFetcher{}
	e := newTestExecutor(t, chainingSubmitter(), fetch)

	_, err := e.Run(context.Background(), chainRequest(&MockSession{}, []string{"h1", "h2"}, recipients("3.0", "1.0")), nil)
	require.NoError(t, err)

	require.Len(t, fetch.Representatives, 1)
	rep := fetch.Representatives[0]
	assert.Equal(t, "r0::1220", rep.Receiver)
	assert.Equal(t, "3.0", rep.Amount)
	assert.Equal(t, []string{"h1", "h2"}, rep.InputHoldingCids)
	assert.Equal(t, "2025-07-01T12:00:00Z", rep.ExecuteBefore)
}

func TestExecutor_Run_CachedContextSkipsFetch(t *testing.T) {
	fetch := &MockFetcher{}
	e := newTestExecutor(t, chainingSubmitter(), fetch)

	req := chainRequest(&MockSession{}, []string{"h1"}, recipients("1.0"))
	req.Context = &registry.TransferContext{FactoryID: "cached-factory"}
	_, err := e.Run(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Zero(t, fetch.Calls)
}

func TestExecutor_Run_ZeroHoldings(t *testing.T) {
	sub := chainingSubmitter()
	e := newTestExecutor(t, sub, &MockFetcher{})

	out, err := e.Run(context.Background(), chainRequest(&MockSession{}, nil, recipients("1.0", "2.0")), nil)
	require.NoError(t, err)

	require.Len(t, out.Results, 2)
	assert.Equal(t, 0, out.SuccessCount)
	assert.Equal(t, 2, out.FailCount)
	for i, r := range out.Results {
		assert.Equal(t, i, r.Index)
		assert.False(t, r.Success)
		assert.ErrorIs(t, r.Err, ErrInsufficientHoldings)
	}
	assert.Empty(t, sub.Requests)
}

func TestExecutor_Run_ExhaustedChangeFailsRemaining(t *testing.T) {
	sub := &MockSubmitter{
		SubmitFunc: func(context.Context, string, *ledger.SubmitRequest) ([]byte, error) {
			return transferTree("upd", []string{}, "ti"), nil
		},
	}
	e := newTestExecutor(t, sub, &MockFetcher{})

	out, err := e.Run(context.Background(), chainRequest(&MockSession{}, []string{"h1"}, recipients("1.0", "1.0", "1.0")), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, out.SuccessCount)
	assert.Equal(t, 2, out.FailCount)
	assert.ErrorIs(t, out.Results[1].Err, ErrInsufficientHoldings)
	assert.ErrorIs(t, out.Results[2].Err, ErrInsufficientHoldings)
	assert.Len(t, sub.Requests, 1)
}

func TestExecutor_Run_ParseFailureKeepsPool(t *testing.T) {
	sub := &MockSubmitter{}
	sub.SubmitFunc = func(context.Context, string, *ledger.SubmitRequest) ([]byte, error) {
		switch len(sub.Requests) {
		case 1:
			return transferTree("upd-1", []string{"c1"}, "ti-1"), nil
		case 2:
			return transferTree("upd-2", nil, "ti-2"), nil
		default:
			return transferTree("upd-3", []string{"c3"}, "ti-3"), nil
		}
	}
	e := newTestExecutor(t, sub, &MockFetcher{})

	out, err := e.Run(context.Background(), chainRequest(&MockSession{}, []string{"h1"}, recipients("1", "2", "3")), nil)
	require.NoError(t, err)

	failed := out.Results[1]
	assert.False(t, failed.Success)
	assert.True(t, failed.StateUnknown)
	assert.NotEmpty(t, failed.RawResponse)
	var pe *ResponseParseError
	require.ErrorAs(t, failed.Err, &pe)
	assert.Equal(t, ParseMissingField, pe.Kind)

	transfers := sub.Transfers()
	require.Len(t, transfers, 3)
	assert.Equal(t, []string{"c1"}, transfers[1].InputHoldingCids)
	assert.Equal(t, []string{"c1"}, transfers[2].InputHoldingCids, "pool unchanged after parse failure")
	assert.True(t, out.Results[2].Success)
}

func TestExecutor_Run_SubmissionFailureKeepsPool(t *testing.T) {
	sub := &MockSubmitter{}
	sub.SubmitFunc = func(context.Context, string, *ledger.SubmitRequest) ([]byte, error) {
		if len(sub.Requests) == 1 {
			return nil, &ledger.SubmissionError{StatusCode: 409, Body: "contract consumed"}
		}
		return transferTree("upd", []string{"c2"}, "ti"), nil
	}
	e := newTestExecutor(t, sub, &MockFetcher{})

	out, err := e.Run(context.Background(), chainRequest(&MockSession{}, []string{"h1"}, recipients("1", "2")), nil)
	require.NoError(t, err)

	var se *ledger.SubmissionError
	require.ErrorAs(t, out.Results[0].Err, &se)
	assert.Equal(t, 409, se.StatusCode)
	assert.False(t, out.Results[0].StateUnknown)

	transfers := sub.Transfers()
	assert.Equal(t, []string{"h1"}, transfers[1].InputHoldingCids)
	assert.True(t, out.Results[1].Success)
}

func TestExecutor_Run_TransportErrorIsSubmissionError(t *testing.T) {
	sub := &MockSubmitter{
		SubmitFunc: func(context.Context, string, *ledger.SubmitRequest) ([]byte, error) {
			return nil, errors.New("connection reset")
		},
	}
	e := newTestExecutor(t, sub, &MockFetcher{})

	out, err := e.Run(context.Background(), chainRequest(&MockSession{}, []string{"h1"}, recipients("1")), nil)
	require.NoError(t, err)

	var se *ledger.SubmissionError
	require.ErrorAs(t, out.Results[0].Err, &se)
	assert.Contains(t, se.Error(), "connection reset")
}

func TestExecutor_Run_AuthFailureIsPerItem(t *testing.T) {
	session := &MockSession{}
	session.EnsureFreshFunc = func(context.Context) (string, error) {
		if session.Calls == 1 {
			return "", &auth.AuthenticationError{Grant: auth.GrantPassword, StatusCode: 401}
		}
		return "tok", nil
	}
	sub := chainingSubmitter()
	e := newTestExecutor(t, sub, &MockFetcher{})

	out, err := e.Run(context.Background(), chainRequest(session, []string{"h1"}, recipients("1", "2")), nil)
	require.NoError(t, err)

	var ae *auth.AuthenticationError
	require.ErrorAs(t, out.Results[0].Err, &ae)
	assert.True(t, out.Results[1].Success)
	require.Len(t, sub.Requests, 1)
	assert.Equal(t, []string{"h1"}, sub.Transfers()[0].InputHoldingCids)
}

func TestExecutor_Run_HardErrors(t *testing.T) {
	e := newTestExecutor(t, chainingSubmitter(), &MockFetcher{
		FetchTransferContextFunc: func(context.Context, *token.Transfer) (*registry.TransferContext, error) {
			return nil, &registry.Error{Kind: "transfer_factory", StatusCode: 500}
		},
	})

	_, err := e.Run(context.Background(), chainRequest(&MockSession{}, []string{"h1"}, nil), nil)
	require.ErrorIs(t, err, ErrNoRecipients)

	out, err := e.Run(context.Background(), chainRequest(&MockSession{}, []string{"h1"}, recipients("1")), nil)
	require.Nil(t, out)
	var re *registry.Error
	require.ErrorAs(t, err, &re)
}

func TestExecutor_Run_CancellationFailsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := chainingSubmitter()
	e := newTestExecutor(t, sub, &MockFetcher{})
	obs := ObserverFunc(func(r Result) {
		if r.Index == 0 {
			cancel()
		}
	})

	out, err := e.Run(ctx, chainRequest(&MockSession{}, []string{"h1"}, recipients("1", "2", "3")), obs)
	require.NoError(t, err)

	require.Len(t, out.Results, 3)
	assert.True(t, out.Results[0].Success)
	for _, r := range out.Results[1:] {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Len(t, sub.Requests, 1)
	assert.Equal(t, 2, out.Results[2].Index)
}

func TestExecutor_Run_References(t *testing.T) {
	sub := chainingSubmitter()
	e := newTestExecutor(t, sub, &MockFetcher{})

	rs := recipients("1", "2")
	rs[1].Reference = "custom-ref"
	req := chainRequest(&MockSession{}, []string{"h1"}, rs)
	req.ReferenceBase = "run-42"

	out, err := e.Run(context.Background(), req, nil)
	require.NoError(t, err)

	want := Reference("run-42", sender, "r0::1220")
	assert.Equal(t, want, out.Results[0].Reference)
	assert.Equal(t, "custom-ref", out.Results[1].Reference)

	transfers := sub.Transfers()
	assert.Equal(t, want, transfers[0].Meta.Values[token.MetaReference])
	assert.Equal(t, "custom-ref", transfers[1].Meta.Values[token.MetaReference])
}

func TestExecutor_Run_NoReferenceWithoutBase(t *testing.T) {
	sub := chainingSubmitter()
	e := newTestExecutor(t, sub, &MockFetcher{})

	out, err := e.Run(context.Background(), chainRequest(&MockSession{}, []string{"h1"}, recipients("1")), nil)
	require.NoError(t, err)
	assert.Empty(t, out.Results[0].Reference)
	assert.NotContains(t, sub.Transfers()[0].Meta.Values, token.MetaReference)
}
