package transfer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/registry"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
)

// MockSubmitter records every submission.
type MockSubmitter struct {
	SubmitFunc func(ctx context.Context, accessToken string, req *ledger.SubmitRequest) ([]byte, error)

	mu       sync.Mutex
	Requests []*ledger.SubmitRequest
	Tokens   []string
}

func (m *MockSubmitter) SubmitAndWaitForTransactionTree(ctx context.Context, accessToken string, req *ledger.SubmitRequest) ([]byte, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.Tokens = append(m.Tokens, accessToken)
	m.mu.Unlock()

	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, accessToken, req)
	}
	return transferTree("upd", []string{"change"}, "ti"), nil
}

// Transfers returns the transfer of each recorded TransferFactory_Transfer submission.
func (m *MockSubmitter) Transfers() []*token.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*token.Transfer
	for _, r := range m.Requests {
		for _, c := range r.Commands {
			if args, ok := c.ExerciseCommand.ChoiceArgument.(*token.TransferFactoryArgs); ok {
				out = append(out, args.Transfer)
			}
		}
	}
	return out
}

// MockFetcher is a ContextFetcher returning a fixed context.
type MockFetcher struct {
	FetchTransferContextFunc func(ctx context.Context, representative *token.Transfer) (*registry.TransferContext, error)

	Calls           int
	Representatives []*token.Transfer
}

func (m *MockFetcher) FetchTransferContext(ctx context.Context, representative *token.Transfer) (*registry.TransferContext, error) {
	m.Calls++
	m.Representatives = append(m.Representatives, representative)
	if m.FetchTransferContextFunc != nil {
		return m.FetchTransferContextFunc(ctx, representative)
	}
	return testContext(), nil
}

// MockSession is a TokenSource.
type MockSession struct {
	EnsureFreshFunc func(ctx context.Context) (string, error)

	Calls int
}

func (m *MockSession) EnsureFresh(ctx context.Context) (string, error) {
	m.Calls++
	if m.EnsureFreshFunc != nil {
		return m.EnsureFreshFunc(ctx)
	}
	return "access-token", nil
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

// MockInstructionLister returns fixed pending instructions.
type MockInstructionLister struct {
	PendingInstructionsFunc func(ctx context.Context, accessToken, party string, role token.Role) ([]*token.PendingInstruction, error)

	Roles []token.Role
}

func (m *MockInstructionLister) PendingInstructions(ctx context.Context, accessToken, party string, role token.Role) ([]*token.PendingInstruction, error) {
	m.Roles = append(m.Roles, role)
	if m.PendingInstructionsFunc != nil {
		return m.PendingInstructionsFunc(ctx, accessToken, party, role)
	}
	return nil, nil
}

// MockChoiceContextFetcher returns a shared disclosed contract plus one keyed by the instruction.
type MockChoiceContextFetcher struct {
	FetchFunc func(ctx context.Context, kind, instructionCid string) (*registry.ChoiceContext, error)

	Kinds []string
	Cids  []string
}

func (m *MockChoiceContextFetcher) FetchAcceptContext(ctx context.Context, instructionCid string) (*registry.ChoiceContext, error) {
	return m.fetch(ctx, "accept", instructionCid)
}

func (m *MockChoiceContextFetcher) FetchWithdrawContext(ctx context.Context, instructionCid string) (*registry.ChoiceContext, error) {
	return m.fetch(ctx, "withdraw", instructionCid)
}

func (m *MockChoiceContextFetcher) fetch(ctx context.Context, kind, cid string) (*registry.ChoiceContext, error) {
	m.Kinds = append(m.Kinds, kind)
	m.Cids = append(m.Cids, cid)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, kind, cid)
	}
	return &registry.ChoiceContext{
		ChoiceContextData: json.RawMessage(`{}`),
		DisclosedContracts: []ledger.DisclosedContract{
			{ContractID: "shared-config"},
			{ContractID: "lock-" + cid},
		},
	}, nil
}

// MockRunner is a Runner for parallel and distributor tests.
type MockRunner struct {
	RunFunc func(ctx context.Context, req ChainRequest, obs Observer) (*Outcome, error)

	mu       sync.Mutex
	Requests []ChainRequest
}

func (m *MockRunner) Run(ctx context.Context, req ChainRequest, obs Observer) (*Outcome, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.RunFunc != nil {
		return m.RunFunc(ctx, req, obs)
	}
	return &Outcome{}, nil
}

// MockRunRecorder captures recorded runs.
type MockRunRecorder struct {
	StartRunFunc func(ctx context.Context, run RunInfo) (RunObserver, error)

	Runs []*MockRunObserver
}

func (m *MockRunRecorder) StartRun(ctx context.Context, run RunInfo) (RunObserver, error) {
	if m.StartRunFunc != nil {
		return m.StartRunFunc(ctx, run)
	}
	ro := &MockRunObserver{Info: run}
	m.Runs = append(m.Runs, ro)
	return ro, nil
}

// MockRunObserver records results and the finish call.
type MockRunObserver struct {
	mu       sync.Mutex
	Info     RunInfo
	Results  []Result
	Finished bool
	Outcome  *Outcome
	RunErr   error
}

func (m *MockRunObserver) OnResult(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results = append(m.Results, r)
}

func (m *MockRunObserver) Finish(_ context.Context, out *Outcome, runErr error) error {
	m.Finished = true
	m.Outcome = out
	m.RunErr = runErr
	return nil
}

// recordingObserver collects results in notification order.
type recordingObserver struct {
	mu      sync.Mutex
	results []Result
}

func (o *recordingObserver) OnResult(r Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, r)
}

const (
	sender   = "sender::1220aa"
	admin    = "cbtc-network::1220ff"
	factory  = "factory-cid"
	receiver = "bob::1220bb"
)

var instrument = token.InstrumentID{Admin: admin, ID: token.DefaultInstrumentID}

func testContext() *registry.TransferContext {
	return &registry.TransferContext{
		FactoryID:          factory,
		TransferKind:       "offer",
		ChoiceContextData:  json.RawMessage(`{"k":{"tag":"AV_ContractId","value":"cfg"}}`),
		DisclosedContracts: []ledger.DisclosedContract{{ContractID: "cfg", CreatedEventBlob: "blob"}},
	}
}

// transferTree renders a TransferFactory_Transfer transaction tree response.
func transferTree(updateID string, change []string, instructionCid string) []byte {
	return mustJSON(map[string]any{
		"transactionTree": map[string]any{
			"updateId": updateID,
			"eventsById": map[string]any{
				"0": map[string]any{"CreatedTreeEvent": map[string]any{"value": map[string]any{"contractId": "x"}}},
				"1": map[string]any{"ExercisedTreeEvent": map[string]any{"value": map[string]any{
					"choice": token.ChoiceTransferFactoryTransfer,
					"exerciseResult": map[string]any{
						"senderChangeCids": change,
						"output": map[string]any{
							"tag":   "TransferInstructionResult_Pending",
							"value": map[string]any{"transferInstructionCid": instructionCid},
						},
					},
				}}},
			},
		},
	})
}

// selfTransferTree renders a completed self-transfer response.
func selfTransferTree(updateID string, receiverHoldings, change []string) []byte {
	return mustJSON(map[string]any{
		"transactionTree": map[string]any{
			"updateId": updateID,
			"eventsById": map[string]any{
				"3": map[string]any{"ExercisedTreeEvent": map[string]any{"value": map[string]any{
					"choice": token.ChoiceTransferFactoryTransfer,
					"exerciseResult": map[string]any{
						"senderChangeCids": change,
						"output": map[string]any{
							"tag":   "TransferInstructionResult_Completed",
							"value": map[string]any{"receiverHoldingCids": receiverHoldings},
						},
					},
				}}},
			},
		},
	})
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
