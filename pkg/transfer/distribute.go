package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/registry"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"go.uber.org/zap"
)

// RunRecorder persists runs and their results.
type RunRecorder interface {
	StartRun(ctx context.Context, run RunInfo) (RunObserver, error)
}

// RunObserver records the results of one run.
type RunObserver interface {
	Observer
	Finish(ctx context.Context, out *Outcome, runErr error) error
}

// RunInfo describes a run being recorded.
type RunInfo struct {
	Operation     string
	Party         string
	ReferenceBase string
	Items         int
}

// DistributeRequest is a payout of many recipients from one sender.
type DistributeRequest struct {
	Session       TokenSource
	Sender        string
	Recipients    []Recipient
	ReferenceBase string
	ExecuteBefore time.Duration

	// Context is an optional cached factory context.
	Context *registry.TransferContext

	// Workers above one splits the payout into that many chains over
	// disjoint holdings. NewSession supplies the session of every chain
	// after the first.
	Workers    int
	NewSession func() (TokenSource, error)
}

// Distributor fetches the sender's holdings and pays recipients through a
// single chain, recording every result when a recorder is configured.
type Distributor struct {
	runner     Runner
	holdings   HoldingLister
	recorder   RunRecorder
	instrument token.InstrumentID
	logger     *zap.Logger
}

// NewDistributor creates a distributor. recorder may be nil.
func NewDistributor(runner Runner, holdings HoldingLister, recorder RunRecorder, instrument token.InstrumentID, opts ...Option) (*Distributor, error) {
	if runner == nil || holdings == nil {
		return nil, errors.New("runner and holding lister are required")
	}
	s := applyOptions(opts)
	return &Distributor{
		runner:     runner,
		holdings:   holdings,
		recorder:   recorder,
		instrument: instrument,
		logger:     s.logger,
	}, nil
}

// Distribute runs the payout. obs, if non-nil, sees each result after it is
// recorded; it must be safe for concurrent use when Workers is above one.
func (d *Distributor) Distribute(ctx context.Context, req DistributeRequest, obs Observer) (out *Outcome, err error) {
	if len(req.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if req.Session == nil {
		return nil, errors.New("nil session")
	}

	accessToken, err := req.Session.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}
	holdings, err := d.holdings.Holdings(ctx, accessToken, req.Sender)
	if err != nil {
		return nil, fmt.Errorf("fetch holdings: %w", err)
	}
	d.logger.Info("Distributing",
		zap.String("sender", req.Sender),
		zap.Int("recipients", len(req.Recipients)),
		zap.Int("holdings", len(holdings)),
	)

	observers := MultiObserver{}
	if d.recorder != nil {
		run, serr := d.recorder.StartRun(ctx, RunInfo{
			Operation:     OperationDistribute,
			Party:         req.Sender,
			ReferenceBase: req.ReferenceBase,
			Items:         len(req.Recipients),
		})
		if serr != nil {
			return nil, fmt.Errorf("start run: %w", serr)
		}
		defer func() {
			if ferr := run.Finish(context.WithoutCancel(ctx), out, err); ferr != nil {
				d.logger.Error("Failed to finish run record", zap.Error(ferr))
			}
		}()
		observers = append(observers, run)
	}
	if obs != nil {
		observers = append(observers, obs)
	}

	chains := partition(ChainRequest{
		Session:       req.Session,
		Sender:        req.Sender,
		Recipients:    req.Recipients,
		Holdings:      token.ContractIDs(holdings),
		Instrument:    d.instrument,
		ReferenceBase: req.ReferenceBase,
		Context:       req.Context,
		ExecuteBefore: req.ExecuteBefore,
		Operation:     OperationDistribute,
	}, req.Workers)
	if len(chains) == 1 {
		return d.runner.Run(ctx, chains[0], observers)
	}
	if req.NewSession == nil {
		return nil, errors.New("parallel distribution requires a session factory")
	}

	jobs := make([]ChainJob, len(chains))
	for i, chain := range chains {
		if i > 0 {
			session, serr := req.NewSession()
			if serr != nil {
				return nil, fmt.Errorf("create session for chain %d: %w", i, serr)
			}
			chain.Session = session
		}
		jobs[i] = ChainJob{Request: chain, Observer: observers}
	}
	d.logger.Info("Running parallel chains", zap.Int("chains", len(jobs)))

	return mergeOutcomes(RunChains(ctx, d.runner, jobs, len(jobs)))
}

// partition splits req into at most workers chains. Recipients are cut into
// contiguous ranges and holdings are dealt round-robin, so no input holding
// is spent by two chains.
func partition(req ChainRequest, workers int) []ChainRequest {
	n := min(workers, len(req.Recipients), len(req.Holdings))
	if n <= 1 {
		return []ChainRequest{req}
	}

	pools := make([][]string, n)
	for i, cid := range req.Holdings {
		pools[i%n] = append(pools[i%n], cid)
	}

	out := make([]ChainRequest, n)
	size, rem := len(req.Recipients)/n, len(req.Recipients)%n
	start := 0
	for i := range out {
		end := start + size
		if i < rem {
			end++
		}
		chain := req
		chain.Recipients = req.Recipients[start:end]
		chain.Holdings = pools[i]
		chain.IndexOffset = req.IndexOffset + start
		out[i] = chain
		start = end
	}
	return out
}

// mergeOutcomes concatenates chain outcomes in job order. Hard errors of
// individual chains are joined; the merged outcome is returned with them.
func mergeOutcomes(outcomes []ChainOutcome) (*Outcome, error) {
	merged := &Outcome{}
	var errs []error
	for i, co := range outcomes {
		if co.Err != nil {
			errs = append(errs, fmt.Errorf("chain %d: %w", i, co.Err))
		}
		if co.Outcome == nil {
			continue
		}
		merged.Results = append(merged.Results, co.Outcome.Results...)
		merged.SuccessCount += co.Outcome.SuccessCount
		merged.FailCount += co.Outcome.FailCount
	}
	return merged, errors.Join(errs...)
}
