package transfer

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ChainJob is one independent chain. Each job owns its session and holdings.
type ChainJob struct {
	Request  ChainRequest
	Observer Observer
}

// ChainOutcome is the result of one job; Err is the job's hard error.
type ChainOutcome struct {
	Outcome *Outcome
	Err     error
}

// RunChains runs independent chains with at most workers in flight and
// returns their outcomes in job order. Items within a chain stay sequential.
func RunChains(ctx context.Context, runner Runner, jobs []ChainJob, workers int) []ChainOutcome {
	out := make([]ChainOutcome, len(jobs))
	if workers <= 0 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range jobs {
		job := jobs[i]
		g.Go(func() error {
			outcome, err := runner.Run(ctx, job.Request, job.Observer)
			out[i] = ChainOutcome{Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
