package commands

import (
	"fmt"

	"github.com/chainsafe/canton-cbtc/pkg/recipients"
	"github.com/chainsafe/canton-cbtc/pkg/resultstore"
	"github.com/chainsafe/canton-cbtc/pkg/transfer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type distributeFlags struct {
	csvPath       string
	referenceBase string
	workers       int
	skipCommitted bool
}

func newDistributeCmd(g *globalFlags) *cobra.Command {
	f := &distributeFlags{}
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Pay every recipient of a CSV file through sequential chained transfers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDistribute(cmd, g, f)
		},
	}
	cmd.Flags().StringVar(&f.csvPath, "csv", "", "CSV file with receiver, amount and optional reference columns")
	cmd.Flags().StringVar(&f.referenceBase, "reference-base", "", "Derive a deterministic reference per transfer (default transfer.reference_base)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel chains over disjoint holdings (default transfer.workers)")
	cmd.Flags().BoolVar(&f.skipCommitted, "skip-committed", true, "Skip recipients whose reference already committed in a recorded run")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}

func runDistribute(cmd *cobra.Command, g *globalFlags, f *distributeFlags) error {
	ctx := cmd.Context()

	rcpts, err := recipients.ReadFile(f.csvPath)
	if err != nil {
		return err
	}

	e, err := g.setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	referenceBase := f.referenceBase
	if !cmd.Flags().Changed("reference-base") {
		referenceBase = e.cfg.Transfer.ReferenceBase
	}
	workers := f.workers
	if !cmd.Flags().Changed("workers") {
		workers = e.cfg.Transfer.Workers
	}

	if f.skipCommitted && e.store != nil {
		pending, skipped, err := resultstore.FilterCommitted(ctx, e.store, referenceBase, e.party(), rcpts, e.logger)
		if err != nil {
			return err
		}
		for _, s := range skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "skipping %s %s: reference %s already recorded in run %s\n",
				s.Recipient.Receiver, s.Recipient.Amount, s.Reference, s.Result.RunID)
		}
		if len(pending) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "distribute: nothing left to pay")
			return nil
		}
		rcpts = pending
	}

	session, err := e.login(ctx)
	if err != nil {
		return err
	}

	executor, err := transfer.NewExecutor(e.canton.Ledger, e.canton.Registry, e.options()...)
	if err != nil {
		return err
	}
	distributor, err := transfer.NewDistributor(executor, e.canton.Token, e.recorder, e.canton.Instrument(), e.options()...)
	if err != nil {
		return err
	}

	e.logger.Info("Starting distribution",
		zap.String("csv", f.csvPath),
		zap.Int("recipients", len(rcpts)),
		zap.Int("workers", workers),
		zap.Bool("recorded", e.recorder != nil),
	)

	out, err := distributor.Distribute(ctx, transfer.DistributeRequest{
		Session:       session,
		Sender:        e.party(),
		Recipients:    rcpts,
		ReferenceBase: referenceBase,
		ExecuteBefore: e.cfg.Transfer.ExecuteBefore,
		Workers:       workers,
		NewSession:    e.newSession,
	}, nil)
	if perr := printOutcome(cmd.OutOrStdout(), transfer.OperationDistribute, out); perr != nil {
		e.logger.Warn("Failed to print outcome", zap.Error(perr))
	}
	return exitStatus(out, err)
}
