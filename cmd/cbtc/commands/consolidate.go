package commands

import (
	"fmt"
	"io"

	"github.com/chainsafe/canton-cbtc/pkg/transfer"

	"github.com/spf13/cobra"
)

type consolidateFlags struct {
	threshold int
	force     bool
}

func newConsolidateCmd(g *globalFlags) *cobra.Command {
	f := &consolidateFlags{}
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge the party's holdings into one when there are too many",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := g.setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			threshold := f.threshold
			if !cmd.Flags().Changed("threshold") {
				threshold = e.cfg.Transfer.ConsolidateThreshold
			}

			session, err := e.login(ctx)
			if err != nil {
				return err
			}
			consolidator, err := transfer.NewConsolidator(e.canton.Ledger, e.canton.Registry, e.canton.Token, e.canton.Instrument(), e.options()...)
			if err != nil {
				return err
			}

			var res *transfer.ConsolidationResult
			if f.force {
				holdings, err := listHoldings(ctx, e, session)
				if err != nil {
					return err
				}
				res, err = consolidator.Consolidate(ctx, session, e.party(), holdings)
				if err != nil {
					return err
				}
			} else {
				res, err = consolidator.CheckAndConsolidate(ctx, session, e.party(), threshold)
				if err != nil {
					return err
				}
			}
			return printConsolidation(cmd.OutOrStdout(), res, threshold, f.force)
		},
	}
	cmd.Flags().IntVar(&f.threshold, "threshold", 0, "Consolidate at this many holdings (default transfer.consolidate_threshold)")
	cmd.Flags().BoolVar(&f.force, "force", false, "Consolidate regardless of the threshold")
	return cmd
}

func printConsolidation(w io.Writer, res *transfer.ConsolidationResult, threshold int, forced bool) error {
	switch {
	case !res.Consolidated && forced:
		_, err := fmt.Fprintf(w, "consolidate: %d holdings, nothing to merge\n", res.Before)
		return err
	case !res.Consolidated:
		_, err := fmt.Fprintf(w, "consolidate: %d holdings, below threshold %d, nothing to do\n", res.Before, threshold)
		return err
	}
	_, err := fmt.Fprintf(w, "consolidate: %d holdings merged into %d (update %s)\n", res.Before, res.After, res.UpdateID)
	return err
}
