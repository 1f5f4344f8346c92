package commands

import (
	"fmt"
	"io"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
	"github.com/chainsafe/canton-cbtc/pkg/transfer"

	"github.com/spf13/cobra"
)

func newSplitCmd(g *globalFlags) *cobra.Command {
	var amounts []string
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Carve exact-amount holdings out of the party's holdings",
		Example: "  cbtc split --amount 0.5 --amount 0.25\n" +
			"  cbtc split --amount 0.1,0.1,0.1",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, a := range amounts {
				if err := token.ValidateAmount(a); err != nil {
					return fmt.Errorf("amount %q: %w", a, err)
				}
			}

			ctx := cmd.Context()
			e, err := g.setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			session, err := e.login(ctx)
			if err != nil {
				return err
			}
			holdings, err := listHoldings(ctx, e, session)
			if err != nil {
				return err
			}

			splitter, err := transfer.NewSplitter(e.canton.Ledger, e.canton.Registry, e.canton.Instrument(), e.options()...)
			if err != nil {
				return err
			}
			res, err := splitter.Split(ctx, session, e.party(), token.ContractIDs(holdings), amounts)
			if res != nil {
				// Holdings created before a failure are reported too.
				if perr := printSplit(cmd.OutOrStdout(), amounts, res); perr != nil && err == nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&amounts, "amount", nil, "Amount of each output holding; repeat or comma-separate")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func printSplit(w io.Writer, amounts []string, res *transfer.SplitResult) error {
	for i, cid := range res.OutputCids {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", amounts[i], cid); err != nil {
			return err
		}
	}
	if len(res.OutputCids) < len(amounts) {
		_, err := fmt.Fprintf(w, "split: stopped after %d of %d holdings\n", len(res.OutputCids), len(amounts))
		return err
	}
	_, err := fmt.Fprintf(w, "split: %d holdings created, %d change holdings\n", len(res.OutputCids), len(res.ChangeCids))
	return err
}
