package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
	"github.com/chainsafe/canton-cbtc/pkg/transfer"

	"github.com/spf13/cobra"
)

func newHoldingsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings",
		Short: "List the party's unlocked CBTC holdings and balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			return printHoldings(cmd.OutOrStdout(), e.party(), holdings)
		},
	}
}

func listHoldings(ctx context.Context, e *env, session transfer.TokenSource) ([]*token.Holding, error) {
	accessToken, err := session.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}
	holdings, err := e.canton.Token.Holdings(ctx, accessToken, e.party())
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	return holdings, nil
}

func printHoldings(w io.Writer, party string, holdings []*token.Holding) error {
	balance, err := token.Balance(holdings)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTRACT ID\tAMOUNT")
	for _, h := range holdings {
		fmt.Fprintf(tw, "%s\t%s\n", h.ContractID, h.Amount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s: %d holdings, balance %s\n", party, len(holdings), balance)
	return err
}
