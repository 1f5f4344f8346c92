package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"github.com/spf13/cobra"
)

func newOffersCmd(g *globalFlags) *cobra.Command {
	var outgoing bool
	cmd := &cobra.Command{
		Use:   "offers",
		Short: "List pending CBTC transfer offers (incoming by default)",
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
			accessToken, err := session.EnsureFresh(ctx)
			if err != nil {
				return err
			}

			role := token.RoleReceiver
			if outgoing {
				role = token.RoleSender
			}
			pending, err := e.canton.Token.PendingInstructions(ctx, accessToken, e.party(), role)
			if err != nil {
				return err
			}
			return printOffers(cmd.OutOrStdout(), role, pending)
		},
	}
	cmd.Flags().BoolVar(&outgoing, "outgoing", false, "List offers the party sent instead of offers it received")
	return cmd
}

func printOffers(w io.Writer, role token.Role, pending []*token.PendingInstruction) error {
	direction, counterparty := "incoming", "FROM"
	if role == token.RoleSender {
		direction, counterparty = "outgoing", "TO"
	}
	if len(pending) == 0 {
		_, err := fmt.Fprintf(w, "offers: no pending %s offers\n", direction)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CONTRACT ID\t%s\tAMOUNT\tREQUESTED\tEXPIRES\n", counterparty)
	for _, p := range pending {
		party := p.Sender
		if role == token.RoleSender {
			party = p.Receiver
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ContractID, party, p.Amount, p.RequestedAt, p.ExecuteBefore)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "offers: %d pending %s\n", len(pending), direction)
	return err
}
