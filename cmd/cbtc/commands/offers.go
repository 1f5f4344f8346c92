package commands

import (
	"github.com/chainsafe/canton-cbtc/pkg/transfer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAcceptAllCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "accept-all",
		Short: "Accept every pending incoming CBTC transfer offer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOffers(cmd, g, transfer.ActionAccept)
		},
	}
}

func newWithdrawAllCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw-all",
		Short: "Withdraw every pending outgoing CBTC transfer offer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOffers(cmd, g, transfer.ActionWithdraw)
		},
	}
}

func runOffers(cmd *cobra.Command, g *globalFlags, action transfer.OfferAction) error {
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

	batcher, err := transfer.NewOfferBatcher(e.canton.Ledger, e.canton.Token, e.canton.Registry, e.options()...)
	if err != nil {
		return err
	}

	info := transfer.RunInfo{Operation: action.String(), Party: e.party()}
	out, err := e.record(ctx, info, func(obs transfer.Observer) (*transfer.Outcome, error) {
		return batcher.Run(ctx, session, e.party(), action, obs)
	})
	if perr := printOutcome(cmd.OutOrStdout(), action.String(), out); perr != nil {
		e.logger.Warn("Failed to print outcome", zap.Error(perr))
	}
	return exitStatus(out, err)
}
