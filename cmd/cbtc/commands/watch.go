package commands

import (
	"fmt"
	"time"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const resubscribeDelay = 2 * time.Second

func newWatchCmd(g *globalFlags) *cobra.Command {
	var fromOffset int64
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream the party's CBTC holdings and transfer offers as they change",
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

			w := cmd.OutOrStdout()
			offset := fromOffset
			for {
				accessToken, err := session.EnsureFresh(ctx)
				if err != nil {
					return err
				}
				offset, err = e.canton.Token.Watch(ctx, accessToken, e.party(), offset, func(a *token.Activity) error {
					_, werr := fmt.Fprintln(w, formatActivity(a))
					return werr
				})
				if ctx.Err() != nil {
					return nil
				}
				if err != nil {
					return err
				}

				// The participant closed the stream; resubscribe with a fresh token.
				e.logger.Info("Update stream closed, resubscribing", zap.Int64("offset", offset))
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(resubscribeDelay):
				}
			}
		},
	}
	cmd.Flags().Int64Var(&fromOffset, "from-offset", 0, "Stream updates after this ledger offset (default the current ledger end)")
	return cmd
}

func formatActivity(a *token.Activity) string {
	switch a.Kind {
	case token.ActivityHoldingCreated:
		return fmt.Sprintf("%d %s holding %s created: %s", a.Offset, a.UpdateID, a.ContractID, a.Amount)
	case token.ActivityOfferCreated:
		return fmt.Sprintf("%d %s offer %s created: %s from %s to %s", a.Offset, a.UpdateID, a.ContractID, a.Amount, a.Sender, a.Receiver)
	default:
		return fmt.Sprintf("%d %s %s archived", a.Offset, a.UpdateID, a.ContractID)
	}
}
