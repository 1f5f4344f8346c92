package commands

import (
	"context"

	"github.com/chainsafe/canton-cbtc/pkg/app"
	"github.com/chainsafe/canton-cbtc/pkg/app/api"

	"github.com/spf13/cobra"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health, readiness, metrics and the runs API",
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
			// Handlers run concurrently; the session has a single owner.
			shared := api.NewSharedSession(session)

			opts := []api.Option{
				api.WithLogger(e.logger),
				api.WithHoldings(api.NewHoldingsHandler(e.canton.Token, shared, e.party(), e.logger)),
				api.WithReadyCheck("identity", func(ctx context.Context) error {
					_, err := shared.EnsureFresh(ctx)
					return err
				}),
			}
			if e.db != nil {
				opts = append(opts,
					api.WithStore(e.store),
					api.WithReadyCheck("database", e.db.PingContext),
				)
			}

			return app.RunUntilSignal(ctx, api.NewServer(e.cfg, opts...))
		},
	}
}
