package commands

import (
	"fmt"

	"github.com/chainsafe/canton-cbtc/pkg/config"
	"github.com/chainsafe/canton-cbtc/pkg/migrations/cbtcdb"
	"github.com/chainsafe/canton-cbtc/pkg/pgutil"
	mghelper "github.com/chainsafe/canton-cbtc/pkg/pgutil/migrations"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"
)

func newMigrateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate {init|up|down|status}",
		Short:     "Manage the result store schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{mghelper.CommandInit, mghelper.CommandUp, mghelper.CommandDown, mghelper.CommandStatus},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			db, err := pgutil.ConnectDB(ctx, &cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			migrator := migrate.NewMigrator(db, cbtcdb.Migrations)
			return mghelper.RunMigrations(ctx, migrator, logger, args[0])
		},
	}
}
