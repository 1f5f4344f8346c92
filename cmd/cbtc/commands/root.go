// Package commands implements the cbtc subcommands.
package commands

import (
	"github.com/chainsafe/canton-cbtc/pkg/config"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	envFile    string
}

// NewRootCmd returns the cbtc root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:          "cbtc",
		Short:        "CBTC sequential chained transfers on Canton",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadEnvFile(g.envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "config.yaml", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "Optional KEY=VALUE file loaded before the configuration")

	cmd.AddCommand(
		newDistributeCmd(g),
		newAcceptAllCmd(g),
		newWithdrawAllCmd(g),
		newConsolidateCmd(g),
		newSplitCmd(g),
		newHoldingsCmd(g),
		newOffersCmd(g),
		newWatchCmd(g),
		newServeCmd(g),
		newMigrateCmd(g),
	)
	return cmd
}
