// Command pgx-assess runs a pharmacogenomic risk assessment offline. It needs
// no config file: settings come from PGX_* environment variables and flags.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pharmaco-risk-server/internal/config"
)

func main() {
	if err := newRootCmd(config.LoadLiteConfig()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.LiteConfig) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pgx-assess",
		Short:        "Pharmacogenomic drug risk assessment",
		SilenceUsage: true,
	}
	rootCmd.SetErrPrefix("pgx-assess:")
	rootCmd.AddCommand(assessCmd(cfg))
	rootCmd.AddCommand(drugsCmd())
	rootCmd.AddCommand(historyCmd(cfg))
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "pgx-assess", version)
			return err
		},
	}
}

const version = "1.0.0"
