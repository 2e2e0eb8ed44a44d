package main

import (
	"github.com/spf13/cobra"

	"github.com/csg33k/aeat182-generator/internal/config"
	"github.com/csg33k/aeat182-generator/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "aeat182",
	Short:         "AEAT model 182 donations report generator",
	Long:          "Builds the Spanish model-182 informational return (donations report)\nfrom accounting ledger data and exports the agency flat file.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI with the loaded configuration available to every
// subcommand.
func Execute(cfg *config.Config) error {
	rootCmd.AddCommand(
		newCreateCmd(cfg),
		newListCmd(cfg),
		newCalculateCmd(cfg),
		newDraftCmd(cfg),
		newCancelCmd(cfg),
		newExportCmd(cfg),
	)
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}
