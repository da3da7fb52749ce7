package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arx-deidentifier/gta-benchmark/cmd/cli/commands"
	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
)

var (
	cfgFile string
	verbose bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "Cost-benefit re-identification game for anonymization decisions",
		Long: `A command-line interface for deciding which equivalence classes of a dataset
can be published when a rational adversary weighs the cost of an attack against
its gain, and for scoring transformations by the payout left to the publisher.

Configuration is read from gta.yaml (or --config) and GTA_* environment variables.`,
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gta.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add commands
	rootCmd.AddCommand(commands.NewEvaluateCmd())
	rootCmd.AddCommand(commands.NewSweepCmd())
	rootCmd.AddCommand(commands.NewPopulationCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
