// Package main is the entry point for the fincalc investment strategy
// calculator. The application compares market timing strategies against a
// bank deposit benchmark over historical Moscow Exchange data.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/fincalc/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "fincalc",
		Short:   "Investment strategy calculator for Moscow Exchange instruments",
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand starts the server.
			return runServe()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(seedRatesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func fetchCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "fetch <ticker>",
		Short: "Fetch historical prices for one instrument into the local database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(args[0], from, to)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD, default one year ago)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD, default today)")
	return cmd
}

func seedRatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-rates",
		Short: "Seed the deposit rate table with built-in historical averages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedRates()
		},
	}
}
