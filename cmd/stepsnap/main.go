package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/keagan/stepsnap/internal/config"
	"github.com/keagan/stepsnap/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "stepsnap",
	Short:         "stepsnap - pick the frames of a tutorial video that become manual steps",
	Long:          "Scans tutorial videos for screen changes and captures one still per step, ready to be described and annotated.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Initialize logging
		logging.Init(cfg.LogLevel, verbose)

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./stepsnap.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(configCmd)
}
