package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/sahayak/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	storagePath string
	apiURL      string
	configPath  string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sahayak",
	Short: "Find government schemes and ask the Sahayak assistant",
	Long: `A command-line client for the Sahayak AI backend.

Sahayak helps citizens discover government welfare schemes, check what they
are eligible for, and ask questions in English, Hindi or Marathi.

Features:
  • Sign up, log in and keep your profile up to date
  • Browse and search government schemes, online or from the local cache
  • Ask the assistant about schemes, in a one-shot query or an interactive chat
  • Export chat transcripts (JSONL, Markdown, YAML, JSON)

Quick Start:
  sahayak signup --name "Asha Patil" --email asha@example.com --mobile 9876543210
  sahayak schemes list                 # Browse schemes
  sahayak chat                         # Open the interactive chat

Configuration is read from ~/.config/sahayak/config.yaml, SAHAYAK_* environment
variables (a .env file in the working directory is honored) and flags.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Path to the local state database")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Sahayak backend URL (overrides SAHAYAK_API_URL)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/sahayak/config.yaml)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
