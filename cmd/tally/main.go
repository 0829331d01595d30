package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/tally/internal/app"
	"github.com/bobmcallan/tally/internal/common"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "tally",
	Short:         "Analyse company financials and flag risk",
	Long:          `Tally reads company financials from CSV or JSON, computes margins, sector summaries and risk flags, and renders the report as JSON, Markdown, HTML or PDF.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path (default: $TALLY_CONFIG or config/tally.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of errors only")

	rootCmd.AddCommand(analyzeCmd, samplesCmd, tokenCmd, versionCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves and loads the configuration with a logger that stays
// quiet unless -v is given, so report output on stdout stays clean.
func loadConfig() (*common.Config, *common.Logger, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(app.ResolveConfigPath(configPath))
	if err != nil {
		return nil, nil, err
	}

	if !verbose {
		config.Logging.Level = "error"
	}
	return config, common.NewLoggerFromConfig(config.Logging), nil
}
