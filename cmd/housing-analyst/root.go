package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/housing-analyst/internal/config"
	"github.com/joelkehle/housing-analyst/internal/logging"
)

var (
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "housing-analyst",
	Short: "AI analysis of Salt Lake Valley housing listings",
	Long: `housing-analyst scores stored listings and asks a text model for market
summaries, ranked recommendations, side-by-side comparisons and market analysis.
Model calls are rate limited and cached; when the model is unavailable every
analysis falls back to a deterministic result built from the listing data.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		return err
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML, JSON or TOML config file (env vars prefixed HOUSING_ override it)")
}
