package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/orbzodiac84/regpulse/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "regpulse",
	Short: "Korean financial regulator press-release monitor",
	Long:  "Collects press releases from Korean financial regulators (RSS and HTML scraping), runs two-tier LLM risk analysis, and alerts on high-importance findings.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
