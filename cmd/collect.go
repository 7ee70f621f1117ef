package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("collect"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Pipeline.RunCycle(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("collect finished",
			zap.Int("inserted", summary.Inserted),
			zap.Int("analyzed", summary.Analyzed),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
