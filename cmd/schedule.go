package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orbzodiac84/regpulse/internal/pipeline"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run collection cycles on the configured interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("schedule"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sched := pipeline.NewScheduler(env.Pipeline, cfg.Scheduler.Interval(), cfg.Scheduler.CycleTimeout())
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
