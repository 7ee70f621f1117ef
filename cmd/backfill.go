package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/orbzodiac84/regpulse/internal/model"
)

var (
	backfillDays     int
	backfillMaxPages int
	backfillAgency   string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Collect historical releases back to a fixed number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("backfill"); err != nil {
			return err
		}
		if backfillDays <= 0 {
			return eris.New("backfill: --days must be > 0")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if backfillAgency != "" {
			if _, ok := env.Agencies[backfillAgency]; !ok {
				return eris.Errorf("backfill: unknown agency %q", backfillAgency)
			}
			// The pipeline shares this map; prune it in place.
			for code := range env.Agencies {
				if code != backfillAgency {
					delete(env.Agencies, code)
				}
			}
		}

		cutoff := time.Now().In(model.KST).AddDate(0, 0, -backfillDays)
		env.Pipeline.FixedCutoff = &cutoff
		env.Pipeline.MaxPages = backfillMaxPages

		zap.L().Info("backfill starting",
			zap.Int("days", backfillDays),
			zap.Int("max_pages", backfillMaxPages),
			zap.Time("cutoff", cutoff),
		)

		summary, err := env.Pipeline.RunCycle(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("backfill finished",
			zap.Int("collected", summary.Collected),
			zap.Int("inserted", summary.Inserted),
			zap.Int("analyzed", summary.Analyzed),
		)
		return nil
	},
}

func init() {
	backfillCmd.Flags().IntVar(&backfillDays, "days", 30, "how many days back to collect")
	backfillCmd.Flags().IntVar(&backfillMaxPages, "max-pages", 25, "listing pages per agency")
	backfillCmd.Flags().StringVar(&backfillAgency, "agency", "", "restrict to one agency code")
	rootCmd.AddCommand(backfillCmd)
}
