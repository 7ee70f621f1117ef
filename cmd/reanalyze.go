package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/orbzodiac84/regpulse/internal/model"
	"github.com/orbzodiac84/regpulse/internal/store"
)

var (
	reanalyzeStatus string
	reanalyzeLimit  int
)

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze",
	Short: "Re-run analysis over stored articles that previously failed",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("reanalyze"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		articles, err := env.Store.ListArticles(ctx, reanalyzeFilter(reanalyzeStatus, reanalyzeLimit))
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			zap.L().Info("no articles to reanalyze", zap.String("status", reanalyzeStatus))
			return nil
		}

		var updated, analyzed, failed int
		for i := range articles {
			if ctx.Err() != nil {
				break
			}
			article := &articles[i]
			agencyName := article.Agency
			if agency, ok := env.Agencies[article.Agency]; ok {
				agencyName = agency.Name
			}
			result := env.Analyzer.Process(ctx, article, agencyName)
			if err := env.Store.UpdateAnalysis(ctx, article.ID, result); err != nil {
				zap.L().Error("reanalyze: update failed",
					zap.String("article_id", article.ID),
					zap.Error(err),
				)
				failed++
				continue
			}
			updated++
			if result.Status == model.StatusAnalyzed {
				analyzed++
				article.Analysis = result
				env.Notifier.NotifyArticle(ctx, article)
			}
		}

		zap.L().Info("reanalyze finished",
			zap.Int("candidates", len(articles)),
			zap.Int("updated", updated),
			zap.Int("analyzed", analyzed),
			zap.Int("failed", failed),
		)
		return nil
	},
}

// reanalyzeFilter builds the article selection for a reanalysis run.
func reanalyzeFilter(status string, limit int) store.ArticleFilter {
	return store.ArticleFilter{
		Status: model.AnalysisStatus(status),
		Limit:  limit,
	}
}

func init() {
	reanalyzeCmd.Flags().StringVar(&reanalyzeStatus, "status", string(model.StatusAnalysisFailed), "analysis status to select")
	reanalyzeCmd.Flags().IntVar(&reanalyzeLimit, "limit", 0, "max articles to reprocess (0 = no limit)")
	rootCmd.AddCommand(reanalyzeCmd)
}
