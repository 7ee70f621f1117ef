// Package analyzer runs the two-tier LLM assessment: a cheap gatekeeper
// filter followed by a deep risk analysis for items that clear the
// importance threshold.
package analyzer

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/orbzodiac84/regpulse/internal/config"
	"github.com/orbzodiac84/regpulse/internal/model"
	"github.com/orbzodiac84/regpulse/internal/resilience"
	"github.com/orbzodiac84/regpulse/pkg/gemini"
)

// Analyzer assesses collected articles.
type Analyzer struct {
	client gemini.Client
	models config.GeminiConfig
	cfg    config.AnalyzerConfig

	// limiter serializes model calls with the provider-mandated minimum gap.
	limiter *rate.Limiter
}

// New builds an analyzer.
func New(client gemini.Client, models config.GeminiConfig, cfg config.AnalyzerConfig) *Analyzer {
	delay := models.CallDelay()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Analyzer{
		client:  client,
		models:  models,
		cfg:     cfg,
		limiter: limiter,
	}
}

// gatekeeperVerdict is the filter model's response shape.
type gatekeeperVerdict struct {
	IsRelevant      bool `json:"is_relevant"`
	ImportanceScore int  `json:"importance_score"`
}

// analystVerdict is the deep-analysis model's response shape.
type analystVerdict struct {
	RiskLevel      model.RiskLevel `json:"risk_level"`
	RiskScore      int             `json:"risk_score"`
	RiskTags       []string        `json:"risk_tags"`
	Pillars        []string        `json:"pillars"`
	Summary        []string        `json:"summary"`
	ImpactAnalysis string          `json:"impact_analysis"`
	ActionItems    []string        `json:"action_items"`
}

// Process runs the full assessment for one article. The result is always
// non-nil; failures are carried in the status fields rather than aborting
// the collection cycle.
func (a *Analyzer) Process(ctx context.Context, article *model.Article, agencyName string) *model.AnalysisResult {
	result := &model.AnalysisResult{FilterStatus: model.FilterOK}

	floor := scanKeywords(a.cfg, article.Title)

	// The cheap tier sees the teaser only; the full body is for Tier 2.
	description := article.Description
	if description == "" {
		description = truncateRunes(article.Content, maxDescriptionRunes)
	}

	var verdict gatekeeperVerdict
	err := a.generate(ctx, a.models.FilterModel, gatekeeperPrompt(article.Title, description, agencyName), &verdict)
	if err != nil {
		zap.L().Warn("gatekeeper call failed",
			zap.String("article", article.ID),
			zap.Error(err),
		)
		result.FilterStatus = model.FilterError
		if !floor.forced {
			// A broken filter degrades to "not important enough", it
			// must not fail the item.
			result.Status = model.StatusSkipped
			return result
		}
		// A high keyword already decided relevance; proceed on that alone.
		verdict = gatekeeperVerdict{}
	}

	result.IsRelevant = verdict.IsRelevant || floor.forced
	result.ImportanceScore = verdict.ImportanceScore
	// The safeguard overrides the model both ways: raising the score above
	// the model's output also forces relevance.
	if floor.minScore > result.ImportanceScore {
		result.ImportanceScore = floor.minScore
		result.IsRelevant = true
	}

	if !result.IsRelevant || result.ImportanceScore < a.cfg.ImportanceThreshold {
		result.Status = model.StatusSkipped
		return result
	}

	analysis, analyzedBy, err := a.deepAnalyze(ctx, article, agencyName)
	if err != nil {
		zap.L().Warn("deep analysis failed",
			zap.String("article", article.ID),
			zap.Error(err),
		)
		result.Status = model.StatusAnalysisFailed
		return result
	}

	result.Status = model.StatusAnalyzed
	result.AnalyzedBy = analyzedBy
	result.RiskLevel = analysis.RiskLevel
	result.RiskScore = analysis.RiskScore
	result.RiskTags = filterTaxonomy(analysis.RiskTags, model.ValidRiskTag)
	result.Pillars = filterTaxonomy(analysis.Pillars, model.ValidPillar)
	result.Summary = analysis.Summary
	result.ImpactAnalysis = analysis.ImpactAnalysis
	result.ActionItems = analysis.ActionItems

	reconcile(result)
	return result
}

// deepAnalyze runs Tier 2 against the primary analyst model, falling back to
// the secondary model when the primary fails.
func (a *Analyzer) deepAnalyze(ctx context.Context, article *model.Article, agencyName string) (*analystVerdict, string, error) {
	prompt := analystPrompt(article.Title, article.Content, agencyName)

	var verdict analystVerdict
	err := a.generate(ctx, a.models.AnalyzerModel, prompt, &verdict)
	if err == nil {
		return &verdict, a.models.AnalyzerModel, nil
	}
	if a.models.FallbackModel == "" {
		return nil, "", err
	}

	zap.L().Warn("primary analyst model failed, trying fallback",
		zap.String("article", article.ID),
		zap.String("model", a.models.AnalyzerModel),
		zap.String("fallback", a.models.FallbackModel),
		zap.Error(err),
	)

	if fbErr := a.generate(ctx, a.models.FallbackModel, prompt, &verdict); fbErr != nil {
		return nil, "", eris.Wrap(fbErr, "analyzer: fallback model")
	}
	return &verdict, a.models.FallbackModel, nil
}

// generate calls the model with rate limiting and the LLM retry policy, then
// decodes its JSON answer into out.
func (a *Analyzer) generate(ctx context.Context, modelName, prompt string, out any) error {
	raw, err := resilience.DoVal(ctx, resilience.ModelRetryConfig(a.cfg.MaxRetries), func(ctx context.Context) (string, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return a.client.Generate(ctx, modelName, prompt)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(stripFences(raw)), out); err != nil {
		return eris.Wrapf(err, "analyzer: model %s returned malformed JSON", modelName)
	}
	return nil
}

// reconcile lifts the deep-analysis verdict to the safeguard-adjusted Tier-1
// score. A raise also upgrades a LOW risk level to MEDIUM; HIGH is never
// touched, and nothing ever moves down.
func reconcile(result *model.AnalysisResult) {
	if result.RiskScore < result.ImportanceScore {
		result.RiskScore = result.ImportanceScore
		if result.RiskLevel == model.RiskLow {
			result.RiskLevel = model.RiskMedium
		}
	}
}

func filterTaxonomy(values []string, valid func(string) bool) []string {
	var kept []string
	for _, v := range values {
		if valid(v) {
			kept = append(kept, v)
		}
	}
	return kept
}
