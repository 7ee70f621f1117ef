// Package pipeline orchestrates one collection cycle: fetch new releases per
// agency, deduplicate against the store, analyze, persist, and notify.
package pipeline

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/orbzodiac84/regpulse/internal/model"
	"github.com/orbzodiac84/regpulse/internal/store"
)

// FeedFetcher collects items from an RSS agency.
type FeedFetcher interface {
	Fetch(ctx context.Context, agency model.Agency) ([]model.Item, error)
}

// PageScraper collects items and detail bodies from a scraped agency.
type PageScraper interface {
	Cutoff(lastPublished *time.Time) time.Time
	FetchList(ctx context.Context, agency model.Agency, cutoff time.Time, maxPages int) ([]model.Item, error)
	FetchDetail(ctx context.Context, agency model.Agency, link string) (string, error)
}

// Processor runs the two-tier analysis for one article.
type Processor interface {
	Process(ctx context.Context, article *model.Article, agencyName string) *model.AnalysisResult
}

// Notifier delivers findings and operational alerts.
type Notifier interface {
	NotifyArticle(ctx context.Context, article *model.Article)
	NotifyError(ctx context.Context, cycleErr error)
}

// Pipeline wires the collection stages together.
type Pipeline struct {
	store    store.Store
	agencies map[string]model.Agency
	feeds    FeedFetcher
	scraper  PageScraper
	analyzer Processor
	notifier Notifier

	// MaxPages overrides the scraper's page budget when > 0 (backfill runs).
	MaxPages int
	// FixedCutoff replaces the per-agency cutoff computation when set, so a
	// backfill can reach past the stored history.
	FixedCutoff *time.Time
}

// New builds a pipeline over the given agencies.
func New(st store.Store, agencies map[string]model.Agency, feeds FeedFetcher, scraper PageScraper, analyzer Processor, notifier Notifier) *Pipeline {
	return &Pipeline{
		store:    st,
		agencies: agencies,
		feeds:    feeds,
		scraper:  scraper,
		analyzer: analyzer,
		notifier: notifier,
	}
}

// CycleSummary reports what one collection cycle did.
type CycleSummary struct {
	Collected      int           `json:"collected"`
	Inserted       int           `json:"inserted"`
	Duplicates     int           `json:"duplicates"`
	Analyzed       int           `json:"analyzed"`
	Skipped        int           `json:"skipped"`
	Failed         int           `json:"failed"`
	AgencyFailures int           `json:"agency_failures"`
	ItemFailures   int           `json:"item_failures"`
	Duration       time.Duration `json:"duration"`
}

// RunCycle executes one full collection pass. Per-agency and per-item
// failures are counted and logged but never abort the cycle; an error is
// returned only when the context ends or every agency failed.
func (p *Pipeline) RunCycle(ctx context.Context) (*CycleSummary, error) {
	start := time.Now()
	summary := &CycleSummary{}

	codes := make([]string, 0, len(p.agencies))
	for code := range p.agencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, eris.Wrap(err, "pipeline: cycle interrupted")
		}

		agency := p.agencies[code]
		items, err := p.collect(ctx, agency)
		if err != nil {
			summary.AgencyFailures++
			zap.L().Error("agency collection failed",
				zap.String("agency", code),
				zap.Error(err),
			)
			continue
		}
		summary.Collected += len(items)

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				summary.Duration = time.Since(start)
				return summary, eris.Wrap(err, "pipeline: cycle interrupted")
			}
			p.processItem(ctx, agency, item, summary)
		}
	}

	summary.Duration = time.Since(start)
	zap.L().Info("collection cycle complete",
		zap.Int("collected", summary.Collected),
		zap.Int("inserted", summary.Inserted),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("analyzed", summary.Analyzed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("agency_failures", summary.AgencyFailures),
		zap.Int("item_failures", summary.ItemFailures),
		zap.Duration("duration", summary.Duration),
	)

	if len(codes) > 0 && summary.AgencyFailures == len(codes) {
		err := eris.New("pipeline: every agency failed this cycle")
		if p.notifier != nil {
			p.notifier.NotifyError(ctx, err)
		}
		return summary, err
	}
	return summary, nil
}

// collect gathers candidate items for one agency via its declared method.
func (p *Pipeline) collect(ctx context.Context, agency model.Agency) ([]model.Item, error) {
	switch agency.Method {
	case model.MethodRSS:
		return p.feeds.Fetch(ctx, agency)
	case model.MethodScraper:
		if p.FixedCutoff != nil {
			return p.scraper.FetchList(ctx, agency, *p.FixedCutoff, p.MaxPages)
		}
		last, err := p.store.LastPublishedAt(ctx, agency.Code)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: last published for %s", agency.Code)
		}
		cutoff := p.scraper.Cutoff(last)
		return p.scraper.FetchList(ctx, agency, cutoff, p.MaxPages)
	default:
		return nil, eris.Errorf("pipeline: agency %s: unknown method %q", agency.Code, agency.Method)
	}
}

// processItem carries one collected item through dedup, content fetch,
// analysis, persistence, and notification.
func (p *Pipeline) processItem(ctx context.Context, agency model.Agency, item model.Item, summary *CycleSummary) {
	if !titleAllowed(agency, item.Title) {
		return
	}

	exists, err := p.store.ExistsByLink(ctx, item.Link)
	if err != nil {
		// Fail closed: an unreadable store must not cause duplicate
		// collection, so the item is left for the next cycle.
		summary.ItemFailures++
		zap.L().Error("dedup check failed, leaving item for next cycle",
			zap.String("link", item.Link),
			zap.Error(err),
		)
		return
	}
	if exists {
		summary.Duplicates++
		return
	}

	content := p.fetchContent(ctx, agency, item)
	article := model.NewArticle(item, content)
	article.Analysis = p.analyzer.Process(ctx, article, agency.Name)

	inserted, err := p.store.InsertArticle(ctx, article)
	if err != nil {
		summary.ItemFailures++
		zap.L().Error("article insert failed",
			zap.String("link", item.Link),
			zap.Error(err),
		)
		return
	}
	if !inserted {
		// Lost a race with a concurrent cycle; the link constraint held.
		summary.Duplicates++
		return
	}
	summary.Inserted++

	switch article.Analysis.Status {
	case model.StatusAnalyzed:
		summary.Analyzed++
		if p.notifier != nil {
			p.notifier.NotifyArticle(ctx, article)
		}
	case model.StatusSkipped:
		summary.Skipped++
	default:
		summary.Failed++
	}
}

// fetchContent retrieves the article body. Scraped agencies get the detail
// page; when that fails, or for feed agencies, the title and description
// stand in so analysis still has something to work with.
func (p *Pipeline) fetchContent(ctx context.Context, agency model.Agency, item model.Item) string {
	if agency.Method == model.MethodScraper {
		content, err := p.scraper.FetchDetail(ctx, agency, item.Link)
		if err == nil {
			return content
		}
		zap.L().Warn("detail fetch failed, falling back to title",
			zap.String("link", item.Link),
			zap.Error(err),
		)
	}
	if item.Description != "" {
		return item.Title + "\n\n" + item.Description
	}
	return item.Title
}

// titleAllowed applies the agency's include/exclude title filters.
func titleAllowed(agency model.Agency, title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range agency.Exclude {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	if len(agency.Include) == 0 {
		return true
	}
	for _, kw := range agency.Include {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
