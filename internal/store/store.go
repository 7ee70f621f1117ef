// Package store persists collected articles and their analyses.
package store

import (
	"context"
	"time"

	"github.com/orbzodiac84/regpulse/internal/model"
)

// ArticleFilter specifies criteria for listing articles.
type ArticleFilter struct {
	Agency        string               `json:"agency,omitempty"`
	Status        model.AnalysisStatus `json:"status,omitempty"`
	MinImportance int                  `json:"min_importance,omitempty"`
	Limit         int                  `json:"limit,omitempty"`
	Offset        int                  `json:"offset,omitempty"`
}

// AgencyStat summarizes the stored articles for one agency.
type AgencyStat struct {
	Agency          string     `json:"agency"`
	Total           int        `json:"total"`
	Analyzed        int        `json:"analyzed"`
	LastPublishedAt *time.Time `json:"last_published_at,omitempty"`
}

// Store defines the persistence interface for the collection pipeline.
type Store interface {
	// InsertArticle stores an article. It reports false without error when
	// an article with the same link already exists.
	InsertArticle(ctx context.Context, article *model.Article) (bool, error)
	// ExistsByLink reports whether an article with this link is stored.
	ExistsByLink(ctx context.Context, link string) (bool, error)
	// LastPublishedAt returns the newest publication time stored for the
	// agency, or nil when the agency has no articles yet.
	LastPublishedAt(ctx context.Context, agency string) (*time.Time, error)
	UpdateAnalysis(ctx context.Context, articleID string, analysis *model.AnalysisResult) error
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]model.Article, error)
	AgencyStats(ctx context.Context) ([]AgencyStat, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
