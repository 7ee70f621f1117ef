// Package model defines the core domain types shared across the pipeline:
// agencies, collected items, analysis results, and persisted articles.
package model

import (
	"time"

	"github.com/google/uuid"
)

// KST is the fixed timezone all publication dates are normalized to.
// Regulator sites publish dates without offsets; they are always local.
var KST = time.FixedZone("KST", 9*60*60)

// CollectionMethod selects how an agency's releases are collected.
type CollectionMethod string

const (
	MethodRSS     CollectionMethod = "rss"
	MethodScraper CollectionMethod = "scraper"
)

// PaginationStrategy names the query-parameter scheme a listing page uses.
// Each scraped agency declares its strategy explicitly in the registry.
type PaginationStrategy string

const (
	PaginationNone      PaginationStrategy = ""
	PaginationCurPage   PaginationStrategy = "curpage"
	PaginationPageIndex PaginationStrategy = "pageindex"
)

// Selectors holds the CSS selectors used to parse a scraped agency's pages.
type Selectors struct {
	// List matches one row per release on a listing page.
	List string `yaml:"list" json:"list"`
	// Title matches the anchor carrying the title and detail link, within a row.
	Title string `yaml:"title" json:"title"`
	// Date matches the publication-date cell within a row.
	Date string `yaml:"date" json:"date"`
	// Container matches the body of a detail page.
	Container string `yaml:"container" json:"container"`
	// Remove lists selectors stripped from the container before text extraction.
	Remove []string `yaml:"remove" json:"remove,omitempty"`
}

// Agency describes one source of press releases.
type Agency struct {
	Code         string             `yaml:"code" json:"code"`
	Name         string             `yaml:"name" json:"name"`
	Method       CollectionMethod   `yaml:"method" json:"method"`
	URL          string             `yaml:"url" json:"url"`
	BaseParams   map[string]string  `yaml:"base_params" json:"base_params,omitempty"`
	Pagination   PaginationStrategy `yaml:"pagination" json:"pagination,omitempty"`
	Selectors    Selectors          `yaml:"selectors" json:"selectors"`
	Category     string             `yaml:"category" json:"category,omitempty"`
	ForceCollect bool               `yaml:"force_collect" json:"force_collect,omitempty"`
	Include      []string           `yaml:"include" json:"include,omitempty"`
	Exclude      []string           `yaml:"exclude" json:"exclude,omitempty"`
}

// Item is a single collected release before analysis and persistence.
type Item struct {
	Agency      string    `json:"agency"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	// RawDate preserves the source's original date text when the parsed
	// timestamp is a fallback rather than an actual publication time.
	RawDate string `json:"raw_date,omitempty"`
}

// FilterStatus records the outcome of the relevance-filter call.
type FilterStatus string

const (
	FilterOK    FilterStatus = "OK"
	FilterError FilterStatus = "ERROR"
)

// AnalysisStatus records the terminal state of the two-tier analysis.
type AnalysisStatus string

const (
	StatusAnalyzed       AnalysisStatus = "ANALYZED"
	StatusSkipped        AnalysisStatus = "SKIPPED"
	StatusAnalysisFailed AnalysisStatus = "ANALYSIS_FAILED"
)

// RiskLevel is the deep-analysis severity verdict.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// RiskTags is the closed risk taxonomy the analyst must choose from.
var RiskTags = []string{"credit", "market", "operational", "liquidity", "rate", "other"}

// Pillars is the closed business-impact taxonomy.
var Pillars = []string{"loan", "deposit", "compliance", "capital"}

// ValidRiskTag reports whether tag belongs to the risk taxonomy.
func ValidRiskTag(tag string) bool {
	for _, t := range RiskTags {
		if t == tag {
			return true
		}
	}
	return false
}

// ValidPillar reports whether p belongs to the pillar taxonomy.
func ValidPillar(p string) bool {
	for _, t := range Pillars {
		if t == p {
			return true
		}
	}
	return false
}

// AnalysisResult carries the outcome of both analysis tiers. The deep-analysis
// fields are only populated when Status is ANALYZED.
type AnalysisResult struct {
	IsRelevant      bool           `json:"is_relevant"`
	ImportanceScore int            `json:"importance_score"`
	FilterStatus    FilterStatus   `json:"filter_status"`
	Status          AnalysisStatus `json:"status"`

	RiskLevel      RiskLevel `json:"risk_level,omitempty"`
	RiskScore      int       `json:"risk_score,omitempty"`
	RiskTags       []string  `json:"risk_tags,omitempty"`
	Pillars        []string  `json:"pillars,omitempty"`
	Summary        []string  `json:"summary,omitempty"`
	ImpactAnalysis string    `json:"impact_analysis,omitempty"`
	ActionItems    []string  `json:"action_items,omitempty"`
	AnalyzedBy     string    `json:"analyzed_by,omitempty"`
}

// Article is a persisted release with its analysis.
type Article struct {
	ID          string    `json:"id"`
	Agency      string    `json:"agency"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	// Description is the feed/listing teaser, kept for the cheap analysis
	// tier; the full body lives in Content.
	Description string          `json:"description,omitempty"`
	Content     string          `json:"content,omitempty"`
	Category    string          `json:"category,omitempty"`
	Analysis    *AnalysisResult `json:"analysis,omitempty"`
}

// NewArticle builds an Article from a collected item with a fresh ID.
func NewArticle(item Item, content string) *Article {
	return &Article{
		ID:          uuid.NewString(),
		Agency:      item.Agency,
		Title:       item.Title,
		Link:        item.Link,
		PublishedAt: item.PublishedAt,
		CreatedAt:   time.Now().In(KST),
		Description: item.Description,
		Content:     content,
		Category:    item.Category,
	}
}
