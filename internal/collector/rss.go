package collector

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/orbzodiac84/regpulse/internal/model"
	"github.com/orbzodiac84/regpulse/internal/resilience"
)

// RSSCollector fetches press releases from an agency's feed.
type RSSCollector struct {
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
}

// NewRSSCollector builds an RSS collector. A nil client gets a default with
// a 20s timeout.
func NewRSSCollector(client *http.Client, userAgent string) *RSSCollector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSCollector{
		client:    client,
		parser:    gofeed.NewParser(),
		userAgent: userAgent,
	}
}

// Fetch retrieves and parses the agency's feed. Items without a parseable
// publication date fall back to the current time and keep the raw date text
// so the original value is not lost.
func (c *RSSCollector) Fetch(ctx context.Context, agency model.Agency) ([]model.Item, error) {
	if agency.Method != model.MethodRSS {
		zap.L().Debug("skipping non-rss agency", zap.String("agency", agency.Code))
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agency.URL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "collector: agency %s: build feed request", agency.Code)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "collector: agency %s: fetch feed", agency.Code)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("collector: agency %s: feed returned %s", agency.Code, resp.Status)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "collector: agency %s: parse feed", agency.Code)
	}

	items := make([]model.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Link == "" {
			continue
		}

		var publishedAt time.Time
		var rawDate string
		switch {
		case entry.PublishedParsed != nil:
			publishedAt = entry.PublishedParsed.In(model.KST)
		case entry.UpdatedParsed != nil:
			publishedAt = entry.UpdatedParsed.In(model.KST)
		default:
			publishedAt = time.Now().In(model.KST)
			rawDate = entry.Published
			zap.L().Debug("feed item has no parseable date, using now",
				zap.String("agency", agency.Code),
				zap.String("link", entry.Link),
				zap.String("raw_date", rawDate),
			)
		}

		items = append(items, model.Item{
			Agency:      agency.Code,
			Title:       strings.TrimSpace(entry.Title),
			Link:        entry.Link,
			PublishedAt: publishedAt,
			Description: strings.TrimSpace(entry.Description),
			Category:    agency.Category,
			RawDate:     rawDate,
		})
	}

	zap.L().Info("feed fetched",
		zap.String("agency", agency.Code),
		zap.Int("items", len(items)),
	)
	return items, nil
}
