package collector

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/orbzodiac84/regpulse/internal/config"
	"github.com/orbzodiac84/regpulse/internal/model"
	"github.com/orbzodiac84/regpulse/internal/resilience"
)

// ShortContentSentinel prefixes detail text that came back suspiciously
// short, so the analyst knows the body may be a stub or attachment-only page.
const ShortContentSentinel = "[SHORT_CONTENT] "

// Scraper collects press releases from agencies that publish only HTML
// listing pages.
type Scraper struct {
	client *http.Client
	cfg    config.ScraperConfig

	// sleep and now are injectable for tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewScraper builds a scraper. A nil client gets a default with the
// configured timeout.
func NewScraper(cfg config.ScraperConfig, client *http.Client) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	return &Scraper{
		client: client,
		cfg:    cfg,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// Cutoff computes the oldest publication date worth collecting: one overlap
// window before the newest stored article, floored at the lookback horizon.
// The overlap re-covers items the previous cycle may have seen mid-update.
func (s *Scraper) Cutoff(lastPublished *time.Time) time.Time {
	floor := s.now().In(model.KST).AddDate(0, 0, -s.cfg.LookbackDays)
	if lastPublished == nil {
		return floor
	}
	overlap := lastPublished.In(model.KST).Add(-time.Duration(s.cfg.OverlapHours) * time.Hour)
	if overlap.After(floor) {
		return overlap
	}
	return floor
}

// FetchList walks the agency's listing pages newest-first and returns items
// published at or after cutoff. Paging stops at the first empty page, when a
// page crosses the cutoff (that page is still finished), or at maxPages.
// ForceCollect agencies ignore the cutoff entirely.
func (s *Scraper) FetchList(ctx context.Context, agency model.Agency, cutoff time.Time, maxPages int) ([]model.Item, error) {
	if maxPages <= 0 {
		maxPages = s.cfg.MaxPages
	}

	var items []model.Item
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		s.politeDelay()

		pageURL, err := BuildPageURL(agency, page)
		if err != nil {
			return items, err
		}

		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			return items, eris.Wrapf(err, "collector: agency %s: page %d", agency.Code, page)
		}

		pageItems, crossed := s.parseListing(doc, agency, pageURL, cutoff)
		items = append(items, pageItems...)

		if len(pageItems) == 0 && !crossed {
			zap.L().Debug("empty listing page, stopping",
				zap.String("agency", agency.Code),
				zap.Int("page", page),
			)
			break
		}
		if crossed && !agency.ForceCollect {
			break
		}
		if agency.Pagination == model.PaginationNone {
			break
		}
	}

	zap.L().Info("listing collected",
		zap.String("agency", agency.Code),
		zap.Int("items", len(items)),
	)
	return items, nil
}

// parseListing extracts items from one listing page. crossed reports whether
// any row on the page predates the cutoff; the caller finishes this page and
// stops paging. Rows older than the cutoff are dropped unless the agency is
// marked ForceCollect.
func (s *Scraper) parseListing(doc *goquery.Document, agency model.Agency, pageURL string, cutoff time.Time) ([]model.Item, bool) {
	var items []model.Item
	crossed := false

	doc.Find(agency.Selectors.List).Each(func(_ int, row *goquery.Selection) {
		anchor := row.Find(agency.Selectors.Title).First()
		title := strings.TrimSpace(anchor.Text())
		href, ok := anchor.Attr("href")
		if title == "" || !ok || href == "" {
			return
		}

		link, err := resolveLink(pageURL, href)
		if err != nil {
			zap.L().Warn("skipping row with unparseable link",
				zap.String("agency", agency.Code),
				zap.String("href", href),
			)
			return
		}

		dateText := strings.TrimSpace(row.Find(agency.Selectors.Date).First().Text())
		publishedAt, found := ParseListingDate(dateText)
		rawDate := ""
		if !found {
			publishedAt = s.now().In(model.KST)
			rawDate = dateText
		}

		if found && publishedAt.Before(cutoff) {
			crossed = true
			if !agency.ForceCollect {
				return
			}
		}

		items = append(items, model.Item{
			Agency:      agency.Code,
			Title:       title,
			Link:        link,
			PublishedAt: publishedAt,
			Category:    agency.Category,
			RawDate:     rawDate,
		})
	})

	return items, crossed
}

// FetchDetail retrieves a release's detail page and extracts its body text.
// Bodies shorter than the configured minimum are returned with the short
// content sentinel prefixed rather than discarded.
func (s *Scraper) FetchDetail(ctx context.Context, agency model.Agency, link string) (string, error) {
	if agency.Selectors.Container == "" {
		return "", eris.Errorf("collector: agency %s: no container selector configured", agency.Code)
	}
	s.politeDelay()

	doc, err := s.fetchDocument(ctx, link)
	if err != nil {
		return "", eris.Wrapf(err, "collector: agency %s: detail %s", agency.Code, link)
	}

	container := doc.Find(agency.Selectors.Container).First()
	if container.Length() == 0 {
		return "", eris.Errorf("collector: agency %s: container %q not found on %s", agency.Code, agency.Selectors.Container, link)
	}

	for _, sel := range agency.Selectors.Remove {
		container.Find(sel).Remove()
	}

	text := collapseWhitespace(container.Text())
	if len([]rune(text)) < s.cfg.MinContentChars {
		text = ShortContentSentinel + text
	}
	return text, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "request document")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("server returned %s", resp.Status)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "parse document")
	}
	return doc, nil
}

// politeDelay sleeps a random duration within the configured window before
// each request, so collection does not hammer government sites.
func (s *Scraper) politeDelay() {
	min := s.cfg.DelayMinSecs
	max := s.cfg.DelayMaxSecs
	if max <= 0 || max < min {
		return
	}
	secs := min + rand.Float64()*(max-min)
	s.sleep(time.Duration(secs * float64(time.Second)))
}

func resolveLink(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
