package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbzodiac84/regpulse/internal/config"
	"github.com/orbzodiac84/regpulse/internal/model"
)

func testScraperConfig() config.ScraperConfig {
	return config.ScraperConfig{
		UserAgent:       "test-agent",
		TimeoutSecs:     5,
		MaxPages:        15,
		MinContentChars: 200,
		LookbackDays:    7,
		OverlapHours:    24,
	}
}

func newTestScraper(t *testing.T, cfg config.ScraperConfig) *Scraper {
	t.Helper()
	s := NewScraper(cfg, nil)
	s.sleep = func(time.Duration) {}
	return s
}

func testAgency(baseURL string) model.Agency {
	return model.Agency{
		Code:       "fsc",
		Name:       "Financial Services Commission",
		Method:     model.MethodScraper,
		URL:        baseURL,
		Pagination: model.PaginationCurPage,
		Selectors: model.Selectors{
			List:      "ul.board li",
			Title:     "a.subject",
			Date:      "span.day",
			Container: "div.view",
			Remove:    []string{"div.attach"},
		},
		Category: "policy",
	}
}

func listingRow(title, href, date string) string {
	return fmt.Sprintf(`<li><a class="subject" href=%q>%s</a><span class="day">%s</span></li>`, href, title, date)
}

func listingPage(rows ...string) string {
	return `<html><body><ul class="board">` + strings.Join(rows, "") + `</ul></body></html>`
}

func TestCutoff_OverlapWins(t *testing.T) {
	s := newTestScraper(t, testScraperConfig())
	now := time.Date(2025, 12, 24, 12, 0, 0, 0, model.KST)
	s.now = func() time.Time { return now }

	last := time.Date(2025, 12, 23, 9, 0, 0, 0, model.KST)
	got := s.Cutoff(&last)
	assert.Equal(t, last.Add(-24*time.Hour), got)
}

func TestCutoff_LookbackFloor(t *testing.T) {
	s := newTestScraper(t, testScraperConfig())
	now := time.Date(2025, 12, 24, 12, 0, 0, 0, model.KST)
	s.now = func() time.Time { return now }

	// Newest stored article is a month old: the floor applies.
	last := now.AddDate(0, -1, 0)
	got := s.Cutoff(&last)
	assert.Equal(t, now.AddDate(0, 0, -7), got)
}

func TestCutoff_NoHistory(t *testing.T) {
	s := newTestScraper(t, testScraperConfig())
	now := time.Date(2025, 12, 24, 12, 0, 0, 0, model.KST)
	s.now = func() time.Time { return now }

	got := s.Cutoff(nil)
	assert.Equal(t, now.AddDate(0, 0, -7), got)
}

func TestFetchList_CollectsNewItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		if r.URL.Query().Get("curPage") != "1" {
			fmt.Fprint(w, listingPage())
			return
		}
		fmt.Fprint(w, listingPage(
			listingRow("Capital rules revised", "/view/1", "2025.12.24"),
			listingRow("Quarterly stability report", "/view/2", "등록일2025.12.23"),
		))
	}))
	defer srv.Close()

	s := newTestScraper(t, testScraperConfig())
	agency := testAgency(srv.URL)
	cutoff := time.Date(2025, 12, 20, 0, 0, 0, 0, model.KST)

	items, err := s.FetchList(context.Background(), agency, cutoff, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Capital rules revised", items[0].Title)
	assert.Equal(t, srv.URL+"/view/1", items[0].Link)
	assert.Equal(t, time.Date(2025, 12, 24, 0, 0, 0, 0, model.KST), items[0].PublishedAt)
	assert.Equal(t, "fsc", items[0].Agency)
	assert.Equal(t, "policy", items[0].Category)

	assert.Equal(t, time.Date(2025, 12, 23, 0, 0, 0, 0, model.KST), items[1].PublishedAt)
}

func TestFetchList_StopsAtCutoff(t *testing.T) {
	var pagesServed int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		fmt.Fprint(w, listingPage(
			listingRow("Recent release", "/view/new", "2025.12.24"),
			listingRow("Stale release", "/view/old", "2025.11.01"),
		))
	}))
	defer srv.Close()

	s := newTestScraper(t, testScraperConfig())
	cutoff := time.Date(2025, 12, 20, 0, 0, 0, 0, model.KST)

	items, err := s.FetchList(context.Background(), testAgency(srv.URL), cutoff, 0)
	require.NoError(t, err)

	// The page with the stale row is finished, then paging stops.
	assert.Equal(t, 1, pagesServed)
	require.Len(t, items, 1)
	assert.Equal(t, "Recent release", items[0].Title)
}

func TestFetchList_ForceCollectIgnoresCutoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("curPage") != "1" {
			fmt.Fprint(w, listingPage())
			return
		}
		fmt.Fprint(w, listingPage(
			listingRow("Recent release", "/view/new", "2025.12.24"),
			listingRow("Stale release", "/view/old", "2025.11.01"),
		))
	}))
	defer srv.Close()

	s := newTestScraper(t, testScraperConfig())
	agency := testAgency(srv.URL)
	agency.ForceCollect = true
	cutoff := time.Date(2025, 12, 20, 0, 0, 0, 0, model.KST)

	items, err := s.FetchList(context.Background(), agency, cutoff, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFetchList_StopsAtMaxPages(t *testing.T) {
	var pagesServed int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		// Every page is full of fresh items; only maxPages should stop us.
		fmt.Fprint(w, listingPage(
			listingRow("Release", "/view/"+r.URL.Query().Get("curPage"), "2025.12.24"),
		))
	}))
	defer srv.Close()

	s := newTestScraper(t, testScraperConfig())
	cutoff := time.Date(2025, 12, 1, 0, 0, 0, 0, model.KST)

	items, err := s.FetchList(context.Background(), testAgency(srv.URL), cutoff, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, pagesServed)
	assert.Len(t, items, 3)
}

func TestFetchList_StopsOnEmptyPage(t *testing.T) {
	var pagesServed int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		if r.URL.Query().Get("curPage") == "1" {
			fmt.Fprint(w, listingPage(listingRow("Only release", "/view/1", "2025.12.24")))
			return
		}
		fmt.Fprint(w, listingPage())
	}))
	defer srv.Close()

	s := newTestScraper(t, testScraperConfig())
	cutoff := time.Date(2025, 12, 1, 0, 0, 0, 0, model.KST)

	items, err := s.FetchList(context.Background(), testAgency(srv.URL), cutoff, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, pagesServed)
	assert.Len(t, items, 1)
}

func TestFetchList_UnparseableDateFallsBackToNow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("curPage") != "1" {
			fmt.Fprint(w, listingPage())
			return
		}
		fmt.Fprint(w, listingPage(listingRow("Dateless release", "/view/1", "조회수 99")))
	}))
	defer srv.Close()

	s := newTestScraper(t, testScraperConfig())
	now := time.Date(2025, 12, 24, 15, 30, 0, 0, model.KST)
	s.now = func() time.Time { return now }
	cutoff := time.Date(2025, 12, 20, 0, 0, 0, 0, model.KST)

	items, err := s.FetchList(context.Background(), testAgency(srv.URL), cutoff, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, now, items[0].PublishedAt)
	assert.Equal(t, "조회수 99", items[0].RawDate)
}

func TestFetchList_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestScraper(t, testScraperConfig())
	_, err := s.FetchList(context.Background(), testAgency(srv.URL), time.Now(), 0)
	assert.Error(t, err)
}

func TestFetchDetail_ExtractsContainerText(t *testing.T) {
	body := strings.Repeat("금융위원회는 오늘 자본시장 규제 개편안을 발표하였다. ", 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<div class="view">
				<p>%s</p>
				<div class="attach">첨부파일 목록</div>
			</div>
		</body></html>`, body)
	}))
	defer srv.Close()

	s := newTestScraper(t, testScraperConfig())
	got, err := s.FetchDetail(context.Background(), testAgency(srv.URL), srv.URL+"/view/1")
	require.NoError(t, err)

	assert.False(t, strings.HasPrefix(got, ShortContentSentinel))
	assert.Contains(t, got, "자본시장 규제 개편안")
	assert.NotContains(t, got, "첨부파일", "removed selectors should be stripped")
}

func TestFetchDetail_ShortContentSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="view">붙임 참조</div></body></html>`)
	}))
	defer srv.Close()

	s := newTestScraper(t, testScraperConfig())
	got, err := s.FetchDetail(context.Background(), testAgency(srv.URL), srv.URL+"/view/1")
	require.NoError(t, err)
	assert.Equal(t, ShortContentSentinel+"붙임 참조", got)
}

func TestFetchDetail_MissingContainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="other">nothing here</div></body></html>`)
	}))
	defer srv.Close()

	s := newTestScraper(t, testScraperConfig())
	_, err := s.FetchDetail(context.Background(), testAgency(srv.URL), srv.URL+"/view/1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "container")
}

func TestFetchDetail_NoContainerSelectorConfigured(t *testing.T) {
	s := newTestScraper(t, testScraperConfig())
	agency := testAgency("https://example.com")
	agency.Selectors.Container = ""

	_, err := s.FetchDetail(context.Background(), agency, "https://example.com/view/1")
	assert.Error(t, err)
}
