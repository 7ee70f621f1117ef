package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbzodiac84/regpulse/internal/model"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agencies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeRegistry(t, `
agencies:
  - code: fsc
    name: Financial Services Commission
    method: scraper
    url: https://www.fsc.go.kr/no010101
    pagination: curpage
    selectors:
      list: "div.board-list-wrap ul li"
      title: "div.subject a"
      date: "div.day"
      container: "div.board-view-wrap"
      remove: ["script", "style"]
  - code: bok
    name: Bank of Korea
    method: rss
    url: https://www.bok.or.kr/portal/bbs/B0000338/news.rss
    category: monetary
`)

	agencies, err := Load(path)
	require.NoError(t, err)
	require.Len(t, agencies, 2)

	fsc := agencies["fsc"]
	assert.Equal(t, model.MethodScraper, fsc.Method)
	assert.Equal(t, model.PaginationCurPage, fsc.Pagination)
	assert.Equal(t, "div.board-list-wrap ul li", fsc.Selectors.List)
	assert.Equal(t, []string{"script", "style"}, fsc.Selectors.Remove)

	bok := agencies["bok"]
	assert.Equal(t, model.MethodRSS, bok.Method)
	assert.Equal(t, "monetary", bok.Category)
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyRegistry(t *testing.T) {
	path := writeRegistry(t, "agencies: []\n")
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no agencies")
}

func TestLoad_DuplicateCode(t *testing.T) {
	path := writeRegistry(t, `
agencies:
  - code: bok
    name: Bank of Korea
    method: rss
    url: https://example.com/a.rss
  - code: bok
    name: Bank of Korea again
    method: rss
    url: https://example.com/b.rss
`)
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate agency code")
}

func TestLoad_ScraperMissingSelectors(t *testing.T) {
	path := writeRegistry(t, `
agencies:
  - code: moef
    name: Ministry of Economy and Finance
    method: scraper
    url: https://www.moef.go.kr/nw/nes/nesdta.do
`)
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "selectors.list is required")
}

func TestLoad_UnknownPagination(t *testing.T) {
	path := writeRegistry(t, `
agencies:
  - code: fss
    name: Financial Supervisory Service
    method: scraper
    url: https://www.fss.or.kr/fss/bbs/B0000188/list.do
    pagination: offset
    selectors:
      list: "table tbody tr"
      title: "td.title a"
`)
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pagination strategy")
}

func TestLoad_UnknownMethod(t *testing.T) {
	path := writeRegistry(t, `
agencies:
  - code: fsc
    name: Financial Services Commission
    method: graphql
    url: https://example.com
`)
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown collection method")
}
