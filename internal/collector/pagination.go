package collector

import (
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/orbzodiac84/regpulse/internal/model"
)

// BuildPageURL builds the listing URL for a given 1-based page using the
// agency's declared pagination strategy and base query parameters.
func BuildPageURL(agency model.Agency, page int) (string, error) {
	parsed, err := url.Parse(agency.URL)
	if err != nil {
		return "", eris.Wrapf(err, "collector: agency %s: invalid url", agency.Code)
	}

	query := parsed.Query()
	for k, v := range agency.BaseParams {
		query.Set(k, v)
	}

	switch agency.Pagination {
	case model.PaginationNone:
		if page > 1 {
			return "", eris.Errorf("collector: agency %s: has no pagination, page %d requested", agency.Code, page)
		}
	case model.PaginationCurPage:
		query.Set("curPage", strconv.Itoa(page))
	case model.PaginationPageIndex:
		query.Set("pageIndex", strconv.Itoa(page))
	default:
		return "", eris.Errorf("collector: agency %s: unknown pagination strategy %q", agency.Code, agency.Pagination)
	}

	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
