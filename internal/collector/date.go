package collector

import (
	"regexp"
	"strings"
	"time"

	"github.com/orbzodiac84/regpulse/internal/model"
)

// dateExpr matches the date formats Korean regulator sites use
// (2025.12.24 or 2025-12-24), anywhere in the cell text. Listing cells
// often carry label prefixes ("등록일2025.12.24") with no separator.
var dateExpr = regexp.MustCompile(`\d{4}[.-]\d{2}[.-]\d{2}`)

// ParseListingDate extracts a publication date from a listing cell's text.
// The result is midnight in KST; listing pages carry no time of day.
// Returns false when no date is present in the text.
func ParseListingDate(text string) (time.Time, bool) {
	match := dateExpr.FindString(text)
	if match == "" {
		return time.Time{}, false
	}

	normalized := strings.ReplaceAll(match, "-", ".")
	parsed, err := time.ParseInLocation("2006.01.02", normalized, model.KST)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
