package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbzodiac84/regpulse/internal/model"
)

func TestParseListingDate_DotFormat(t *testing.T) {
	got, ok := ParseListingDate("2025.12.24")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 12, 24, 0, 0, 0, 0, model.KST), got)
}

func TestParseListingDate_DashFormat(t *testing.T) {
	got, ok := ParseListingDate("2025-03-01")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, model.KST), got)
}

func TestParseListingDate_LabelPrefix(t *testing.T) {
	// Listing cells often glue a label onto the date with no separator.
	got, ok := ParseListingDate("등록일2025.12.24")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 12, 24, 0, 0, 0, 0, model.KST), got)
}

func TestParseListingDate_SurroundingText(t *testing.T) {
	got, ok := ParseListingDate("  담당부서 | 2024-07-15 | 조회수 132 ")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 7, 15, 0, 0, 0, 0, model.KST), got)
}

func TestParseListingDate_NoMatch(t *testing.T) {
	for _, text := range []string{"", "조회수 132", "25.12.24", "2025/12/24"} {
		_, ok := ParseListingDate(text)
		assert.False(t, ok, "text %q should not parse", text)
	}
}

func TestParseListingDate_ImpossibleDate(t *testing.T) {
	_, ok := ParseListingDate("2025.13.45")
	assert.False(t, ok)
}
