package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbzodiac84/regpulse/internal/model"
)

func TestReanalyzeFilter(t *testing.T) {
	filter := reanalyzeFilter("ANALYSIS_FAILED", 25)

	assert.Equal(t, model.StatusAnalysisFailed, filter.Status)
	assert.Equal(t, 25, filter.Limit)

	filter = reanalyzeFilter(string(model.StatusSkipped), 0)
	assert.Equal(t, model.StatusSkipped, filter.Status)
	assert.Zero(t, filter.Limit)
}
