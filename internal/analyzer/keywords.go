package analyzer

import (
	"strings"

	"github.com/orbzodiac84/regpulse/internal/config"
)

// keywordFloor is the minimum importance the model cannot undercut when a
// keyword matched. The safeguard only ever raises scores.
type keywordFloor struct {
	// forced marks a high-keyword hit: the item is relevant regardless of
	// the model's verdict, at maximum importance.
	forced   bool
	minScore int
}

// scanKeywords checks the title against the configured keyword lists.
// High keywords force relevance at score 5; medium keywords set a floor of 4.
func scanKeywords(cfg config.AnalyzerConfig, title string) keywordFloor {
	lower := strings.ToLower(title)

	for _, kw := range cfg.HighKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return keywordFloor{forced: true, minScore: 5}
		}
	}
	for _, kw := range cfg.MediumKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return keywordFloor{minScore: 4}
		}
	}
	return keywordFloor{}
}
