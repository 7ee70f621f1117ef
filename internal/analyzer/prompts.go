package analyzer

import (
	"fmt"
	"strings"

	"github.com/orbzodiac84/regpulse/internal/model"
)

// maxContentRunes caps the article body sent to the model. Regulator
// releases longer than this are boilerplate-heavy; the lede carries the signal.
const maxContentRunes = 3000

// maxDescriptionRunes caps the body excerpt standing in for a missing teaser
// on the cheap tier.
const maxDescriptionRunes = 200

// gatekeeperPrompt asks the cheap filter model for a relevance verdict and
// an importance score. It sees the teaser only, never the full body.
func gatekeeperPrompt(title, description, agencyName string) string {
	return fmt.Sprintf(`You are a relevance filter for a bank's regulatory monitoring system.
Given a press release from a Korean financial regulator, decide whether it is
relevant to the operations, compliance, or risk posture of a retail bank.

Respond with JSON only, in this exact shape:
{"is_relevant": true|false, "importance_score": 1-5}

Scoring guide:
5 = immediate action required (sanctions, rule changes in force, rate decisions)
4 = significant policy or supervision change
3 = notable industry development worth tracking
2 = routine announcement with minor relevance
1 = irrelevant (personnel notices, event photos, procurement)

Agency: %s
Title: %s

Description:
%s`, agencyName, title, description)
}

// analystPrompt asks the deep-analysis model for the full risk assessment.
func analystPrompt(title, content, agencyName string) string {
	return fmt.Sprintf(`You are a senior risk analyst at a retail bank reviewing a press release
from a Korean financial regulator. Produce a structured risk assessment.

Respond with JSON only, in this exact shape:
{
  "risk_level": "HIGH"|"MEDIUM"|"LOW",
  "risk_score": 1-5,
  "risk_tags": [...],
  "pillars": [...],
  "summary": ["key point", ...],
  "impact_analysis": "how this affects the bank's operations",
  "action_items": ["concrete follow-up", ...]
}

risk_tags must be chosen only from: %s
pillars must be chosen only from: %s

Agency: %s
Title: %s

Content:
%s`,
		strings.Join(model.RiskTags, ", "),
		strings.Join(model.Pillars, ", "),
		agencyName,
		title,
		truncateRunes(content, maxContentRunes))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// stripFences removes a markdown code fence the model sometimes wraps
// around its JSON despite the response MIME type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
