package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbzodiac84/regpulse/internal/model"
)

func analyzedArticle() *model.Article {
	return &model.Article{
		ID:     "art-1",
		Agency: "fsc",
		Title:  "Capital rules revised",
		Link:   "https://fsc.go.kr/view/1",
		Analysis: &model.AnalysisResult{
			IsRelevant:      true,
			ImportanceScore: 4,
			FilterStatus:    model.FilterOK,
			Status:          model.StatusAnalyzed,
			RiskLevel:       model.RiskHigh,
			RiskScore:       4,
			RiskTags:        []string{"credit", "market"},
			Pillars:         []string{"loan"},
			Summary:         []string{"Capital requirements tightened for mid-size lenders.", "Transition period of six months."},
			ImpactAnalysis:  "Loan book capital buffers must be reviewed.",
			ActionItems:     []string{"Review capital plan", "Brief risk committee"},
		},
	}
}

func TestNotifyArticle_SendsMessage(t *testing.T) {
	var received sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer srv.Close()

	n := New("test-token", "chat-42", WithBaseURL(srv.URL))
	n.NotifyArticle(context.Background(), analyzedArticle())

	assert.Equal(t, "chat-42", received.ChatID)
	assert.Equal(t, "Markdown", received.ParseMode)
	assert.Contains(t, received.Text, "🚨")
	assert.Contains(t, received.Text, "[FSC] Capital rules revised")
	assert.Contains(t, received.Text, "Risk: HIGH (4/5)")
	assert.Contains(t, received.Text, "credit, market")
	assert.Contains(t, received.Text, "• Capital requirements tightened for mid-size lenders.")
	assert.Contains(t, received.Text, "• Transition period of six months.")
	assert.Contains(t, received.Text, "Review capital plan")
	assert.Contains(t, received.Text, "https://fsc.go.kr/view/1")
}

func TestNotifyArticle_DisabledWithoutCredentials(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer srv.Close()

	n := New("", "", WithBaseURL(srv.URL))
	assert.False(t, n.Enabled())
	n.NotifyArticle(context.Background(), analyzedArticle())
	assert.Equal(t, 0, calls)
}

func TestNotifyArticle_APIFailureDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok": false, "description": "chat not found"}`)
	}))
	defer srv.Close()

	n := New("test-token", "bad-chat", WithBaseURL(srv.URL))
	// Must not panic or propagate; the failure is logged.
	n.NotifyArticle(context.Background(), analyzedArticle())
}

func TestNotifyArticle_NilAnalysisIgnored(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer srv.Close()

	n := New("test-token", "chat-42", WithBaseURL(srv.URL))
	n.NotifyArticle(context.Background(), &model.Article{ID: "no-analysis"})
	assert.Equal(t, 0, calls)
}

func TestNotifyError_SendsAlert(t *testing.T) {
	var received sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer srv.Close()

	n := New("test-token", "chat-42", WithBaseURL(srv.URL))
	n.NotifyError(context.Background(), assert.AnError)

	assert.Contains(t, received.Text, "Collection cycle failed")
	assert.Contains(t, received.Text, assert.AnError.Error())
}

func TestFormatArticle_MediumRiskMarker(t *testing.T) {
	art := analyzedArticle()
	art.Analysis.RiskLevel = model.RiskMedium
	assert.Contains(t, FormatArticle(art), "⚠️")

	art.Analysis.RiskLevel = model.RiskLow
	assert.Contains(t, FormatArticle(art), "ℹ️")
}

func TestFormatArticle_OmitsEmptySections(t *testing.T) {
	art := analyzedArticle()
	art.Analysis.RiskTags = nil
	art.Analysis.ActionItems = nil
	art.Analysis.ImpactAnalysis = ""

	text := FormatArticle(art)
	assert.NotContains(t, text, "🏷")
	assert.NotContains(t, text, "Action items")
	assert.NotContains(t, text, "💥")
}
