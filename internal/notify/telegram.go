// Package notify delivers high-importance findings to Telegram.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/orbzodiac84/regpulse/internal/model"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier posts messages to a Telegram chat.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	http     *http.Client
}

// Option configures the notifier.
type Option func(*Notifier)

// WithBaseURL overrides the Telegram API base URL.
func WithBaseURL(url string) Option {
	return func(n *Notifier) {
		n.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Notifier) {
		n.http = hc
	}
}

// New creates a Telegram notifier. With an empty token or chat ID, all sends
// become no-ops so notification stays optional.
func New(botToken, chatID string, opts ...Option) *Notifier {
	n := &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultAPIBase,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Enabled reports whether the notifier has credentials to send with.
func (n *Notifier) Enabled() bool {
	return n.botToken != "" && n.chatID != ""
}

// NotifyArticle sends the formatted analysis of one article. Failures are
// logged rather than returned; a dead Telegram bot must not stall collection.
func (n *Notifier) NotifyArticle(ctx context.Context, article *model.Article) {
	if !n.Enabled() || article.Analysis == nil {
		return
	}
	if err := n.send(ctx, FormatArticle(article)); err != nil {
		zap.L().Warn("telegram notification failed",
			zap.String("article", article.ID),
			zap.Error(err),
		)
		return
	}
	zap.L().Info("telegram notification sent",
		zap.String("article", article.ID),
		zap.String("agency", article.Agency),
	)
}

// NotifyError sends an operational alert about a failed collection cycle.
func (n *Notifier) NotifyError(ctx context.Context, cycleErr error) {
	if !n.Enabled() {
		return
	}
	text := fmt.Sprintf("⚠️ *Collection cycle failed*\n\n`%s`", cycleErr.Error())
	if err := n.send(ctx, text); err != nil {
		zap.L().Warn("telegram error alert failed", zap.Error(err))
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (n *Notifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return eris.Wrap(err, "telegram: marshal request")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "telegram: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "telegram: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "telegram: read response")
	}

	var result sendMessageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return eris.Wrap(err, "telegram: unmarshal response")
	}
	if !result.OK {
		return eris.Errorf("telegram: sendMessage failed: %s", result.Description)
	}
	return nil
}

// FormatArticle renders the Telegram message for an analyzed article.
func FormatArticle(article *model.Article) string {
	a := article.Analysis

	var b strings.Builder
	fmt.Fprintf(&b, "%s *[%s] %s*\n\n", riskMarker(a.RiskLevel), strings.ToUpper(article.Agency), article.Title)
	fmt.Fprintf(&b, "📊 Risk: %s (%d/5)\n", a.RiskLevel, a.RiskScore)
	if len(a.RiskTags) > 0 {
		fmt.Fprintf(&b, "🏷 %s\n", strings.Join(a.RiskTags, ", "))
	}
	if len(a.Summary) > 0 {
		b.WriteString("\n")
		for _, point := range a.Summary {
			fmt.Fprintf(&b, "• %s\n", point)
		}
	}
	if a.ImpactAnalysis != "" {
		fmt.Fprintf(&b, "\n💥 %s\n", a.ImpactAnalysis)
	}
	if len(a.ActionItems) > 0 {
		b.WriteString("\n✅ Action items:\n")
		for _, item := range a.ActionItems {
			fmt.Fprintf(&b, "• %s\n", item)
		}
	}
	fmt.Fprintf(&b, "\n🔗 %s", article.Link)
	return b.String()
}

func riskMarker(level model.RiskLevel) string {
	switch level {
	case model.RiskHigh:
		return "🚨"
	case model.RiskMedium:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
