package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"LensInventory/internal/domain"
	"LensInventory/internal/ports"
	"LensInventory/internal/textfit"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	maxMessageLen  = 4096
)

// Notifier posts finished listings to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

var _ ports.Publisher = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Publish sends the listing as a plain-text message.
func (n *Notifier) Publish(ctx context.Context, listing domain.PlatformListing) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimSuffix(n.baseURL, "/"), n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", Render(listing))
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// Render lays a platform listing out as message text within Telegram's
// message size, dropping trailing paragraphs that do not fit.
func Render(pl domain.PlatformListing) string {
	l := pl.Listing
	parts := []string{fmt.Sprintf("[%s] %s", pl.Platform, l.Title)}
	if l.Description != "" {
		parts = append(parts, l.Description)
	}
	if len(l.Highlights) > 0 {
		lines := make([]string, 0, len(l.Highlights))
		for _, h := range l.Highlights {
			lines = append(lines, "• "+h)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	if len(l.Tags) > 0 {
		parts = append(parts, strings.Join(l.Tags, " "))
	}
	if l.CallToAction != "" {
		parts = append(parts, l.CallToAction)
	}
	parts = append(parts, fmt.Sprintf("Quality: %.2f (%s)", pl.RefinedReport.OverallScore, passLabel(pl.RefinedReport)))

	return textfit.Paragraphs(strings.Join(parts, textfit.ParagraphSeparator), maxMessageLen)
}

func passLabel(r domain.QualityReport) string {
	if r.Passed() {
		return "passed"
	}
	return "needs review: " + strings.Join(r.Failing(), ", ")
}
