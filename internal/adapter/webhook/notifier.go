// Package webhook pushes the finished report digest to a chat webhook as a
// markdown card.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github-signals/internal/common"
	"github-signals/internal/domain"

	"go.uber.org/zap"
)

// digestSize bounds how many repositories the card lists.
const digestSize = 5

// Notifier posts an interactive card to the configured webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	log        *zap.Logger
}

func NewNotifier(webhookURL string, log *zap.Logger) *Notifier {
	if webhookURL == "" {
		log.Warn("webhook URL is empty, notifications disabled")
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Notify sends the top-of-report digest. Results are expected already
// ranked; only the leading entries make the card.
func (n *Notifier) Notify(ctx context.Context, date string, results []*domain.ScoreResult) error {
	if n.webhookURL == "" {
		return common.NewError(common.ErrCodeNotification, "webhook URL is empty")
	}

	payload := n.card(date, results)
	body, err := json.Marshal(payload)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "card marshal failed", err)
	}

	err = common.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	}, common.WithMaxRetries(2), common.WithInitialDelay(time.Second))
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "webhook delivery failed", err)
	}

	n.log.Info("report digest delivered", zap.String("date", date))
	return nil
}

func (n *Notifier) card(date string, results []*domain.ScoreResult) map[string]any {
	top := results
	if len(top) > digestSize {
		top = top[:digestSize]
	}

	var md strings.Builder
	for i, r := range top {
		fmt.Fprintf(&md, "**%d. [%s](%s)** — %.1f/%.1f (%s)\n",
			i+1, r.Repository.FullName, r.Repository.URL, r.Total, r.Max, r.Tier)
		if r.WhyMatters != "" {
			fmt.Fprintf(&md, "%s\n", r.WhyMatters)
		}
		md.WriteString("\n")
	}

	return map[string]any{
		"msg_type": "interactive",
		"card": map[string]any{
			"schema": "2.0",
			"header": map[string]any{
				"title": map[string]any{
					"tag":     "plain_text",
					"content": fmt.Sprintf("Startup momentum report — %s", date),
				},
				"template": "blue",
			},
			"body": map[string]any{
				"direction": "vertical",
				"elements": []map[string]any{
					{
						"tag":       "markdown",
						"content":   md.String(),
						"text_size": "normal",
					},
				},
			},
		},
	}
}
