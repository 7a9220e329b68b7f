package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

const slackRequestTimeout = 10 * time.Second

var (
	slackInstance *SlackClient
	slackOnce     sync.Once
)

// SlackClient posts run notifications to an incoming webhook. Delivery
// is best-effort: failures are logged and never surfaced to callers,
// so a broken webhook cannot fail a pipeline run.
type SlackClient struct {
	Client     *http.Client
	WebhookURL string
}

type slackAttachment struct {
	Color string `json:"color"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Ts    int64  `json:"ts"`
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

func GetSlackClient() *SlackClient {
	slackOnce.Do(func() {
		slackInstance = &SlackClient{
			Client:     &http.Client{Timeout: slackRequestTimeout},
			WebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		}
	})
	return slackInstance
}

// Notify sends a colored attachment. ok selects green for success and
// red for failure.
func (s *SlackClient) Notify(ctx context.Context, ok bool, title, text string) {
	if s.WebhookURL == "" {
		slog.Debug("[SlackClient] SLACK_WEBHOOK_URL not set, skipping notification")
		return
	}

	color := "#36a64f"
	if !ok {
		color = "#e01e5a"
	}
	body, err := json.Marshal(slackPayload{
		Attachments: []slackAttachment{{
			Color: color,
			Title: title,
			Text:  text,
			Ts:    time.Now().Unix(),
		}},
	})
	if err != nil {
		slog.Warn("[SlackClient] Failed to marshal payload", slog.String("error", err.Error()))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		slog.Warn("[SlackClient] Failed to build request", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.Client.Do(req)
	if err != nil {
		slog.Warn("[SlackClient] Notification failed", slog.String("error", err.Error()))
		return
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		slog.Warn("[SlackClient] Unexpected webhook status", slog.Int("status", res.StatusCode))
	}
}
