package notify

import (
	"context"
	"fmt"
	"net/http"

	"profit-guard/internal/models"
)

// SlackSender posts Block Kit messages to an incoming-webhook URL
type SlackSender struct {
	client *http.Client
}

func NewSlackSender(client *http.Client) *SlackSender {
	return &SlackSender{client: client}
}

func (s *SlackSender) Send(ctx context.Context, ch models.NotificationChannel, ev Event) error {
	if ch.WebhookURL == "" {
		return fmt.Errorf("slack channel %q has no webhook url", ch.Name)
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{"type": "plain_text", "text": fmt.Sprintf("%s %s", severityEmoji(ev.Severity), ev.Title)},
		},
		{
			"type": "section",
			"text": map[string]interface{}{"type": "mrkdwn", "text": ev.Message},
		},
	}

	if pairs := sortedData(ev); len(pairs) > 0 {
		fields := make([]map[string]interface{}, 0, len(pairs))
		for _, p := range pairs {
			fields = append(fields, map[string]interface{}{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*%s*\n%s", p[0], p[1]),
			})
		}
		blocks = append(blocks, map[string]interface{}{"type": "section", "fields": fields})
	}

	payload := map[string]interface{}{
		"text":   ev.Title,
		"blocks": blocks,
	}
	return postJSON(ctx, s.client, ch.WebhookURL, payload)
}

func severityEmoji(severity string) string {
	switch severity {
	case SeveritySuccess:
		return ":white_check_mark:"
	case SeverityWarning:
		return ":warning:"
	case SeverityError:
		return ":rotating_light:"
	default:
		return ":information_source:"
	}
}
