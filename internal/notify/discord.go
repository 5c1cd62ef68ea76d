package notify

import (
	"context"
	"fmt"
	"net/http"

	"profit-guard/internal/models"
)

// DiscordSender posts embed messages to a Discord webhook URL
type DiscordSender struct {
	client *http.Client
}

func NewDiscordSender(client *http.Client) *DiscordSender {
	return &DiscordSender{client: client}
}

func (s *DiscordSender) Send(ctx context.Context, ch models.NotificationChannel, ev Event) error {
	if ch.WebhookURL == "" {
		return fmt.Errorf("discord channel %q has no webhook url", ch.Name)
	}

	embed := map[string]interface{}{
		"title":       ev.Title,
		"description": ev.Message,
		"color":       severityColor(ev.Severity),
	}

	if pairs := sortedData(ev); len(pairs) > 0 {
		fields := make([]map[string]interface{}, 0, len(pairs))
		for _, p := range pairs {
			fields = append(fields, map[string]interface{}{
				"name":   p[0],
				"value":  p[1],
				"inline": true,
			})
		}
		embed["fields"] = fields
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{embed},
	}
	return postJSON(ctx, s.client, ch.WebhookURL, payload)
}

func severityColor(severity string) int {
	switch severity {
	case SeveritySuccess:
		return 0x2ecc71
	case SeverityWarning:
		return 0xf1c40f
	case SeverityError:
		return 0xe74c3c
	default:
		return 0x3498db
	}
}
