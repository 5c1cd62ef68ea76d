package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"profit-guard/internal/models"
)

const defaultLineEndpoint = "https://notify-api.line.me/api/notify"

// LineSender pushes plain-text messages through the LINE Notify API
type LineSender struct {
	client   *http.Client
	endpoint string
}

func NewLineSender(client *http.Client) *LineSender {
	return &LineSender{client: client, endpoint: defaultLineEndpoint}
}

func (s *LineSender) Send(ctx context.Context, ch models.NotificationChannel, ev Event) error {
	if ch.Token == "" {
		return fmt.Errorf("line channel %q has no token", ch.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] %s\n%s", ev.Severity, ev.Title, ev.Message)
	for _, p := range sortedData(ev) {
		fmt.Fprintf(&b, "\n%s: %s", p[0], p[1])
	}

	form := url.Values{"message": {b.String()}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+ch.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("line notify returned %d", resp.StatusCode)
	}
	return nil
}
