package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"profit-guard/config"
	"profit-guard/internal/models"

	"gopkg.in/gomail.v2"
)

// EmailSender delivers multipart mail over SMTP. The channel's email_to
// overrides the configured default recipient.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewEmailSender(cfg config.NotifyConfig) *EmailSender {
	var dialer *gomail.Dialer
	if cfg.SMTPHost != "" {
		dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	return &EmailSender{
		dialer: dialer,
		from:   cfg.EmailFrom,
		to:     cfg.EmailTo,
	}
}

func (s *EmailSender) Send(ctx context.Context, ch models.NotificationChannel, ev Event) error {
	if s.dialer == nil {
		return fmt.Errorf("smtp is not configured")
	}

	to := ch.EmailTo
	if to == "" {
		to = s.to
	}
	if to == "" {
		return fmt.Errorf("email channel %q has no recipient", ch.Name)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %s", ev.Severity, ev.Title))
	m.SetBody("text/plain", plainBody(ev))
	m.AddAlternative("text/html", htmlBody(ev))

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func plainBody(ev Event) string {
	var b strings.Builder
	b.WriteString(ev.Message)
	for _, p := range sortedData(ev) {
		fmt.Fprintf(&b, "\n%s: %s", p[0], p[1])
	}
	return b.String()
}

func htmlBody(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>%s</h3><p>%s</p>", html.EscapeString(ev.Title), html.EscapeString(ev.Message))
	if pairs := sortedData(ev); len(pairs) > 0 {
		b.WriteString("<table>")
		for _, p := range pairs {
			fmt.Fprintf(&b, "<tr><td><b>%s</b></td><td>%s</td></tr>",
				html.EscapeString(p[0]), html.EscapeString(p[1]))
		}
		b.WriteString("</table>")
	}
	return b.String()
}
