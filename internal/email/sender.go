// Package email delivers notification emails over SMTP.
package email

import (
	"context"
	"fmt"
	"html"
	"net"
	"strings"
	"time"

	"crmops_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers a single plain-subject, simple-body email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSender builds an SMTPSender from config, or nil (with no error) when the
// email channel is disabled.
func NewSender(cfg config.EmailConfig) (*SMTPSender, error) {
	if !cfg.GetEmailEnabled() {
		return nil, nil
	}
	if cfg.GetSMTPHost() == "" {
		return nil, fmt.Errorf("EMAIL_ENABLED is set but SMTP_HOST is empty")
	}
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, renderBody(subject, body))

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func renderBody(subject, body string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h2>" + html.EscapeString(subject) + "</h2>")
	for _, line := range strings.Split(body, "\n") {
		b.WriteString("<p>" + html.EscapeString(line) + "</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
