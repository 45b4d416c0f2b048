// AngelaMos | 2026
// mail.go

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mailersend/mailersend-go"

	"github.com/carterperez-dev/eventhub/internal/config"
)

// Email is one outgoing message.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, email Email) error
}

type MailerSend struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSend(cfg config.MailConfig) *MailerSend {
	return &MailerSend{
		client: mailersend.NewMailersend(cfg.APIKey),
		from: mailersend.From{
			Name:  cfg.FromName,
			Email: cfg.FromEmail,
		},
	}
}

func (m *MailerSend) Send(ctx context.Context, email Email) error {
	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: email.To}})
	msg.SetSubject(email.Subject)

	if strings.TrimSpace(email.Text) != "" {
		msg.SetText(email.Text)
	}
	if strings.TrimSpace(email.HTML) != "" {
		msg.SetHTML(email.HTML)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("mailersend: %w", err)
	}

	if res != nil && res.Response != nil {
		slog.DebugContext(ctx, "mail accepted",
			"to", email.To,
			"message_id", res.Header.Get("X-Message-Id"),
		)
	}
	return nil
}

// LogSender writes mail to the log instead of delivering it.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, email Email) error {
	slog.InfoContext(ctx, "mail delivery disabled, logging instead",
		"to", email.To,
		"subject", email.Subject,
	)
	return nil
}

// NewSender picks MailerSend when it is configured.
func NewSender(cfg config.MailConfig) Sender {
	if !cfg.Enabled() {
		return LogSender{}
	}
	return NewMailerSend(cfg)
}
