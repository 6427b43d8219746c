package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/realty-leads/internal/config"
	"github.com/xavierca1/realty-leads/internal/notify"
)

func NewEmailSender(cfg config.MailConfig) *EmailSender {
	return &EmailSender{
		From:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

// Send delivers one message over SMTP. gomail has no context support, so a
// cancelled ctx returns early while the dial finishes in the background.
func (s *EmailSender) Send(ctx context.Context, email notify.Email) (notify.DeliveryInfo, error) {
	if len(email.To) == 0 {
		return notify.DeliveryInfo{}, fmt.Errorf("email has no recipients")
	}

	m, info := s.buildMessage(email)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return notify.DeliveryInfo{}, fmt.Errorf("send email via SMTP: %w", err)
		}
		return info, nil
	case <-ctx.Done():
		return notify.DeliveryInfo{}, ctx.Err()
	}
}

func (s *EmailSender) buildMessage(email notify.Email) (*gomail.Message, notify.DeliveryInfo) {
	info := notify.DeliveryInfo{MessageID: fmt.Sprintf("<%s@%s>", ulid.Make(), senderDomain(s.From))}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", email.To...)
	if len(email.Cc) > 0 {
		m.SetHeader("Cc", email.Cc...)
	}
	if len(email.Bcc) > 0 {
		m.SetHeader("Bcc", email.Bcc...)
	}
	if email.ReplyTo != "" {
		m.SetHeader("Reply-To", email.ReplyTo)
	}
	m.SetHeader("Message-ID", info.MessageID)
	m.SetHeader("Subject", email.Subject)

	switch {
	case email.Text != "" && email.HTML != "":
		m.SetBody("text/plain", email.Text)
		m.AddAlternative("text/html", email.HTML)
	case email.HTML != "":
		m.SetBody("text/html", email.HTML)
	default:
		m.SetBody("text/plain", email.Text)
	}

	info.Accepted = append(append(append([]string{}, email.To...), email.Cc...), email.Bcc...)
	return m, info
}

func senderDomain(from string) string {
	if at := strings.LastIndex(from, "@"); at >= 0 {
		return strings.Trim(from[at+1:], "> ")
	}
	return "localhost"
}
