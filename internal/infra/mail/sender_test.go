package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/realty-leads/internal/notify"
)

type fakeDialer struct {
	sent  []*gomail.Message
	err   error
	delay time.Duration
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	time.Sleep(d.delay)
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

// TestSendBuildsHeaders - Destinatários, cópia e resposta vão para os headers
func TestSendBuildsHeaders(t *testing.T) {
	d := &fakeDialer{}
	s := &EmailSender{From: "Leads <no-reply@homes.example.com>", dialer: d}

	info, err := s.Send(context.Background(), notify.Email{
		To:      []string{"agent@example.com"},
		Cc:      []string{"office@example.com"},
		ReplyTo: "jane@example.com",
		Subject: "New lead: Jane Doe",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	})

	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	m := d.sent[0]
	assert.Equal(t, []string{"agent@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"office@example.com"}, m.GetHeader("Cc"))
	assert.Equal(t, []string{"jane@example.com"}, m.GetHeader("Reply-To"))
	assert.Equal(t, []string{info.MessageID}, m.GetHeader("Message-ID"))
	assert.Contains(t, info.MessageID, "@homes.example.com>")
	assert.Equal(t, []string{"agent@example.com", "office@example.com"}, info.Accepted)
}

func TestSendErrors(t *testing.T) {
	t.Run("smtp failure", func(t *testing.T) {
		s := &EmailSender{From: "a@b.c", dialer: &fakeDialer{err: errors.New("535 auth failed")}}
		_, err := s.Send(context.Background(), notify.Email{To: []string{"x@example.com"}, Text: "hi"})
		assert.ErrorContains(t, err, "535 auth failed")
	})

	t.Run("no recipients", func(t *testing.T) {
		s := &EmailSender{From: "a@b.c", dialer: &fakeDialer{}}
		_, err := s.Send(context.Background(), notify.Email{Text: "hi"})
		assert.Error(t, err)
	})

	t.Run("context deadline", func(t *testing.T) {
		s := &EmailSender{From: "a@b.c", dialer: &fakeDialer{delay: 200 * time.Millisecond}}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := s.Send(ctx, notify.Email{To: []string{"x@example.com"}, Text: "hi"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
