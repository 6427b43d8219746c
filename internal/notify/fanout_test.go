package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xavierca1/realty-leads/internal/entity"
)

type recordingMailer struct {
	mu    sync.Mutex
	sent  []Email
	fail  func(Email) error
	panic bool
}

func (m *recordingMailer) Send(_ context.Context, e Email) (DeliveryInfo, error) {
	if m.panic {
		panic("smtp exploded")
	}
	if m.fail != nil {
		if err := m.fail(e); err != nil {
			return DeliveryInfo{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return DeliveryInfo{MessageID: "msg-1", Accepted: e.To}, nil
}

func (m *recordingMailer) to(addr string) *Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sent {
		if len(m.sent[i].To) > 0 && m.sent[i].To[0] == addr {
			return &m.sent[i]
		}
	}
	return nil
}

type recordingWebhook struct {
	mu       sync.Mutex
	payloads []WebhookPayload
	err      error
}

func (w *recordingWebhook) PostJSON(_ context.Context, _ string, payload any) error {
	if w.err != nil {
		return w.err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.payloads = append(w.payloads, payload.(WebhookPayload))
	return nil
}

type stubListings map[string]*entity.Listing

func (s stubListings) Resolve(_ context.Context, ref entity.ListingRef) (*entity.Listing, error) {
	if l, ok := s[ref.ID]; ok {
		return l, nil
	}
	return nil, entity.ErrListingNotFound
}

type stubOwners map[string]*entity.Owner

func (s stubOwners) FindByID(_ context.Context, id string) (*entity.Owner, error) {
	if o, ok := s[id]; ok {
		return o, nil
	}
	return nil, entity.ErrOwnerNotFound
}

func testLocalizer(t *testing.T) *Localizer {
	t.Helper()
	l, err := NewLocalizer([]string{"en", "he", "ru", "fr"}, "en")
	require.NoError(t, err)
	return l
}

func listingLead() *entity.Lead {
	return &entity.Lead{
		ID:                "lead-1",
		Name:              "Jane Doe",
		Email:             "jane@example.com",
		Message:           "I'm interested in this property, please call me.",
		Source:            entity.SourcePropertyForm,
		PropertyID:        "P1",
		AssignedOwnerID:   "O1",
		Status:            entity.StatusNew,
		PreferredLanguage: "en",
		CreatedAt:         time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestFanout(t *testing.T, mailer Mailer, hook WebhookPoster) *Fanout {
	return &Fanout{
		Mailer:  mailer,
		Webhook: hook,
		Listings: stubListings{
			"P1": {ID: "P1", Kind: entity.ListingProperty, Title: "Sea view penthouse", Slug: "sea-view-penthouse", URL: "https://homes.example.com/properties/sea-view-penthouse", OwnerID: "O1"},
		},
		Owners: stubOwners{
			"O1": {ID: "O1", Name: "Agent Smith", Email: "agent@example.com"},
		},
		Locales: testLocalizer(t),
		Settings: Settings{
			DefaultRecipient: "leads@example.com",
			CopyRecipient:    "office@example.com",
			WebhookURL:       "https://hooks.example.com/leads",
		},
		Logger: zaptest.NewLogger(t),
	}
}

// TestFanoutDeliversAllChannels - Cenário A: os três canais entregam e o webhook leva email e título do imóvel
func TestFanoutDeliversAllChannels(t *testing.T) {
	mailer := &recordingMailer{}
	hook := &recordingWebhook{}
	f := newTestFanout(t, mailer, hook)

	var observed sync.Map
	f.Observe = func(ch Channel, outcome Outcome) { observed.Store(ch, outcome) }

	report := f.Run(context.Background(), NewJob(listingLead()))

	assert.Equal(t, OutcomeSent, report.Outcome(ChannelAck))
	assert.Equal(t, OutcomeSent, report.Outcome(ChannelOwner))
	assert.Equal(t, OutcomeSent, report.Outcome(ChannelWebhook))
	assert.Equal(t, "lead-1", report.LeadID)

	ack := mailer.to("jane@example.com")
	require.NotNil(t, ack)
	assert.Contains(t, ack.Subject, "Jane Doe")
	assert.Contains(t, ack.HTML, "Sea view penthouse")

	alert := mailer.to("agent@example.com")
	require.NotNil(t, alert)
	assert.Equal(t, []string{"office@example.com"}, alert.Cc)
	assert.Equal(t, "jane@example.com", alert.ReplyTo)
	assert.Contains(t, alert.Subject, "Sea view penthouse")

	require.Len(t, hook.payloads, 1)
	p := hook.payloads[0]
	assert.Equal(t, EventLeadCreated, p.Event)
	assert.Equal(t, "jane@example.com", p.Lead.Email)
	require.NotNil(t, p.Listing)
	assert.Equal(t, "Sea view penthouse", p.Listing.Title)
	assert.Equal(t, "sea-view-penthouse", p.Listing.Slug)
	require.NotNil(t, p.Owner)
	assert.Equal(t, "O1", p.Owner.ID)

	v, ok := observed.Load(ChannelWebhook)
	require.True(t, ok)
	assert.Equal(t, OutcomeSent, v)
}

// TestFanoutWebhookFailureIsIsolated - Webhook 500 não afeta os emails
func TestFanoutWebhookFailureIsIsolated(t *testing.T) {
	mailer := &recordingMailer{}
	hook := &recordingWebhook{err: errors.New("webhook returned 500")}
	f := newTestFanout(t, mailer, hook)

	report := f.Run(context.Background(), NewJob(listingLead()))

	assert.Equal(t, OutcomeFailed, report.Outcome(ChannelWebhook))
	assert.Equal(t, OutcomeSent, report.Outcome(ChannelAck))
	assert.Equal(t, OutcomeSent, report.Outcome(ChannelOwner))
	assert.Len(t, mailer.sent, 2)
}

func TestFanoutOwnerFallback(t *testing.T) {
	t.Run("no owner goes to default distribution", func(t *testing.T) {
		mailer := &recordingMailer{}
		f := newTestFanout(t, mailer, nil)
		lead := listingLead()
		lead.Source = entity.SourceSellerForm
		lead.PropertyID = ""
		lead.AssignedOwnerID = ""

		f.Run(context.Background(), NewJob(lead))

		alert := mailer.to("leads@example.com")
		require.NotNil(t, alert)
		assert.Equal(t, []string{"office@example.com"}, alert.Cc)
		assert.Contains(t, alert.Subject, "seller_form")
	})

	t.Run("copy equal to primary is not duplicated", func(t *testing.T) {
		mailer := &recordingMailer{}
		f := newTestFanout(t, mailer, nil)
		f.Settings.CopyRecipient = "Leads@Example.com"
		lead := listingLead()
		lead.PropertyID = ""
		lead.AssignedOwnerID = ""
		lead.Source = entity.SourceContactForm

		f.Run(context.Background(), NewJob(lead))

		alert := mailer.to("leads@example.com")
		require.NotNil(t, alert)
		assert.Empty(t, alert.Cc)
	})

	t.Run("unknown owner degrades to default", func(t *testing.T) {
		mailer := &recordingMailer{}
		f := newTestFanout(t, mailer, nil)
		lead := listingLead()
		lead.AssignedOwnerID = "ghost"
		f.Listings = stubListings{}

		report := f.Run(context.Background(), NewJob(lead))

		assert.Equal(t, OutcomeSent, report.Outcome(ChannelOwner))
		assert.NotNil(t, mailer.to("leads@example.com"))
	})
}

func TestFanoutSkipsUnconfiguredChannels(t *testing.T) {
	f := newTestFanout(t, nil, nil)
	f.Settings.WebhookURL = ""

	report := f.Run(context.Background(), NewJob(listingLead()))

	for _, r := range report.Results {
		assert.Equal(t, OutcomeSkipped, r.Outcome, r.Channel)
	}
}

func TestFanoutRecoversFromChannelPanic(t *testing.T) {
	hook := &recordingWebhook{}
	f := newTestFanout(t, &recordingMailer{panic: true}, hook)

	report := f.Run(context.Background(), NewJob(listingLead()))

	assert.Equal(t, OutcomeFailed, report.Outcome(ChannelAck))
	assert.Equal(t, OutcomeFailed, report.Outcome(ChannelOwner))
	assert.Equal(t, OutcomeSent, report.Outcome(ChannelWebhook))
}

func TestFanoutOwnerFailureDoesNotBlockAck(t *testing.T) {
	mailer := &recordingMailer{fail: func(e Email) error {
		if e.To[0] == "agent@example.com" {
			return errors.New("mailbox full")
		}
		return nil
	}}
	f := newTestFanout(t, mailer, &recordingWebhook{})

	report := f.Run(context.Background(), NewJob(listingLead()))

	assert.Equal(t, OutcomeFailed, report.Outcome(ChannelOwner))
	assert.Equal(t, OutcomeSent, report.Outcome(ChannelAck))
	assert.NotNil(t, mailer.to("jane@example.com"))
}
