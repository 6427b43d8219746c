package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"sync"
	texttemplate "text/template"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/entity"
)

// Email is a single outbound message.
type Email struct {
	To      []string
	Cc      []string
	Bcc     []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

type DeliveryInfo struct {
	MessageID string
	Accepted  []string
}

type Mailer interface {
	Send(ctx context.Context, email Email) (DeliveryInfo, error)
}

type WebhookPoster interface {
	PostJSON(ctx context.Context, url string, payload any) error
}

// Settings are the fan-out's routing knobs, taken from config at startup.
type Settings struct {
	DefaultRecipient string
	CopyRecipient    string
	WebhookURL       string
}

// Fanout delivers a job on the three notification channels. Nil collaborators
// make the matching channel report skipped.
type Fanout struct {
	Mailer   Mailer
	Webhook  WebhookPoster
	Listings entity.ListingResolver
	Owners   entity.OwnerDirectory
	Locales  *Localizer
	Settings Settings
	Logger   *zap.Logger
	// Observe, when set, is called once per channel outcome.
	Observe func(ch Channel, outcome Outcome)

	alertOnce sync.Once
	alertHTML *htmltemplate.Template
	alertText *texttemplate.Template
	alertErr  error
}

// errSkipped marks a channel with nothing configured to deliver to.
type errSkipped string

func (e errSkipped) Error() string { return string(e) }

// enrichment is resolved once per job and shared by every channel.
type enrichment struct {
	Listing *entity.Listing
	Owner   *entity.Owner
}

func (f *Fanout) Run(ctx context.Context, job *Job) Report {
	lead := job.Lead
	enr := f.enrich(ctx, job)

	channels := []struct {
		ch  Channel
		run func(context.Context) error
	}{
		{ChannelAck, func(ctx context.Context) error { return f.sendAck(ctx, &lead, enr) }},
		{ChannelOwner, func(ctx context.Context) error { return f.sendOwnerAlert(ctx, &lead, enr) }},
		{ChannelWebhook, func(ctx context.Context) error { return f.postWebhook(ctx, &lead, enr) }},
	}

	results := make([]Result, len(channels))
	var wg sync.WaitGroup
	for i, c := range channels {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.deliver(ctx, job, c.ch, c.run)
		}()
	}
	wg.Wait()

	return Report{JobID: job.ID, LeadID: lead.ID, Results: results}
}

func (f *Fanout) deliver(ctx context.Context, job *Job, ch Channel, run func(context.Context) error) (res Result) {
	start := time.Now()
	res.Channel = ch

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Detail = fmt.Sprintf("panic: %v", r)
		}
		res.Elapsed = time.Since(start)

		fields := []zap.Field{
			zap.String("job_id", job.ID),
			zap.String("lead_id", job.Lead.ID),
			zap.String("channel", string(ch)),
			zap.Duration("elapsed", res.Elapsed),
		}
		switch res.Outcome {
		case OutcomeSent:
			f.logger().Info("📨 notification sent", fields...)
		case OutcomeSkipped:
			f.logger().Info("⏭️ notification skipped", append(fields, zap.String("reason", res.Detail))...)
		default:
			f.logger().Error("❌ notification failed", append(fields, zap.String("error", res.Detail))...)
		}
		if f.Observe != nil {
			f.Observe(ch, res.Outcome)
		}
	}()

	err := run(ctx)
	var skipped errSkipped
	switch {
	case err == nil:
		res.Outcome = OutcomeSent
	case errors.As(err, &skipped):
		res.Outcome = OutcomeSkipped
		res.Detail = skipped.Error()
	default:
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
	}
	return res
}

// enrich resolves the listing and its owner. Failures only degrade the
// notifications, they never stop them.
func (f *Fanout) enrich(ctx context.Context, job *Job) enrichment {
	var enr enrichment
	lead := job.Lead

	if ref := lead.Listing(); ref.IsListing() && f.Listings != nil {
		listing, err := f.Listings.Resolve(ctx, ref)
		if err != nil {
			f.logger().Warn("⚠️ listing lookup failed", zap.String("job_id", job.ID), zap.String("listing_id", ref.ID), zap.Error(err))
		} else {
			enr.Listing = listing
		}
	}

	ownerID := lead.AssignedOwnerID
	if ownerID == "" && enr.Listing != nil {
		ownerID = enr.Listing.OwnerID
	}
	if ownerID != "" && f.Owners != nil {
		owner, err := f.Owners.FindByID(ctx, ownerID)
		if err != nil {
			f.logger().Warn("⚠️ owner lookup failed", zap.String("job_id", job.ID), zap.String("owner_id", ownerID), zap.Error(err))
		} else {
			enr.Owner = owner
		}
	}
	return enr
}

func (f *Fanout) sendAck(ctx context.Context, lead *entity.Lead, enr enrichment) error {
	if f.Mailer == nil || f.Locales == nil {
		return errSkipped("mailer not configured")
	}
	if lead.Email == "" {
		return errSkipped("lead has no email")
	}

	data := AckData{Name: lead.Name}
	if enr.Listing != nil {
		data.ListingTitle = enr.Listing.Title
		data.ListingURL = enr.Listing.URL
	}
	msg, err := f.Locales.RenderAck(f.Locales.Match(lead.PreferredLanguage), data)
	if err != nil {
		return err
	}

	_, err = f.Mailer.Send(ctx, Email{
		To:      []string{lead.Email},
		ReplyTo: f.Settings.DefaultRecipient,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	return err
}

// ownerRecipients returns the alert's primary address and, when configured
// and different from the primary, the secondary copy.
func (f *Fanout) ownerRecipients(enr enrichment) (to string, cc []string) {
	to = f.Settings.DefaultRecipient
	if enr.Owner != nil && enr.Owner.Email != "" {
		to = enr.Owner.Email
	}
	if cp := f.Settings.CopyRecipient; cp != "" && !strings.EqualFold(cp, to) {
		cc = []string{cp}
	}
	return to, cc
}

func (f *Fanout) sendOwnerAlert(ctx context.Context, lead *entity.Lead, enr enrichment) error {
	if f.Mailer == nil {
		return errSkipped("mailer not configured")
	}
	to, cc := f.ownerRecipients(enr)
	if to == "" {
		return errSkipped("no owner or default recipient")
	}

	html, text, err := f.renderOwnerAlert(lead, enr)
	if err != nil {
		return err
	}

	subject := "New lead: " + lead.Name
	if enr.Listing != nil {
		subject += " - " + enr.Listing.Title
	} else {
		subject += " (" + string(lead.Source) + ")"
	}

	_, err = f.Mailer.Send(ctx, Email{
		To:      []string{to},
		Cc:      cc,
		ReplyTo: lead.Email,
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
	return err
}

func (f *Fanout) renderOwnerAlert(lead *entity.Lead, enr enrichment) (string, string, error) {
	f.alertOnce.Do(func() {
		f.alertHTML, f.alertErr = htmltemplate.ParseFS(templateFS, "templates/owner_alert.html")
		if f.alertErr == nil {
			f.alertText, f.alertErr = texttemplate.ParseFS(templateFS, "templates/owner_alert.txt")
		}
	})
	if f.alertErr != nil {
		return "", "", f.alertErr
	}

	view := struct {
		Lead     *entity.Lead
		Listing  *entity.Listing
		Owner    *entity.Owner
		Received string
	}{lead, enr.Listing, enr.Owner, lead.CreatedAt.UTC().Format(time.RFC1123)}

	var html, text bytes.Buffer
	if err := f.alertHTML.Execute(&html, view); err != nil {
		return "", "", fmt.Errorf("render owner alert html: %w", err)
	}
	if err := f.alertText.Execute(&text, view); err != nil {
		return "", "", fmt.Errorf("render owner alert text: %w", err)
	}
	return html.String(), text.String(), nil
}

func (f *Fanout) postWebhook(ctx context.Context, lead *entity.Lead, enr enrichment) error {
	if f.Webhook == nil || f.Settings.WebhookURL == "" {
		return errSkipped("webhook not configured")
	}
	return f.Webhook.PostJSON(ctx, f.Settings.WebhookURL, NewWebhookPayload(lead, enr.Listing, enr.Owner))
}

func (f *Fanout) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
