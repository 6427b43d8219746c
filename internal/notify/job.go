// Package notify fans a persisted lead out to the submitter acknowledgement,
// the owner alert and the automation webhook. Channels are independent: one
// failing never blocks or cancels the others, and nothing flows back to the
// submitter.
package notify

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xavierca1/realty-leads/internal/entity"
)

// Job is one fan-out request. It carries a snapshot of the lead so a queued
// job does not depend on the store still holding the same row.
type Job struct {
	ID         string      `json:"id"`
	Lead       entity.Lead `json:"lead"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}

func NewJob(lead *entity.Lead) *Job {
	return &Job{
		ID:         ulid.Make().String(),
		Lead:       *lead,
		EnqueuedAt: time.Now().UTC(),
	}
}

type Channel string

const (
	ChannelAck     Channel = "submitter_ack"
	ChannelOwner   Channel = "owner_alert"
	ChannelWebhook Channel = "automation_webhook"
)

type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

type Result struct {
	Channel Channel       `json:"channel"`
	Outcome Outcome       `json:"outcome"`
	Detail  string        `json:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Report is the per-channel outcome of one fan-out. It is only used for
// logging and metrics.
type Report struct {
	JobID   string   `json:"job_id"`
	LeadID  string   `json:"lead_id"`
	Results []Result `json:"results"`
}

func (r Report) Outcome(ch Channel) Outcome {
	for _, res := range r.Results {
		if res.Channel == ch {
			return res.Outcome
		}
	}
	return ""
}
