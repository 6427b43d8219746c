package usecase

import (
	"github.com/xavierca1/realty-leads/internal/entity"
	"github.com/xavierca1/realty-leads/internal/notify"
	"github.com/xavierca1/realty-leads/internal/spam"
)

// CaptureLeadInput is the public form submission.
type CaptureLeadInput struct {
	Name              string              `json:"name"`
	Email             string              `json:"email"`
	Phone             string              `json:"phone,omitempty"`
	Message           string              `json:"message,omitempty"`
	ListingID         string              `json:"listingId,omitempty"`
	ListingKind       string              `json:"listingKind,omitempty"`
	PreferredLanguage string              `json:"preferredLanguage,omitempty"`
	SellerDetails     *SellerDetailsInput `json:"sellerDetails,omitempty"`
	UTM               map[string]string   `json:"utm,omitempty"`
	Referrer          string              `json:"referrer,omitempty"`
	PagePath          string              `json:"pagePath,omitempty"`
}

type SellerDetailsInput struct {
	Neighborhood string  `json:"neighborhood,omitempty"`
	SizeSqm      float64 `json:"sizeSqm,omitempty"`
	Rooms        float64 `json:"rooms,omitempty"`
	Occupancy    string  `json:"occupancy,omitempty"`
}

func (s *SellerDetailsInput) toEntity() *entity.SellerDetails {
	if s == nil {
		return nil
	}
	d := &entity.SellerDetails{
		Neighborhood: s.Neighborhood,
		SizeSqm:      s.SizeSqm,
		Rooms:        s.Rooms,
		Occupancy:    s.Occupancy,
	}
	if d.IsZero() {
		return nil
	}
	return d
}

type CaptureOutcome string

const (
	OutcomeCreated   CaptureOutcome = "created"
	OutcomeDuplicate CaptureOutcome = "duplicate"
	OutcomeDiscarded CaptureOutcome = "discarded"
)

// CaptureLeadOutput is internal to the service; the HTTP layer answers every
// accepted outcome with the same public body.
type CaptureLeadOutput struct {
	Outcome CaptureOutcome
	Lead    *entity.Lead
	Verdict *spam.Verdict
	// Notification is set only for newly created leads and must be
	// dispatched after the response is written.
	Notification *notify.Job
}

type ListLeadsInput struct {
	Status  string
	Source  string
	OwnerID string
	Limit   int
	Offset  int
}

type UpdateLeadInput struct {
	Status          *string `json:"status,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	AssignedOwnerID *string `json:"assignedOwnerId,omitempty"`
}
