package notify

import (
	"time"

	"github.com/xavierca1/realty-leads/internal/entity"
)

// WebhookPayload is the body posted to the automation webhook.
type WebhookPayload struct {
	Event     string                  `json:"event"`
	Lead      WebhookLead             `json:"lead"`
	Listing   *WebhookListing         `json:"listing,omitempty"`
	Owner     *WebhookOwner           `json:"owner,omitempty"`
	Context   *entity.ContextMetadata `json:"context,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

type WebhookLead struct {
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	Email             string                `json:"email"`
	Phone             string                `json:"phone,omitempty"`
	Message           string                `json:"message,omitempty"`
	Source            entity.LeadSource     `json:"source"`
	Status            string                `json:"status"`
	PreferredLanguage string                `json:"preferred_language,omitempty"`
	Seller            *entity.SellerDetails `json:"seller,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

type WebhookListing struct {
	ID    string             `json:"id"`
	Kind  entity.ListingKind `json:"kind"`
	Title string             `json:"title"`
	Slug  string             `json:"slug"`
	URL   string             `json:"url"`
}

type WebhookOwner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

const EventLeadCreated = "lead.created"

func NewWebhookPayload(lead *entity.Lead, listing *entity.Listing, owner *entity.Owner) WebhookPayload {
	p := WebhookPayload{
		Event: EventLeadCreated,
		Lead: WebhookLead{
			ID:                lead.ID,
			Name:              lead.Name,
			Email:             lead.Email,
			Phone:             lead.Phone,
			Message:           lead.Message,
			Source:            lead.Source,
			Status:            lead.Status,
			PreferredLanguage: lead.PreferredLanguage,
			Seller:            lead.Seller,
			CreatedAt:         lead.CreatedAt,
		},
		Context:   lead.Metadata,
		Timestamp: time.Now().UTC(),
	}
	if listing != nil {
		p.Listing = &WebhookListing{ID: listing.ID, Kind: listing.Kind, Title: listing.Title, Slug: listing.Slug, URL: listing.URL}
	}
	if owner != nil {
		p.Owner = &WebhookOwner{ID: owner.ID, Name: owner.Name, Email: owner.Email}
	}
	return p
}
