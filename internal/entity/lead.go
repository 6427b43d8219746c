package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLeadNotFound       = errors.New("lead not found")
	ErrConflictingListing = errors.New("lead cannot link both a property and a project")
)

type LeadSource string

const (
	SourcePropertyForm LeadSource = "property_form"
	SourceProjectForm  LeadSource = "project_form"
	SourceContactForm  LeadSource = "contact_form"
	SourceSellerForm   LeadSource = "seller_form"
)

// Status is free text; these are the values the back office uses by default.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusClosed    = "closed"
)

type SellerDetails struct {
	Neighborhood string  `json:"neighborhood,omitempty"`
	SizeSqm      float64 `json:"size_sqm,omitempty"`
	Rooms        float64 `json:"rooms,omitempty"`
	Occupancy    string  `json:"occupancy,omitempty"` // vacant, owner_occupied, rented
}

func (s *SellerDetails) IsZero() bool {
	return s == nil || (s.Neighborhood == "" && s.SizeSqm == 0 && s.Rooms == 0 && s.Occupancy == "")
}

type ContextMetadata struct {
	UTM      map[string]string `json:"utm,omitempty"`
	Referrer string            `json:"referrer,omitempty"`
	PagePath string            `json:"page_path,omitempty"`
}

type Lead struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Email             string           `json:"email"`
	Phone             string           `json:"phone,omitempty"`
	Message           string           `json:"message,omitempty"`
	Source            LeadSource       `json:"source"`
	PropertyID        string           `json:"property_id,omitempty"`
	ProjectID         string           `json:"project_id,omitempty"`
	AssignedOwnerID   string           `json:"assigned_owner_id,omitempty"`
	Status            string           `json:"status"`
	Notes             string           `json:"notes,omitempty"`
	PreferredLanguage string           `json:"preferred_language,omitempty"`
	Seller            *SellerDetails   `json:"seller,omitempty"`
	Metadata          *ContextMetadata `json:"metadata,omitempty"`
	SpamScore         int              `json:"spam_score"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func NewLead(name, email string, source LeadSource, ref ListingRef) (*Lead, error) {
	now := time.Now().UTC()
	lead := &Lead{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Email:     NormalizeEmail(email),
		Source:    source,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch ref.Kind {
	case ListingProperty:
		lead.PropertyID = ref.ID
	case ListingProject:
		lead.ProjectID = ref.ID
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}
	return lead, nil
}

func (l *Lead) Validate() error {
	if l.Name == "" {
		return errors.New("name is required")
	}
	if l.Email == "" {
		return errors.New("email is required")
	}
	if l.PropertyID != "" && l.ProjectID != "" {
		return ErrConflictingListing
	}
	if (l.Source == SourceSellerForm || l.Source == SourceContactForm) && (l.PropertyID != "" || l.ProjectID != "") {
		return errors.New("seller and contact leads cannot link a listing")
	}
	return nil
}

// Listing returns the listing the lead was created against, if any.
func (l *Lead) Listing() ListingRef {
	switch {
	case l.PropertyID != "":
		return ListingRef{Kind: ListingProperty, ID: l.PropertyID}
	case l.ProjectID != "":
		return ListingRef{Kind: ListingProject, ID: l.ProjectID}
	}
	return ListingRef{Kind: ListingNone}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LeadUpdate carries the back-office mutable fields; nil means untouched.
type LeadUpdate struct {
	Status          *string `json:"status,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	AssignedOwnerID *string `json:"assigned_owner_id,omitempty"`
}

func (u LeadUpdate) IsEmpty() bool {
	return u.Status == nil && u.Notes == nil && u.AssignedOwnerID == nil
}

type LeadFilter struct {
	Status  string
	Source  LeadSource
	OwnerID string
	Limit   int
	Offset  int
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	// FindRecent returns the newest lead for email (and ref, when it names a
	// listing) with the given source created at or after since, or nil.
	FindRecent(ctx context.Context, email string, ref ListingRef, source LeadSource, since time.Time) (*Lead, error)
	FindByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]*Lead, error)
	Update(ctx context.Context, id string, update LeadUpdate) (*Lead, error)
	Delete(ctx context.Context, id string) error
}
