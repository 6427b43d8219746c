package entity

import (
	"context"
	"errors"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrOwnerNotFound   = errors.New("owner not found")
)

type ListingKind string

const (
	ListingProperty ListingKind = "property"
	ListingProject  ListingKind = "project"
	ListingNone     ListingKind = "none"
)

func (k ListingKind) Valid() bool {
	return k == ListingProperty || k == ListingProject || k == ListingNone
}

type ListingRef struct {
	Kind ListingKind `json:"kind"`
	ID   string      `json:"id,omitempty"`
}

func (r ListingRef) IsListing() bool {
	return (r.Kind == ListingProperty || r.Kind == ListingProject) && r.ID != ""
}

// Listing is the slice of a property or project record the lead pipeline needs.
type Listing struct {
	ID      string      `json:"id"`
	Kind    ListingKind `json:"kind"`
	Title   string      `json:"title"`
	Slug    string      `json:"slug"`
	URL     string      `json:"url"`
	OwnerID string      `json:"owner_id,omitempty"`
}

type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type ListingResolver interface {
	Resolve(ctx context.Context, ref ListingRef) (*Listing, error)
}

type OwnerDirectory interface {
	FindByID(ctx context.Context, id string) (*Owner, error)
}
