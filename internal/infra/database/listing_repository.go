package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/realty-leads/internal/entity"
)

// ListingRepository reads properties and projects. Those tables belong to the
// catalog; the lead pipeline only reads the columns it needs.
type ListingRepository struct {
	DB      *sql.DB
	SiteURL string
}

func NewListingRepository(db *sql.DB, siteURL string) *ListingRepository {
	return &ListingRepository{DB: db, SiteURL: siteURL}
}

func (r *ListingRepository) Resolve(ctx context.Context, ref entity.ListingRef) (*entity.Listing, error) {
	var table, path string
	switch ref.Kind {
	case entity.ListingProperty:
		table, path = "properties", "/properties/"
	case entity.ListingProject:
		table, path = "projects", "/projects/"
	default:
		return nil, entity.ErrListingNotFound
	}

	query := `SELECT id, title, slug, assigned_agent_id FROM ` + table + ` WHERE id = $1`

	var listing entity.Listing
	var ownerID sql.NullString
	err := r.DB.QueryRowContext(ctx, query, ref.ID).Scan(&listing.ID, &listing.Title, &listing.Slug, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s %s: %w", ref.Kind, ref.ID, err)
	}

	listing.Kind = ref.Kind
	listing.OwnerID = ownerID.String
	listing.URL = r.SiteURL + path + listing.Slug
	return &listing, nil
}
