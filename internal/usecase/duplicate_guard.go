package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/xavierca1/realty-leads/internal/entity"
)

// DuplicateGuard finds a lead the same person already submitted for the same
// target inside the suppression window.
type DuplicateGuard struct {
	Leads         entity.LeadRepositoryInterface
	ListingWindow time.Duration
	SellerWindow  time.Duration
	Now           func() time.Time
}

func NewDuplicateGuard(leads entity.LeadRepositoryInterface, listingWindow, sellerWindow time.Duration) *DuplicateGuard {
	return &DuplicateGuard{
		Leads:         leads,
		ListingWindow: listingWindow,
		SellerWindow:  sellerWindow,
		Now:           time.Now,
	}
}

// Window is the suppression window for a lead source. Seller inquiries get
// the longer one; listing and general inquiries share the short one.
func (g *DuplicateGuard) Window(source entity.LeadSource) time.Duration {
	if source == entity.SourceSellerForm {
		return g.SellerWindow
	}
	return g.ListingWindow
}

// Check returns the existing lead or nil. A lookup failure is returned as is;
// callers must not treat it as "no duplicate".
func (g *DuplicateGuard) Check(ctx context.Context, email string, ref entity.ListingRef, source entity.LeadSource) (*entity.Lead, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	since := now().Add(-g.Window(source))

	lead, err := g.Leads.FindRecent(ctx, entity.NormalizeEmail(email), ref, source, since)
	if err != nil {
		return nil, fmt.Errorf("duplicate lookup: %w", err)
	}
	return lead, nil
}

// dedupKey identifies submissions that the guard would treat as the same.
func dedupKey(email string, ref entity.ListingRef, source entity.LeadSource) string {
	return string(source) + "|" + string(ref.Kind) + ":" + ref.ID + "|" + entity.NormalizeEmail(email)
}
