package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xavierca1/realty-leads/internal/entity"
)

// MemoryLeadRepository keeps leads in process. It backs local runs without
// Postgres and the HTTP tests.
type MemoryLeadRepository struct {
	mu    sync.RWMutex
	leads map[string]*entity.Lead
}

func NewMemoryLeadRepository() *MemoryLeadRepository {
	return &MemoryLeadRepository{leads: make(map[string]*entity.Lead)}
}

func (r *MemoryLeadRepository) Create(_ context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[lead.ID]; ok {
		return ErrLeadExists
	}
	cp := *lead
	r.leads[lead.ID] = &cp
	return nil
}

func (r *MemoryLeadRepository) FindRecent(_ context.Context, email string, ref entity.ListingRef, source entity.LeadSource, since time.Time) (*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var newest *entity.Lead
	for _, l := range r.leads {
		if l.Email != email || l.Source != source || l.CreatedAt.Before(since) {
			continue
		}
		if ref.IsListing() && l.Listing() != ref {
			continue
		}
		if newest == nil || l.CreatedAt.After(newest.CreatedAt) {
			newest = l
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (r *MemoryLeadRepository) FindByID(_ context.Context, id string) (*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *MemoryLeadRepository) List(_ context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.Source != "" && l.Source != filter.Source {
			continue
		}
		if filter.OwnerID != "" && l.AssignedOwnerID != filter.OwnerID {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset >= len(out) {
		return []*entity.Lead{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryLeadRepository) Update(_ context.Context, id string, update entity.LeadUpdate) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	if update.Status != nil {
		l.Status = *update.Status
	}
	if update.Notes != nil {
		l.Notes = *update.Notes
	}
	if update.AssignedOwnerID != nil {
		l.AssignedOwnerID = *update.AssignedOwnerID
	}
	l.UpdatedAt = time.Now().UTC()
	cp := *l
	return &cp, nil
}

func (r *MemoryLeadRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[id]; !ok {
		return entity.ErrLeadNotFound
	}
	delete(r.leads, id)
	return nil
}
