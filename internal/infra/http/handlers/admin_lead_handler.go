package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/entity"
	"github.com/xavierca1/realty-leads/internal/usecase"
)

type LeadManager interface {
	Get(ctx context.Context, id string) (*entity.Lead, error)
	List(ctx context.Context, input usecase.ListLeadsInput) ([]*entity.Lead, error)
	Update(ctx context.Context, id string, input usecase.UpdateLeadInput) (*entity.Lead, error)
	Delete(ctx context.Context, id string) error
}

// AdminLeadHandler serves the back-office lead endpoints.
type AdminLeadHandler struct {
	Leads  LeadManager
	Logger *zap.Logger
}

func NewAdminLeadHandler(leads LeadManager, logger *zap.Logger) *AdminLeadHandler {
	return &AdminLeadHandler{Leads: leads, Logger: orNop(logger)}
}

type LeadListResponse struct {
	Leads  []*entity.Lead `json:"leads"`
	Count  int            `json:"count"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (h *AdminLeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := usecase.ListLeadsInput{
		Status:  q.Get("status"),
		Source:  q.Get("source"),
		OwnerID: q.Get("owner"),
	}

	var verrs usecase.ValidationErrors
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &input.Limit}, {"offset", &input.Offset}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			verrs = append(verrs, usecase.ValidationError{Field: p.name, Message: "must be a non-negative integer"})
			continue
		}
		*p.dst = n
	}
	if len(verrs) > 0 {
		writeError(w, verrs, h.Logger)
		return
	}

	leads, err := h.Leads.List(r.Context(), input)
	if err != nil {
		writeError(w, err, h.Logger)
		return
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	writeJSON(w, http.StatusOK, LeadListResponse{
		Leads:  leads,
		Count:  len(leads),
		Limit:  input.Limit,
		Offset: input.Offset,
	})
}

func (h *AdminLeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, h.Logger)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *AdminLeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateLeadInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLeadBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid JSON"})
		return
	}

	lead, err := h.Leads.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, err, h.Logger)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *AdminLeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Leads.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, h.Logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
