package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/infra/http/middleware"
	"github.com/xavierca1/realty-leads/internal/notify"
	"github.com/xavierca1/realty-leads/internal/usecase"
)

const maxLeadBodyBytes = 64 << 10

// acceptedMessage is the only success body the intake endpoint ever sends,
// whether the lead was created, suppressed as a duplicate or discarded.
const acceptedMessage = "Thank you! We will be in touch soon."

type LeadCapturer interface {
	Execute(ctx context.Context, input usecase.CaptureLeadInput) (*usecase.CaptureLeadOutput, error)
}

type LeadHandler struct {
	UseCase    LeadCapturer
	Dispatcher notify.Dispatcher
	Logger     *zap.Logger
}

func NewLeadHandler(uc LeadCapturer, dispatcher notify.Dispatcher, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{UseCase: uc, Dispatcher: dispatcher, Logger: orNop(logger)}
}

type CaptureLeadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (h *LeadHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	var input usecase.CaptureLeadInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLeadBodyBytes)).Decode(&input); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, CaptureLeadResponse{Message: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, CaptureLeadResponse{Message: "Invalid JSON"})
		return
	}
	if input.Referrer == "" {
		input.Referrer = r.Referer()
	}

	out, err := h.UseCase.Execute(r.Context(), input)
	if err != nil {
		writeError(w, err, h.Logger)
		return
	}

	source := "unknown"
	if out.Lead != nil {
		source = string(out.Lead.Source)
	}
	middleware.RecordLeadOutcome(string(out.Outcome), source)
	if out.Verdict != nil {
		middleware.ObserveSpamScore(out.Verdict.Score)
	}

	writeJSON(w, http.StatusOK, CaptureLeadResponse{Success: true, Message: acceptedMessage})
	if out.Notification == nil {
		return
	}

	// Push the response out before handing the job over.
	_ = http.NewResponseController(w).Flush()
	if err := h.Dispatcher.Dispatch(context.WithoutCancel(r.Context()), out.Notification); err != nil {
		h.Logger.Error("❌ failed to dispatch lead notification",
			zap.String("lead_id", out.Notification.Lead.ID),
			zap.String("job_id", out.Notification.ID),
			zap.Error(err),
		)
		middleware.RecordIntegrationError("dispatcher")
	}
}
