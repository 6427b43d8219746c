package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/entity"
	"github.com/xavierca1/realty-leads/internal/usecase"
)

type ErrorResponse struct {
	Success bool                      `json:"success"`
	Message string                    `json:"message"`
	Code    string                    `json:"code,omitempty"`
	Errors  []usecase.ValidationError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the use case error taxonomy onto status codes. Technical
// details stay in the logs.
func writeError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if verrs, ok := usecase.AsValidationErrors(err); ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Message: "Please check the highlighted fields.",
			Errors:  verrs,
		})
		return
	}

	var de *usecase.DomainError
	if errors.As(err, &de) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Message: de.Message, Code: de.Code})
		return
	}

	if errors.Is(err, entity.ErrLeadNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "Lead not found"})
		return
	}

	code := ""
	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		code = te.Code
	}
	logger.Error("❌ request failed", zap.String("code", code), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Message: "Something went wrong. Please try again later.",
		Code:    code,
	})
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
