package usecase

import (
	"errors"
	"strings"
)

// DomainError is a business rule refusal the caller can act on.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError wraps an infrastructure failure. Err is kept for logs only.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// ValidationErrors is returned when input fails field checks.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

const (
	CodeSpamRejected    = "SPAM_REJECTED"
	CodeDuplicateLookup = "DUPLICATE_LOOKUP_FAILED"
	CodeListingLookup   = "LISTING_LOOKUP_FAILED"
	CodeLeadPersist     = "LEAD_PERSIST_FAILED"
	CodeLeadRead        = "LEAD_READ_FAILED"
	CodeOwnerLookup     = "OWNER_LOOKUP_FAILED"
)
