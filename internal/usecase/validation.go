package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/xavierca1/realty-leads/internal/entity"
)

const (
	maxNameLen     = 200
	maxEmailLen    = 254
	maxMessageLen  = 5000
	maxLanguageLen = 35
	maxURLLen      = 2048
	maxUTMKeys     = 10
	maxUTMValueLen = 200
	maxStatusLen   = 50
	maxNotesLen    = 10000
)

var (
	phoneChars = regexp.MustCompile(`^[0-9+()\-.\s]+$`)
	nonDigit   = regexp.MustCompile(`\D`)
)

var occupancyValues = map[string]bool{
	"":               true,
	"vacant":         true,
	"owner_occupied": true,
	"rented":         true,
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateCaptureLeadInput checks the submission field by field and reports
// every problem found.
func ValidateCaptureLeadInput(input CaptureLeadInput) []ValidationError {
	var errors []ValidationError

	name := strings.TrimSpace(input.Name)
	if name == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if utf8.RuneCountInString(name) > maxNameLen {
		errors = append(errors, ValidationError{"name", fmt.Sprintf("must not exceed %d characters", maxNameLen)})
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		errors = append(errors, ValidationError{"email", "is required"})
	} else if len(email) > maxEmailLen || !isValidEmail(email) {
		errors = append(errors, ValidationError{"email", "is invalid"})
	}

	if phone := strings.TrimSpace(input.Phone); phone != "" && !isValidPhoneNumber(phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}

	if utf8.RuneCountInString(input.Message) > maxMessageLen {
		errors = append(errors, ValidationError{"message", fmt.Sprintf("must not exceed %d characters", maxMessageLen)})
	}

	kind := entity.ListingKind(strings.TrimSpace(input.ListingKind))
	listingID := strings.TrimSpace(input.ListingID)
	switch {
	case kind == "" && listingID != "":
		errors = append(errors, ValidationError{"listingKind", "is required when listingId is set"})
	case kind != "" && !kind.Valid():
		errors = append(errors, ValidationError{"listingKind", "must be property, project or none"})
	case (kind == entity.ListingProperty || kind == entity.ListingProject) && listingID == "":
		errors = append(errors, ValidationError{"listingId", "is required for " + string(kind) + " inquiries"})
	case kind == entity.ListingNone && listingID != "":
		errors = append(errors, ValidationError{"listingId", "must be empty when listingKind is none"})
	}

	isListing := kind == entity.ListingProperty || kind == entity.ListingProject
	if isListing && listingID != "" && !isUUID(listingID) {
		errors = append(errors, ValidationError{"listingId", "is not a valid id"})
	}
	if input.SellerDetails != nil {
		if isListing {
			errors = append(errors, ValidationError{"sellerDetails", "cannot be combined with a listing"})
		}
		errors = append(errors, validateSellerDetails(input.SellerDetails)...)
	}

	if !isListing && input.SellerDetails.toEntity() == nil && strings.TrimSpace(input.Message) == "" {
		errors = append(errors, ValidationError{"message", "is required for general inquiries"})
	}

	if len(input.PreferredLanguage) > maxLanguageLen {
		errors = append(errors, ValidationError{"preferredLanguage", "is invalid"})
	}

	if len(input.UTM) > maxUTMKeys {
		errors = append(errors, ValidationError{"utm", fmt.Sprintf("must not have more than %d parameters", maxUTMKeys)})
	}
	for k, v := range input.UTM {
		if len(k) > 50 || len(v) > maxUTMValueLen {
			errors = append(errors, ValidationError{"utm", "parameter " + truncate(k, 50) + " is too long"})
			break
		}
	}
	if len(input.Referrer) > maxURLLen {
		errors = append(errors, ValidationError{"referrer", "is too long"})
	}
	if len(input.PagePath) > maxURLLen {
		errors = append(errors, ValidationError{"pagePath", "is too long"})
	}

	return errors
}

func validateSellerDetails(s *SellerDetailsInput) []ValidationError {
	var errors []ValidationError
	if utf8.RuneCountInString(s.Neighborhood) > maxNameLen {
		errors = append(errors, ValidationError{"sellerDetails.neighborhood", fmt.Sprintf("must not exceed %d characters", maxNameLen)})
	}
	if s.SizeSqm < 0 || s.SizeSqm > 100000 {
		errors = append(errors, ValidationError{"sellerDetails.sizeSqm", "must be between 0 and 100000"})
	}
	if s.Rooms < 0 || s.Rooms > 100 {
		errors = append(errors, ValidationError{"sellerDetails.rooms", "must be between 0 and 100"})
	}
	if !occupancyValues[s.Occupancy] {
		errors = append(errors, ValidationError{"sellerDetails.occupancy", "must be vacant, owner_occupied or rented"})
	}
	return errors
}

func ValidateUpdateLeadInput(input UpdateLeadInput) []ValidationError {
	var errors []ValidationError

	if input.Status == nil && input.Notes == nil && input.AssignedOwnerID == nil {
		return []ValidationError{{"body", "at least one of status, notes or assignedOwnerId is required"}}
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		if status == "" {
			errors = append(errors, ValidationError{"status", "must not be empty"})
		} else if len(status) > maxStatusLen {
			errors = append(errors, ValidationError{"status", fmt.Sprintf("must not exceed %d characters", maxStatusLen)})
		}
	}
	if input.Notes != nil && utf8.RuneCountInString(*input.Notes) > maxNotesLen {
		errors = append(errors, ValidationError{"notes", fmt.Sprintf("must not exceed %d characters", maxNotesLen)})
	}
	return errors
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// Reject display-name forms like "Jane <jane@example.com>".
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

// isUUID accepts only the canonical hyphenated form stored in the database.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

func isValidPhoneNumber(phone string) bool {
	if !phoneChars.MatchString(phone) {
		return false
	}
	cleaned := nonDigit.ReplaceAllString(phone, "")
	return len(cleaned) >= 7 && len(cleaned) <= 15
}

// deriveSource maps the listing kind and seller details to the lead source.
func deriveSource(kind entity.ListingKind, seller *entity.SellerDetails) entity.LeadSource {
	switch kind {
	case entity.ListingProperty:
		return entity.SourcePropertyForm
	case entity.ListingProject:
		return entity.SourceProjectForm
	}
	if seller != nil {
		return entity.SourceSellerForm
	}
	return entity.SourceContactForm
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
