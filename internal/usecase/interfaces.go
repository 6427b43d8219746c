package usecase

import (
	"github.com/xavierca1/realty-leads/internal/spam"
)

// SpamScorer is satisfied by *spam.Scorer.
type SpamScorer interface {
	Score(in spam.Input) spam.Verdict
}

// IntakePolicy holds the intake switches taken from config.
type IntakePolicy struct {
	// DiscardSilently answers spam like an accepted submission. When false
	// spam is refused with a DomainError.
	DiscardSilently bool
	SpamLogEnabled  bool
}
