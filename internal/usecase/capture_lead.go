package usecase

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xavierca1/realty-leads/internal/entity"
	"github.com/xavierca1/realty-leads/internal/notify"
	"github.com/xavierca1/realty-leads/internal/spam"
)

// CaptureLeadUseCase is the intake pipeline: validate, suppress duplicates,
// score for spam, check the listing, persist. Notification is left to the
// caller so it runs after the response.
type CaptureLeadUseCase struct {
	Repo     entity.LeadRepositoryInterface
	Listings entity.ListingResolver
	SpamLog  entity.SpamLogRepositoryInterface
	Scorer   SpamScorer
	Guard    *DuplicateGuard
	Policy   IntakePolicy
	Logger   *zap.Logger

	inflight singleflight.Group
}

// intakeResult is shared by concurrent identical submissions. Only the first
// caller to claim a created lead reports it as created.
type intakeResult struct {
	outcome CaptureOutcome
	lead    *entity.Lead
	verdict *spam.Verdict
	claimed atomic.Bool
}

func (uc *CaptureLeadUseCase) Execute(ctx context.Context, input CaptureLeadInput) (*CaptureLeadOutput, error) {
	if errs := ValidateCaptureLeadInput(input); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = entity.NormalizeEmail(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	ref := entity.ListingRef{Kind: entity.ListingKind(strings.TrimSpace(input.ListingKind)), ID: strings.TrimSpace(input.ListingID)}
	if ref.Kind == "" {
		ref.Kind = entity.ListingNone
	}
	seller := input.SellerDetails.toEntity()
	source := deriveSource(ref.Kind, seller)

	// Callers share the result, so the work must not die with the first
	// caller's request.
	shared := context.WithoutCancel(ctx)
	v, err, _ := uc.inflight.Do(dedupKey(input.Email, ref, source), func() (any, error) {
		return uc.intake(shared, input, ref, source, seller)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*intakeResult)

	out := &CaptureLeadOutput{Outcome: res.outcome, Lead: res.lead, Verdict: res.verdict}
	if res.outcome == OutcomeCreated {
		if res.claimed.CompareAndSwap(false, true) {
			out.Notification = notify.NewJob(res.lead)
		} else {
			out.Outcome = OutcomeDuplicate
		}
	}
	return out, nil
}

func (uc *CaptureLeadUseCase) intake(ctx context.Context, input CaptureLeadInput, ref entity.ListingRef, source entity.LeadSource, seller *entity.SellerDetails) (*intakeResult, error) {
	existing, err := uc.Guard.Check(ctx, input.Email, ref, source)
	if err != nil {
		uc.logger().Error("❌ duplicate check failed", zap.String("source", string(source)), zap.Error(err))
		return nil, &TechnicalError{Code: CodeDuplicateLookup, Message: "could not check for duplicate submissions", Err: err}
	}
	if existing != nil {
		uc.logger().Info("🔁 duplicate submission suppressed",
			zap.String("lead_id", existing.ID),
			zap.String("source", string(source)),
		)
		return &intakeResult{outcome: OutcomeDuplicate, lead: existing}, nil
	}

	verdict := uc.Scorer.Score(spam.Input{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Message: input.Message,
	})
	if verdict.IsSpam || verdict.Suspicious {
		uc.recordSpam(ctx, input, source, verdict)
	}
	if verdict.IsSpam {
		uc.logger().Warn("🚫 spam submission discarded",
			zap.Int("score", verdict.Score),
			zap.Any("breakdown", verdict.Breakdown),
			zap.String("source", string(source)),
		)
		if !uc.Policy.DiscardSilently {
			return nil, &DomainError{Code: CodeSpamRejected, Message: "submission rejected"}
		}
		return &intakeResult{outcome: OutcomeDiscarded, verdict: &verdict}, nil
	}

	var listing *entity.Listing
	if ref.IsListing() {
		listing, err = uc.Listings.Resolve(ctx, ref)
		if errors.Is(err, entity.ErrListingNotFound) {
			return nil, ValidationErrors{{Field: "listingId", Message: "does not match an existing " + string(ref.Kind)}}
		}
		if err != nil {
			uc.logger().Error("❌ listing lookup failed", zap.String("listing_id", ref.ID), zap.Error(err))
			return nil, &TechnicalError{Code: CodeListingLookup, Message: "could not verify the listing", Err: err}
		}
	}

	lead, err := entity.NewLead(input.Name, input.Email, source, ref)
	if err != nil {
		return nil, ValidationErrors{{Field: "body", Message: err.Error()}}
	}
	lead.Phone = input.Phone
	lead.Message = strings.TrimSpace(input.Message)
	lead.PreferredLanguage = strings.TrimSpace(input.PreferredLanguage)
	lead.Seller = seller
	lead.SpamScore = verdict.Score
	if listing != nil {
		lead.AssignedOwnerID = listing.OwnerID
	}
	if len(input.UTM) > 0 || input.Referrer != "" || input.PagePath != "" {
		lead.Metadata = &entity.ContextMetadata{UTM: input.UTM, Referrer: input.Referrer, PagePath: input.PagePath}
	}

	if err := uc.Repo.Create(ctx, lead); err != nil {
		uc.logger().Error("❌ failed to persist lead", zap.String("source", string(source)), zap.Error(err))
		return nil, &TechnicalError{Code: CodeLeadPersist, Message: "could not save the lead", Err: err}
	}

	uc.logger().Info("✅ lead captured",
		zap.String("lead_id", lead.ID),
		zap.String("source", string(source)),
		zap.Int("spam_score", verdict.Score),
		zap.Bool("suspicious", verdict.Suspicious),
	)
	return &intakeResult{outcome: OutcomeCreated, lead: lead, verdict: &verdict}, nil
}

// recordSpam is best effort; the submitter's outcome never depends on it.
func (uc *CaptureLeadUseCase) recordSpam(ctx context.Context, input CaptureLeadInput, source entity.LeadSource, v spam.Verdict) {
	if !uc.Policy.SpamLogEnabled || uc.SpamLog == nil {
		return
	}
	entry := &entity.SpamLogEntry{
		ID:        uuid.New().String(),
		Email:     input.Email,
		Name:      input.Name,
		Message:   input.Message,
		Source:    source,
		Score:     v.Score,
		IsSpam:    v.IsSpam,
		Breakdown: v.Breakdown,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.SpamLog.Record(ctx, entry); err != nil {
		uc.logger().Warn("⚠️ failed to record spam verdict", zap.Error(err))
	}
}

func (uc *CaptureLeadUseCase) logger() *zap.Logger {
	if uc.Logger == nil {
		return zap.NewNop()
	}
	return uc.Logger
}
