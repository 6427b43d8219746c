package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/entity"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ManageLeadUseCase backs the operator endpoints. Leads are only removed
// through Delete; nothing in intake ever deletes. An id that is not a UUID
// names no lead and is reported as not found.
type ManageLeadUseCase struct {
	Repo   entity.LeadRepositoryInterface
	Owners entity.OwnerDirectory
	Logger *zap.Logger
}

func (uc *ManageLeadUseCase) Get(ctx context.Context, id string) (*entity.Lead, error) {
	if !isUUID(id) {
		return nil, entity.ErrLeadNotFound
	}
	lead, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, uc.readError(err)
	}
	return lead, nil
}

func (uc *ManageLeadUseCase) List(ctx context.Context, input ListLeadsInput) ([]*entity.Lead, error) {
	filter := entity.LeadFilter{
		Status:  strings.TrimSpace(input.Status),
		Source:  entity.LeadSource(strings.TrimSpace(input.Source)),
		OwnerID: strings.TrimSpace(input.OwnerID),
		Limit:   input.Limit,
		Offset:  input.Offset,
	}
	if filter.OwnerID != "" && !isUUID(filter.OwnerID) {
		return nil, ValidationErrors{{Field: "owner", Message: "is not a valid id"}}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	leads, err := uc.Repo.List(ctx, filter)
	if err != nil {
		return nil, uc.readError(err)
	}
	return leads, nil
}

// Update changes status, notes or the assigned owner. An empty owner id
// unassigns the lead.
func (uc *ManageLeadUseCase) Update(ctx context.Context, id string, input UpdateLeadInput) (*entity.Lead, error) {
	if errs := ValidateUpdateLeadInput(input); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	if !isUUID(id) {
		return nil, entity.ErrLeadNotFound
	}

	update := entity.LeadUpdate{Notes: input.Notes}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		update.Status = &status
	}
	if input.AssignedOwnerID != nil {
		ownerID := strings.TrimSpace(*input.AssignedOwnerID)
		if ownerID != "" {
			if !isUUID(ownerID) {
				return nil, ValidationErrors{{Field: "assignedOwnerId", Message: "does not match an existing owner"}}
			}
			if _, err := uc.Owners.FindByID(ctx, ownerID); err != nil {
				if errors.Is(err, entity.ErrOwnerNotFound) {
					return nil, ValidationErrors{{Field: "assignedOwnerId", Message: "does not match an existing owner"}}
				}
				return nil, &TechnicalError{Code: CodeOwnerLookup, Message: "could not verify the owner", Err: err}
			}
		}
		update.AssignedOwnerID = &ownerID
	}

	lead, err := uc.Repo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, err
		}
		uc.logger().Error("❌ failed to update lead", zap.String("lead_id", id), zap.Error(err))
		return nil, &TechnicalError{Code: CodeLeadPersist, Message: "could not update the lead", Err: err}
	}

	uc.logger().Info("📝 lead updated", zap.String("lead_id", id), zap.String("status", lead.Status))
	return lead, nil
}

func (uc *ManageLeadUseCase) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return entity.ErrLeadNotFound
	}
	if err := uc.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return err
		}
		uc.logger().Error("❌ failed to delete lead", zap.String("lead_id", id), zap.Error(err))
		return &TechnicalError{Code: CodeLeadPersist, Message: "could not delete the lead", Err: err}
	}
	uc.logger().Info("🗑️ lead deleted", zap.String("lead_id", id))
	return nil
}

func (uc *ManageLeadUseCase) readError(err error) error {
	if errors.Is(err, entity.ErrLeadNotFound) {
		return err
	}
	uc.logger().Error("❌ failed to read leads", zap.Error(err))
	return &TechnicalError{Code: CodeLeadRead, Message: "could not read leads", Err: err}
}

func (uc *ManageLeadUseCase) logger() *zap.Logger {
	if uc.Logger == nil {
		return zap.NewNop()
	}
	return uc.Logger
}
