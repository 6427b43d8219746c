package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xavierca1/realty-leads/internal/entity"
)

func newManageUseCase(t *testing.T) (*ManageLeadUseCase, *MockLeadRepository, *MockOwnerDirectory) {
	repo := new(MockLeadRepository)
	owners := new(MockOwnerDirectory)
	return &ManageLeadUseCase{Repo: repo, Owners: owners, Logger: zaptest.NewLogger(t)}, repo, owners
}

const (
	leadID       = "0f8fad5b-d9cb-469f-a165-70867728950e"
	missingID    = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	brokenID     = "16fd2706-8baf-433b-82eb-8c7fada847da"
	ownerID      = "3f333df6-90a4-4fda-8dd3-9485d27cee36"
	ghostOwnerID = "c56a4180-65aa-42ec-a945-5fd21dec0538"
)

func strPtr(s string) *string { return &s }

func TestManageLeadGet(t *testing.T) {
	uc, repo, _ := newManageUseCase(t)
	repo.On("FindByID", mock.Anything, leadID).Return(&entity.Lead{ID: leadID}, nil)
	repo.On("FindByID", mock.Anything, missingID).Return(nil, entity.ErrLeadNotFound)
	repo.On("FindByID", mock.Anything, brokenID).Return(nil, errors.New("conn reset"))

	lead, err := uc.Get(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, leadID, lead.ID)

	_, err = uc.Get(context.Background(), missingID)
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)

	_, err = uc.Get(context.Background(), brokenID)
	assert.True(t, IsTechnicalError(err))
}

func TestManageLeadListClampsPaging(t *testing.T) {
	uc, repo, _ := newManageUseCase(t)
	repo.On("List", mock.Anything, entity.LeadFilter{Status: "new", Limit: maxPageSize}).Return([]*entity.Lead{}, nil).Once()
	repo.On("List", mock.Anything, entity.LeadFilter{Source: entity.SourceSellerForm, Limit: defaultPageSize}).Return([]*entity.Lead{}, nil).Once()

	_, err := uc.List(context.Background(), ListLeadsInput{Status: " new ", Limit: 5000, Offset: -3})
	require.NoError(t, err)
	_, err = uc.List(context.Background(), ListLeadsInput{Source: "seller_form"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestManageLeadUpdate(t *testing.T) {
	t.Run("assigns owner and status", func(t *testing.T) {
		uc, repo, owners := newManageUseCase(t)
		owners.On("FindByID", mock.Anything, ownerID).Return(&entity.Owner{ID: ownerID}, nil)
		repo.On("Update", mock.Anything, leadID, entity.LeadUpdate{Status: strPtr("contacted"), AssignedOwnerID: strPtr(ownerID)}).
			Return(&entity.Lead{ID: leadID, Status: "contacted", AssignedOwnerID: ownerID}, nil)

		lead, err := uc.Update(context.Background(), leadID, UpdateLeadInput{Status: strPtr(" contacted "), AssignedOwnerID: strPtr(ownerID)})

		require.NoError(t, err)
		assert.Equal(t, ownerID, lead.AssignedOwnerID)
	})

	t.Run("empty owner unassigns without lookup", func(t *testing.T) {
		uc, repo, owners := newManageUseCase(t)
		repo.On("Update", mock.Anything, leadID, entity.LeadUpdate{AssignedOwnerID: strPtr("")}).Return(&entity.Lead{ID: leadID}, nil)

		_, err := uc.Update(context.Background(), leadID, UpdateLeadInput{AssignedOwnerID: strPtr("")})

		require.NoError(t, err)
		owners.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown owner", func(t *testing.T) {
		uc, repo, owners := newManageUseCase(t)
		owners.On("FindByID", mock.Anything, ghostOwnerID).Return(nil, entity.ErrOwnerNotFound)

		_, err := uc.Update(context.Background(), leadID, UpdateLeadInput{AssignedOwnerID: strPtr(ghostOwnerID)})

		verrs, ok := AsValidationErrors(err)
		require.True(t, ok)
		assert.Equal(t, "assignedOwnerId", verrs[0].Field)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty body", func(t *testing.T) {
		uc, _, _ := newManageUseCase(t)
		_, err := uc.Update(context.Background(), leadID, UpdateLeadInput{})
		_, ok := AsValidationErrors(err)
		assert.True(t, ok)
	})

	t.Run("missing lead", func(t *testing.T) {
		uc, repo, _ := newManageUseCase(t)
		repo.On("Update", mock.Anything, missingID, mock.Anything).Return(nil, entity.ErrLeadNotFound)

		_, err := uc.Update(context.Background(), missingID, UpdateLeadInput{Notes: strPtr("called twice")})

		assert.ErrorIs(t, err, entity.ErrLeadNotFound)
	})
}

func TestManageLeadDelete(t *testing.T) {
	uc, repo, _ := newManageUseCase(t)
	repo.On("Delete", mock.Anything, leadID).Return(nil)
	repo.On("Delete", mock.Anything, missingID).Return(entity.ErrLeadNotFound)
	repo.On("Delete", mock.Anything, brokenID).Return(errors.New("fk violation"))

	assert.NoError(t, uc.Delete(context.Background(), leadID))
	assert.ErrorIs(t, uc.Delete(context.Background(), missingID), entity.ErrLeadNotFound)
	assert.True(t, IsTechnicalError(uc.Delete(context.Background(), brokenID)))
}

// TestManageLeadMalformedIDs - Id que não é UUID nunca chega ao banco
func TestManageLeadMalformedIDs(t *testing.T) {
	uc, repo, owners := newManageUseCase(t)
	ctx := context.Background()

	_, err := uc.Get(ctx, "abc")
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)

	_, err = uc.Update(ctx, "abc", UpdateLeadInput{Notes: strPtr("called")})
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)

	assert.ErrorIs(t, uc.Delete(ctx, "abc"), entity.ErrLeadNotFound)

	_, err = uc.Update(ctx, leadID, UpdateLeadInput{AssignedOwnerID: strPtr("agent-7")})
	verrs, ok := AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, "assignedOwnerId", verrs[0].Field)

	_, err = uc.List(ctx, ListLeadsInput{OwnerID: "agent-7"})
	verrs, ok = AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, "owner", verrs[0].Field)

	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	owners.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}
