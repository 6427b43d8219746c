package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/realty-leads/internal/entity"
)

func TestSpamLogRepositoryRecord(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSpamLogRepository(db)
	entry := &entity.SpamLogEntry{
		ID:        "s-1",
		Email:     "x@gmail.com",
		Name:      "Spammer",
		Message:   "buy reviews",
		Source:    entity.SourceContactForm,
		Score:     60,
		IsSpam:    true,
		Breakdown: map[string]int{"keywords": 25},
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO spam_log").
		WithArgs("s-1", "x@gmail.com", "Spammer", "buy reviews", "contact_form", 60, true, `{"keywords":25}`, entry.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Record(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpamLogRepositoryPurge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSpamLogRepository(db)
	cutoff := time.Now().Add(-720 * time.Hour)

	mock.ExpectExec("DELETE FROM spam_log WHERE created_at < \\$1").WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.PurgeOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
}
