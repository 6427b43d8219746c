package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xavierca1/realty-leads/internal/entity"
)

type SpamLogRepository struct {
	DB *sql.DB
}

func NewSpamLogRepository(db *sql.DB) *SpamLogRepository {
	return &SpamLogRepository{DB: db}
}

func (r *SpamLogRepository) Record(ctx context.Context, e *entity.SpamLogEntry) error {
	breakdown, err := jsonColumn(&e.Breakdown)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO spam_log (id, email, name, message, source, score, is_spam, breakdown, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.DB.ExecContext(ctx, query,
		e.ID,
		e.Email,
		e.Name,
		nullString(e.Message),
		string(e.Source),
		e.Score,
		e.IsSpam,
		breakdown,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert spam log: %w", err)
	}
	return nil
}

func (r *SpamLogRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM spam_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge spam log: %w", err)
	}
	return res.RowsAffected()
}
