package entity

import (
	"context"
	"time"
)

// SpamLogEntry keeps discarded and borderline submissions for rule tuning.
type SpamLogEntry struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	Message   string         `json:"message"`
	Source    LeadSource     `json:"source"`
	Score     int            `json:"score"`
	IsSpam    bool           `json:"is_spam"`
	Breakdown map[string]int `json:"breakdown"`
	CreatedAt time.Time      `json:"created_at"`
}

type SpamLogRepositoryInterface interface {
	Record(ctx context.Context, entry *SpamLogEntry) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
