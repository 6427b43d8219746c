package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/realty-leads/internal/entity"
)

// OwnerRepository looks up the agents leads are assigned to.
type OwnerRepository struct {
	DB *sql.DB
}

func NewOwnerRepository(db *sql.DB) *OwnerRepository {
	return &OwnerRepository{DB: db}
}

func (r *OwnerRepository) FindByID(ctx context.Context, id string) (*entity.Owner, error) {
	var owner entity.Owner
	var email sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id, name, email FROM agents WHERE id = $1`, id).
		Scan(&owner.ID, &owner.Name, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrOwnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find agent: %w", err)
	}
	owner.Email = email.String
	return &owner, nil
}
