package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/realty-leads/internal/entity"
)

const leadColumns = `id, name, email, phone, message, source, property_id, project_id,
	assigned_owner_id, status, notes, preferred_language, seller_details, metadata,
	spam_score, created_at, updated_at`

// Postgres error codes the lead store maps to domain errors.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

var ErrLeadExists = errors.New("lead already exists")

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	seller, err := jsonColumn(lead.Seller)
	if err != nil {
		return err
	}
	metadata, err := jsonColumn(lead.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		lead.Email,
		nullString(lead.Phone),
		nullString(lead.Message),
		string(lead.Source),
		nullString(lead.PropertyID),
		nullString(lead.ProjectID),
		nullString(lead.AssignedOwnerID),
		lead.Status,
		nullString(lead.Notes),
		nullString(lead.PreferredLanguage),
		seller,
		metadata,
		lead.SpamScore,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pqUniqueViolation:
				return ErrLeadExists
			case pqForeignKeyViolation:
				if strings.Contains(pqErr.Constraint, "owner") {
					return entity.ErrOwnerNotFound
				}
				return entity.ErrListingNotFound
			}
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) FindRecent(ctx context.Context, email string, ref entity.ListingRef, source entity.LeadSource, since time.Time) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE email = $1 AND source = $2 AND created_at >= $3`
	args := []any{email, string(source), since}
	switch ref.Kind {
	case entity.ListingProperty:
		query += ` AND property_id = $4`
		args = append(args, ref.ID)
	case entity.ListingProject:
		query += ` AND project_id = $4`
		args = append(args, ref.ID)
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find recent lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	lead, err := scanLead(r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Source != "" {
		add("source = $%d", string(filter.Source))
	}
	if filter.OwnerID != "" {
		add("assigned_owner_id = $%d", filter.OwnerID)
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]*entity.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) Update(ctx context.Context, id string, update entity.LeadUpdate) (*entity.Lead, error) {
	query := `
		UPDATE leads SET
			status = COALESCE($2, status),
			notes = COALESCE($3, notes),
			assigned_owner_id = CASE WHEN $4 THEN NULLIF($5::text, '') ELSE assigned_owner_id END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + leadColumns

	var owner string
	if update.AssignedOwnerID != nil {
		owner = *update.AssignedOwnerID
	}
	lead, err := scanLead(r.DB.QueryRowContext(ctx, query,
		id,
		update.Status,
		update.Notes,
		update.AssignedOwnerID != nil,
		owner,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return nil, entity.ErrOwnerNotFound
		}
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var lead entity.Lead
	var source string
	var phone, message, propertyID, projectID, ownerID, notes, language sql.NullString
	var seller, metadata []byte

	err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&phone,
		&message,
		&source,
		&propertyID,
		&projectID,
		&ownerID,
		&lead.Status,
		&notes,
		&language,
		&seller,
		&metadata,
		&lead.SpamScore,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.Source = entity.LeadSource(source)
	lead.Phone = phone.String
	lead.Message = message.String
	lead.PropertyID = propertyID.String
	lead.ProjectID = projectID.String
	lead.AssignedOwnerID = ownerID.String
	lead.Notes = notes.String
	lead.PreferredLanguage = language.String

	if len(seller) > 0 {
		lead.Seller = &entity.SellerDetails{}
		if err := json.Unmarshal(seller, lead.Seller); err != nil {
			return nil, fmt.Errorf("decode seller_details: %w", err)
		}
	}
	if len(metadata) > 0 {
		lead.Metadata = &entity.ContextMetadata{}
		if err := json.Unmarshal(metadata, lead.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &lead, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// jsonColumn encodes v for a jsonb column; nil stays NULL.
func jsonColumn[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}
