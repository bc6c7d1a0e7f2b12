package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

// MappingRepository persists pseudonym mappings in Postgres.
type MappingRepository struct {
	db *sqlx.DB
}

// NewMappingRepository creates a new mapping repository.
func NewMappingRepository(db *sqlx.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Save inserts a mapping; an existing pseudonym is left untouched since
// derivation is deterministic and the original row already holds the value.
func (r *MappingRepository) Save(ctx context.Context, mapping *models.PseudonymizationMapping) error {
	query := `
		INSERT INTO pseudonym_mappings (pseudonym, original_value, field_name, method, created_at, expires_at, reversible)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pseudonym) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		mapping.Pseudonym,
		mapping.OriginalValue,
		mapping.FieldName,
		mapping.Method,
		mapping.CreatedAt,
		mapping.ExpiresAt,
		mapping.Reversible,
	)
	if err != nil {
		return fmt.Errorf("save pseudonym mapping: %w", err)
	}
	return nil
}

// FindByPseudonym returns the mapping or nil when none exists.
func (r *MappingRepository) FindByPseudonym(ctx context.Context, pseudonym string) (*models.PseudonymizationMapping, error) {
	query := `
		SELECT pseudonym, original_value, field_name, method, created_at, expires_at, reversible
		FROM pseudonym_mappings
		WHERE pseudonym = $1`

	var mapping models.PseudonymizationMapping
	if err := r.db.GetContext(ctx, &mapping, query, pseudonym); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pseudonym mapping: %w", err)
	}
	return &mapping, nil
}

// DeleteExpired removes mappings past their expiry and returns the count.
func (r *MappingRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pseudonym_mappings WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired mappings: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted mappings: %w", err)
	}
	return affected, nil
}
