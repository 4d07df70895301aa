package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/db"
)

// ComparisonRepository handles persisted version comparisons
type ComparisonRepository struct {
	db *db.DB
}

// NewComparisonRepository creates a new comparison repository
func NewComparisonRepository(database *db.DB) *ComparisonRepository {
	return &ComparisonRepository{db: database}
}

// Create inserts a new comparison record
func (r *ComparisonRepository) Create(ctx context.Context, comparison *models.VersionComparison) error {
	differencesJSON, err := json.Marshal(comparison.Differences)
	if err != nil {
		return fmt.Errorf("failed to marshal differences: %w", err)
	}
	deltaJSON, err := json.Marshal(comparison.MetricsDelta)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics delta: %w", err)
	}

	query := `
		INSERT INTO version_comparisons (
			id, version_id_1, version_id_2, comparison_type,
			differences, conflict_count, metrics_delta, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err = r.db.QueryRow(ctx, query,
		comparison.ID,
		comparison.VersionID1,
		comparison.VersionID2,
		comparison.ComparisonType,
		differencesJSON,
		comparison.ConflictCount,
		deltaJSON,
		comparison.CreatedBy,
	).Scan(&comparison.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create version comparison: %w", err)
	}

	return nil
}

// GetByID retrieves a comparison by id, or nil if missing
func (r *ComparisonRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.VersionComparison, error) {
	query := `
		SELECT id, version_id_1, version_id_2, comparison_type,
		       differences, conflict_count, metrics_delta, created_by, created_at
		FROM version_comparisons
		WHERE id = $1
	`

	comparison := &models.VersionComparison{}
	var differencesJSON, deltaJSON []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&comparison.ID,
		&comparison.VersionID1,
		&comparison.VersionID2,
		&comparison.ComparisonType,
		&differencesJSON,
		&comparison.ConflictCount,
		&deltaJSON,
		&comparison.CreatedBy,
		&comparison.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version comparison: %w", err)
	}

	if err := json.Unmarshal(differencesJSON, &comparison.Differences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal differences: %w", err)
	}
	if err := json.Unmarshal(deltaJSON, &comparison.MetricsDelta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics delta: %w", err)
	}

	return comparison, nil
}
