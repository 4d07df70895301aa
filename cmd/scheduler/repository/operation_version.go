package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/db"
)

// OperationVersionRepository handles per-operation change records
type OperationVersionRepository struct {
	db *db.DB
}

// NewOperationVersionRepository creates a new operation version repository
func NewOperationVersionRepository(database *db.DB) *OperationVersionRepository {
	return &OperationVersionRepository{db: database}
}

// CreateBatch inserts a batch of change records
func (r *OperationVersionRepository) CreateBatch(ctx context.Context, records []*models.OperationVersion) error {
	query := `
		INSERT INTO operation_versions (
			id, version_id, operation_id, change_type,
			changed_fields, previous_values, new_values
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, record := range records {
		changedFieldsJSON, err := json.Marshal(record.ChangedFields)
		if err != nil {
			return fmt.Errorf("failed to marshal changed fields: %w", err)
		}
		previousJSON, err := json.Marshal(record.PreviousValues)
		if err != nil {
			return fmt.Errorf("failed to marshal previous values: %w", err)
		}
		newJSON, err := json.Marshal(record.NewValues)
		if err != nil {
			return fmt.Errorf("failed to marshal new values: %w", err)
		}

		_, err = r.db.Exec(ctx, query,
			record.ID,
			record.VersionID,
			record.OperationID,
			record.ChangeType,
			changedFieldsJSON,
			previousJSON,
			newJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to create operation version: %w", err)
		}
	}

	return nil
}

// ListByVersion retrieves all change records attached to a version
func (r *OperationVersionRepository) ListByVersion(ctx context.Context, versionID uuid.UUID) ([]*models.OperationVersion, error) {
	query := `
		SELECT id, version_id, operation_id, change_type,
		       changed_fields, previous_values, new_values, created_at
		FROM operation_versions
		WHERE version_id = $1
		ORDER BY operation_id ASC
	`

	rows, err := r.db.Query(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list operation versions: %w", err)
	}
	defer rows.Close()

	var records []*models.OperationVersion
	for rows.Next() {
		record := &models.OperationVersion{}
		var changedFieldsJSON, previousJSON, newJSON []byte
		err := rows.Scan(
			&record.ID,
			&record.VersionID,
			&record.OperationID,
			&record.ChangeType,
			&changedFieldsJSON,
			&previousJSON,
			&newJSON,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation version: %w", err)
		}

		if err := json.Unmarshal(changedFieldsJSON, &record.ChangedFields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changed fields: %w", err)
		}
		if err := json.Unmarshal(previousJSON, &record.PreviousValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal previous values: %w", err)
		}
		if err := json.Unmarshal(newJSON, &record.NewValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new values: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operation versions: %w", err)
	}

	return records, nil
}
