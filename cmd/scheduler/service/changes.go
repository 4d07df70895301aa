package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/cmd/scheduler/repository"
	"github.com/planfab/scheduler/common/logger"
	"github.com/planfab/scheduler/common/queue"
)

// ChangeTracker records per-operation diffs between a version and its
// parent. It runs off the queue, decoupled from the create path: a
// tracker failure is logged and the version stands. Audit detail is
// nice to have, the version itself is must have.
type ChangeTracker struct {
	versions          *repository.VersionRepository
	operationVersions *repository.OperationVersionRepository
	queue             queue.Queue
	log               *logger.Logger
}

// NewChangeTracker creates a new change tracker
func NewChangeTracker(
	versions *repository.VersionRepository,
	operationVersions *repository.OperationVersionRepository,
	q queue.Queue,
	log *logger.Logger,
) *ChangeTracker {
	return &ChangeTracker{
		versions:          versions,
		operationVersions: operationVersions,
		queue:             q,
		log:               log,
	}
}

// Start subscribes to version-created events until ctx is done
func (t *ChangeTracker) Start(ctx context.Context) error {
	return t.queue.Subscribe(ctx, TopicVersionCreated, t.handleVersionCreated)
}

func (t *ChangeTracker) handleVersionCreated(ctx context.Context, key string, value []byte) error {
	var event VersionCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to decode version event: %w", err)
	}

	if err := t.Track(ctx, event.VersionID, event.ParentVersionID); err != nil {
		return fmt.Errorf("failed to track changes for version %s: %w", event.VersionID, err)
	}

	return nil
}

// Track computes and persists the operation-level diff between a
// version and its parent. Without a parent every operation is recorded
// as created.
func (t *ChangeTracker) Track(ctx context.Context, versionID uuid.UUID, parentVersionID *uuid.UUID) error {
	version, err := t.versions.GetByID(ctx, versionID)
	if err != nil {
		return err
	}
	if version == nil {
		return fmt.Errorf("version %s disappeared before tracking", versionID)
	}

	var parentOps []models.OperationSnapshot
	if parentVersionID != nil {
		parent, err := t.versions.GetByID(ctx, *parentVersionID)
		if err != nil {
			return err
		}
		if parent != nil {
			parentOps = parent.SnapshotData.Operations
		}
	}

	records, err := DiffOperations(versionID, parentOps, version.SnapshotData.Operations)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	if err := t.operationVersions.CreateBatch(ctx, records); err != nil {
		return err
	}

	t.log.Debug("operation changes tracked",
		"version_id", versionID,
		"records", len(records),
	)

	return nil
}

// DiffOperations buckets operations into created/updated/deleted records
// relative to the parent set. Field-level changes are detected through
// JSON merge patches so the record survives schema drift.
func DiffOperations(versionID uuid.UUID, before, after []models.OperationSnapshot) ([]*models.OperationVersion, error) {
	beforeByID := make(map[int64]models.OperationSnapshot, len(before))
	for _, op := range before {
		beforeByID[op.ID] = op
	}

	var records []*models.OperationVersion

	for _, op := range after {
		prev, existed := beforeByID[op.ID]
		if !existed {
			values, err := operationValues(op)
			if err != nil {
				return nil, err
			}
			records = append(records, &models.OperationVersion{
				ID:          uuid.New(),
				VersionID:   versionID,
				OperationID: op.ID,
				ChangeType:  models.ChangeCreated,
				NewValues:   values,
			})
			continue
		}
		delete(beforeByID, op.ID)

		changed, newValues, prevValues, err := operationDelta(prev, op)
		if err != nil {
			return nil, err
		}
		if len(changed) == 0 {
			continue
		}

		records = append(records, &models.OperationVersion{
			ID:             uuid.New(),
			VersionID:      versionID,
			OperationID:    op.ID,
			ChangeType:     models.ChangeUpdated,
			ChangedFields:  changed,
			PreviousValues: prevValues,
			NewValues:      newValues,
		})
	}

	for _, op := range before {
		if _, stillDeleted := beforeByID[op.ID]; !stillDeleted {
			continue
		}
		values, err := operationValues(op)
		if err != nil {
			return nil, err
		}
		records = append(records, &models.OperationVersion{
			ID:             uuid.New(),
			VersionID:      versionID,
			OperationID:    op.ID,
			ChangeType:     models.ChangeDeleted,
			PreviousValues: values,
		})
	}

	return records, nil
}

// operationDelta extracts the changed field names plus both sides'
// values via forward and reverse merge patches
func operationDelta(before, after models.OperationSnapshot) ([]string, map[string]any, map[string]any, error) {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal operation %d: %w", before.ID, err)
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal operation %d: %w", after.ID, err)
	}

	forward, err := jsonpatch.CreateMergePatch(beforeJSON, afterJSON)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to diff operation %d: %w", after.ID, err)
	}
	reverse, err := jsonpatch.CreateMergePatch(afterJSON, beforeJSON)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to diff operation %d: %w", after.ID, err)
	}

	var newValues, prevValues map[string]any
	if err := json.Unmarshal(forward, &newValues); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode forward patch: %w", err)
	}
	if err := json.Unmarshal(reverse, &prevValues); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode reverse patch: %w", err)
	}

	if len(newValues) == 0 {
		return nil, nil, nil, nil
	}

	changed := make([]string, 0, len(newValues))
	for field := range newValues {
		changed = append(changed, field)
	}
	sort.Strings(changed)

	return changed, newValues, prevValues, nil
}

func operationValues(op models.OperationSnapshot) (map[string]any, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal operation %d: %w", op.ID, err)
	}

	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode operation %d: %w", op.ID, err)
	}

	return values, nil
}
