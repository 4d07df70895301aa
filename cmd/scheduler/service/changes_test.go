package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffOperations_CreatedUpdatedDeleted(t *testing.T) {
	versionID := uuid.New()

	kept := scheduledOp(1, ts(8, 0), ts(10, 0))
	kept.Name = "Cut"

	moved := scheduledOp(2, ts(10, 0), ts(12, 0))
	moved.Name = "Weld"
	r1 := "R1"
	moved.ResourceID = &r1

	removed := scheduledOp(3, ts(12, 0), ts(13, 0))
	removed.Name = "Paint"

	movedAfter := moved
	r2 := "R2"
	movedAfter.ResourceID = &r2
	movedAfter.ScheduledStart = ts(11, 0)

	added := scheduledOp(4, ts(13, 0), ts(14, 0))
	added.Name = "Pack"

	before := []models.OperationSnapshot{kept, moved, removed}
	after := []models.OperationSnapshot{kept, movedAfter, added}

	records, err := DiffOperations(versionID, before, after)
	require.NoError(t, err)
	require.Len(t, records, 3)

	byOp := make(map[int64]*models.OperationVersion)
	for _, rec := range records {
		assert.Equal(t, versionID, rec.VersionID)
		byOp[rec.OperationID] = rec
	}

	created := byOp[4]
	require.NotNil(t, created)
	assert.Equal(t, models.ChangeCreated, created.ChangeType)
	assert.Equal(t, "Pack", created.NewValues["name"])
	assert.Nil(t, created.PreviousValues)

	updated := byOp[2]
	require.NotNil(t, updated)
	assert.Equal(t, models.ChangeUpdated, updated.ChangeType)
	assert.Equal(t, []string{"resourceId", "scheduledStart"}, updated.ChangedFields)
	assert.Equal(t, "R2", updated.NewValues["resourceId"])
	assert.Equal(t, "R1", updated.PreviousValues["resourceId"])

	deleted := byOp[3]
	require.NotNil(t, deleted)
	assert.Equal(t, models.ChangeDeleted, deleted.ChangeType)
	assert.Equal(t, "Paint", deleted.PreviousValues["name"])
	assert.Nil(t, deleted.NewValues)
}

func TestDiffOperations_NoChanges(t *testing.T) {
	ops := []models.OperationSnapshot{
		scheduledOp(1, ts(8, 0), ts(10, 0)),
		scheduledOp(2, ts(10, 0), ts(12, 0)),
	}

	records, err := DiffOperations(uuid.New(), ops, ops)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDiffOperations_NoParentRecordsEverythingCreated(t *testing.T) {
	after := []models.OperationSnapshot{
		scheduledOp(1, ts(8, 0), ts(10, 0)),
		scheduledOp(2, ts(10, 0), ts(12, 0)),
	}

	records, err := DiffOperations(uuid.New(), nil, after)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, models.ChangeCreated, rec.ChangeType)
	}
}
