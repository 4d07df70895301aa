package service

import (
	"testing"

	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(id, jobID int64, seq int) models.OperationSnapshot {
	return models.OperationSnapshot{
		ID:             id,
		JobID:          jobID,
		SequenceNumber: seq,
	}
}

func TestDeriveDependencies_ChainsWithinJob(t *testing.T) {
	ops := []models.OperationSnapshot{
		op(3, 1, 30),
		op(1, 1, 10),
		op(2, 1, 20),
	}

	deps := DeriveDependencies(ops)

	require.Len(t, deps, 2)
	assert.Equal(t, int64(1), deps[0].PredecessorID)
	assert.Equal(t, int64(2), deps[0].SuccessorID)
	assert.Equal(t, int64(2), deps[1].PredecessorID)
	assert.Equal(t, int64(3), deps[1].SuccessorID)

	for _, dep := range deps {
		assert.Equal(t, models.FinishToStart, dep.Type)
		assert.Zero(t, dep.LagHours)
	}
}

func TestDeriveDependencies_NoEdgesAcrossJobs(t *testing.T) {
	ops := []models.OperationSnapshot{
		op(1, 1, 10),
		op(2, 2, 20),
		op(3, 2, 30),
	}

	deps := DeriveDependencies(ops)

	require.Len(t, deps, 1)
	assert.Equal(t, int64(2), deps[0].PredecessorID)
	assert.Equal(t, int64(3), deps[0].SuccessorID)
}

func TestDeriveDependencies_Empty(t *testing.T) {
	assert.Empty(t, DeriveDependencies(nil))
	assert.Empty(t, DeriveDependencies([]models.OperationSnapshot{op(1, 1, 10)}))
}
