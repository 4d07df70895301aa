package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalPolicy_DefaultApprovesEverything(t *testing.T) {
	policy, err := NewApprovalPolicy("true")
	require.NoError(t, err)

	approved, err := policy.Approve(&models.VersionRollback{}, models.Metrics{})
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestApprovalPolicy_MetricsGate(t *testing.T) {
	policy, err := NewApprovalPolicy("metrics.constraintViolations == 0")
	require.NoError(t, err)

	rollback := &models.VersionRollback{
		ID:           uuid.New(),
		RollbackType: models.RollbackFull,
	}

	approved, err := policy.Approve(rollback, models.Metrics{ConstraintViolations: 0})
	require.NoError(t, err)
	assert.True(t, approved)

	approved, err = policy.Approve(rollback, models.Metrics{ConstraintViolations: 3})
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestApprovalPolicy_RollbackFields(t *testing.T) {
	policy, err := NewApprovalPolicy(`rollback.rollback_type == "full"`)
	require.NoError(t, err)

	approved, err := policy.Approve(&models.VersionRollback{RollbackType: models.RollbackFull}, models.Metrics{})
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestApprovalPolicy_RejectsInvalidExpression(t *testing.T) {
	_, err := NewApprovalPolicy("metrics.otif ==")
	assert.Error(t, err)
}

func TestApprovalPolicy_NonBooleanResult(t *testing.T) {
	policy, err := NewApprovalPolicy("metrics.otif")
	require.NoError(t, err)

	_, err = policy.Approve(&models.VersionRollback{}, models.Metrics{OTIF: 50})
	assert.Error(t, err)
}
