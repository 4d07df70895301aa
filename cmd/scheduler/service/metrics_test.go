package service

import (
	"testing"
	"time"

	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(hour, minute int) *time.Time {
	t := time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
	return &t
}

func strPtr(s string) *string { return &s }

func scheduledOp(id int64, start, end *time.Time) models.OperationSnapshot {
	return models.OperationSnapshot{
		ID:             id,
		JobID:          1,
		ScheduledStart: start,
		ScheduledEnd:   end,
		Quantity:       1,
	}
}

func TestComputeMetrics_EmptySetYieldsZeros(t *testing.T) {
	metrics := ComputeMetrics(&models.Snapshot{ScheduleID: 1})

	assert.Equal(t, models.Metrics{}, metrics)
}

func TestComputeMetrics_UnscheduledOpsIgnored(t *testing.T) {
	snapshot := &models.Snapshot{
		ScheduleID: 1,
		Operations: []models.OperationSnapshot{
			{ID: 1, JobID: 1, ScheduledStart: ts(8, 0)},
			{ID: 2, JobID: 1, ScheduledEnd: ts(12, 0)},
		},
	}

	assert.Equal(t, models.Metrics{}, ComputeMetrics(snapshot))
}

func TestComputeMetrics_BackToBackMakespan(t *testing.T) {
	snapshot := &models.Snapshot{
		ScheduleID: 1,
		Operations: []models.OperationSnapshot{
			scheduledOp(1, ts(8, 0), ts(10, 0)),
			scheduledOp(2, ts(10, 0), ts(12, 0)),
		},
	}

	metrics := ComputeMetrics(snapshot)

	assert.InDelta(t, 4, metrics.Makespan, 1e-9)
	assert.InDelta(t, 4, metrics.TotalWorkingHours, 1e-9)
}

func TestComputeMetrics_ResourceUtilizationCapped(t *testing.T) {
	r1 := "R1"
	a := scheduledOp(1, ts(8, 0), ts(12, 0))
	a.ResourceID = &r1
	b := scheduledOp(2, ts(8, 0), ts(12, 0))
	b.ResourceID = &r1

	metrics := ComputeMetrics(&models.Snapshot{ScheduleID: 1, Operations: []models.OperationSnapshot{a, b}})

	// 8 working hours over a 4-hour makespan on one resource
	assert.InDelta(t, 100, metrics.ResourceUtilization, 1e-9)
}

func TestComputeMetrics_OTIFAndConstraints(t *testing.T) {
	onTime := scheduledOp(1, ts(8, 0), ts(10, 0))
	onTime.DueDate = ts(10, 0)

	late := scheduledOp(2, ts(10, 0), ts(12, 0))
	late.DueDate = ts(11, 0)
	late.ConstraintType = strPtr("must_start_on")
	late.ConstraintDate = ts(10, 0)

	noDue := scheduledOp(3, ts(8, 0), ts(9, 0))

	metrics := ComputeMetrics(&models.Snapshot{
		ScheduleID: 1,
		Operations: []models.OperationSnapshot{onTime, late, noDue},
	})

	assert.InDelta(t, 50, metrics.OTIF, 1e-9)
	assert.Equal(t, 1, metrics.ConstraintViolations)
}

func TestComputeMetrics_ThruputAndCost(t *testing.T) {
	a := scheduledOp(1, ts(8, 0), ts(12, 0))
	a.Quantity = 10
	a.SetupCost = 20
	a.RunCost = 3
	a.SetupHours = 0.5

	b := scheduledOp(2, ts(12, 0), ts(20, 0))
	b.Quantity = 2
	b.SetupCost = 4
	b.RunCost = 1
	b.SetupHours = 1

	metrics := ComputeMetrics(&models.Snapshot{ScheduleID: 1, Operations: []models.OperationSnapshot{a, b}})

	// 12 units over a 12-hour (0.5 day) makespan
	assert.InDelta(t, 24, metrics.Thruput, 1e-9)
	// (20 + 4 + 3*10 + 1*2) / 12 = 4.67 after rounding
	assert.InDelta(t, 4.67, metrics.CostPerUnit, 1e-9)
	assert.InDelta(t, 1.5, metrics.TotalSetupTime, 1e-9)
}

func TestComputeChecksum_Deterministic(t *testing.T) {
	snapshot := &models.Snapshot{
		ScheduleID: 1,
		Operations: []models.OperationSnapshot{scheduledOp(1, ts(8, 0), ts(10, 0))},
		Metadata: models.SnapshotMetadata{
			OperationCount: 1,
			Timestamp:      time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
			Source:         models.SourceManual,
		},
	}

	first, err := ComputeChecksum(snapshot)
	require.NoError(t, err)
	second, err := ComputeChecksum(snapshot)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, first)
}

func TestComputeChecksum_IgnoresCaptureMetadata(t *testing.T) {
	base := &models.Snapshot{
		ScheduleID: 1,
		Operations: []models.OperationSnapshot{scheduledOp(1, ts(8, 0), ts(10, 0))},
		Metadata: models.SnapshotMetadata{
			Timestamp: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
			Source:    models.SourceManual,
		},
	}
	recaptured := *base
	recaptured.Metadata.Timestamp = time.Date(2025, 3, 11, 9, 30, 0, 0, time.UTC)
	recaptured.Metadata.Source = models.SourceAutoSave

	first, err := ComputeChecksum(base)
	require.NoError(t, err)
	second, err := ComputeChecksum(&recaptured)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeChecksum_SensitiveToFieldChanges(t *testing.T) {
	base := &models.Snapshot{
		ScheduleID: 1,
		Operations: []models.OperationSnapshot{scheduledOp(1, ts(8, 0), ts(10, 0))},
	}
	moved := &models.Snapshot{
		ScheduleID: 1,
		Operations: []models.OperationSnapshot{scheduledOp(1, ts(8, 0), ts(11, 0))},
	}

	first, err := ComputeChecksum(base)
	require.NoError(t, err)
	second, err := ComputeChecksum(moved)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
