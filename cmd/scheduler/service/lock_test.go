package service

import (
	"testing"

	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/stretchr/testify/assert"
)

func TestConflicts_Matrix(t *testing.T) {
	cases := []struct {
		name      string
		existing  models.LockType
		requested models.LockType
		want      bool
	}{
		{"read vs read", models.LockRead, models.LockRead, false},
		{"read vs write", models.LockRead, models.LockWrite, false},
		{"write vs read", models.LockWrite, models.LockRead, false},
		{"write vs write", models.LockWrite, models.LockWrite, true},
		{"exclusive vs read", models.LockExclusive, models.LockRead, true},
		{"exclusive vs write", models.LockExclusive, models.LockWrite, true},
		{"exclusive vs exclusive", models.LockExclusive, models.LockExclusive, true},
		{"read vs exclusive", models.LockRead, models.LockExclusive, true},
		{"write vs exclusive", models.LockWrite, models.LockExclusive, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, conflicts(tc.existing, tc.requested))
		})
	}
}

func TestConflicts_ExclusiveBlocksEverything(t *testing.T) {
	for _, other := range []models.LockType{models.LockRead, models.LockWrite, models.LockExclusive} {
		assert.True(t, conflicts(models.LockExclusive, other))
		assert.True(t, conflicts(other, models.LockExclusive))
	}
}

func TestConflicts_ReadWriteAsymmetry(t *testing.T) {
	// Read neither blocks nor is blocked by write. Kept as observed
	// behavior; revisit here if the policy ever changes.
	assert.False(t, conflicts(models.LockRead, models.LockWrite))
	assert.False(t, conflicts(models.LockWrite, models.LockRead))
}
