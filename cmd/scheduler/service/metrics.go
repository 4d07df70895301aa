package service

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"

	"github.com/planfab/scheduler/cmd/scheduler/models"
)

// checksumPayload is the canonical form hashed for a snapshot. Capture
// metadata (timestamp, trigger source) is excluded on purpose: two
// captures of identical content must produce identical checksums no
// matter when or why they were taken.
type checksumPayload struct {
	ScheduleID   int64                      `json:"scheduleId"`
	Operations   []models.OperationSnapshot `json:"operations"`
	Resources    []models.ResourceSnapshot  `json:"resources"`
	Dependencies []models.Dependency        `json:"dependencies"`
}

// ComputeChecksum hashes the canonical serialization of a snapshot.
// Deterministic: identical content yields identical output, any field
// change yields a different one.
func ComputeChecksum(snapshot *models.Snapshot) (string, error) {
	payload := checksumPayload{
		ScheduleID:   snapshot.ScheduleID,
		Operations:   snapshot.Operations,
		Resources:    snapshot.Resources,
		Dependencies: snapshot.Dependencies,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize snapshot for checksum: %w", err)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", hash), nil
}

// ComputeMetrics derives the performance bundle for a snapshot. Only
// operations carrying both a scheduled start and end participate; an
// empty set yields all zeros, never a division error.
func ComputeMetrics(snapshot *models.Snapshot) models.Metrics {
	var metrics models.Metrics

	var scheduled []models.OperationSnapshot
	for _, op := range snapshot.Operations {
		if op.ScheduledStart != nil && op.ScheduledEnd != nil {
			scheduled = append(scheduled, op)
		}
	}

	if len(scheduled) == 0 {
		return metrics
	}

	minStart := *scheduled[0].ScheduledStart
	maxEnd := *scheduled[0].ScheduledEnd
	resources := make(map[string]struct{})

	var totalUnits, totalSetupCost, totalRunCost float64
	var withDueDate, onTime int

	for _, op := range scheduled {
		if op.ScheduledStart.Before(minStart) {
			minStart = *op.ScheduledStart
		}
		if op.ScheduledEnd.After(maxEnd) {
			maxEnd = *op.ScheduledEnd
		}

		metrics.TotalWorkingHours += op.ScheduledEnd.Sub(*op.ScheduledStart).Hours()
		metrics.TotalSetupTime += op.SetupHours

		if op.ResourceID != nil && *op.ResourceID != "" {
			resources[*op.ResourceID] = struct{}{}
		}

		if op.DueDate != nil {
			withDueDate++
			if !op.ScheduledEnd.After(*op.DueDate) {
				onTime++
			}
		}

		if op.ConstraintType != nil && op.ConstraintDate != nil {
			metrics.ConstraintViolations++
		}

		totalUnits += op.Quantity
		totalSetupCost += op.SetupCost
		totalRunCost += op.RunCost * op.Quantity
	}

	metrics.Makespan = maxEnd.Sub(minStart).Hours()

	if metrics.Makespan > 0 && len(resources) > 0 {
		utilization := metrics.TotalWorkingHours / (metrics.Makespan * float64(len(resources))) * 100
		metrics.ResourceUtilization = math.Min(utilization, 100)
	}

	if withDueDate > 0 {
		metrics.OTIF = round1(float64(onTime) / float64(withDueDate) * 100)
	}

	if metrics.Makespan > 0 {
		metrics.Thruput = round1(totalUnits / (metrics.Makespan / 24))
	}

	if totalUnits > 0 {
		metrics.CostPerUnit = round2((totalSetupCost + totalRunCost) / totalUnits)
	}

	return metrics
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
