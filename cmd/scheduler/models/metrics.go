package models

// Metrics is the derived performance bundle stored with every version
type Metrics struct {
	// Elapsed hours between earliest scheduled start and latest end
	Makespan float64 `json:"makespan"`
	// Sum of per-operation durations, in hours
	TotalWorkingHours float64 `json:"totalWorkingHours"`
	// Percentage of available resource-hours consumed, capped at 100
	ResourceUtilization float64 `json:"resourceUtilization"`
	// On-time-in-full percentage of operations with a due date
	OTIF float64 `json:"otif"`
	// Units produced per day of makespan
	Thruput float64 `json:"thruput"`
	// (setup cost + run cost x quantity) per unit
	CostPerUnit float64 `json:"costPerUnit"`
	// Sum of per-operation setup hours
	TotalSetupTime float64 `json:"totalSetupTime"`
	// Operations pinned under both a constraint type and date
	ConstraintViolations int `json:"constraintViolations"`
	// Reserved for resource-switch counting
	TotalChangeovers int `json:"totalChangeovers"`
}

// MetricsDelta is the field-wise difference between two metric bundles
type MetricsDelta struct {
	Makespan             float64 `json:"makespan"`
	TotalWorkingHours    float64 `json:"totalWorkingHours"`
	ResourceUtilization  float64 `json:"resourceUtilization"`
	OTIF                 float64 `json:"otif"`
	Thruput              float64 `json:"thruput"`
	CostPerUnit          float64 `json:"costPerUnit"`
	TotalSetupTime       float64 `json:"totalSetupTime"`
	ConstraintViolations int     `json:"constraintViolations"`
	TotalChangeovers     int     `json:"totalChangeovers"`
}

// Delta returns other - m for every field
func (m Metrics) Delta(other Metrics) MetricsDelta {
	return MetricsDelta{
		Makespan:             other.Makespan - m.Makespan,
		TotalWorkingHours:    other.TotalWorkingHours - m.TotalWorkingHours,
		ResourceUtilization:  other.ResourceUtilization - m.ResourceUtilization,
		OTIF:                 other.OTIF - m.OTIF,
		Thruput:              other.Thruput - m.Thruput,
		CostPerUnit:          other.CostPerUnit - m.CostPerUnit,
		TotalSetupTime:       other.TotalSetupTime - m.TotalSetupTime,
		ConstraintViolations: other.ConstraintViolations - m.ConstraintViolations,
		TotalChangeovers:     other.TotalChangeovers - m.TotalChangeovers,
	}
}
