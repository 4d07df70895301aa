package service

import (
	"encoding/json"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/planfab/scheduler/cmd/scheduler/models"
)

// ApprovalPolicy decides whether a rollback is auto-approved. The
// policy is a CEL expression evaluated against the rollback record and
// the target version's metrics, e.g.
//
//	rollback.rollback_type == 'full' && metrics.constraintViolations == 0
//
// The default policy "true" approves everything (the single-actor,
// self-approved case).
type ApprovalPolicy struct {
	expression string
	program    cel.Program
}

// NewApprovalPolicy compiles a CEL approval expression
func NewApprovalPolicy(expression string) (*ApprovalPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("rollback", cel.DynType),
		cel.Variable("metrics", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid approval policy %q: %w", expression, issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &ApprovalPolicy{
		expression: expression,
		program:    program,
	}, nil
}

// Approve evaluates the policy for one rollback
func (p *ApprovalPolicy) Approve(rollback *models.VersionRollback, metrics models.Metrics) (bool, error) {
	rollbackVars, err := toCELValue(rollback)
	if err != nil {
		return false, err
	}
	metricVars, err := toCELValue(metrics)
	if err != nil {
		return false, err
	}

	out, _, err := p.program.Eval(map[string]any{
		"rollback": rollbackVars,
		"metrics":  metricVars,
	})
	if err != nil {
		return false, fmt.Errorf("approval policy evaluation error: %w", err)
	}

	approved, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("approval policy %q did not return boolean, got %T", p.expression, out.Value())
	}

	return approved, nil
}

// toCELValue converts a struct into the generic map form CEL's dyn
// variables expect
func toCELValue(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy input: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode policy input: %w", err)
	}

	return out, nil
}
