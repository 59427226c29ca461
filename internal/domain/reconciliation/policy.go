package reconciliation

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"stockbook/internal/core/types"
)

// DefaultReasonPolicy requires an explanation for any non-zero variance.
const DefaultReasonPolicy = `variance != 0`

// VariancePolicy decides whether a counted variance needs a written
// reason. The rule is a CEL expression configured per deployment, so
// operations can tune tolerance (e.g. ignore single-unit drift on
// high-volume items) without a code change.
//
// Available variables:
//
//	variance       int    counted minus system quantity
//	system_stock   int    snapshot quantity at reconciliation creation
//	variance_value double variance valued at the snapshot cost
type VariancePolicy struct {
	expr    string
	program cel.Program
}

// NewVariancePolicy compiles the expression. The expression must
// evaluate to a boolean; true means a reason is required.
func NewVariancePolicy(expr string) (*VariancePolicy, error) {
	if expr == "" {
		expr = DefaultReasonPolicy
	}

	env, err := cel.NewEnv(
		cel.Variable("variance", cel.IntType),
		cel.Variable("system_stock", cel.IntType),
		cel.Variable("variance_value", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create policy env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile variance policy %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("variance policy %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build variance policy program: %w", err)
	}

	return &VariancePolicy{expr: expr, program: program}, nil
}

// MustVariancePolicy panics on a bad expression; for defaults and tests.
func MustVariancePolicy(expr string) *VariancePolicy {
	p, err := NewVariancePolicy(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// ReasonRequired evaluates the policy for one counted item.
func (p *VariancePolicy) ReasonRequired(variance, systemStock types.Quantity, varianceValue types.Money) (bool, error) {
	out, _, err := p.program.Eval(map[string]any{
		"variance":       variance,
		"system_stock":   systemStock,
		"variance_value": varianceValue.InexactFloat64(),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate variance policy: %w", err)
	}

	required, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("variance policy returned %T, want bool", out.Value())
	}
	return required, nil
}

// String returns the policy expression.
func (p *VariancePolicy) String() string {
	return p.expr
}
