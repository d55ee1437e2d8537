package condition

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustle-deploy/rustle-deploy/internal/plan"
)

func TestEval_EmptyListIsTrue(t *testing.T) {
	require.True(t, Eval(nil, Context{}))
}

func TestEval_ExistsAndNotExists(t *testing.T) {
	ctx := Context{Facts: map[string]any{"os": "linux"}}

	require.True(t, Eval([]plan.Condition{{Var: "os", Op: plan.OpExists}}, ctx))
	require.False(t, Eval([]plan.Condition{{Var: "missing", Op: plan.OpExists}}, ctx))
	require.True(t, Eval([]plan.Condition{{Var: "missing", Op: plan.OpNotExists}}, ctx))
	require.False(t, Eval([]plan.Condition{{Var: "os", Op: plan.OpNotExists}}, ctx))
}

func TestEval_AbsentVariableIsFalseForEveryOtherOperator(t *testing.T) {
	ctx := Context{}
	ops := []plan.ConditionOp{
		plan.OpEquals, plan.OpNotEquals, plan.OpContains,
		plan.OpStartsWith, plan.OpEndsWith, plan.OpGreaterThan, plan.OpLessThan,
	}
	for _, op := range ops {
		cond := plan.Condition{Var: "ghost", Op: op, Value: "x"}
		require.False(t, Eval([]plan.Condition{cond}, ctx), "op=%s", op)
	}
}

func TestEval_ConditionalSkipScenario(t *testing.T) {
	ctx := Context{Facts: map[string]any{"ansible_system": "Darwin"}}
	cond := plan.Condition{Var: "ansible_system", Op: plan.OpEquals, Value: "Linux"}
	require.False(t, Eval([]plan.Condition{cond}, ctx))
}

func TestEval_DotPathResolution(t *testing.T) {
	ctx := Context{Facts: map[string]any{
		"network": map[string]any{"primary": map[string]any{"address": "10.0.0.1"}},
	}}
	cond := plan.Condition{Var: "network.primary.address", Op: plan.OpEquals, Value: "10.0.0.1"}
	require.True(t, Eval([]plan.Condition{cond}, ctx))
}

func TestEval_NumericComparisonWithStringCoercion(t *testing.T) {
	ctx := Context{Facts: map[string]any{"mem_mb": "2048"}}
	require.True(t, Eval([]plan.Condition{{Var: "mem_mb", Op: plan.OpGreaterThan, Value: 1024.0}}, ctx))
	require.False(t, Eval([]plan.Condition{{Var: "mem_mb", Op: plan.OpLessThan, Value: 1024.0}}, ctx))
}

func TestEval_IncompatibleNumericTypesReturnFalse(t *testing.T) {
	ctx := Context{Facts: map[string]any{"flavor": "not-a-number"}}
	require.False(t, Eval([]plan.Condition{{Var: "flavor", Op: plan.OpGreaterThan, Value: 5.0}}, ctx))
}

func TestEval_AndSemanticsAcrossMultipleConditions(t *testing.T) {
	ctx := Context{Facts: map[string]any{"os": "linux", "arch": "x86_64"}}
	conds := []plan.Condition{
		{Var: "os", Op: plan.OpEquals, Value: "linux"},
		{Var: "arch", Op: plan.OpEquals, Value: "aarch64"},
	}
	require.False(t, Eval(conds, ctx))
}

func TestEval_IsPure(t *testing.T) {
	ctx := Context{Facts: map[string]any{"os": "linux"}}
	cond := []plan.Condition{{Var: "os", Op: plan.OpEquals, Value: "linux"}}
	require.Equal(t, Eval(cond, ctx), Eval(cond, ctx))
}
