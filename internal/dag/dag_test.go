package dag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustle-deploy/rustle-deploy/internal/plan"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

func task(id string, index int, deps ...string) plan.Task {
	return plan.Task{ID: id, Module: "debug", Index: index, DependsOn: deps}
}

func TestBuild_TopologicalOrderIsStableAndValid(t *testing.T) {
	tasks := []plan.Task{
		task("t1", 0),
		task("t2", 1, "t1"),
		task("t3", 2, "t1"),
	}

	g, err := Build(tasks)
	require.NoError(t, err)
	require.Equal(t, []string{"t1"}, g.Levels[0])
	require.ElementsMatch(t, []string{"t2", "t3"}, g.Levels[1])

	g2, err := Build(tasks)
	require.NoError(t, err)
	require.Equal(t, g.Order, g2.Order, "re-computation must be deterministic")
}

func TestBuild_DetectsCycle(t *testing.T) {
	tasks := []plan.Task{
		task("t1", 0, "t3"),
		task("t2", 1, "t1"),
		task("t3", 2, "t2"),
	}

	_, err := Build(tasks)
	require.Error(t, err)
	var cyc *rerrors.DependencyCycle
	require.ErrorAs(t, err, &cyc)
	require.NotEmpty(t, cyc.Cycle)
}

func TestBuild_UnknownDependencyRejected(t *testing.T) {
	_, err := Build([]plan.Task{task("t1", 0, "ghost")})
	require.Error(t, err)
	var ref *rerrors.UnknownReference
	require.ErrorAs(t, err, &ref)
}

func TestBuild_TieBreaksByDeclaredIndex(t *testing.T) {
	tasks := []plan.Task{
		task("z", 0),
		task("a", 1),
		task("m", 2),
	}
	g, err := Build(tasks)
	require.NoError(t, err)
	require.Equal(t, []string{"z", "a", "m"}, g.Order)
}

func TestParallelReady(t *testing.T) {
	tasks := []plan.Task{task("t1", 0), task("t2", 1, "t1")}
	g, err := Build(tasks)
	require.NoError(t, err)

	done := map[string]bool{}
	require.True(t, g.ParallelReady("t1", func(id string) bool { return done[id] }))
	require.False(t, g.ParallelReady("t2", func(id string) bool { return done[id] }))
	done["t1"] = true
	require.True(t, g.ParallelReady("t2", func(id string) bool { return done[id] }))
}
