// Package dag builds the task dependency graph described in §4.3: it
// topologically orders tasks via Kahn's algorithm, breaking ties by the
// task's declared plan index (stable), and reports the full cycle path
// when one is found. The Node/Graph/AddNode/AddEdge/TopologicalSort shape
// is generalized to operate over plan.Task instead of a generic step type.
package dag

import (
	"sort"

	"github.com/rustle-deploy/rustle-deploy/internal/plan"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// Node is a vertex in the execution DAG.
type Node struct {
	ID         string
	Task       plan.Task
	DependsOn  []*Node
	Dependents []*Node
}

// Graph holds the DAG and its computed topological levels.
type Graph struct {
	Nodes map[string]*Node
	// Levels holds task ids grouped into parallel-ready batches, in
	// execution order. A task in Levels[i] depends only on tasks in
	// Levels[0..i-1].
	Levels [][]string
	// Order is the flat, Kahn's-algorithm execution order (§4.3),
	// ties broken by declared plan index.
	Order []string
}

// Build constructs a Graph from a plan's tasks.
func Build(tasks []plan.Task) (*Graph, error) {
	g := &Graph{Nodes: make(map[string]*Node, len(tasks))}

	for _, t := range tasks {
		if _, exists := g.Nodes[t.ID]; exists {
			return nil, rerrors.NewValidationError("tasks", "duplicate task id "+t.ID, nil)
		}
		g.Nodes[t.ID] = &Node{ID: t.ID, Task: t}
	}

	for _, t := range tasks {
		node := g.Nodes[t.ID]
		for _, dep := range t.DependsOn {
			source, ok := g.Nodes[dep]
			if !ok {
				return nil, rerrors.NewUnknownReference("dependency", dep)
			}
			source.Dependents = append(source.Dependents, node)
			node.DependsOn = append(node.DependsOn, source)
		}
	}

	if err := g.topologicalSort(); err != nil {
		return nil, err
	}

	return g, nil
}

// topologicalSort runs Kahn's algorithm, producing both the flat stable
// Order and the level-batched Levels. Ties within a ready set are broken
// by each task's declared Index, matching §4.3's "stable by declared
// index" rule rather than a lexicographic id tie-break.
func (g *Graph) topologicalSort() error {
	indegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		indegree[id] = 0
	}
	for _, node := range g.Nodes {
		for _, dep := range node.Dependents {
			indegree[dep.ID]++
		}
	}

	byIndex := func(ids []string) {
		sort.Slice(ids, func(i, j int) bool {
			return g.Nodes[ids[i]].Task.Index < g.Nodes[ids[j]].Task.Index
		})
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	byIndex(ready)

	processed := 0
	for len(ready) > 0 {
		level := ready
		g.Levels = append(g.Levels, append([]string(nil), level...))
		g.Order = append(g.Order, level...)

		var next []string
		for _, id := range level {
			processed++
			for _, dependent := range g.Nodes[id].Dependents {
				indegree[dependent.ID]--
				if indegree[dependent.ID] == 0 {
					next = append(next, dependent.ID)
				}
			}
		}
		byIndex(next)
		ready = next
	}

	if processed != len(g.Nodes) {
		return rerrors.NewDependencyCycle(findCycle(g.Nodes))
	}

	return nil
}

// findCycle performs a deterministic DFS (gray/black marking, ids visited
// in sorted order) to recover one concrete cycle path for the error.
func findCycle(nodes map[string]*Node) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	var stack []string
	var cycle []string

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)

		deps := append([]*Node(nil), nodes[id].Dependents...)
		sort.Slice(deps, func(i, j int) bool { return deps[i].ID < deps[j].ID })

		for _, dep := range deps {
			switch color[dep.ID] {
			case white:
				if dfs(dep.ID) {
					return true
				}
			case gray:
				idx := indexOf(stack, dep.ID)
				cycle = append(append([]string(nil), stack[idx:]...), dep.ID)
				return true
			}
		}

		color[id] = black
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range ids {
		if color[id] == white {
			if dfs(id) {
				break
			}
		}
	}

	return cycle
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// ParallelReady reports whether a task's dependencies have all reached a
// terminal state, per §3's parallel-ready definition. terminal is a
// predicate the caller supplies (e.g. model.TaskStatus.Terminal bound to a
// specific host's results) so this package stays free of runtime state.
func (g *Graph) ParallelReady(taskID string, terminal func(depID string) bool) bool {
	node, ok := g.Nodes[taskID]
	if !ok {
		return false
	}
	for _, dep := range node.DependsOn {
		if !terminal(dep.ID) {
			return false
		}
	}
	return true
}
