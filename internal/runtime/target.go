package runtime

import "github.com/rustle-deploy/rustle-deploy/internal/plan"

// MatchesHost reports whether a task's target selector includes the given
// host (directly by name, or indirectly by group membership).
func MatchesHost(sel plan.Selector, host string, groups []string) bool {
	switch sel.Kind {
	case plan.SelectAll:
		return true
	case plan.SelectNamed:
		for _, n := range sel.Names {
			if n == host {
				return true
			}
		}
		return false
	case plan.SelectGroup:
		for _, g := range sel.Names {
			for _, hg := range groups {
				if hg == g {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

// TasksForHost filters a play's tasks down to those targeting host,
// preserving declared order.
func TasksForHost(tasks []plan.Task, host string, groups []string) []plan.Task {
	out := make([]plan.Task, 0, len(tasks))
	for _, t := range tasks {
		if MatchesHost(t.Target, host, groups) {
			out = append(out, t)
		}
	}
	return out
}
