package inventory

import (
	"sort"

	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// CheckCycles runs a depth-first, gray/black-marking cycle check over the
// group hierarchy's child edges (§4.2 step 3). On finding one it returns a
// CircularGroupDependency carrying the full cycle path, e.g. [A,B,C,A]
// (§8 boundary behavior).
func CheckCycles(inv *Inventory) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(inv.Groups))
	var stack []string

	names := make([]string, 0, len(inv.Groups))
	for name := range inv.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var cyclePath []string
	var dfs func(name string) bool
	dfs = func(name string) bool {
		color[name] = gray
		stack = append(stack, name)

		group, ok := inv.Groups[name]
		if ok {
			children := append([]string(nil), group.Children...)
			sort.Strings(children)
			for _, child := range children {
				if _, exists := inv.Groups[child]; !exists {
					continue
				}
				switch color[child] {
				case white:
					if dfs(child) {
						return true
					}
				case gray:
					idx := indexOf(stack, child)
					cyclePath = append(append([]string(nil), stack[idx:]...), child)
					return true
				}
			}
		}

		color[name] = black
		stack = stack[:len(stack)-1]
		return false
	}

	for _, name := range names {
		if color[name] == white {
			if dfs(name) {
				return rerrors.NewCircularGroupDependency(cyclePath)
			}
		}
	}

	return nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
