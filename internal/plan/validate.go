package plan

import (
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// Validate performs the cross-reference checks demanded by §4.1: every
// "dependencies" entry resolves to a task id present in the same plan,
// every "notify" handler id exists, and duplicate task ids are rejected.
// It does not detect dependency cycles — that is C3's job (internal/dag).
func Validate(p *Plan) error {
	if p == nil {
		return rerrors.NewValidationError("plan", "plan is nil", nil)
	}

	seen := make(map[string]bool)
	handlers := make(map[string]bool)
	for _, play := range p.Plays {
		for _, h := range play.Handlers {
			handlers[h] = true
		}
	}

	tasks := p.AllTasks()
	for _, t := range tasks {
		if seen[t.ID] {
			return rerrors.NewValidationError("tasks", "duplicate task id "+t.ID, nil)
		}
		seen[t.ID] = true
	}

	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if !seen[dep] {
				return rerrors.NewUnknownReference("dependency", dep)
			}
		}
		for _, h := range t.Notify {
			if !handlers[h] {
				return rerrors.NewUnknownReference("handler", h)
			}
		}
	}

	for _, bd := range p.BinaryDeployments {
		for _, id := range bd.TaskIDs {
			if !seen[id] {
				return rerrors.NewUnknownReference("task", id)
			}
		}
	}

	return nil
}
