package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rustle-deploy/rustle-deploy/internal/condition"
	"github.com/rustle-deploy/rustle-deploy/internal/dag"
	"github.com/rustle-deploy/rustle-deploy/internal/model"
	"github.com/rustle-deploy/rustle-deploy/internal/plan"
)

// ModuleResult is the dispatcher's per-task outcome (§4.9 "ModuleResult
// shape").
type ModuleResult struct {
	Changed  bool
	Failed   bool
	Message  string
	Stdout   string
	Stderr   string
	RC       int
	Results  map[string]any
	Diff     string
	Warnings []string
	Facts    map[string]any
}

// Dispatcher normalizes, validates, and executes one task via C9. The
// concrete implementation lives in internal/dispatch; Scheduler only
// depends on this narrow interface to avoid a dag->dispatch->runtime
// import cycle.
type Dispatcher interface {
	Dispatch(ctx context.Context, task plan.Task, checkMode bool) (ModuleResult, error)
}

// BatchBarrier lets a linear play synchronize across hosts between
// batches: a host's scheduler calls Wait before starting each new DAG
// level when the play strategy is linear. The default implementation is a
// no-op, matching the common zero-infrastructure case where each binary
// runs with no controller endpoint; when a controller endpoint is
// configured, a networked implementation can enforce the real
// cross-host ordering guarantee (§5: "a task does not start on any host
// until all earlier tasks have completed on every host of that play's
// batch").
type BatchBarrier interface {
	Wait(ctx context.Context, levelIndex int) error
}

// NoBarrier is the default BatchBarrier: it never blocks.
type NoBarrier struct{}

func (NoBarrier) Wait(ctx context.Context, levelIndex int) error { return nil }

// Scheduler runs one host's task set to completion, honoring dependency
// order, concurrency cap, per-task timeout, retry/backoff, and failure
// policy (§4.8 steps 3-9, §5). Adapted from a teacher executor's
// level-fan-out-with-sync.WaitGroup pattern, generalized from "DAG levels
// shared by one execution" to "one host's dependency-ready queue".
type Scheduler struct {
	Host        string
	Groups      []string
	Dispatcher  Dispatcher
	Concurrency int
	Strategy    plan.PlayStrategy
	Barrier     BatchBarrier
	CheckMode   bool
	Facts       map[string]any
	Vars        map[string]any
}

// Run executes tasks in dependency order and returns an ExecutionReport
// holding one TaskResult per task (§3 "ExecutionReport exclusively owns
// TaskResults").
func (s *Scheduler) Run(ctx context.Context, tasks []plan.Task) (*model.ExecutionReport, error) {
	graph, err := dag.Build(tasks)
	if err != nil {
		return nil, err
	}

	barrier := s.Barrier
	if barrier == nil {
		barrier = NoBarrier{}
	}
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	report := &model.ExecutionReport{}
	results := map[string]model.TaskResult{}
	var resultsMu sync.Mutex

	aborted := false

	for levelIdx, level := range graph.Levels {
		if s.Strategy == plan.StrategyLinear {
			if err := barrier.Wait(ctx, levelIdx); err != nil {
				return report, err
			}
		}

		if aborted {
			for _, id := range level {
				res := s.skippedResult(graph.Nodes[id].Task, "upstream task aborted the host run")
				resultsMu.Lock()
				results[id] = res
				report.Add(res)
				resultsMu.Unlock()
			}
			continue
		}

		sem := make(chan struct{}, concurrency)
		var wg sync.WaitGroup
		var levelAbort int32

		for _, id := range level {
			task := graph.Nodes[id].Task
			wg.Add(1)
			sem <- struct{}{}
			go func(task plan.Task) {
				defer wg.Done()
				defer func() { <-sem }()

				resultsMu.Lock()
				priorResults := copyResultsAsMaps(results)
				resultsMu.Unlock()

				res := s.runTask(ctx, task, priorResults)

				resultsMu.Lock()
				results[task.ID] = res
				report.Add(res)
				resultsMu.Unlock()

				if res.Failed && task.FailurePolicy == plan.FailureAbort {
					atomic.StoreInt32(&levelAbort, 1)
				}
			}(task)
		}
		wg.Wait()

		if atomic.LoadInt32(&levelAbort) != 0 {
			aborted = true
		}
	}

	return report, nil
}

func copyResultsAsMaps(results map[string]model.TaskResult) map[string]any {
	out := make(map[string]any, len(results))
	for id, r := range results {
		out[id] = map[string]any{
			"status":  string(r.Status),
			"changed": r.Changed,
			"failed":  r.Failed,
			"rc":      r.RC,
			"stdout":  r.Stdout,
			"stderr":  r.Stderr,
			"facts":   r.Facts,
		}
	}
	return out
}

func (s *Scheduler) skippedResult(task plan.Task, reason string) model.TaskResult {
	now := time.Now()
	return model.TaskResult{
		TaskID:  task.ID,
		Host:    s.Host,
		Status:  model.TaskSkipped,
		Message: reason,
		Start:   now,
		End:     now,
	}
}

func (s *Scheduler) runTask(ctx context.Context, task plan.Task, priorResults map[string]any) model.TaskResult {
	start := time.Now()

	condCtx := condition.Context{Facts: s.Facts, Vars: s.Vars, Results: priorResults}
	if !condition.Eval(task.When, condCtx) {
		return model.TaskResult{
			TaskID: task.ID, Host: s.Host, Status: model.TaskSkipped,
			Message: "condition evaluated false", Start: start, End: time.Now(),
		}
	}

	var timeout time.Duration
	if task.Timeout != nil {
		timeout = task.Timeout.AsTime()
	}

	maxAttempts := task.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastResult model.TaskResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, cancel := NewToken(ctx, timeout)
		res := s.dispatchOnce(token, task, attempt)
		cancel()

		lastResult = res
		if !res.Failed {
			return applyFailurePolicy(res, task)
		}
		if attempt < maxAttempts {
			backoff := task.Retry.Backoff.AsTime()
			if backoff > 0 {
				time.Sleep(backoff)
			}
		}
	}

	return applyFailurePolicy(lastResult, task)
}

func (s *Scheduler) dispatchOnce(token *Token, task plan.Task, attempt int) model.TaskResult {
	start := time.Now()

	result, err := s.Dispatcher.Dispatch(token.Context(), task, s.CheckMode)
	end := time.Now()

	if token.Err() != nil {
		return model.TaskResult{
			TaskID: task.ID, Host: s.Host, Status: model.TaskTimedOut,
			Message: "task timed out", Start: start, End: end, Attempt: attempt, Failed: true,
		}
	}
	if err != nil {
		return model.TaskResult{
			TaskID: task.ID, Host: s.Host, Status: model.TaskFailed,
			Message: err.Error(), Start: start, End: end, Attempt: attempt, Failed: true, Error: err,
		}
	}

	status := model.TaskSuccess
	if result.Failed {
		status = model.TaskFailed
	}

	return model.TaskResult{
		TaskID: task.ID, Host: s.Host, Status: status,
		Changed: result.Changed, Failed: result.Failed, Message: result.Message,
		Stdout: result.Stdout, Stderr: result.Stderr, RC: result.RC,
		Facts: result.Facts, Diff: result.Diff,
		Start: start, End: end, Attempt: attempt,
	}
}

// applyFailurePolicy maps a failed TaskResult through the task's failure
// policy (§4.8 step 8): ignore downgrades it to success for dependency
// gating, continue keeps it failed but lets dependents proceed, abort is
// enforced one level up by the scheduler's level loop.
func applyFailurePolicy(res model.TaskResult, task plan.Task) model.TaskResult {
	if !res.Failed {
		return res
	}
	if task.FailurePolicy == plan.FailureIgnore {
		res.Failed = false
		res.Status = model.TaskSuccess
		res.Message = fmt.Sprintf("%s (ignored by failure_policy)", res.Message)
	}
	return res
}
