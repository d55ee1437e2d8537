package runtime

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rustle-deploy/rustle-deploy/internal/model"
	"github.com/rustle-deploy/rustle-deploy/internal/plan"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	calls   []string
	results map[string]ModuleResult
	errs    map[string]error
	delay   map[string]time.Duration
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{results: map[string]ModuleResult{}, errs: map[string]error{}, delay: map[string]time.Duration{}}
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, task plan.Task, checkMode bool) (ModuleResult, error) {
	d.mu.Lock()
	d.calls = append(d.calls, task.ID)
	d.mu.Unlock()

	if delay := d.delay[task.ID]; delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ModuleResult{}, ctx.Err()
		}
	}

	if err, ok := d.errs[task.ID]; ok {
		return ModuleResult{}, err
	}
	if res, ok := d.results[task.ID]; ok {
		return res, nil
	}
	return ModuleResult{Changed: true}, nil
}

func taskOf(id, module string, deps ...string) plan.Task {
	return plan.Task{ID: id, Module: module, DependsOn: deps, FailurePolicy: plan.FailureAbort, Target: plan.Selector{Kind: plan.SelectAll}}
}

func TestScheduler_RunsInDependencyOrder(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	s := &Scheduler{Host: "h1", Dispatcher: dispatcher, Concurrency: 4}

	tasks := []plan.Task{
		taskOf("t1", "command"),
		taskOf("t2", "command", "t1"),
		taskOf("t3", "command", "t2"),
	}

	report, err := s.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	pos := map[string]int{}
	for i, id := range dispatcher.calls {
		pos[id] = i
	}
	require.Less(t, pos["t1"], pos["t2"])
	require.Less(t, pos["t2"], pos["t3"])
}

func TestScheduler_AbortPolicySkipsDependentsOnFailure(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	dispatcher.errs["t1"] = fmt.Errorf("boom")
	s := &Scheduler{Host: "h1", Dispatcher: dispatcher, Concurrency: 4}

	tasks := []plan.Task{
		taskOf("t1", "command"),
		taskOf("t2", "command", "t1"),
	}
	for i := range tasks {
		tasks[i].FailurePolicy = plan.FailureAbort
	}

	report, err := s.Run(context.Background(), tasks)
	require.NoError(t, err)

	byID := map[string]model.TaskResult{}
	for _, r := range report.Results {
		byID[r.TaskID] = r
	}
	require.Equal(t, model.TaskFailed, byID["t1"].Status)
	require.Equal(t, model.TaskSkipped, byID["t2"].Status)
}

func TestScheduler_IgnorePolicyDowngradesToSuccessForGating(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	dispatcher.errs["t1"] = fmt.Errorf("boom")
	s := &Scheduler{Host: "h1", Dispatcher: dispatcher, Concurrency: 4}

	t1 := taskOf("t1", "command")
	t1.FailurePolicy = plan.FailureIgnore
	t2 := taskOf("t2", "command", "t1")
	t2.FailurePolicy = plan.FailureAbort

	report, err := s.Run(context.Background(), []plan.Task{t1, t2})
	require.NoError(t, err)

	byID := map[string]model.TaskResult{}
	for _, r := range report.Results {
		byID[r.TaskID] = r
	}
	require.False(t, byID["t1"].Failed)
	require.Equal(t, model.TaskSuccess, byID["t2"].Status)
}

func TestScheduler_ConditionFalseSkipsTask(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	s := &Scheduler{
		Host: "h1", Dispatcher: dispatcher, Concurrency: 1,
		Facts: map[string]any{"os": "linux"},
	}

	task := taskOf("t1", "command")
	task.When = []plan.Condition{{Var: "os", Op: plan.OpEquals, Value: "darwin"}}

	report, err := s.Run(context.Background(), []plan.Task{task})
	require.NoError(t, err)
	require.Equal(t, model.TaskSkipped, report.Results[0].Status)
}

func TestScheduler_RetriesOnFailureBeforeSurfacing(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	dispatcher.errs["t1"] = fmt.Errorf("transient")
	s := &Scheduler{Host: "h1", Dispatcher: dispatcher, Concurrency: 1}

	task := taskOf("t1", "command")
	task.Retry = plan.RetryPolicy{MaxAttempts: 3, Backoff: plan.DurationFromTime(time.Millisecond)}

	report, err := s.Run(context.Background(), []plan.Task{task})
	require.NoError(t, err)
	require.Equal(t, model.TaskFailed, report.Results[0].Status)
	require.Equal(t, 3, report.Results[0].Attempt)
	require.Len(t, dispatcher.calls, 3)
}

func TestScheduler_TimeoutMarksTaskTimedOut(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	dispatcher.delay["t1"] = 100 * time.Millisecond
	s := &Scheduler{Host: "h1", Dispatcher: dispatcher, Concurrency: 1}

	timeout := plan.DurationFromTime(5 * time.Millisecond)
	task := taskOf("t1", "command")
	task.Timeout = &timeout

	report, err := s.Run(context.Background(), []plan.Task{task})
	require.NoError(t, err)
	require.Equal(t, model.TaskTimedOut, report.Results[0].Status)
}
