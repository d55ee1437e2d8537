// Package codegen materializes the self-contained Go project that C6
// compiles into a zero-infrastructure binary: a generated main package
// embedding one binary-deployment group's task list and static-file
// payloads, wired against the same internal/runtime, internal/dispatch,
// and internal/facts packages that already run in-process for the direct
// `run` path. Grounded on original_source/src/binary's "generate then
// compile" shape, expressed with Go's own go:embed instead of the
// original's string-templated source file.
package codegen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rustle-deploy/rustle-deploy/internal/plan"
)

// moduleRoot is the on-disk root of this module, resolved once so the
// generated project's go.mod can `replace` it by absolute path — the
// compiled binary needs no network fetch, matching the zero-infrastructure
// goal for the controller side of the build too.
var moduleRoot = func() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..")
}()

const modulePath = "github.com/rustle-deploy/rustle-deploy"

// Prepare writes a standalone Go project under outputDir/src-<deployment-id>
// containing a main package that boots the embedded runtime over the
// deployment group's task set, and returns its directory plus the output
// binary path outputDir/bin-<deployment-id> (§4.8 "compiled binary boot
// sequence").
func Prepare(group plan.BinaryDeployment, tasksByID map[string]plan.Task, outputDir string) (projectDir, outputPath string, err error) {
	projectDir = filepath.Join(outputDir, "src-"+group.DeploymentID)
	payloadDir := filepath.Join(projectDir, "payloads")

	if err := os.MkdirAll(payloadDir, 0o755); err != nil {
		return "", "", fmt.Errorf("codegen: create project dir: %w", err)
	}

	tasks := make([]plan.Task, 0, len(group.TaskIDs))
	for _, id := range group.TaskIDs {
		t, ok := tasksByID[id]
		if !ok {
			return "", "", fmt.Errorf("codegen: task %q referenced by deployment %q not found in plan", id, group.DeploymentID)
		}
		tasks = append(tasks, t)
	}

	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return "", "", fmt.Errorf("codegen: marshal task list: %w", err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "tasks.json"), tasksJSON, 0o644); err != nil {
		return "", "", fmt.Errorf("codegen: write tasks.json: %w", err)
	}

	staticFilesJSON, err := json.Marshal(group.StaticFiles)
	if err != nil {
		return "", "", fmt.Errorf("codegen: marshal static file manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "static_files.json"), staticFilesJSON, 0o644); err != nil {
		return "", "", fmt.Errorf("codegen: write static_files.json: %w", err)
	}

	for _, sf := range group.StaticFiles {
		src, err := os.ReadFile(sf.SourcePath)
		if err != nil {
			return "", "", fmt.Errorf("codegen: read static payload %s: %w", sf.SourcePath, err)
		}
		dest := filepath.Join(payloadDir, payloadFileName(sf.SourcePath))
		if err := os.WriteFile(dest, src, 0o644); err != nil {
			return "", "", fmt.Errorf("codegen: write payload %s: %w", dest, err)
		}
	}

	if len(group.StaticFiles) == 0 {
		if err := os.WriteFile(filepath.Join(payloadDir, ".keep"), nil, 0o644); err != nil {
			return "", "", fmt.Errorf("codegen: write payload placeholder: %w", err)
		}
	}

	if err := os.WriteFile(filepath.Join(projectDir, "go.mod"), []byte(goModSource()), 0o644); err != nil {
		return "", "", fmt.Errorf("codegen: write go.mod: %w", err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "main.go"), []byte(mainGoSource(group)), 0o644); err != nil {
		return "", "", fmt.Errorf("codegen: write main.go: %w", err)
	}

	outputPath = filepath.Join(outputDir, "bin-"+group.DeploymentID)
	return projectDir, outputPath, nil
}

func payloadFileName(sourcePath string) string {
	return strings.ReplaceAll(filepath.Base(sourcePath), string(filepath.Separator), "_")
}

func goModSource() string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s/generated\n\ngo 1.25.1\n\n", modulePath)
	fmt.Fprintf(&b, "require %s v0.0.0\n\n", modulePath)
	fmt.Fprintf(&b, "replace %s => %s\n", modulePath, moduleRoot)
	return b.String()
}

// mainGoSource renders the generated entry point: embed the task/static
// manifests and payload files, run runtime.Boot, then drive the scheduler
// with the builtin dispatch registry exactly as the direct `run` path does.
func mainGoSource(group plan.BinaryDeployment) string {
	timeout := "0"
	if group.ExecutionTimeout != nil {
		timeout = fmt.Sprintf("%d", group.ExecutionTimeout.AsTime().Nanoseconds())
	}

	var embeds, assigns strings.Builder
	for i, sf := range group.StaticFiles {
		varName := fmt.Sprintf("payload%d", i)
		fmt.Fprintf(&embeds, "\n//go:embed payloads/%s\nvar %s []byte\n", payloadFileName(sf.SourcePath), varName)
		fmt.Fprintf(&assigns, "\tpayloads[%q] = %s\n", sf.SourcePath, varName)
	}

	return fmt.Sprintf(`// Code generated by codegen.Prepare for deployment %[1]q. DO NOT EDIT.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	goruntime "runtime"
	"time"

	"%[2]s/internal/dispatch"
	"%[2]s/internal/facts"
	"%[2]s/internal/plan"
	"%[2]s/internal/runtime"
)

//go:embed tasks.json
var tasksJSON []byte

//go:embed static_files.json
var staticFilesJSON []byte
%[4]s
func main() {
	var tasks []plan.Task
	if err := json.Unmarshal(tasksJSON, &tasks); err != nil {
		fmt.Fprintln(os.Stderr, "decode embedded tasks:", err)
		os.Exit(1)
	}

	var staticFiles []plan.StaticFile
	if err := json.Unmarshal(staticFilesJSON, &staticFiles); err != nil {
		fmt.Fprintln(os.Stderr, "decode embedded static file manifest:", err)
		os.Exit(1)
	}

	payloads := map[string][]byte{}
%[5]s
	if err := runtime.Boot(staticFiles, payloads); err != nil {
		fmt.Fprintln(os.Stderr, "boot:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if timeout := time.Duration(%[3]s); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	factsCache := facts.New(5*time.Minute, facts.StandardCollectors(nil))
	sched := &runtime.Scheduler{
		Host:        hostname(),
		Dispatcher:  &dispatch.Dispatcher{Registry: dispatch.NewBuiltinRegistry(nil, nil), Platform: goruntime.GOOS},
		Concurrency: goruntime.NumCPU(),
		Strategy:    plan.StrategyFree,
		Barrier:     runtime.NoBarrier{},
		Facts:       factsCache.Get(),
	}

	report, err := sched.Run(ctx, tasks)
	if err != nil {
		fmt.Fprintln(os.Stderr, "run:", err)
		os.Exit(1)
	}

	failures := 0
	for _, res := range report.Results {
		status := "ok"
		if res.Failed {
			status = "failed"
			failures++
		} else if res.Changed {
			status = "changed"
		}
		fmt.Printf("%%-24s %%-8s %%s\n", res.TaskID, status, res.Message)
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
`, group.DeploymentID, modulePath, timeout, embeds.String(), assigns.String())
}
