package main

import (
	"fmt"
	"os"
	goruntime "runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustle-deploy/rustle-deploy/internal/cache"
	"github.com/rustle-deploy/rustle-deploy/internal/codegen"
	"github.com/rustle-deploy/rustle-deploy/internal/compiler"
	"github.com/rustle-deploy/rustle-deploy/internal/fingerprint"
	"github.com/rustle-deploy/rustle-deploy/internal/inventory"
	"github.com/rustle-deploy/rustle-deploy/internal/placement"
	"github.com/rustle-deploy/rustle-deploy/internal/plan"
	"github.com/rustle-deploy/rustle-deploy/internal/ports"
)

// buildTimeout bounds each deployment group's compile, matching §4.5's
// "Concurrency" per-build wall-clock cap.
const buildTimeout = 5 * time.Minute

// newDeployCmd implements the compile-then-place path (§1(a)): parse the
// plan, resolve inventory target triples, compile every binary-deployment
// group through C6, then place each resulting artifact via C7.
func newDeployCmd(flags *rootFlags, logger ports.Logger) *cobra.Command {
	var planPath, inventoryPath, outputDir string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Compile binary-deployment groups and place them at their output paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := loadPlan(planPath)
			if err != nil {
				return err
			}
			inv, err := loadInventory(inventoryPath)
			if err != nil {
				return err
			}
			if err := inventory.CheckCycles(inv); err != nil {
				return fmt.Errorf("inventory group hierarchy: %w", err)
			}
			if err := inventory.Resolve(inv); err != nil {
				return fmt.Errorf("resolve inventory: %w", err)
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			c, err := cache.New(flags.cacheDir)
			if err != nil {
				return err
			}

			hostTriple := defaultHostTriple()
			reg := compiler.NewRegistry()
			if err := reg.Register(compiler.NewNativeBackend(hostTriple)); err != nil {
				return err
			}
			if err := reg.Register(compiler.NewCrossBackend()); err != nil {
				return err
			}

			report := compiler.Discover(ctx, reg, hostTriple)
			if report.Level == compiler.Insufficient {
				return fmt.Errorf("no usable compiler toolchain for %s", hostTriple)
			}
			logger.Info(ctx, "capability discovery complete", "level", report.Level, "host_triple", hostTriple)

			if concurrency <= 0 {
				concurrency = goruntime.NumCPU()
			}

			tasksByID := p.TaskByID()
			orchestrator := &compiler.Orchestrator{
				Registry:     reg,
				Cache:        c,
				Concurrency:  concurrency,
				BuildTimeout: buildTimeout,
				Prepare: func(group plan.BinaryDeployment, triple string) (string, string, error) {
					return codegen.Prepare(group, tasksByID, outputDir)
				},
				FingerprintFunc: func(group plan.BinaryDeployment) string {
					return groupFingerprint(group, tasksByID)
				},
			}

			outcomes := orchestrator.Run(ctx, p.BinaryDeployments)

			placer := placement.NewManager(
				placement.CacheStrategy{},
				placement.ProjectStrategy{},
				placement.InMemoryStrategy{},
			)

			out := cmd.OutOrStdout()
			failed := 0
			for _, outcome := range outcomes {
				switch {
				case outcome.Fallback:
					fmt.Fprintf(out, "%s: no backend supports its target architecture, skipped\n", outcome.DeploymentID)
					continue
				case outcome.Err != nil:
					fmt.Fprintf(out, "%s: build failed: %v\n", outcome.DeploymentID, outcome.Err)
					failed++
					continue
				}

				outputPath := outputDir + "/" + outcome.DeploymentID
				result, err := placer.CopyToOutput(outcome.Artifact, outputPath)
				if err != nil {
					fmt.Fprintf(out, "%s: placement failed: %v\n", outcome.DeploymentID, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "%s: placed at %s (%d bytes, %s)\n", outcome.DeploymentID, result.OutputPath, result.BytesCopied, result.CopyDuration)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d deployment groups failed", failed, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Path to the execution plan document (required)")
	cmd.Flags().StringVar(&inventoryPath, "inventory", "", "Path to the fleet inventory document (required)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "./rustled-out", "Directory to place compiled binaries and build artifacts")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel build concurrency (default: number of CPUs)")
	cmd.MarkFlagRequired("plan")
	cmd.MarkFlagRequired("inventory")

	return cmd
}

// groupFingerprint assembles a fingerprint.Input for one deployment group,
// reading each static file's contents so the cache key covers the
// embedded payload, not just its declared path.
func groupFingerprint(group plan.BinaryDeployment, tasksByID map[string]plan.Task) string {
	tasks := make([]plan.Task, 0, len(group.TaskIDs))
	modules := make([]string, 0, len(group.TaskIDs))
	for _, id := range group.TaskIDs {
		if t, ok := tasksByID[id]; ok {
			tasks = append(tasks, t)
			modules = append(modules, t.Module)
		}
	}

	fileBytes := make(map[string][]byte, len(group.StaticFiles))
	for _, sf := range group.StaticFiles {
		if data, err := os.ReadFile(sf.SourcePath); err == nil {
			fileBytes[sf.SourcePath] = data
		}
	}

	return fingerprint.Compute(fingerprint.Input{
		Tasks:           tasks,
		Modules:         modules,
		StaticFiles:     group.StaticFiles,
		StaticFileBytes: fileBytes,
		TargetTriple:    group.TargetArchitecture,
	})
}
