package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustle-deploy/rustle-deploy/internal/dispatch"
	"github.com/rustle-deploy/rustle-deploy/internal/facts"
	"github.com/rustle-deploy/rustle-deploy/internal/inventory"
	"github.com/rustle-deploy/rustle-deploy/internal/model"
	"github.com/rustle-deploy/rustle-deploy/internal/plan"
	"github.com/rustle-deploy/rustle-deploy/internal/ports"
	"github.com/rustle-deploy/rustle-deploy/internal/runtime"
)

// factsTTL matches the default freshness window used throughout §4.8's
// examples.
const factsTTL = 5 * time.Minute

// newRunCmd implements the direct fleet-execution path (§1(b)): parse the
// plan and inventory, then run every host's task set against the embedded
// runtime's scheduler and C9 dispatcher on this machine, with no
// compile/deploy step.
func newRunCmd(flags *rootFlags, logger ports.Logger) *cobra.Command {
	var planPath, inventoryPath string
	var checkMode bool
	var concurrency int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a plan directly against the fleet (no compilation)",
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

			hosts := p.Hosts
			if len(hosts) == 0 {
				for name := range inv.Hosts {
					hosts = append(hosts, name)
				}
			}

			reg := dispatch.NewBuiltinRegistry(nil, nil)
			tasks := p.AllTasks()

			report := &model.ExecutionReport{}
			var mu sync.Mutex
			var wg sync.WaitGroup

			for _, hostName := range hosts {
				host, ok := inv.Hosts[hostName]
				if !ok {
					logger.Warn(ctx, "host not found in inventory, skipping", "host", hostName)
					continue
				}

				wg.Add(1)
				go func(host *inventory.Host) {
					defer wg.Done()

					factsCache := facts.New(factsTTL, facts.StandardCollectors(nil))

					sched := &runtime.Scheduler{
						Host:        host.Name,
						Groups:      host.Groups,
						Dispatcher:  &dispatch.Dispatcher{Registry: reg, Platform: host.Platform.OSFamily},
						Concurrency: concurrency,
						Strategy:    plan.StrategyFree,
						Barrier:     runtime.NoBarrier{},
						CheckMode:   checkMode,
						Facts:       factsCache.Get(),
						Vars:        host.Vars,
					}

					hostTasks := runtime.TasksForHost(tasks, host.Name, host.Groups)
					hostReport, err := sched.Run(ctx, hostTasks)
					if err != nil {
						logger.Error(ctx, "host run failed", "host", host.Name, "error", err)
						return
					}

					mu.Lock()
					for _, res := range hostReport.Results {
						report.Add(res)
					}
					mu.Unlock()
				}(host)
			}
			wg.Wait()

			printExecutionReport(cmd, report)

			if report.Summarize() != model.SummaryAllOK {
				return fmt.Errorf("run completed with failures (%s)", report.Summarize())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Path to the execution plan document (required)")
	cmd.Flags().StringVar(&inventoryPath, "inventory", "", "Path to the fleet inventory document (required)")
	cmd.Flags().BoolVar(&checkMode, "check", false, "Dry run: report what would change without executing")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Per-host task concurrency")
	cmd.MarkFlagRequired("plan")
	cmd.MarkFlagRequired("inventory")

	return cmd
}

func loadPlan(path string) (*plan.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()

	p, err := plan.ParsePlan(f)
	if err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if err := plan.Validate(p); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return p, nil
}

func loadInventory(path string) (*inventory.Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	if isJSONDocument(data) {
		return inventory.ParseJSON(data)
	}
	return inventory.ParseYAML(data)
}

func isJSONDocument(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}

func printExecutionReport(cmd *cobra.Command, report *model.ExecutionReport) {
	out := cmd.OutOrStdout()
	for host, results := range report.ByHost() {
		fmt.Fprintf(out, "host %s:\n", host)
		for _, res := range results {
			status := "ok"
			if res.Failed {
				status = "failed"
			} else if res.Changed {
				status = "changed"
			}
			fmt.Fprintf(out, "  %-24s %-8s %s\n", res.TaskID, status, res.Message)
		}
	}
	fmt.Fprintf(out, "summary: %s\n", report.Summarize())
}
