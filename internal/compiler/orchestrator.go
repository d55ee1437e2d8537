package compiler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rustle-deploy/rustle-deploy/internal/cache"
	"github.com/rustle-deploy/rustle-deploy/internal/model"
	"github.com/rustle-deploy/rustle-deploy/internal/plan"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// GroupOutcome is the per-deployment-group result of a build pass.
type GroupOutcome struct {
	DeploymentID string
	Artifact     *model.CompiledArtifact
	Fallback     bool  // true when no backend supports the triple (§4.5 step 3)
	Err          error // non-nil on backend compile failure or timeout; does not fail the plan
}

// PrepareFunc materializes a deployment group's project directory (root
// source file, module files, embedded static payload) and returns the
// directory path, ready for a Backend.Build call.
type PrepareFunc func(group plan.BinaryDeployment, triple string) (projectDir, outputPath string, err error)

// Orchestrator drives parallel, bounded-concurrency builds across
// deployment groups, adapted from a teacher executor's
// level-fan-out-with-sync.WaitGroup pattern (batches of deployment groups
// instead of DAG levels).
type Orchestrator struct {
	Registry        *Registry
	Cache           *cache.Cache
	Concurrency     int           // default = number of CPUs; caller fills in
	BuildTimeout    time.Duration // per-build wall-clock timeout (§4.5 "Concurrency")
	Prepare         PrepareFunc
	FingerprintFunc func(group plan.BinaryDeployment) string
}

// Run builds every deployment group, respecting the configured
// concurrency cap. Each build gets its own wall-clock timeout; on expiry
// the backend process is killed and the group is marked failed without
// failing the rest of the plan (§4.5 "Concurrency").
func (o *Orchestrator) Run(ctx context.Context, groups []plan.BinaryDeployment) []GroupOutcome {
	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	outcomes := make([]GroupOutcome, len(groups))

	var wg sync.WaitGroup
	for i, group := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, group plan.BinaryDeployment) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = o.runOne(ctx, group)
		}(i, group)
	}
	wg.Wait()

	return outcomes
}

func (o *Orchestrator) runOne(ctx context.Context, group plan.BinaryDeployment) GroupOutcome {
	backend, ok := o.Registry.Select(group.TargetArchitecture)
	if !ok {
		return GroupOutcome{DeploymentID: group.DeploymentID, Fallback: true}
	}

	buildCtx := ctx
	var cancel context.CancelFunc
	if o.BuildTimeout > 0 {
		buildCtx, cancel = context.WithTimeout(ctx, o.BuildTimeout)
		defer cancel()
	}

	fingerprint := o.FingerprintFunc(group)

	artifact, err := o.Cache.LookupOrBuild(fingerprint, func() (*model.CompiledArtifact, cache.Metadata, error) {
		projectDir, outputPath, err := o.Prepare(group, group.TargetArchitecture)
		if err != nil {
			return nil, cache.Metadata{}, rerrors.NewInternalError("compiler", fmt.Errorf("prepare project: %w", err))
		}

		start := time.Now()
		result, err := backend.Build(buildCtx, BuildRequest{
			TargetTriple: group.TargetArchitecture,
			ProjectDir:   projectDir,
			OutputPath:   outputPath,
		})
		if err != nil {
			if buildCtx.Err() != nil {
				return nil, cache.Metadata{}, rerrors.NewCompilationError(backend.Name(), group.TargetArchitecture, "build timed out", buildCtx.Err())
			}
			return nil, cache.Metadata{}, err
		}

		bytes, readErr := os.ReadFile(result.BinaryPath)
		if readErr != nil {
			return nil, cache.Metadata{}, rerrors.NewInternalError("compiler", readErr)
		}

		artifact := &model.CompiledArtifact{
			TargetTriple:    group.TargetArchitecture,
			Bytes:           bytes,
			CompileDuration: time.Since(start),
			Fingerprint:     fingerprint,
		}
		meta := cache.Metadata{TargetTriple: group.TargetArchitecture, CreatedAt: time.Now()}
		return artifact, meta, nil
	})

	if err != nil {
		return GroupOutcome{DeploymentID: group.DeploymentID, Err: err}
	}
	return GroupOutcome{DeploymentID: group.DeploymentID, Artifact: artifact}
}
