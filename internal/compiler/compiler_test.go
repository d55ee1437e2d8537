package compiler

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rustle-deploy/rustle-deploy/internal/cache"
	"github.com/rustle-deploy/rustle-deploy/internal/plan"
)

type fakeBackend struct {
	name     string
	priority int
	triples  map[string]bool
	probeErr error
	buildFn  func(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

func (f *fakeBackend) Name() string                        { return f.name }
func (f *fakeBackend) Priority() int                        { return f.priority }
func (f *fakeBackend) SupportsTarget(triple string) bool    { return f.triples[triple] }
func (f *fakeBackend) Probe(ctx context.Context) error      { return f.probeErr }
func (f *fakeBackend) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	return f.buildFn(ctx, req)
}

func TestRegistry_SelectPrefersNativeOverCross(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&fakeBackend{name: "native", priority: NativePriority, triples: map[string]bool{"x86_64-unknown-linux-gnu": true}}))
	require.NoError(t, reg.Register(&fakeBackend{name: "cross", priority: CrossPriority, triples: map[string]bool{"x86_64-unknown-linux-gnu": true}}))

	backend, ok := reg.Select("x86_64-unknown-linux-gnu")
	require.True(t, ok)
	require.Equal(t, "native", backend.Name())
}

func TestRegistry_SelectFallsBackWhenNoneSupportTriple(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&fakeBackend{name: "native", priority: NativePriority, triples: map[string]bool{"x86_64-unknown-linux-gnu": true}}))

	_, ok := reg.Select("riscv64-unknown-linux-gnu")
	require.False(t, ok)
}

func TestDiscover_FullWhenNativeAndCrossAvailable(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&fakeBackend{name: "native", priority: NativePriority, triples: map[string]bool{"x86_64-unknown-linux-gnu": true}}))
	require.NoError(t, reg.Register(&fakeBackend{name: "cross", priority: CrossPriority, triples: map[string]bool{"x86_64-unknown-linux-gnu": true, "aarch64-apple-darwin": true}}))

	report := Discover(context.Background(), reg, "x86_64-unknown-linux-gnu")
	require.Equal(t, Full, report.Level)
}

func TestDiscover_InsufficientWhenNoNativeProbeSucceeds(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&fakeBackend{name: "native", priority: NativePriority, probeErr: errProbe}))

	report := Discover(context.Background(), reg, "x86_64-unknown-linux-gnu")
	require.Equal(t, Insufficient, report.Level)
}

var errProbe = &fakeError{"toolchain missing"}

type fakeError struct{ msg string }

func (e *fakeError) Error() string { return e.msg }

func TestOrchestrator_RunInvokesBuildOncePerGroupAndDedupsByFingerprint(t *testing.T) {
	reg := NewRegistry()
	var buildCount int64

	tmp := t.TempDir()
	backend := &fakeBackend{
		name: "native", priority: NativePriority,
		triples: map[string]bool{"x86_64-unknown-linux-gnu": true},
		buildFn: func(ctx context.Context, req BuildRequest) (*BuildResult, error) {
			atomic.AddInt64(&buildCount, 1)
			require.NoError(t, os.WriteFile(req.OutputPath, []byte("bin"), 0o755))
			return &BuildResult{BinaryPath: req.OutputPath}, nil
		},
	}
	require.NoError(t, reg.Register(backend))

	c, err := cache.New(t.TempDir())
	require.NoError(t, err)

	orch := &Orchestrator{
		Registry:    reg,
		Cache:       c,
		Concurrency: 4,
		Prepare: func(group plan.BinaryDeployment, triple string) (string, string, error) {
			return tmp, filepath.Join(tmp, group.DeploymentID+"-bin"), nil
		},
		FingerprintFunc: func(group plan.BinaryDeployment) string { return "shared-fingerprint" },
	}

	groups := []plan.BinaryDeployment{
		{DeploymentID: "g1", TargetArchitecture: "x86_64-unknown-linux-gnu"},
		{DeploymentID: "g2", TargetArchitecture: "x86_64-unknown-linux-gnu"},
	}

	outcomes := orch.Run(context.Background(), groups)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		require.False(t, o.Fallback)
		require.NotNil(t, o.Artifact)
	}
	require.Equal(t, int64(1), atomic.LoadInt64(&buildCount))
}

func TestOrchestrator_Run_FallbackWhenNoBackendSupportsTriple(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&fakeBackend{name: "native", priority: NativePriority, triples: map[string]bool{"x86_64-unknown-linux-gnu": true}}))

	c, err := cache.New(t.TempDir())
	require.NoError(t, err)

	orch := &Orchestrator{Registry: reg, Cache: c, Concurrency: 1}

	outcomes := orch.Run(context.Background(), []plan.BinaryDeployment{
		{DeploymentID: "g1", TargetArchitecture: "riscv64-unknown-linux-gnu"},
	})

	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].Fallback)
}

func TestOrchestrator_Run_TimeoutMarksGroupFailedWithoutPanicking(t *testing.T) {
	reg := NewRegistry()
	backend := &fakeBackend{
		name: "native", priority: NativePriority,
		triples: map[string]bool{"x86_64-unknown-linux-gnu": true},
		buildFn: func(ctx context.Context, req BuildRequest) (*BuildResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	require.NoError(t, reg.Register(backend))

	c, err := cache.New(t.TempDir())
	require.NoError(t, err)

	orch := &Orchestrator{
		Registry:     reg,
		Cache:        c,
		Concurrency:  1,
		BuildTimeout: 10 * time.Millisecond,
		Prepare: func(group plan.BinaryDeployment, triple string) (string, string, error) {
			return t.TempDir(), filepath.Join(t.TempDir(), "bin"), nil
		},
		FingerprintFunc: func(group plan.BinaryDeployment) string { return group.DeploymentID },
	}

	outcomes := orch.Run(context.Background(), []plan.BinaryDeployment{
		{DeploymentID: "g1", TargetArchitecture: "x86_64-unknown-linux-gnu"},
	})

	require.Len(t, outcomes, 1)
	require.Error(t, outcomes[0].Err)
}
