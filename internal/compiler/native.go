package compiler

import (
	"context"
	"os/exec"

	"github.com/rustle-deploy/rustle-deploy/internal/plugins/internalexec"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// nativeBackend invokes `go build` for the controller's own OS/arch; it
// supports exactly the host target triple.
type nativeBackend struct {
	triple string
}

// NewNativeBackend returns the native backend for the given host triple
// (the cmd/rustled callers derive it from the controller's own
// GOOS/GOARCH).
func NewNativeBackend(hostTriple string) Backend {
	return &nativeBackend{triple: hostTriple}
}

func (n *nativeBackend) Name() string  { return "native" }
func (n *nativeBackend) Priority() int { return NativePriority }
func (n *nativeBackend) SupportsTarget(triple string) bool {
	return triple == n.triple
}

func (n *nativeBackend) Probe(ctx context.Context) error {
	if _, err := exec.LookPath("go"); err != nil {
		return rerrors.NewCapabilityError("native", "go toolchain not found on PATH", "install the Go toolchain", err)
	}
	return nil
}

func (n *nativeBackend) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	args := append([]string{"build", "-o", req.OutputPath}, req.Flags...)
	args = append(args, ".")
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = req.ProjectDir

	result, err := internalexec.RunStreaming(cmd)
	if err != nil {
		return nil, rerrors.NewCompilationError("native", n.triple, result.Stderr, err)
	}
	return &BuildResult{BinaryPath: req.OutputPath, Stdout: result.Stdout, Stderr: result.Stderr}, nil
}
