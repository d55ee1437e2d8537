package compiler

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/rustle-deploy/rustle-deploy/internal/plugins/internalexec"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// goEnv is the {GOOS, GOARCH} pair `go build` needs to cross-compile a
// binary for a given target triple; CC is not part of it.
type goEnv struct {
	GOOS   string
	GOARCH string
}

var tripleToGoEnv = map[string]goEnv{
	"x86_64-unknown-linux-gnu":  {GOOS: "linux", GOARCH: "amd64"},
	"aarch64-unknown-linux-gnu": {GOOS: "linux", GOARCH: "arm64"},
	"x86_64-apple-darwin":       {GOOS: "darwin", GOARCH: "amd64"},
	"aarch64-apple-darwin":      {GOOS: "darwin", GOARCH: "arm64"},
	"x86_64-pc-windows-msvc":    {GOOS: "windows", GOARCH: "amd64"},
}

// crossBackend wraps `zig cc` as the C toolchain behind `go build`,
// zigbuild-style, to cross-compile for arbitrary target triples without a
// matching native SDK (§4.5 step 3: "a zigbuild-style C toolchain wrapping
// the same language compiler for arbitrary target triples").
type crossBackend struct{}

// NewCrossBackend returns the cross-compilation backend.
func NewCrossBackend() Backend {
	return &crossBackend{}
}

func (c *crossBackend) Name() string  { return "cross" }
func (c *crossBackend) Priority() int { return CrossPriority }

func (c *crossBackend) SupportsTarget(triple string) bool {
	_, ok := tripleToGoEnv[triple]
	return ok
}

func (c *crossBackend) Probe(ctx context.Context) error {
	if _, err := exec.LookPath("go"); err != nil {
		return rerrors.NewCapabilityError("cross", "go toolchain not found on PATH", "install the Go toolchain", err)
	}
	if _, err := exec.LookPath("zig"); err != nil {
		return rerrors.NewCapabilityError("cross", "zig not found on PATH", "install zig for cross-compilation (cc wrapper)", err)
	}
	return nil
}

func (c *crossBackend) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	env, ok := tripleToGoEnv[req.TargetTriple]
	if !ok {
		return nil, rerrors.NewCapabilityError("cross", fmt.Sprintf("unsupported target triple %q", req.TargetTriple), "", nil)
	}

	args := append([]string{"build", "-o", req.OutputPath}, req.Flags...)
	args = append(args, ".")
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = req.ProjectDir
	cmd.Env = append(cmd.Environ(),
		"GOOS="+env.GOOS,
		"GOARCH="+env.GOARCH,
		"CGO_ENABLED=1",
		"CC=zig cc -target "+zigTarget(req.TargetTriple),
	)

	result, err := internalexec.RunStreaming(cmd)
	if err != nil {
		return nil, rerrors.NewCompilationError("cross", req.TargetTriple, result.Stderr, err)
	}
	return &BuildResult{BinaryPath: req.OutputPath, Stdout: result.Stdout, Stderr: result.Stderr}, nil
}

// zigTarget maps a rustc-style target triple to the zig -target spelling.
func zigTarget(triple string) string {
	switch triple {
	case "x86_64-unknown-linux-gnu":
		return "x86_64-linux-gnu"
	case "aarch64-unknown-linux-gnu":
		return "aarch64-linux-gnu"
	case "x86_64-apple-darwin":
		return "x86_64-macos"
	case "aarch64-apple-darwin":
		return "aarch64-macos"
	case "x86_64-pc-windows-msvc":
		return "x86_64-windows-gnu"
	default:
		return triple
	}
}
