package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	goruntime "runtime"

	"github.com/rustle-deploy/rustle-deploy/internal/plugins/internalexec"
	rt "github.com/rustle-deploy/rustle-deploy/internal/runtime"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// commandModule implements the command/shell module (§4.9): required
// canonical arg `cmd`, with `_raw_params`/`command` aliased onto it.
// Uses a shell-detection and internalexec.RunStreaming idiom carried over
// from a teacher step plugin, generalized to a dispatch Module.
type commandModule struct {
	name string // "command" or "shell"
}

// NewCommandModule returns the module registered under name, which must be
// "command" or "shell" — both share the same behavior, matching the
// teacher's single shell-command plugin serving two step kinds.
func NewCommandModule(name string) Module {
	return &commandModule{name: name}
}

func (m *commandModule) Name() string { return m.name }

func (m *commandModule) SupportedPlatforms() []string { return nil }

func (m *commandModule) Normalize(args map[string]any) (map[string]any, error) {
	out := cloneArgs(args)
	alias(out, "_raw_params", "cmd")
	alias(out, "command", "cmd")
	return out, nil
}

func (m *commandModule) Validate(args map[string]any) error {
	_, err := requireString(args, "cmd", m.name)
	return err
}

func (m *commandModule) Check(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	cmdStr, _ := requireString(args, "cmd", m.name)
	return rt.ModuleResult{Changed: false, Message: fmt.Sprintf("would run: %s", cmdStr)}, nil
}

func (m *commandModule) Execute(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	cmdStr, err := requireString(args, "cmd", m.name)
	if err != nil {
		return rt.ModuleResult{}, err
	}

	shell, shellArgs, err := determineShell(optionalString(args, "shell", ""))
	if err != nil {
		return rt.ModuleResult{}, rerrors.NewExecutionError(m.name, err)
	}

	cmd := exec.CommandContext(ctx, shell, append(shellArgs, cmdStr)...)
	cmd.WaitDelay = rt.GraceWindow
	if workDir := optionalString(args, "work_dir", ""); workDir != "" {
		cmd.Dir = workDir
	}
	cmd.Env = buildCommandEnv(args)

	res, runErr := internalexec.RunStreaming(cmd)
	rc := 0
	if exitErr, ok := asExitError(runErr); ok {
		rc = exitErr.ExitCode()
	}

	if runErr != nil {
		return rt.ModuleResult{
			Changed: true, Failed: true, Message: runErr.Error(),
			Stdout: res.Stdout, Stderr: res.Stderr, RC: rc,
		}, nil
	}

	return rt.ModuleResult{
		Changed: true, Message: "command executed",
		Stdout: res.Stdout, Stderr: res.Stderr, RC: rc,
	}, nil
}

func buildCommandEnv(args map[string]any) []string {
	envArg, ok := args["env"].(map[string]any)
	if !ok || len(envArg) == 0 {
		return nil
	}
	env := os.Environ()
	for k, v := range envArg {
		env = append(env, fmt.Sprintf("%s=%v", k, v))
	}
	return env
}

func determineShell(explicit string) (string, []string, error) {
	if explicit != "" {
		return explicit, []string{"-c"}, nil
	}
	if goruntime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}
	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}
	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}
	return "", nil, fmt.Errorf("no suitable shell found")
}

func asExitError(err error) (*exec.ExitError, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr, true
	}
	return nil, false
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
