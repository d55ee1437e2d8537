package dispatch

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustle-deploy/rustle-deploy/internal/plan"
	rt "github.com/rustle-deploy/rustle-deploy/internal/runtime"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

func taskWithArgs(module string, args map[string]any) plan.Task {
	return plan.Task{ID: "t1", Module: module, Args: args}
}

func TestDispatcher_UnknownModuleReturnsModuleNotFound(t *testing.T) {
	d := &Dispatcher{Registry: NewRegistry(), Platform: "linux"}
	_, err := d.Dispatch(context.Background(), taskWithArgs("nonexistent", nil), false)

	var notFound *rerrors.ModuleNotFound
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "nonexistent", notFound.Name)
}

func TestDispatcher_UnsupportedPlatformIsRejected(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&fakePlatformModule{name: "windows-only", platforms: []string{"windows"}}))
	d := &Dispatcher{Registry: reg, Platform: "linux"}

	_, err := d.Dispatch(context.Background(), taskWithArgs("windows-only", nil), false)

	var unsupported *rerrors.UnsupportedPlatform
	require.ErrorAs(t, err, &unsupported)
}

func TestCommandModule_AliasesRawParamsAndCommandToCmd(t *testing.T) {
	m := NewCommandModule("command")

	normalized, err := m.Normalize(map[string]any{"_raw_params": "echo hi"})
	require.NoError(t, err)
	require.Equal(t, "echo hi", normalized["cmd"])

	normalized, err = m.Normalize(map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	require.Equal(t, "echo hi", normalized["cmd"])
}

func TestCommandModule_ValidateRequiresCmd(t *testing.T) {
	m := NewCommandModule("command")
	require.Error(t, m.Validate(map[string]any{}))
	require.NoError(t, m.Validate(map[string]any{"cmd": "echo hi"}))
}

func TestCommandModule_ExecuteRunsAndCapturesOutput(t *testing.T) {
	m := NewCommandModule("shell")
	normalized, err := m.Normalize(map[string]any{"cmd": "echo hello"})
	require.NoError(t, err)

	res, err := m.Execute(context.Background(), normalized)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.False(t, res.Failed)
	require.Contains(t, res.Stdout, "hello")
}

func TestPackageModule_DefaultsStateToPresentAndAliasesPkg(t *testing.T) {
	m := NewPackageModule(nil)
	normalized, err := m.Normalize(map[string]any{"pkg": "curl"})
	require.NoError(t, err)
	require.Equal(t, "curl", normalized["name"])
	require.Equal(t, "present", normalized["state"])
}

func TestPackageModule_RejectsInvalidState(t *testing.T) {
	m := NewPackageModule(nil)
	err := m.Validate(map[string]any{"name": "curl", "state": "bogus"})
	require.Error(t, err)
}

func TestPackageModule_ExecuteFailsCleanlyWithoutAdapter(t *testing.T) {
	m := NewPackageModule(nil)
	res, err := m.Execute(context.Background(), map[string]any{"name": "curl", "state": "present"})
	require.NoError(t, err)
	require.True(t, res.Failed)
}

func TestServiceModule_DefaultsStateToStarted(t *testing.T) {
	m := NewServiceModule(nil)
	normalized, err := m.Normalize(map[string]any{"name": "nginx"})
	require.NoError(t, err)
	require.Equal(t, "started", normalized["state"])
}

func TestDebugModule_ConflictsWhenBothMsgAndVarSet(t *testing.T) {
	m := NewDebugModule()
	err := m.Validate(map[string]any{"msg": "hi", "var": "x"})

	var conflict *rerrors.ConflictingFields
	require.ErrorAs(t, err, &conflict)
}

func TestDebugModule_RequiresExactlyOneOfMsgOrVar(t *testing.T) {
	m := NewDebugModule()
	require.Error(t, m.Validate(map[string]any{}))
	require.NoError(t, m.Validate(map[string]any{"msg": "hi"}))
	require.NoError(t, m.Validate(map[string]any{"var": 1}))
}

func TestFileModule_AliasesDestToPathWhenPathAbsent(t *testing.T) {
	m := NewFileModule()
	normalized, err := m.Normalize(map[string]any{"dest": "/tmp/x"})
	require.NoError(t, err)
	require.Equal(t, "/tmp/x", normalized["path"])
}

func TestFileModule_StateLinkRequiresSrc(t *testing.T) {
	m := NewFileModule()
	err := m.Validate(map[string]any{"path": "/tmp/x", "state": "link"})
	require.Error(t, err)

	err = m.Validate(map[string]any{"path": "/tmp/x", "state": "link", "src": "/tmp/y"})
	require.NoError(t, err)
}

func TestFileModule_TouchCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/touched"
	m := NewFileModule()

	res, err := m.Execute(context.Background(), map[string]any{"path": path, "state": "touch"})
	require.NoError(t, err)
	require.True(t, res.Changed)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestWaitForModule_RejectsNonNumericPort(t *testing.T) {
	m := NewWaitForModule()
	err := m.Validate(map[string]any{"port": "not-a-number"})
	require.Error(t, err)
}

func TestWaitForModule_AcceptsNumericPort(t *testing.T) {
	m := NewWaitForModule()
	require.NoError(t, m.Validate(map[string]any{"port": 8080}))
	require.NoError(t, m.Validate(map[string]any{"port": "8080"}))
}

func TestCopyModule_RequiresSrcAndDest(t *testing.T) {
	m := NewCopyModule()
	require.Error(t, m.Validate(map[string]any{"src": "/tmp/a"}))
	require.NoError(t, m.Validate(map[string]any{"src": "/tmp/a", "dest": "/tmp/b"}))
}

type fakePlatformModule struct {
	name      string
	platforms []string
}

func (f *fakePlatformModule) Name() string                 { return f.name }
func (f *fakePlatformModule) SupportedPlatforms() []string { return f.platforms }
func (f *fakePlatformModule) Normalize(args map[string]any) (map[string]any, error) {
	return args, nil
}
func (f *fakePlatformModule) Validate(args map[string]any) error { return nil }
func (f *fakePlatformModule) Check(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	return rt.ModuleResult{}, nil
}
func (f *fakePlatformModule) Execute(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	return rt.ModuleResult{}, nil
}
