package dispatch

import (
	"context"
	"fmt"

	rt "github.com/rustle-deploy/rustle-deploy/internal/runtime"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// debugModule reports `msg`, or the `var` argument exactly as given (no
// variable lookup is done); it never changes host state (§4.9: exactly one
// of msg/var, conflict if both).
type debugModule struct{}

// NewDebugModule returns the debug module.
func NewDebugModule() Module { return &debugModule{} }

func (m *debugModule) Name() string                 { return "debug" }
func (m *debugModule) SupportedPlatforms() []string { return nil }
func (m *debugModule) Normalize(args map[string]any) (map[string]any, error) {
	return cloneArgs(args), nil
}

func (m *debugModule) Validate(args map[string]any) error {
	_, hasMsg := args["msg"]
	_, hasVar := args["var"]
	switch {
	case hasMsg && hasVar:
		return rerrors.NewConflictingFields("debug.msg/debug.var")
	case !hasMsg && !hasVar:
		return rerrors.NewValidationError("msg", "debug requires exactly one of msg, var", nil)
	}
	return nil
}

func (m *debugModule) Check(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	return m.Execute(ctx, args)
}

func (m *debugModule) Execute(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	if msg, ok := args["msg"]; ok {
		return rt.ModuleResult{Changed: false, Message: fmt.Sprint(msg)}, nil
	}
	value := args["var"]
	return rt.ModuleResult{
		Changed: false,
		Message: fmt.Sprint(value),
		Results: map[string]any{"var": value},
	}, nil
}
