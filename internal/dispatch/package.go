package dispatch

import (
	"context"

	rt "github.com/rustle-deploy/rustle-deploy/internal/runtime"
)

// PackageManager is the out-of-scope system-probe collaborator (spec.md
// §1: "package managers... the core spec defines only the dispatch
// contract and the result shape they must return"). A host binary wires
// a concrete apt/yum/brew/etc. adapter in; the core only needs this
// narrow contract.
type PackageManager interface {
	Ensure(ctx context.Context, name, state string) (changed bool, message string, err error)
}

// packageModule implements the package module (§4.9): required canonical
// arg `name` (alias `pkg`), state in {present,absent,latest} default
// present. Adapted from a teacher package plugin's evaluate-then-apply
// shape, generalized from "shell out to apt directly" to "delegate to a
// PackageManager adapter" per spec.md's out-of-scope boundary.
type packageModule struct {
	manager PackageManager
}

// NewPackageModule returns the package module backed by mgr.
func NewPackageModule(mgr PackageManager) Module {
	return &packageModule{manager: mgr}
}

func (m *packageModule) Name() string                 { return "package" }
func (m *packageModule) SupportedPlatforms() []string { return nil }

func (m *packageModule) Normalize(args map[string]any) (map[string]any, error) {
	out := cloneArgs(args)
	alias(out, "pkg", "name")
	if _, ok := out["state"]; !ok {
		out["state"] = "present"
	}
	return out, nil
}

func (m *packageModule) Validate(args map[string]any) error {
	if _, err := requireString(args, "name", m.Name()); err != nil {
		return err
	}
	return oneOf(args, "state", []string{"present", "absent", "latest"})
}

func (m *packageModule) Check(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	name, _ := requireString(args, "name", m.Name())
	state := optionalString(args, "state", "present")
	return rt.ModuleResult{Changed: false, Message: "would ensure " + name + " " + state}, nil
}

func (m *packageModule) Execute(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	name, err := requireString(args, "name", m.Name())
	if err != nil {
		return rt.ModuleResult{}, err
	}
	state := optionalString(args, "state", "present")

	if m.manager == nil {
		return rt.ModuleResult{Failed: true, Message: "no package manager adapter configured for this host"}, nil
	}

	changed, message, err := m.manager.Ensure(ctx, name, state)
	if err != nil {
		return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
	}
	return rt.ModuleResult{Changed: changed, Message: message}, nil
}
