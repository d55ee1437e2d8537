package dispatch

import (
	"context"

	rt "github.com/rustle-deploy/rustle-deploy/internal/runtime"
)

// ServiceManager is the out-of-scope system-probe collaborator for
// starting/stopping/restarting host services (spec.md §1), mirroring
// PackageManager's adapter boundary.
type ServiceManager interface {
	Ensure(ctx context.Context, name, state string) (changed bool, message string, err error)
}

// serviceModule implements the service module (§4.9): required canonical
// arg `name`, state in {started,stopped,restarted,reloaded} default
// started.
type serviceModule struct {
	manager ServiceManager
}

// NewServiceModule returns the service module backed by mgr.
func NewServiceModule(mgr ServiceManager) Module {
	return &serviceModule{manager: mgr}
}

func (m *serviceModule) Name() string                 { return "service" }
func (m *serviceModule) SupportedPlatforms() []string { return nil }

func (m *serviceModule) Normalize(args map[string]any) (map[string]any, error) {
	out := cloneArgs(args)
	if _, ok := out["state"]; !ok {
		out["state"] = "started"
	}
	return out, nil
}

func (m *serviceModule) Validate(args map[string]any) error {
	if _, err := requireString(args, "name", m.Name()); err != nil {
		return err
	}
	return oneOf(args, "state", []string{"started", "stopped", "restarted", "reloaded"})
}

func (m *serviceModule) Check(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	name, _ := requireString(args, "name", m.Name())
	state := optionalString(args, "state", "started")
	return rt.ModuleResult{Changed: false, Message: "would ensure " + name + " " + state}, nil
}

func (m *serviceModule) Execute(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	name, err := requireString(args, "name", m.Name())
	if err != nil {
		return rt.ModuleResult{}, err
	}
	state := optionalString(args, "state", "started")

	if m.manager == nil {
		return rt.ModuleResult{Failed: true, Message: "no service manager adapter configured for this host"}, nil
	}

	changed, message, err := m.manager.Ensure(ctx, name, state)
	if err != nil {
		return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
	}
	return rt.ModuleResult{Changed: changed, Message: message}, nil
}
