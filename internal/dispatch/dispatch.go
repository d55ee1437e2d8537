// Package dispatch implements module dispatch (C9): parameter
// normalization, validation, and execution for the fixed set of modules
// the embedded runtime supports. The registry follows a name->
// implementation map, and command execution follows a shell-detection +
// streaming-exec idiom, generalized from a generic "step plugin" shape to
// "module" and extended with the check-mode contract §4.9 requires.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rustle-deploy/rustle-deploy/internal/plan"
	"github.com/rustle-deploy/rustle-deploy/internal/runtime"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// Module is a unit of work the dispatcher can invoke (§4.9): a canonical
// name, a validate/check/execute contract, and a set of supported
// platforms (an empty SupportedPlatforms list means "all").
type Module interface {
	Name() string
	Normalize(args map[string]any) (map[string]any, error)
	Validate(args map[string]any) error
	SupportedPlatforms() []string // empty = all platforms
	Check(ctx context.Context, args map[string]any) (runtime.ModuleResult, error)
	Execute(ctx context.Context, args map[string]any) (runtime.ModuleResult, error)
}

// Registry is the name -> Module lookup table, following a
// RegisterPlugin/GetPlugin pattern.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry returns an empty module registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds a module under its own canonical name.
func (r *Registry) Register(m Module) error {
	if m == nil {
		return rerrors.NewInternalError("dispatch", fmt.Errorf("nil module"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[m.Name()]; exists {
		return rerrors.NewInternalError("dispatch", fmt.Errorf("module %q already registered", m.Name()))
	}
	r.modules[m.Name()] = m
	return nil
}

func (r *Registry) get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Dispatcher implements runtime.Dispatcher: it looks a task's module up in
// the registry, normalizes and validates its args, checks platform
// support, and routes to Check (dry-run) or Execute.
type Dispatcher struct {
	Registry *Registry
	Platform string // this host's platform tag, e.g. "linux", "darwin", "windows"
}

var _ runtime.Dispatcher = (*Dispatcher)(nil)

// Dispatch implements runtime.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, task plan.Task, checkMode bool) (runtime.ModuleResult, error) {
	module, ok := d.Registry.get(task.Module)
	if !ok {
		return runtime.ModuleResult{}, rerrors.NewModuleNotFound(task.Module)
	}

	if !platformSupported(module.SupportedPlatforms(), d.Platform) {
		return runtime.ModuleResult{}, rerrors.NewUnsupportedPlatform(module.Name(), d.Platform)
	}

	normalized, err := module.Normalize(task.Args)
	if err != nil {
		return runtime.ModuleResult{}, err
	}
	if err := module.Validate(normalized); err != nil {
		return runtime.ModuleResult{}, err
	}

	if checkMode {
		return module.Check(ctx, normalized)
	}
	return module.Execute(ctx, normalized)
}

func platformSupported(supported []string, platform string) bool {
	if len(supported) == 0 {
		return true
	}
	for _, p := range supported {
		if p == platform {
			return true
		}
	}
	return false
}

// Names returns every registered module name, sorted, for diagnostics
// (e.g. a `capabilities`-style CLI listing).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
