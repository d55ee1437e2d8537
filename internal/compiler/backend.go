// Package compiler implements the compilation orchestrator (C6): backend
// selection per target triple, parallel bounded-concurrency builds with
// per-build timeouts, and startup capability discovery. Backend selection
// follows a plugin-registry name->implementation pattern applied to
// compiler backends instead of generic step plugins; process invocation
// reuses the internalexec streaming-exec helper.
package compiler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// Priority bands backends register under. Selection tries native before
// cross (§4.5 step 3).
const (
	NativePriority = 0
	CrossPriority  = 10
)

// BuildRequest describes one deployment group's compilation job.
type BuildRequest struct {
	TargetTriple string
	ProjectDir   string // prepared source tree: root file, module files, embedded payload
	OutputPath   string
	Flags        []string
}

// BuildResult is a backend's successful build output.
type BuildResult struct {
	BinaryPath string
	Stdout     string
	Stderr     string
}

// Backend is one compiler/toolchain variant (native, cross). Backends are a
// closed-but-extensible set dispatched by name through a registry.
type Backend interface {
	Name() string
	Priority() int // lower runs first; native < cross
	SupportsTarget(triple string) bool
	Probe(ctx context.Context) error // capability probe; nil if toolchain usable
	Build(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// Registry holds the known backends, ordered by priority for selection.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a backend under its own name.
func (r *Registry) Register(b Backend) error {
	if b == nil {
		return rerrors.NewInternalError("compiler", fmt.Errorf("nil backend"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.backends[b.Name()]; exists {
		return rerrors.NewInternalError("compiler", fmt.Errorf("backend %q already registered", b.Name()))
	}
	r.backends[b.Name()] = b
	return nil
}

// ordered returns every registered backend, priority-ascending (native
// before cross) then name for deterministic ties.
func (r *Registry) ordered() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backends := make([]Backend, 0, len(r.backends))
	for _, b := range r.backends {
		backends = append(backends, b)
	}
	sort.Slice(backends, func(i, j int) bool {
		if backends[i].Priority() != backends[j].Priority() {
			return backends[i].Priority() < backends[j].Priority()
		}
		return backends[i].Name() < backends[j].Name()
	})
	return backends
}

// Select returns the first backend (priority order) whose SupportsTarget
// returns true for triple (§4.5 step 3: "native -> cross"). ok is false
// when no backend supports the triple, meaning the group is not
// binary-deployable.
func (r *Registry) Select(triple string) (Backend, bool) {
	for _, b := range r.ordered() {
		if b.SupportsTarget(triple) {
			return b, true
		}
	}
	return nil, false
}
