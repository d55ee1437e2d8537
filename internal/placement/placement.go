// Package placement implements the output placer (C7): a priority-ordered
// list of strategies that copy a compiled artifact to its final
// destination, trying highest-priority-first and falling through on
// failure. Grounded directly on
// original_source/src/compilation/output/manager.rs (BinaryOutputManager,
// strategy sort-by-priority-then-try-in-order, .exe suffixing) and
// strategies/memory_strategy.rs (atomic temp-then-rename, post-write size
// verification), using the same atomic-save idiom as the compilation cache.
package placement

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustle-deploy/rustle-deploy/internal/model"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// CopyResult is what a successful strategy returns.
type CopyResult struct {
	OutputPath     string
	BytesCopied    int64
	CopyDuration   time.Duration
	SourceVerified bool
}

// Strategy is one way to materialize a compiled artifact at a destination
// path. Strategies are a closed-but-extensible set, tried highest
// priority first (manager.rs's `sort_by_key(Reverse(priority))`).
type Strategy interface {
	Name() string
	Priority() int // higher runs first
	CanHandle(source model.Source) bool
	Copy(artifact *model.CompiledArtifact, outputPath string) (CopyResult, error)
}

// Manager holds the priority-ordered strategy list and drives placement.
type Manager struct {
	strategies []Strategy
}

// NewManager builds a Manager over the given strategies; CopyToOutput tries
// them in descending Priority order (§3 "priority-ordered list of
// strategies").
func NewManager(strategies ...Strategy) *Manager {
	return &Manager{strategies: strategies}
}

// CopyToOutput places artifact at outputPath, adjusting the path for the
// target platform (.exe suffix on Windows triples, applied exactly once)
// and trying compatible strategies highest-priority-first until one
// succeeds. A write whose size check fails counts as a failed strategy and
// its output file is removed.
func (m *Manager) CopyToOutput(artifact *model.CompiledArtifact, outputPath string) (CopyResult, error) {
	adjusted := adjustForTarget(outputPath, artifact.TargetTriple)

	compatible := make([]Strategy, 0, len(m.strategies))
	for _, s := range m.strategies {
		if s.CanHandle(artifact.Source) {
			compatible = append(compatible, s)
		}
	}
	sortByPriorityDescending(compatible)

	var lastErr error
	for _, s := range compatible {
		result, err := s.Copy(artifact, adjusted)
		if err == nil && !result.SourceVerified {
			_ = os.Remove(adjusted)
			err = fmt.Errorf("%s strategy: size of %s does not match the %d bytes written", s.Name(), adjusted, result.BytesCopied)
		}
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no compatible output strategy for source kind %q", artifact.Source.Kind)
	}
	return CopyResult{}, rerrors.NewPlacementError(adjusted, "every output strategy failed", lastErr)
}

// adjustForTarget appends .exe exactly once for Windows target triples.
func adjustForTarget(path, targetTriple string) string {
	if !strings.Contains(targetTriple, "windows") {
		return path
	}
	if strings.HasSuffix(path, ".exe") {
		return path
	}
	return path + ".exe"
}

func sortByPriorityDescending(strategies []Strategy) {
	for i := 1; i < len(strategies); i++ {
		j := i
		for j > 0 && strategies[j-1].Priority() < strategies[j].Priority() {
			strategies[j-1], strategies[j] = strategies[j], strategies[j-1]
			j--
		}
	}
}
