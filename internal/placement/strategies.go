package placement

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rustle-deploy/rustle-deploy/internal/model"
)

const (
	priorityCache    = 30
	priorityProject  = 20
	priorityInMemory = 10 // lowest priority - fallback strategy, per memory_strategy.rs
)

// writeAtomic writes data to path via a .tmp sibling then rename, matching
// memory_strategy.rs's write-then-rename.
func writeAtomic(path string, data []byte, perm os.FileMode) (time.Duration, error) {
	start := time.Now()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return time.Since(start), nil
}

func verify(path string, expectedSize int64) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Size() == expectedSize, nil
}

// CacheStrategy copies a cached artifact's already-placed binary to the
// output path. It handles only model.SourceCache artifacts.
type CacheStrategy struct{}

func (CacheStrategy) Name() string     { return "cache" }
func (CacheStrategy) Priority() int    { return priorityCache }
func (CacheStrategy) CanHandle(s model.Source) bool { return s.Kind == model.SourceCache }

func (CacheStrategy) Copy(artifact *model.CompiledArtifact, outputPath string) (CopyResult, error) {
	if artifact.Source.Path == "" {
		return CopyResult{}, fmt.Errorf("cache source has no path")
	}
	data, err := os.ReadFile(artifact.Source.Path)
	if err != nil {
		return CopyResult{}, fmt.Errorf("read cached artifact: %w", err)
	}

	dur, err := writeAtomic(outputPath, data, 0o755)
	if err != nil {
		return CopyResult{}, err
	}
	verified, err := verify(outputPath, int64(len(data)))
	if err != nil {
		return CopyResult{}, err
	}
	return CopyResult{OutputPath: outputPath, BytesCopied: int64(len(data)), CopyDuration: dur, SourceVerified: verified}, nil
}

// ProjectStrategy copies a binary produced directly in a project build
// directory (uncached, this run only).
type ProjectStrategy struct{}

func (ProjectStrategy) Name() string     { return "project" }
func (ProjectStrategy) Priority() int    { return priorityProject }
func (ProjectStrategy) CanHandle(s model.Source) bool { return s.Kind == model.SourceProject }

func (ProjectStrategy) Copy(artifact *model.CompiledArtifact, outputPath string) (CopyResult, error) {
	if artifact.Source.Path == "" {
		return CopyResult{}, fmt.Errorf("project source has no path")
	}
	data, err := os.ReadFile(artifact.Source.Path)
	if err != nil {
		return CopyResult{}, fmt.Errorf("read project artifact: %w", err)
	}

	dur, err := writeAtomic(outputPath, data, 0o755)
	if err != nil {
		return CopyResult{}, err
	}
	verified, err := verify(outputPath, int64(len(data)))
	if err != nil {
		return CopyResult{}, err
	}
	return CopyResult{OutputPath: outputPath, BytesCopied: int64(len(data)), CopyDuration: dur, SourceVerified: verified}, nil
}

// InMemoryStrategy writes the artifact's already-loaded bytes directly; it
// is the universal fallback (can_handle always true in memory_strategy.rs)
// since every CompiledArtifact carries its bytes in memory regardless of
// source.
type InMemoryStrategy struct{}

func (InMemoryStrategy) Name() string                 { return "memory" }
func (InMemoryStrategy) Priority() int                { return priorityInMemory }
func (InMemoryStrategy) CanHandle(s model.Source) bool { return true }

func (InMemoryStrategy) Copy(artifact *model.CompiledArtifact, outputPath string) (CopyResult, error) {
	if len(artifact.Bytes) == 0 {
		return CopyResult{}, fmt.Errorf("artifact has no in-memory bytes")
	}

	dur, err := writeAtomic(outputPath, artifact.Bytes, 0o755)
	if err != nil {
		return CopyResult{}, err
	}
	verified, err := verify(outputPath, int64(len(artifact.Bytes)))
	if err != nil {
		return CopyResult{}, err
	}
	return CopyResult{OutputPath: outputPath, BytesCopied: int64(len(artifact.Bytes)), CopyDuration: dur, SourceVerified: verified}, nil
}
