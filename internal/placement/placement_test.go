package placement

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustle-deploy/rustle-deploy/internal/model"
)

func TestManager_CopyToOutput_PrefersCacheOverMemory(t *testing.T) {
	dir := t.TempDir()
	cachedBinPath := filepath.Join(dir, "cached-binary")
	require.NoError(t, os.WriteFile(cachedBinPath, []byte("cached-bytes"), 0o644))

	m := NewManager(CacheStrategy{}, ProjectStrategy{}, InMemoryStrategy{})

	artifact := &model.CompiledArtifact{
		TargetTriple: "x86_64-unknown-linux-gnu",
		Bytes:        []byte("in-memory-bytes"),
		Source:       model.Source{Kind: model.SourceCache, Path: cachedBinPath},
	}

	out := filepath.Join(dir, "out-binary")
	result, err := m.CopyToOutput(artifact, out)
	require.NoError(t, err)
	require.True(t, result.SourceVerified)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "cached-bytes", string(data))
}

func TestManager_CopyToOutput_AppendsExeSuffixExactlyOnceForWindows(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(InMemoryStrategy{})

	artifact := &model.CompiledArtifact{
		TargetTriple: "x86_64-pc-windows-msvc",
		Bytes:        []byte("win-bytes"),
		Source:       model.Source{Kind: model.SourceInMemory},
	}

	out := filepath.Join(dir, "app.exe")
	result, err := m.CopyToOutput(artifact, out)
	require.NoError(t, err)
	require.Equal(t, out, result.OutputPath)
}

func TestManager_CopyToOutput_FallsThroughToMemoryWhenCacheSourceMissing(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(CacheStrategy{}, InMemoryStrategy{})

	artifact := &model.CompiledArtifact{
		TargetTriple: "x86_64-unknown-linux-gnu",
		Bytes:        []byte("fallback-bytes"),
		Source:       model.Source{Kind: model.SourceCache, Path: filepath.Join(dir, "nonexistent")},
	}

	out := filepath.Join(dir, "out-binary")
	result, err := m.CopyToOutput(artifact, out)
	require.NoError(t, err)
	require.True(t, result.SourceVerified)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "fallback-bytes", string(data))
}

func TestManager_CopyToOutput_AllStrategiesFail(t *testing.T) {
	m := NewManager(CacheStrategy{})

	artifact := &model.CompiledArtifact{
		TargetTriple: "x86_64-unknown-linux-gnu",
		Source:       model.Source{Kind: model.SourceCache, Path: "/nonexistent/path"},
	}

	_, err := m.CopyToOutput(artifact, filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
}
