// Package cache implements the compilation cache (C5): a directory-backed,
// content-addressed store of compiled artifacts keyed by fingerprint, with
// an at-most-one-build-per-fingerprint guarantee. It uses a JSON-file index
// with atomic temp-then-rename saves guarded by a sync.RWMutex, storing
// artifact metadata, plus golang.org/x/sync/singleflight for the
// single-flight build guarantee.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rustle-deploy/rustle-deploy/internal/model"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// Metadata mirrors the on-disk metadata.json sidecar (§6 "cache directory
// layout").
type Metadata struct {
	Fingerprint     string    `json:"fingerprint"`
	TargetTriple    string    `json:"target_triple"`
	Size            int64     `json:"size"`
	Checksum        string    `json:"checksum"`
	CompilerVersion string    `json:"compiler_version"`
	Flags           []string  `json:"flags"`
	CreatedAt       time.Time `json:"created_at"`
}

// Cache is a directory-backed, content-addressed artifact store. Layout:
// <root>/artifacts/<fingerprint>/binary and .../metadata.json.
type Cache struct {
	root string
	mu   sync.RWMutex
	sf   singleflight.Group
}

// New creates a Cache rooted at dir, creating the directory tree if
// necessary.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Join(dir, "artifacts"), 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &Cache{root: dir}, nil
}

func (c *Cache) artifactDir(fingerprint string) string {
	return filepath.Join(c.root, "artifacts", fingerprint)
}

// Lookup returns the cached artifact for fingerprint, or ok=false on a
// miss. A checksum mismatch on read is treated as a miss and the
// corrupted entry is evicted (§4.5 "corruption handling").
func (c *Cache) Lookup(fingerprint string) (*model.CompiledArtifact, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := c.artifactDir(fingerprint)
	metaPath := filepath.Join(dir, "metadata.json")
	binPath := filepath.Join(dir, "binary")

	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, false, fmt.Errorf("parse cache metadata: %w", err)
	}

	bin, err := os.ReadFile(binPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cached binary: %w", err)
	}

	if checksumOf(bin) != meta.Checksum {
		c.evictLocked(fingerprint)
		return nil, false, nil
	}

	artifact := &model.CompiledArtifact{
		TargetTriple:      meta.TargetTriple,
		Bytes:             bin,
		Size:              meta.Size,
		Checksum:          meta.Checksum,
		OptimizationLevel: "",
		Source:            model.Source{Kind: model.SourceCache, Path: binPath},
		Fingerprint:       meta.Fingerprint,
		CreatedAt:         meta.CreatedAt,
	}
	return artifact, true, nil
}

// Insert writes bytes and metadata to the cache atomically (write to
// .tmp then rename).
func (c *Cache) Insert(fingerprint string, bytes []byte, meta Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := c.artifactDir(fingerprint)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	meta.Fingerprint = fingerprint
	meta.Size = int64(len(bytes))
	meta.Checksum = checksumOf(bytes)

	if err := writeFileAtomic(filepath.Join(dir, "binary"), bytes, 0o755); err != nil {
		return fmt.Errorf("write cached binary: %w", err)
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache metadata: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, "metadata.json"), metaBytes, 0o644); err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}

	return nil
}

// Evict removes every cached entry for which predicate returns true.
func (c *Cache) Evict(predicate func(Metadata) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(c.root, "artifacts"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		metaBytes, err := os.ReadFile(filepath.Join(c.root, "artifacts", e.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			continue
		}
		if predicate(meta) {
			c.evictLocked(e.Name())
		}
	}
	return nil
}

// List returns the metadata of every cached entry, for inspection by the
// `cache` CLI subcommand.
func (c *Cache) List() ([]Metadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(c.root, "artifacts"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Metadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		metaBytes, err := os.ReadFile(filepath.Join(c.root, "artifacts", e.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			continue
		}
		out = append(out, meta)
	}
	return out, nil
}

func (c *Cache) evictLocked(fingerprint string) {
	_ = os.RemoveAll(c.artifactDir(fingerprint))
}

// BuildFunc produces a fresh artifact on a cache miss.
type BuildFunc func() (*model.CompiledArtifact, Metadata, error)

// LookupOrBuild enforces "at-most-one build per fingerprint" across
// concurrent callers (§4.5, §8 invariant 5): concurrent calls with the
// same fingerprint see exactly one invocation of build; the rest block
// and observe the same result, via golang.org/x/sync/singleflight.
func (c *Cache) LookupOrBuild(fingerprint string, build BuildFunc) (*model.CompiledArtifact, error) {
	if artifact, ok, err := c.Lookup(fingerprint); err != nil {
		return nil, err
	} else if ok {
		return artifact, nil
	}

	result, err, _ := c.sf.Do(fingerprint, func() (any, error) {
		if artifact, ok, err := c.Lookup(fingerprint); err != nil {
			return nil, err
		} else if ok {
			return artifact, nil
		}

		artifact, meta, err := build()
		if err != nil {
			return nil, err
		}
		if err := c.Insert(fingerprint, artifact.Bytes, meta); err != nil {
			return nil, err
		}

		cached, ok, err := c.Lookup(fingerprint)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, rerrors.NewInternalError("cache", fmt.Errorf("artifact %s missing immediately after insert", fingerprint))
		}
		return cached, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.CompiledArtifact), nil
}

func checksumOf(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
