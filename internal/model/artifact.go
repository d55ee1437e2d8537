package model

import "time"

// SourceKind identifies which output strategy produced a CompiledArtifact's
// bytes (§3 "effective source descriptor").
type SourceKind string

const (
	SourceCache    SourceKind = "cache"
	SourceProject  SourceKind = "project"
	SourceInMemory SourceKind = "in_memory"
)

// Source is the effective source descriptor of a compiled artifact: where
// its bytes ultimately came to rest.
type Source struct {
	Kind SourceKind
	Path string // populated for SourceCache/SourceProject; empty for SourceInMemory
}

// CompiledArtifact is the result of one successful build (§3).
type CompiledArtifact struct {
	BinaryID          string
	TargetTriple      string
	Bytes             []byte
	Size              int64
	Checksum          string // SHA-256 hex
	CompileDuration   time.Duration
	OptimizationLevel string
	Source            Source
	Fingerprint       string
	CreatedAt         time.Time
}
