// Copyright 2025 Certen Protocol
//
// Compiled artifact type and its cache key derivation.

package compiler

import (
	"encoding/json"
	"time"

	"github.com/certen/offchain-channel/pkg/coreid"
)

// ArtifactMetadata carries the compile-time limits and export table a
// CompiledArtifact's execution environment needs.
type ArtifactMetadata struct {
	GasMetering    bool
	MemoryLimit    uint64
	StackLimit     uint64
	CallDepthLimit int
	Exports        map[string]string // export name -> signature
}

// Artifact is a compiled RISC-V executable plus enough metadata to run
// and re-cache it. Serializable for Tier-2 persistence.
type Artifact struct {
	OriginalAddress string
	SourceKind      coreid.BytecodeKind
	Code            []byte
	EntryPoints     []string
	Metadata        ArtifactMetadata
	CompiledAt      time.Time
}

// CacheKey returns the deterministic cache key for meta: a function of
// (address, bytecode length, bytecode kind).
func CacheKey(meta *coreid.ContractMeta) string {
	return coreid.CompileCacheKey(meta.Address, len(meta.Bytecode), meta.Kind)
}

// Marshal serializes an Artifact for Tier-2 persistence.
func (a *Artifact) Marshal() ([]byte, error) {
	return json.Marshal(a)
}

// Unmarshal deserializes an Artifact previously produced by Marshal.
func Unmarshal(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
