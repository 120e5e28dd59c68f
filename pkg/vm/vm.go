// Copyright 2025 Certen Protocol
//
// VM Runtime Abstraction
// Defines the capability interface every VM variant must provide and the
// shared execution-limit/result types the session manager and scheduler
// depend on.

package vm

import (
	"time"

	"github.com/certen/offchain-channel/pkg/corerr"
)

// Kind identifies a VM implementation.
type Kind string

const (
	KindRiscV Kind = "riscv"
)

// ExecutionLimits bounds a single execute() call.
type ExecutionLimits struct {
	MaxMemoryBytes uint64
	MaxCycles      uint64
	MaxStackBytes  uint64
	WallTimeout    time.Duration
}

// DefaultLimits returns the spec-named defaults: 64 MiB / 1M cycles / 1 MiB
// / 30s.
func DefaultLimits() ExecutionLimits {
	return ExecutionLimits{
		MaxMemoryBytes: 64 * 1024 * 1024,
		MaxCycles:      1_000_000,
		MaxStackBytes:  1024 * 1024,
		WallTimeout:    30 * time.Second,
	}
}

// ExecutionResult is the outcome of one execute() call.
type ExecutionResult struct {
	Success     bool
	Output      []byte
	GasUsed     uint64
	CyclesUsed  uint64
	Error       string
}

// Snapshot is an opaque, VM-kind-tagged capture of VM state, restorable
// only into a VM instance of the same kind.
type Snapshot struct {
	Kind Kind
	Data []byte
}

// Instance is the capability interface every VM variant must implement.
type Instance interface {
	LoadCode(code []byte) error
	Execute(input []byte) (*ExecutionResult, error)
	Snapshot() (*Snapshot, error)
	Restore(snap *Snapshot) error
	VmKind() Kind
	SetLimits(limits ExecutionLimits)
}

// New constructs the VM instance for kind. RiscV is the only reference
// implementation the core ships; other kinds are a caller-supplied
// collaborator, same as chainadapter.Adapter.
func New(kind Kind) (Instance, error) {
	switch kind {
	case KindRiscV:
		return NewRiscV(), nil
	default:
		return nil, corerr.New(corerr.InvalidRequest, "vm.New", "unknown vm kind: "+string(kind))
	}
}
