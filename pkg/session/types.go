// Copyright 2025 Certen Protocol
//
// Data model for the off-chain execution session lifecycle: locked
// objects, execution sessions and their forward-only status machine, and
// the request/result shapes the six-step algorithm consumes and produces.

package session

import (
	"time"

	"github.com/certen/offchain-channel/pkg/coreid"
	"github.com/certen/offchain-channel/pkg/vm"
)

// LockedObject is the off-chain record created when a shared object is
// locked at step 1 and destroyed when it is released at step 6.
type LockedObject struct {
	ObjectId        coreid.ObjectId
	ObjectType      string
	VersionAtLock   uint64
	Owner           string
	ContentSnapshot map[string]interface{}
	LockedAt        time.Time
	LockHash        string
}

// Status is the forward-only state an ExecutionSession moves through, in
// the order Initializing -> ObjectsLocked -> StateSync -> Executing ->
// (Completed | Failed). A transition may skip ahead (e.g. ObjectsLocked ->
// Failed) but never moves back; Completed and Failed are terminal.
type Status string

const (
	StatusInitializing Status = "Initializing"
	StatusObjectsLocked Status = "ObjectsLocked"
	StatusStateSync     Status = "StateSync"
	StatusExecuting     Status = "Executing"
	StatusCompleted     Status = "Completed"
	StatusFailed        Status = "Failed"
)

// statusRank orders Status for forward-only transition checks. Completed
// and Failed share the terminal rank: once either is reached no further
// transition is legal.
var statusRank = map[Status]int{
	StatusInitializing: 0,
	StatusObjectsLocked: 1,
	StatusStateSync:     2,
	StatusExecuting:     3,
	StatusCompleted:     4,
	StatusFailed:        4,
}

// canTransition reports whether moving from 'from' to 'to' is a legal
// forward-only step (or a no-op transition to the same status).
func canTransition(from, to Status) bool {
	if from == StatusCompleted || from == StatusFailed {
		return false
	}
	return statusRank[to] >= statusRank[from]
}

// ExecutionSession is owned exclusively by the Manager while active.
type ExecutionSession struct {
	SessionId       string
	PackageId       string
	LockedObjectIds []coreid.ObjectId
	VmKind          string
	CreatedAt       time.Time
	Status          Status
	FailureReason   string

	// vmInstance is this session's exclusively-owned VM instance; no other
	// session ever reaches it.
	vmInstance vm.Instance
	// syncedLayouts holds the step-3 memory layout records, fed to the VM
	// as part of the step-4 execution input.
	syncedLayouts []ObjectMemoryLayout
}

// ObjectMemoryLayout is the step-3 record built for one locked object:
// its raw serialization plus parsed content, ready to be handed to the
// VM as part of the execution input.
type ObjectMemoryLayout struct {
	ObjectId      coreid.ObjectId
	Raw           []byte
	TypeString    string
	Version       uint64
	Content       map[string]interface{}
	Owner         string
	StorageRebate uint64
}

// ExecutionRequest is the input to Manager.Execute.
type ExecutionRequest struct {
	SessionId     string
	PackageId     string
	FunctionName  string
	Arguments     []interface{}
	SharedObjects []coreid.ObjectId
	GasBudget     uint64
}

// ModifiedObject describes one object the execution mutated.
type ModifiedObject struct {
	ObjectId   coreid.ObjectId
	OldVersion uint64
	NewContent map[string]interface{}
	Changes    ObjectChanges
}

// ObjectChanges is the field-level delta for a ModifiedObject.
type ObjectChanges struct {
	FieldsModified []string
	FieldsAdded    []string
	FieldsRemoved  []string
}

// CreatedObject describes one object the execution created.
type CreatedObject struct {
	ObjectType string
	Content    map[string]interface{}
	Owner      string
}

// OffchainResult is the outcome of Manager.Execute.
type OffchainResult struct {
	SessionId        string
	Success          bool
	GasUsed          uint64
	ModifiedObjects  []ModifiedObject
	NewObjects       []CreatedObject
	Error            string
	ExecutionTimeMs  uint64
	// ProposedTx is the dry-run-validated commit transaction payload the
	// manager built in step 5. Actual signing and submission happen
	// outside the core; the manager only proves the commit would succeed.
	ProposedTx       []byte
	DryRunHash       string
}
