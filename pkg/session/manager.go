// Copyright 2025 Certen Protocol
//
// Off-chain execution session manager: drives the six-step lifecycle for
// one ExecutionRequest (lock, create session, sync state in, execute,
// sync state out, unlock), guaranteeing step 6 runs on every path once
// step 1 has acquired at least one lock.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/certen/offchain-channel/pkg/chainadapter"
	"github.com/certen/offchain-channel/pkg/commitment"
	"github.com/certen/offchain-channel/pkg/compiler"
	"github.com/certen/offchain-channel/pkg/coreid"
	"github.com/certen/offchain-channel/pkg/corerr"
	"github.com/certen/offchain-channel/pkg/predictive"
	"github.com/certen/offchain-channel/pkg/vm"
)

// predictionConfidenceThreshold is the minimum confidence a cached
// prediction must carry before executeInVm trusts it over a live VM call.
// Entries this manager populates itself always carry 1.0 (they come from a
// completed real execution against the exact pre-state/arguments hash).
const predictionConfidenceThreshold = 1.0

// Config wires the Manager's external collaborators.
type Config struct {
	Adapter       chainadapter.Adapter
	CompilerCache *compiler.Cache
	VmKind        vm.Kind
	Limits        vm.ExecutionLimits
	Logger        *log.Logger

	// PredictionCache is consulted by executeInVm before every VM call and
	// populated after every real one. Nil disables prediction lookups
	// entirely; Execute falls through to the VM unconditionally.
	PredictionCache *predictive.Cache
}

// Manager owns the process-wide locks map and sessions map and drives
// ExecutionRequests through the six-step algorithm.
type Manager struct {
	adapter       chainadapter.Adapter
	compilerCache *compiler.Cache
	vmKind        vm.Kind
	limits        vm.ExecutionLimits
	predictions   *predictive.Cache

	locks    *lockRegistry
	sessions *sessionRegistry

	log *log.Logger
}

// NewManager builds a Manager from cfg. Adapter and CompilerCache are
// required collaborators; VmKind defaults to vm.KindRiscV and Limits to
// vm.DefaultLimits() when zero-valued.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Adapter == nil {
		return nil, corerr.New(corerr.InvalidRequest, "session.NewManager", "nil chain adapter")
	}
	if cfg.CompilerCache == nil {
		return nil, corerr.New(corerr.InvalidRequest, "session.NewManager", "nil compiler cache")
	}
	if cfg.VmKind == "" {
		cfg.VmKind = vm.KindRiscV
	}
	if cfg.Limits == (vm.ExecutionLimits{}) {
		cfg.Limits = vm.DefaultLimits()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "[SessionManager] ", log.LstdFlags)
	}

	return &Manager{
		adapter:       cfg.Adapter,
		compilerCache: cfg.CompilerCache,
		vmKind:        cfg.VmKind,
		limits:        cfg.Limits,
		predictions:   cfg.PredictionCache,
		locks:         newLockRegistry(),
		sessions:      newSessionRegistry(),
		log:           cfg.Logger,
	}, nil
}

// executionInput is what the manager serializes as the VM's execute()
// input: the request's call shape plus the step-3 synced object layouts.
type executionInput struct {
	FunctionName string                 `json:"function_name"`
	Arguments    []interface{}          `json:"arguments"`
	GasBudget    uint64                 `json:"gas_budget"`
	Layouts      []ObjectMemoryLayout   `json:"layouts"`
}

// Execute drives request through all six steps. On any failure after step
// 1 acquires at least one lock, step 6 still runs before Execute returns;
// the returned OffchainResult carries success=false and a populated Error
// field rather than a non-nil error in that case. Execute returns a
// non-nil error only for failures in step 1 itself (no locks to release).
// An empty SessionId is replaced with a generated UUID.
func (m *Manager) Execute(ctx context.Context, request ExecutionRequest) (*OffchainResult, error) {
	start := time.Now()

	if request.SessionId == "" {
		request.SessionId = uuid.New().String()
	}

	// Step 1: lock. lockObjects's build closure tags its own failures
	// (e.g. StateFetchError from a chain adapter call) before they reach
	// here; only a genuinely untagged error — the registry's own
	// already-locked check — is a real lock conflict.
	locked, err := m.lockObjects(ctx, request.SharedObjects)
	if err != nil {
		var tagged *corerr.Error
		if errors.As(err, &tagged) {
			return nil, tagged
		}
		return nil, corerr.Wrap(corerr.LockConflict, "session.Execute", err)
	}
	lockedIds := request.SharedObjects

	finalize := func(result *OffchainResult, reason string) *OffchainResult {
		if reason != "" {
			_ = m.sessions.transition(request.SessionId, StatusFailed, reason)
		}
		m.locks.release(lockedIds)
		m.sessions.remove(request.SessionId)
		result.ExecutionTimeMs = uint64(time.Since(start).Milliseconds())
		m.log.Printf("session %s finished: success=%v reason=%q", request.SessionId, result.Success, reason)
		return result
	}

	// Step 2: create session.
	sess, err := m.createSession(ctx, request, locked)
	if err != nil {
		return finalize(&OffchainResult{SessionId: request.SessionId, Error: err.Error()}, err.Error()), nil
	}

	// Step 3: sync state in.
	if err := m.syncStateIn(ctx, sess, locked); err != nil {
		return finalize(&OffchainResult{SessionId: request.SessionId, Error: err.Error()}, err.Error()), nil
	}

	// Step 4: execute.
	vmResult, err := m.executeInVm(sess, request)
	if err != nil {
		return finalize(&OffchainResult{SessionId: request.SessionId, Error: err.Error()}, err.Error()), nil
	}
	if !vmResult.Success {
		return finalize(&OffchainResult{
			SessionId: request.SessionId,
			Success:   false,
			GasUsed:   vmResult.GasUsed,
			Error:     vmResult.Error,
		}, vmResult.Error), nil
	}

	// Step 5: sync state out (parse + dry-run the proposed commit).
	modified, created, proposedTx, dryRunHash, err := m.syncStateOut(ctx, sess, request, vmResult)
	if err != nil {
		return finalize(&OffchainResult{
			SessionId: request.SessionId,
			GasUsed:   vmResult.GasUsed,
			Error:     err.Error(),
		}, err.Error()), nil
	}

	_ = m.sessions.transition(request.SessionId, StatusCompleted, "")

	// Step 6: unlock, via finalize's deferred-style release (reason="" so
	// the session stays Completed, not Failed).
	return finalize(&OffchainResult{
		SessionId:       request.SessionId,
		Success:         true,
		GasUsed:         vmResult.GasUsed,
		ModifiedObjects: modified,
		NewObjects:      created,
		ProposedTx:      proposedTx,
		DryRunHash:      dryRunHash,
	}, ""), nil
}

// lockObjects performs step 1: atomically acquire a LockedObject for
// every id in ids, fetching the object's data through the adapter's
// GetObjectData to populate owner/version/content. On any failure
// (including a pre-existing lock), no lock from this call remains.
func (m *Manager) lockObjects(ctx context.Context, ids []coreid.ObjectId) ([]LockedObject, error) {
	build := func(id coreid.ObjectId) (LockedObject, error) {
		data, err := m.adapter.GetObjectData(ctx, id)
		if err != nil {
			return LockedObject{}, corerr.Wrap(corerr.StateFetchError, "session.lockObjects", err)
		}
		return LockedObject{
			ObjectId:        id,
			ObjectType:      "shared",
			VersionAtLock:   data.Version,
			Owner:           data.Owner,
			ContentSnapshot: data.Content,
			LockedAt:        time.Now(),
			LockHash:        lockHash(id),
		}, nil
	}

	locked, err := m.locks.acquireAll(ids, build)
	if err != nil {
		return nil, err
	}
	m.log.Printf("locked %d objects", len(locked))
	return locked, nil
}

func lockHash(id coreid.ObjectId) string {
	return "lock_" + id.String() + "_hash"
}

// hasEntryPoint reports whether name (or its function part, for a
// "module::function" name) appears in the compiled artifact's entry-point
// table.
func hasEntryPoint(entryPoints []string, name string) bool {
	_, function := splitFunctionName(name)
	for _, e := range entryPoints {
		if e == name || e == function {
			return true
		}
	}
	return false
}

// createSession performs step 2: instantiate a VM, compile (or fetch
// cached) the package, load the RISC-V bytes, and register the session
// with status=ObjectsLocked.
func (m *Manager) createSession(ctx context.Context, request ExecutionRequest, locked []LockedObject) (*ExecutionSession, error) {
	instance, err := vm.New(m.vmKind)
	if err != nil {
		return nil, corerr.Wrap(corerr.InternalError, "session.createSession", err)
	}
	instance.SetLimits(m.limits)

	meta, err := m.adapter.GetContractMeta(ctx, request.PackageId)
	if err != nil {
		return nil, corerr.Wrap(corerr.StateFetchError, "session.createSession", err)
	}

	artifact, err := m.compilerCache.Get(meta)
	if err != nil {
		return nil, corerr.Wrap(corerr.CompileError, "session.createSession", err)
	}
	if len(artifact.Code) == 0 {
		return nil, corerr.New(corerr.CompileError, "session.createSession", "empty compiled artifact for "+request.PackageId)
	}
	if !hasEntryPoint(artifact.EntryPoints, request.FunctionName) {
		return nil, corerr.New(corerr.CompileError, "session.createSession", "unknown function: "+request.FunctionName)
	}
	if err := instance.LoadCode(artifact.Code); err != nil {
		return nil, corerr.Wrap(corerr.VmError, "session.createSession", err)
	}

	ids := make([]coreid.ObjectId, len(locked))
	for i, lo := range locked {
		ids[i] = lo.ObjectId
	}

	sess := &ExecutionSession{
		SessionId:       request.SessionId,
		PackageId:       request.PackageId,
		LockedObjectIds: ids,
		VmKind:          string(m.vmKind),
		CreatedAt:       time.Now(),
		Status:          StatusObjectsLocked,
		vmInstance:      instance,
	}
	m.sessions.put(sess)
	m.log.Printf("created session %s (package=%s)", sess.SessionId, sess.PackageId)
	return sess, nil
}

// syncStateIn performs step 3: fetch each locked object's raw
// serialization and parsed content, build the memory layout records, and
// mark status=StateSync.
func (m *Manager) syncStateIn(ctx context.Context, sess *ExecutionSession, locked []LockedObject) error {
	layouts := make([]ObjectMemoryLayout, 0, len(locked))
	for _, lo := range locked {
		raw, err := m.adapter.GetObjectBCSData(ctx, lo.ObjectId)
		if err != nil {
			return corerr.Wrap(corerr.StateFetchError, "session.syncStateIn", err)
		}
		data, err := m.adapter.GetObjectData(ctx, lo.ObjectId)
		if err != nil {
			return corerr.Wrap(corerr.StateFetchError, "session.syncStateIn", err)
		}
		layouts = append(layouts, ObjectMemoryLayout{
			ObjectId:      lo.ObjectId,
			Raw:           raw,
			TypeString:    lo.ObjectType,
			Version:       data.Version,
			Content:       data.Content,
			Owner:         data.Owner,
			StorageRebate: data.StorageRebate,
		})
	}
	sess.syncedLayouts = layouts

	if err := m.sessions.transition(sess.SessionId, StatusStateSync, ""); err != nil {
		return err
	}
	m.log.Printf("synced %d objects into session %s", len(layouts), sess.SessionId)
	return nil
}

// executeInVm performs step 4: mark status=Executing, then either serve a
// still-valid prediction for this exact (function, arguments, pre-state) or
// serialize the VM input and invoke execute(). A real execution's result is
// fed back into the prediction cache under the same fingerprint, so a
// retried or duplicate-broadcast request for the same pre-state can skip
// the VM round trip entirely.
func (m *Manager) executeInVm(sess *ExecutionSession, request ExecutionRequest) (*vm.ExecutionResult, error) {
	if err := m.sessions.transition(sess.SessionId, StatusExecuting, ""); err != nil {
		return nil, err
	}

	fingerprint := predictionFingerprint(request, sess.syncedLayouts)

	if m.predictions != nil {
		if entry, ok := m.predictions.Get(fingerprint, time.Now()); ok && entry.Confidence >= predictionConfidenceThreshold {
			var cached vm.ExecutionResult
			if err := json.Unmarshal(entry.Output, &cached); err == nil {
				m.log.Printf("session %s: served from prediction cache (fingerprint=%s)", sess.SessionId, fingerprint)
				return &cached, nil
			}
		}
	}

	input, err := json.Marshal(executionInput{
		FunctionName: request.FunctionName,
		Arguments:    request.Arguments,
		GasBudget:    request.GasBudget,
		Layouts:      sess.syncedLayouts,
	})
	if err != nil {
		return nil, corerr.Wrap(corerr.InternalError, "session.executeInVm", err)
	}

	result, err := sess.vmInstance.Execute(input)
	if err != nil {
		return nil, corerr.Wrap(corerr.VmError, "session.executeInVm", err)
	}
	m.log.Printf("session %s executed: success=%v gas=%d", sess.SessionId, result.Success, result.GasUsed)

	if m.predictions != nil {
		if encoded, err := json.Marshal(result); err == nil {
			m.predictions.Put(fingerprint, encoded, predictionConfidenceThreshold, time.Now())
		}
	}
	return result, nil
}

// predictionFingerprint derives the key executeInVm looks a prediction up
// under: the function being called, its arguments, and the pre-state of
// every object synced into the session, so a cached result can only ever be
// reused against the exact call it was produced for.
func predictionFingerprint(request ExecutionRequest, layouts []ObjectMemoryLayout) string {
	argBytes, _ := json.Marshal(request.Arguments)
	preState := make([][]byte, 0, len(layouts))
	for _, l := range layouts {
		preState = append(preState, l.Raw)
	}
	return coreid.Fingerprint(request.FunctionName, commitment.HashConcat(argBytes), commitment.HashConcat(preState...))
}

// vmOutput is the shape executeInVm's output bytes are expected to
// decode as: the modified/created object sets the VM reports.
type vmOutput struct {
	Modified []ModifiedObject `json:"modified"`
	Created  []CreatedObject  `json:"created"`
}

// syncStateOut performs step 5: parse the VM output, build one commit
// transaction for the request's own call, dry-run it, and require
// dry-run status="success" before considering the commit valid. The
// transaction does not vary with the modified/created objects reported;
// no per-object transaction is built.
func (m *Manager) syncStateOut(ctx context.Context, sess *ExecutionSession, request ExecutionRequest, result *vm.ExecutionResult) ([]ModifiedObject, []CreatedObject, []byte, string, error) {
	var out vmOutput
	if len(result.Output) > 0 {
		if err := json.Unmarshal(result.Output, &out); err != nil {
			// The reference VM's output is a raw little-endian return
			// value, not JSON; treat an undecodable payload as "no
			// object-level changes reported" rather than a hard failure.
			out = vmOutput{}
		}
	}

	module, function := splitFunctionName(request.FunctionName)
	pkgId := coreid.PackageIdFromBytes([]byte(request.PackageId))
	tx, err := m.adapter.BuildMoveCallTx(ctx, "", pkgId, module, function, nil, request.Arguments, request.GasBudget)
	if err != nil {
		return nil, nil, nil, "", corerr.Wrap(corerr.SyncError, "session.syncStateOut", err)
	}

	dryRun, err := m.adapter.DryRunTx(ctx, tx)
	if err != nil {
		return nil, nil, nil, "", corerr.Wrap(corerr.SyncError, "session.syncStateOut", err)
	}
	if dryRun.Status != "success" {
		return nil, nil, nil, "", corerr.New(corerr.SyncError, "session.syncStateOut", "dry-run rejected: "+dryRun.Status)
	}

	m.log.Printf("session %s: dry-run accepted (%d modified, %d created)", sess.SessionId, len(out.Modified), len(out.Created))
	return out.Modified, out.Created, tx.Raw, dryRunHash(tx.Raw), nil
}

func dryRunHash(raw []byte) string {
	return coreid.Fingerprint("dry_run", raw, nil)
}

// splitFunctionName splits a "module::function" entry-point name; a name
// with no separator is treated as a bare function with no module.
func splitFunctionName(name string) (module, function string) {
	for i := 0; i+1 < len(name); i++ {
		if name[i] == ':' && name[i+1] == ':' {
			return name[:i], name[i+2:]
		}
	}
	return "", name
}

// Status reports whether a session with id is currently tracked, and its
// status if so.
func (m *Manager) Status(id string) (Status, bool) {
	sess, ok := m.sessions.get(id)
	if !ok {
		return "", false
	}
	return sess.Status, true
}

// ActiveSessionCount reports how many sessions are currently tracked.
func (m *Manager) ActiveSessionCount() int {
	return m.sessions.count()
}

// LockedObjectCount reports how many objects are currently locked,
// process-wide.
func (m *Manager) LockedObjectCount() int {
	return m.locks.count()
}

// Cancel removes a session that has not yet reached status=Executing from
// the sessions map and releases its locks, per the cancellation rule:
// once Executing, cancellation is only honored at VM cycle boundaries.
func (m *Manager) Cancel(id string) error {
	sess, ok := m.sessions.get(id)
	if !ok {
		return corerr.New(corerr.InvalidRequest, "session.Cancel", "unknown session: "+id)
	}
	if statusRank[sess.Status] >= statusRank[StatusExecuting] {
		return corerr.New(corerr.InvalidRequest, "session.Cancel", "session already executing or terminal")
	}
	m.locks.release(sess.LockedObjectIds)
	m.sessions.remove(id)
	m.log.Printf("cancelled session %s", id)
	return nil
}
