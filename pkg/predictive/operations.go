// Copyright 2025 Certen Protocol
//
// Append-only log of verified operations: every step an ephemeral
// validator takes inside a session is recorded pre/post state hash, so a
// later challenge can replay or audit the session's history.

package predictive

import (
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/certen/offchain-channel/pkg/commitment"
	"github.com/certen/offchain-channel/pkg/merkle"
)

// ZKProof is an opaque zero-knowledge proof of an operation's correctness.
// This system treats proof generation and verification as a black box:
// VerifyZKProof below is the only contract a concrete backend must honor.
type ZKProof struct {
	ProofData       []byte
	PublicInputs    []byte
	VerificationKey []byte
}

// VerifyZKProof reports whether proof attests to publicInputs under vk.
// No concrete proving system is wired in; callers needing real ZK
// verification supply it through this signature.
func VerifyZKProof(proof ZKProof, publicInputs, vk []byte) bool {
	return false
}

// VerifiedOperation is one entry in a session's append-only operation log.
type VerifiedOperation struct {
	OperationID    string
	OperationType  string
	PreStateHash   []byte
	PostStateHash  []byte
	TxDigest       string
	Proof          *ZKProof
	Timestamp      time.Time
	ValidatorSig   []byte
}

// OperationLog is an append-only, thread-safe log of VerifiedOperations
// for a single session.
type OperationLog struct {
	mu  sync.Mutex
	ops []VerifiedOperation
}

// NewOperationLog returns an empty log.
func NewOperationLog() *OperationLog {
	return &OperationLog{}
}

// Append signs and records a new verified operation, returning it.
func (l *OperationLog) Append(opID, opType string, preState, postState []byte, txDigest string, proof *ZKProof, signer ed25519.PrivateKey) VerifiedOperation {
	sigInput := commitment.HashConcat(preState, postState, []byte(txDigest))
	op := VerifiedOperation{
		OperationID:   opID,
		OperationType: opType,
		PreStateHash:  preState,
		PostStateHash: postState,
		TxDigest:      txDigest,
		Proof:         proof,
		Timestamp:     time.Now(),
		ValidatorSig:  ed25519.Sign(signer, sigInput),
	}

	l.mu.Lock()
	l.ops = append(l.ops, op)
	l.mu.Unlock()
	return op
}

// Operations returns a copy of every recorded operation, in append order.
func (l *OperationLog) Operations() []VerifiedOperation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]VerifiedOperation, len(l.ops))
	copy(out, l.ops)
	return out
}

// VerifyChain checks that each operation's PreStateHash matches the prior
// operation's PostStateHash, confirming the log forms an unbroken
// sequence of state transitions.
func (l *OperationLog) VerifyChain() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 1; i < len(l.ops); i++ {
		prev := l.ops[i-1].PostStateHash
		cur := l.ops[i].PreStateHash
		if len(prev) != len(cur) {
			return false
		}
		for j := range prev {
			if prev[j] != cur[j] {
				return false
			}
		}
	}
	return true
}

// leafHash derives a single 32-byte leaf for op, binding its identity,
// digest, and both state hashes so a proof can't be replayed against a
// different operation with the same pre/post state.
func leafHash(op VerifiedOperation) []byte {
	return merkle.CombineHashes(
		[]byte(op.OperationID), []byte(op.TxDigest), op.PreStateHash, op.PostStateHash,
	)
}

// MerkleRoot commits the entire operation log to a single 32-byte root, so
// a StateProof or RandomSample challenge response can be verified against
// a value small enough to gossip or anchor. Returns nil for an empty log.
func (l *OperationLog) MerkleRoot() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ops) == 0 {
		return nil
	}
	leaves := make([][]byte, len(l.ops))
	for i, op := range l.ops {
		leaves[i] = leafHash(op)
	}
	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return nil
	}
	return tree.Root()
}

// ProveOperation returns an inclusion proof that the operation at index is
// part of the log committed by MerkleRoot, for answering a RandomSample or
// StateProof challenge without shipping the whole log. The returned proof
// is the raw leaf/root/sibling-path/right-bits shape a ChallengeResponse
// carries over the wire.
func (l *OperationLog) ProveOperation(index int) (*merkle.Proof, error) {
	l.mu.Lock()
	ops := make([]VerifiedOperation, len(l.ops))
	copy(ops, l.ops)
	l.mu.Unlock()

	leaves := make([][]byte, len(ops))
	for i, op := range ops {
		leaves[i] = leafHash(op)
	}
	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return nil, err
	}
	return tree.GenerateProof(index)
}
