// Copyright 2025 Certen Protocol

package predictive

import (
	"crypto/ed25519"
	"testing"

	"github.com/certen/offchain-channel/pkg/merkle"
)

func TestOperationLog_AppendAndVerifyChain(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	log := NewOperationLog()

	log.Append("op1", "increment", []byte("s0"), []byte("s1"), "tx1", nil, priv)
	log.Append("op2", "increment", []byte("s1"), []byte("s2"), "tx2", nil, priv)

	if !log.VerifyChain() {
		t.Error("expected unbroken chain to verify")
	}
	if len(log.Operations()) != 2 {
		t.Errorf("operations = %d, want 2", len(log.Operations()))
	}
}

func TestOperationLog_VerifyChain_DetectsGap(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	log := NewOperationLog()

	log.Append("op1", "increment", []byte("s0"), []byte("s1"), "tx1", nil, priv)
	log.Append("op2", "increment", []byte("DIFFERENT"), []byte("s2"), "tx2", nil, priv)

	if log.VerifyChain() {
		t.Error("expected broken chain (pre-state mismatch) to fail verification")
	}
}

func TestVerifyZKProof_BlackBoxStubRejectsByDefault(t *testing.T) {
	if VerifyZKProof(ZKProof{}, nil, nil) {
		t.Error("expected the unwired verifier stub to reject every proof")
	}
}

func TestOperationLog_MerkleRoot_EmptyLogIsNil(t *testing.T) {
	log := NewOperationLog()
	if root := log.MerkleRoot(); root != nil {
		t.Errorf("expected nil root for empty log, got %x", root)
	}
}

func TestOperationLog_ProveOperation_VerifiesAgainstRoot(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	log := NewOperationLog()

	log.Append("op1", "increment", []byte("s0"), []byte("s1"), "tx1", nil, priv)
	log.Append("op2", "increment", []byte("s1"), []byte("s2"), "tx2", nil, priv)
	log.Append("op3", "increment", []byte("s2"), []byte("s3"), "tx3", nil, priv)

	root := log.MerkleRoot()
	if root == nil {
		t.Fatal("expected a non-nil root for a populated log")
	}

	proof, err := log.ProveOperation(1)
	if err != nil {
		t.Fatalf("ProveOperation: %v", err)
	}

	leaf := leafHash(log.Operations()[1])
	ok, err := merkle.VerifyProof(leaf, proof, root)
	if err != nil {
		t.Fatalf("VerifyProof: %v", err)
	}
	if !ok {
		t.Error("expected inclusion proof for op2 to verify against the log's root")
	}
}

func TestOperationLog_ProveOperation_VerifiesStandalone(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	log := NewOperationLog()

	log.Append("op1", "increment", []byte("s0"), []byte("s1"), "tx1", nil, priv)
	log.Append("op2", "increment", []byte("s1"), []byte("s2"), "tx2", nil, priv)

	proof, err := log.ProveOperation(0)
	if err != nil {
		t.Fatalf("ProveOperation: %v", err)
	}

	ok, err := proof.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("expected proof to verify against its own claimed root/leaf")
	}
}

func TestOperationLog_ProveOperation_OutOfRangeErrors(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	log := NewOperationLog()
	log.Append("op1", "increment", []byte("s0"), []byte("s1"), "tx1", nil, priv)

	if _, err := log.ProveOperation(5); err == nil {
		t.Error("expected an error proving an out-of-range index")
	}
}
