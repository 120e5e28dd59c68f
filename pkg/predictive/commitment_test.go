// Copyright 2025 Certen Protocol

package predictive

import (
	"crypto/ed25519"
	"testing"
)

func TestNewStateCommitment_VerifiesAgainstSameState(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	_ = pub

	state := []byte("counter=41")
	c, err := NewStateCommitment(state, priv)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !c.Verify(state) {
		t.Error("expected commitment to verify against the same state")
	}
}

func TestStateCommitment_RejectsDifferentState(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	c, err := NewStateCommitment([]byte("counter=41"), priv)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if c.Verify([]byte("counter=42")) {
		t.Error("expected commitment to reject a different revealed state")
	}
}

func TestStateCommitment_NonceIsNotAllZero(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	c, err := NewStateCommitment([]byte("state"), priv)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	allZero := true
	for _, b := range c.Nonce {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("expected a random nonce, got all-zero")
	}
}

func TestStateCommitment_TwoCommitsToSameStateDiffer(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	a, _ := NewStateCommitment([]byte("state"), priv)
	b, _ := NewStateCommitment([]byte("state"), priv)
	if string(a.CommitmentHash) == string(b.CommitmentHash) {
		t.Error("expected distinct commitments for the same state due to random nonces")
	}
}
