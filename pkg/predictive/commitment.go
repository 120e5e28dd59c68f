// Copyright 2025 Certen Protocol
//
// State commitment scheme for the ephemeral-validator fraud-detection
// protocol: commitment = H(state || nonce), co-signed by the validator so
// a later challenge can bind a revealed state back to what was promised
// up front.

package predictive

import (
	"crypto/ed25519"
	"crypto/rand"
	"time"

	"github.com/certen/offchain-channel/pkg/commitment"
	"github.com/certen/offchain-channel/pkg/corerr"
)

// StateCommitment is a validator's binding commitment to a state, made
// before that state is revealed.
type StateCommitment struct {
	CommitmentHash   []byte
	Nonce            [32]byte
	Timestamp        time.Time
	ValidatorPubKey  ed25519.PublicKey
	ValidatorSig     []byte
}

// NewStateCommitment commits to state using a freshly drawn random nonce
// and signs the commitment hash with signer. The nonce is sourced from
// crypto/rand, not a fixed placeholder: a constant nonce would let anyone
// recompute the commitment hash for a guessed state and break hiding.
func NewStateCommitment(state []byte, signer ed25519.PrivateKey) (*StateCommitment, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, corerr.Wrap(corerr.InternalError, "predictive.NewStateCommitment", err)
	}

	hash := commitment.HashConcat(state, nonce[:])
	sig := ed25519.Sign(signer, hash)

	return &StateCommitment{
		CommitmentHash:  hash,
		Nonce:           nonce,
		Timestamp:       time.Now(),
		ValidatorPubKey: signer.Public().(ed25519.PublicKey),
		ValidatorSig:    sig,
	}, nil
}

// Verify checks that revealedState hashes to the commitment alongside the
// committed nonce, and that the validator signature covers that hash.
func (c *StateCommitment) Verify(revealedState []byte) bool {
	if len(c.ValidatorPubKey) != ed25519.PublicKeySize {
		return false
	}
	if !ed25519.Verify(c.ValidatorPubKey, c.CommitmentHash, c.ValidatorSig) {
		return false
	}
	expected := commitment.HashConcat(revealedState, c.Nonce[:])
	if len(expected) != len(c.CommitmentHash) {
		return false
	}
	for i := range expected {
		if expected[i] != c.CommitmentHash[i] {
			return false
		}
	}
	return true
}
