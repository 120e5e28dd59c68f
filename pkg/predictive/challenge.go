// Copyright 2025 Certen Protocol
//
// Challenge protocol: the verification network can challenge an ephemeral
// validator to justify its reported state. A challenge that times out
// without a response is itself evidence of fraud.

package predictive

import (
	"context"
	"time"

	"github.com/certen/offchain-channel/pkg/corerr"
)

// ChallengeType is the kind of proof a challenge demands.
type ChallengeType string

const (
	ChallengeStateProof       ChallengeType = "state_proof"
	ChallengeTransactionProof ChallengeType = "transaction_proof"
	ChallengeHistoryAudit     ChallengeType = "history_audit"
	ChallengeRandomSample     ChallengeType = "random_sample"
)

// Challenge is a verification request issued against a session.
type Challenge struct {
	ID        string
	Type      ChallengeType
	SessionID string
	Data      []byte
	IssuedAt  time.Time
	Timeout   time.Duration
}

// ChallengeResponse is a validator's answer to a Challenge.
type ChallengeResponse struct {
	ChallengeID string
	Type        ChallengeType
	Response    []byte
	RespondedAt time.Time
}

// ChallengeHandler produces a response for a given challenge.
type ChallengeHandler func(ctx context.Context, c Challenge) ([]byte, error)

// Respond runs handler against c with c.Timeout enforced. A response that
// arrives after the timeout surfaces as a TimeoutError; an error from
// handler is returned wrapped as a VmError.
func Respond(ctx context.Context, c Challenge, handler ChallengeHandler) (*ChallengeResponse, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := handler(ctx, c)
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, corerr.New(corerr.TimeoutError, "predictive.Respond", "challenge response timed out")
	case r := <-done:
		if r.err != nil {
			return nil, corerr.Wrap(corerr.VmError, "predictive.Respond", r.err)
		}
		return &ChallengeResponse{
			ChallengeID: c.ID,
			Type:        c.Type,
			Response:    r.data,
			RespondedAt: time.Now(),
		}, nil
	}
}
