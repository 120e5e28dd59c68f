// Copyright 2025 Certen Protocol

package predictive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/certen/offchain-channel/pkg/corerr"
)

func TestRespond_ReturnsHandlerOutput(t *testing.T) {
	c := Challenge{ID: "c1", Type: ChallengeStateProof, Timeout: time.Second}
	handler := func(_ context.Context, _ Challenge) ([]byte, error) {
		return []byte("proof-bytes"), nil
	}

	resp, err := Respond(context.Background(), c, handler)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if string(resp.Response) != "proof-bytes" {
		t.Errorf("response = %s, want proof-bytes", resp.Response)
	}
}

func TestRespond_TimesOut(t *testing.T) {
	c := Challenge{ID: "c1", Type: ChallengeRandomSample, Timeout: 10 * time.Millisecond}
	handler := func(ctx context.Context, _ Challenge) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := Respond(context.Background(), c, handler)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if corerr.KindOf(err) != corerr.TimeoutError {
		t.Errorf("kind = %v, want TimeoutError", corerr.KindOf(err))
	}
}

func TestRespond_PropagatesHandlerError(t *testing.T) {
	c := Challenge{ID: "c1", Type: ChallengeHistoryAudit, Timeout: time.Second}
	wantErr := errors.New("audit failed")
	handler := func(_ context.Context, _ Challenge) ([]byte, error) {
		return nil, wantErr
	}

	_, err := Respond(context.Background(), c, handler)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}
