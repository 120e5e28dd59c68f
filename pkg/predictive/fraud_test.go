// Copyright 2025 Certen Protocol

package predictive

import "testing"

func TestClassify_TimeoutTakesPrecedence(t *testing.T) {
	ev := Evidence{TimedOut: true, ClaimedState: []byte("a"), ActualState: []byte("b")}
	if got := Classify(ev); got != FraudTimeoutViolation {
		t.Errorf("classify = %s, want %s", got, FraudTimeoutViolation)
	}
}

func TestClassify_InconsistentReportWithMultipleWitnesses(t *testing.T) {
	ev := Evidence{Witnesses: []string{"v1", "v2"}, ClaimedState: []byte("a"), ActualState: []byte("a")}
	if got := Classify(ev); got != FraudInconsistentReport {
		t.Errorf("classify = %s, want %s", got, FraudInconsistentReport)
	}
}

func TestClassify_StateManipulationOnMismatch(t *testing.T) {
	ev := Evidence{ClaimedState: []byte("a"), ActualState: []byte("b")}
	if got := Classify(ev); got != FraudStateManipulation {
		t.Errorf("classify = %s, want %s", got, FraudStateManipulation)
	}
}

func TestClassify_FakeTransactionWhenStatesMatch(t *testing.T) {
	ev := Evidence{ClaimedState: []byte("a"), ActualState: []byte("a")}
	if got := Classify(ev); got != FraudFakeTransaction {
		t.Errorf("classify = %s, want %s", got, FraudFakeTransaction)
	}
}

func TestNewFraudProof_SetsMetadata(t *testing.T) {
	proof := NewFraudProof("validator-1", "reporter-1", Evidence{TimedOut: true})
	if proof.AccusedValidator != "validator-1" || proof.Reporter != "reporter-1" {
		t.Errorf("proof metadata mismatch: %+v", proof)
	}
	if proof.Type != FraudTimeoutViolation {
		t.Errorf("type = %s, want %s", proof.Type, FraudTimeoutViolation)
	}
}
