// Copyright 2025 Certen Protocol

package session

import "testing"

func TestSessionRegistry_ForwardOnlyTransitions(t *testing.T) {
	r := newSessionRegistry()
	r.put(&ExecutionSession{SessionId: "a", Status: StatusInitializing})

	steps := []Status{StatusObjectsLocked, StatusStateSync, StatusExecuting, StatusCompleted}
	for _, s := range steps {
		if err := r.transition("a", s, ""); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}

	if err := r.transition("a", StatusFailed, "too late"); err == nil {
		t.Error("expected transition out of a terminal status to fail")
	}
}

func TestSessionRegistry_FailedIsTerminal(t *testing.T) {
	r := newSessionRegistry()
	r.put(&ExecutionSession{SessionId: "b", Status: StatusExecuting})

	if err := r.transition("b", StatusFailed, "vm trapped"); err != nil {
		t.Fatalf("transition to Failed: %v", err)
	}
	sess, _ := r.get("b")
	if sess.FailureReason != "vm trapped" {
		t.Errorf("failure reason = %q, want %q", sess.FailureReason, "vm trapped")
	}
	if err := r.transition("b", StatusCompleted, ""); err == nil {
		t.Error("expected Failed to be terminal")
	}
}

func TestSessionRegistry_UnknownSessionErrors(t *testing.T) {
	r := newSessionRegistry()
	if err := r.transition("missing", StatusExecuting, ""); err == nil {
		t.Fatal("expected error transitioning an unregistered session")
	}
}

func TestSessionRegistry_RemoveAndCount(t *testing.T) {
	r := newSessionRegistry()
	r.put(&ExecutionSession{SessionId: "x"})
	r.put(&ExecutionSession{SessionId: "y"})
	if r.count() != 2 {
		t.Fatalf("count = %d, want 2", r.count())
	}
	r.remove("x")
	if r.count() != 1 {
		t.Errorf("count = %d, want 1 after remove", r.count())
	}
	if _, ok := r.get("x"); ok {
		t.Error("expected removed session to be absent")
	}
}
