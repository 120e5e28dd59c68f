// Copyright 2025 Certen Protocol
//
// RISC-V Reference Interpreter Tests

package vm

import "testing"

// addFiveAndThree encodes: addi a0, zero, 5; addi a1, zero, 3; add a0, a0, a1; ebreak.
func addFiveAndThree() []byte {
	return []byte{
		0x13, 0x05, 0x50, 0x00, // addi a0, zero, 5
		0x93, 0x05, 0x30, 0x00, // addi a1, zero, 3
		0x33, 0x05, 0xB5, 0x00, // add a0, a0, a1
		0x73, 0x00, 0x10, 0x00, // ebreak
	}
}

func TestRiscVExecute_AddImmediatesAndRegisters(t *testing.T) {
	m := NewRiscV()
	if err := m.LoadCode(addFiveAndThree()); err != nil {
		t.Fatalf("load code: %v", err)
	}

	result, err := m.Execute(nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.CyclesUsed != 4 {
		t.Errorf("cycles used = %d, want 4", result.CyclesUsed)
	}
	// a0 ends at 8 (non-zero), so success is false per the success=a0==0 rule.
	if result.Success {
		t.Errorf("expected success=false for non-zero a0, got true")
	}
	if result.GasUsed != result.CyclesUsed {
		t.Errorf("gas used %d should equal cycles used %d", result.GasUsed, result.CyclesUsed)
	}
}

func TestRiscVExecute_SubtractToZero(t *testing.T) {
	code := []byte{
		0x13, 0x05, 0x50, 0x00, // addi a0, zero, 5
		0x93, 0x05, 0x50, 0x00, // addi a1, zero, 5
		0x33, 0x05, 0xB5, 0x40, // sub a0, a0, a1
		0x73, 0x00, 0x10, 0x00, // ebreak
	}

	m := NewRiscV()
	if err := m.LoadCode(code); err != nil {
		t.Fatalf("load code: %v", err)
	}

	result, err := m.Execute(nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success=true for a0==0, got false")
	}
	if result.CyclesUsed != 4 {
		t.Errorf("cycles used = %d, want 4", result.CyclesUsed)
	}
}

func TestRiscVLoadCode_RejectsUnaligned(t *testing.T) {
	m := NewRiscV()
	err := m.LoadCode([]byte{0x13, 0x05, 0x50})
	if err == nil {
		t.Fatal("expected error for non-4-byte-aligned code")
	}
}

func TestRiscVLoadCode_RejectsEmpty(t *testing.T) {
	m := NewRiscV()
	if err := m.LoadCode(nil); err == nil {
		t.Fatal("expected error for empty code")
	}
}

func TestRiscVExecute_NoEbreakReachesEndOfCode(t *testing.T) {
	code := []byte{
		0x13, 0x05, 0x50, 0x00, // addi a0, zero, 5
	}
	m := NewRiscV()
	if err := m.LoadCode(code); err != nil {
		t.Fatalf("load code: %v", err)
	}
	if _, err := m.Execute(nil); err == nil {
		t.Fatal("expected error when code ends without EBREAK")
	}
}

func TestRiscVExecute_CycleLimitExceeded(t *testing.T) {
	code := []byte{
		0x13, 0x05, 0x15, 0x00, // addi a0, a0, 1
		0x13, 0x05, 0x15, 0x00, // addi a0, a0, 1
		0x13, 0x05, 0x15, 0x00, // addi a0, a0, 1
		0x73, 0x00, 0x10, 0x00, // ebreak
	}
	m := NewRiscV()
	m.SetLimits(ExecutionLimits{MaxMemoryBytes: DefaultLimits().MaxMemoryBytes, MaxCycles: 2, MaxStackBytes: DefaultLimits().MaxStackBytes, WallTimeout: DefaultLimits().WallTimeout})
	if err := m.LoadCode(code); err != nil {
		t.Fatalf("load code: %v", err)
	}
	if _, err := m.Execute(nil); err == nil {
		t.Fatal("expected ResourceLimitExceeded when cycle count exceeds max")
	}
}

func TestRiscVSnapshotRestore_RoundTrip(t *testing.T) {
	m := NewRiscV()
	if err := m.LoadCode(addFiveAndThree()); err != nil {
		t.Fatalf("load code: %v", err)
	}
	if _, err := m.Execute(nil); err != nil {
		t.Fatalf("execute: %v", err)
	}

	snap, err := m.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	restored := NewRiscV()
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.cycleCount != m.cycleCount {
		t.Errorf("restored cycle count = %d, want %d", restored.cycleCount, m.cycleCount)
	}
	if restored.registers != m.registers {
		t.Errorf("restored registers mismatch")
	}
}

func TestRiscVRestore_RejectsMismatchedKind(t *testing.T) {
	m := NewRiscV()
	err := m.Restore(&Snapshot{Kind: Kind("other"), Data: []byte("{}")})
	if err == nil {
		t.Fatal("expected error restoring snapshot of mismatched vm kind")
	}
}

func TestRiscVInitRegisters_SPAndGP(t *testing.T) {
	m := NewRiscV()
	if err := m.LoadCode([]byte{0x73, 0x00, 0x10, 0x00}); err != nil {
		t.Fatalf("load code: %v", err)
	}
	if m.registers[regSP] != spInit {
		t.Errorf("sp = 0x%x, want 0x%x", m.registers[regSP], uint64(spInit))
	}
	if m.registers[regGP] != gpInit {
		t.Errorf("gp = 0x%x, want 0x%x", m.registers[regGP], uint64(gpInit))
	}
}
