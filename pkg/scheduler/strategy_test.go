// Copyright 2025 Certen Protocol

package scheduler

import "testing"

func TestSequentialStrategy_OneGroupPerTransaction(t *testing.T) {
	txs := []Transaction{{Hash: "a"}, {Hash: "b"}, {Hash: "c"}}
	graph := BuildConflictGraph(txs)
	plan, err := SequentialStrategy{}.PlanExecution(txs, graph)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.ParallelGroups) != 3 {
		t.Fatalf("groups = %d, want 3", len(plan.ParallelGroups))
	}
	for _, g := range plan.ParallelGroups {
		if len(g) != 1 {
			t.Errorf("group size = %d, want 1", len(g))
		}
	}
}

func TestAccountSetParallelStrategy_ConflictingTxsSeparated(t *testing.T) {
	txs := []Transaction{
		{Hash: "a", WriteSet: []string{"0x1"}},
		{Hash: "b", WriteSet: []string{"0x1"}},
		{Hash: "c", WriteSet: []string{"0x2"}},
	}
	graph := BuildConflictGraph(txs)
	plan, err := AccountSetParallelStrategy{}.PlanExecution(txs, graph)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	colorOf := make(map[int]int)
	for color, group := range plan.ParallelGroups {
		for _, idx := range group {
			colorOf[idx] = color
		}
	}
	if colorOf[0] == colorOf[1] {
		t.Error("conflicting transactions 0 and 1 must not share a color/group")
	}
	// c (index 2) conflicts with nothing, should be free to share tx 0's group.
	if _, ok := colorOf[2]; !ok {
		t.Error("transaction 2 missing from plan")
	}
	if colorOf[2] != colorOf[0] {
		t.Error("non-conflicting transaction 2 should share transaction 0's group")
	}
}

func TestOptimisticSTMStrategy_SingleGroup(t *testing.T) {
	txs := []Transaction{{Hash: "a"}, {Hash: "b"}, {Hash: "c"}}
	graph := BuildConflictGraph(txs)
	plan, err := OptimisticSTMStrategy{}.PlanExecution(txs, graph)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.ParallelGroups) != 1 || len(plan.ParallelGroups[0]) != 3 {
		t.Fatalf("expected a single group of 3, got %v", plan.ParallelGroups)
	}
}

func TestObjectDAGStrategy_LayersByConflictDepth(t *testing.T) {
	// 0 and 1 conflict (depth 0, 1); 2 is independent (depth 0).
	txs := []Transaction{
		{Hash: "a", WriteSet: []string{"0x1"}},
		{Hash: "b", WriteSet: []string{"0x1"}},
		{Hash: "c", WriteSet: []string{"0x2"}},
	}
	graph := BuildConflictGraph(txs)
	plan, err := ObjectDAGStrategy{}.PlanExecution(txs, graph)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.ParallelGroups) < 2 {
		t.Fatalf("expected at least 2 layers, got %d", len(plan.ParallelGroups))
	}
	if len(plan.ParallelGroups[0]) != 2 {
		t.Errorf("layer 0 size = %d, want 2 (tx 0 and tx 2)", len(plan.ParallelGroups[0]))
	}
}

func TestForStrategyType_FallsBackToSequential(t *testing.T) {
	if ForStrategyType(StrategyType("unknown")).Name() != StrategySequential {
		t.Error("expected fallback to sequential strategy for unknown type")
	}
}
