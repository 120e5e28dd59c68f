// Copyright 2025 Certen Protocol

package scheduler

import "testing"

func TestBuildConflictGraph_WriteWriteEdge(t *testing.T) {
	txs := []Transaction{
		{Hash: "a", WriteSet: []string{"0x1"}},
		{Hash: "b", WriteSet: []string{"0x1"}},
	}
	graph := BuildConflictGraph(txs)
	if len(graph.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(graph.Edges))
	}
	if graph.Edges[0] != [2]int{0, 1} {
		t.Errorf("edge = %v, want (0,1)", graph.Edges[0])
	}
}

func TestBuildConflictGraph_WriteReadEdge(t *testing.T) {
	txs := []Transaction{
		{Hash: "a", WriteSet: []string{"0x1"}},
		{Hash: "b", ReadSet: []string{"0x1"}},
	}
	graph := BuildConflictGraph(txs)
	if len(graph.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(graph.Edges))
	}
}

func TestBuildConflictGraph_NoConflict(t *testing.T) {
	txs := []Transaction{
		{Hash: "a", WriteSet: []string{"0x1"}},
		{Hash: "b", WriteSet: []string{"0x2"}},
	}
	graph := BuildConflictGraph(txs)
	if len(graph.Edges) != 0 {
		t.Errorf("edges = %d, want 0", len(graph.Edges))
	}
}

func TestConflictGraph_ConflictDensity(t *testing.T) {
	txs := []Transaction{
		{Hash: "a", WriteSet: []string{"0x1"}},
		{Hash: "b", WriteSet: []string{"0x1"}},
		{Hash: "c", WriteSet: []string{"0x2"}},
	}
	graph := BuildConflictGraph(txs)
	// 3 possible pairs, 1 conflicting.
	if got := graph.ConflictDensity(); got < 0.33 || got > 0.34 {
		t.Errorf("density = %f, want ~0.333", got)
	}
}

func TestConflictGraph_ConflictDensity_SingleTransaction(t *testing.T) {
	txs := []Transaction{{Hash: "a"}}
	graph := BuildConflictGraph(txs)
	if got := graph.ConflictDensity(); got != 0.0 {
		t.Errorf("density = %f, want 0", got)
	}
}

func TestHasConflict(t *testing.T) {
	a := Transaction{WriteSet: []string{"0x1"}}
	b := Transaction{ReadSet: []string{"0x1"}}
	if !hasConflict(a, b) {
		t.Error("expected conflict between writer and reader of same address")
	}

	c := Transaction{WriteSet: []string{"0x2"}}
	if hasConflict(a, c) {
		t.Error("expected no conflict between disjoint write sets")
	}
}
