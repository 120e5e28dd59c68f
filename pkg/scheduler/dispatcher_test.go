// Copyright 2025 Certen Protocol

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestDispatcher_ExecuteParallel_SequentialGroups(t *testing.T) {
	txs := []Transaction{{Hash: "a"}, {Hash: "b"}, {Hash: "c"}}
	plan := &ExecutionPlan{ParallelGroups: [][]int{{0}, {1}, {2}}}

	exec := func(_ context.Context, tx Transaction) (TransactionResult, error) {
		return TransactionResult{TxHash: tx.Hash, Success: true}, nil
	}

	d := NewDispatcher(4)
	results, err := d.ExecuteParallel(context.Background(), plan, txs, exec)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, r := range results {
		if !r.Success || r.TxHash != txs[i].Hash {
			t.Errorf("result[%d] = %+v", i, r)
		}
	}
}

func TestDispatcher_ExecuteParallel_ConcurrentGroup(t *testing.T) {
	txs := []Transaction{{Hash: "a"}, {Hash: "b"}, {Hash: "c"}, {Hash: "d"}}
	plan := &ExecutionPlan{ParallelGroups: [][]int{{0, 1, 2, 3}}}

	var calls int32
	exec := func(_ context.Context, tx Transaction) (TransactionResult, error) {
		atomic.AddInt32(&calls, 1)
		return TransactionResult{TxHash: tx.Hash, Success: true}, nil
	}

	d := NewDispatcher(2)
	results, err := d.ExecuteParallel(context.Background(), plan, txs, exec)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if atomic.LoadInt32(&calls) != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	for i, r := range results {
		if r.TxHash != txs[i].Hash {
			t.Errorf("result[%d] hash = %s, want %s", i, r.TxHash, txs[i].Hash)
		}
	}
}

func TestDispatcher_ExecuteParallel_PropagatesExecError(t *testing.T) {
	txs := []Transaction{{Hash: "a"}}
	plan := &ExecutionPlan{ParallelGroups: [][]int{{0}}}

	exec := func(_ context.Context, tx Transaction) (TransactionResult, error) {
		return TransactionResult{}, errBoom
	}

	d := NewDispatcher(1)
	results, err := d.ExecuteParallel(context.Background(), plan, txs, exec)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if results[0].Success {
		t.Error("expected failed result for erroring transaction")
	}
}

func TestReconcileOptimisticGroup_RerunsConflictingTransaction(t *testing.T) {
	txs := []Transaction{
		{Hash: "a", WriteSet: []string{"0x1"}},
		{Hash: "b", ReadSet: []string{"0x1"}},
	}
	plan := &ExecutionPlan{ParallelGroups: [][]int{{0, 1}}}

	var reruns int32
	exec := func(_ context.Context, tx Transaction) (TransactionResult, error) {
		if tx.Hash == "b" {
			atomic.AddInt32(&reruns, 1)
		}
		return TransactionResult{TxHash: tx.Hash, Success: true}, nil
	}

	d := NewDispatcher(2)
	if _, err := d.ExecuteParallel(context.Background(), plan, txs, exec); err != nil {
		t.Fatalf("execute: %v", err)
	}
	// b runs once speculatively plus once on reconciliation since it reads
	// what a writes.
	if atomic.LoadInt32(&reruns) != 2 {
		t.Errorf("reruns of b = %d, want 2", reruns)
	}
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
