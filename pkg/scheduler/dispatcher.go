// Copyright 2025 Certen Protocol
//
// Dispatcher runs an ExecutionPlan: parallel groups execute one after
// another, and the members of a single group run concurrently across a
// bounded worker pool.

package scheduler

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// TxExecutor runs a single transaction and returns its outcome. The
// scheduler package has no opinion on what executes a transaction — the
// caller wires in the VM/session layer.
type TxExecutor func(ctx context.Context, tx Transaction) (TransactionResult, error)

// Dispatcher runs execution plans against a worker pool.
type Dispatcher struct {
	workerThreads int
}

// NewDispatcher builds a Dispatcher. A non-positive workerThreads falls
// back to 1.
func NewDispatcher(workerThreads int) *Dispatcher {
	if workerThreads <= 0 {
		workerThreads = 1
	}
	return &Dispatcher{workerThreads: workerThreads}
}

// ExecuteParallel runs plan's groups in sequence, dispatching each group's
// members concurrently. For an optimistic-STM plan (a single group
// spanning the whole batch), commit-time conflict detection re-executes
// any transaction whose read/write set overlaps an already-committed
// lower-indexed transaction's set within the same group.
func (d *Dispatcher) ExecuteParallel(ctx context.Context, plan *ExecutionPlan, txs []Transaction, exec TxExecutor) ([]TransactionResult, error) {
	results := make([]TransactionResult, len(txs))

	for _, group := range plan.ParallelGroups {
		if len(group) == 0 {
			continue
		}
		if err := d.runGroup(ctx, group, txs, exec, results); err != nil {
			return results, err
		}
		if len(group) > 1 {
			reconcileOptimisticGroup(ctx, group, txs, exec, results)
		}
	}

	return results, nil
}

// runGroup executes every index in group concurrently, bounded by the
// dispatcher's worker pool, writing each outcome into results.
func (d *Dispatcher) runGroup(ctx context.Context, group []int, txs []Transaction, exec TxExecutor, results []TransactionResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workerThreads)

	for _, idx := range group {
		idx := idx
		g.Go(func() error {
			res, err := exec(gctx, txs[idx])
			if err != nil {
				results[idx] = TransactionResult{TxHash: txs[idx].Hash, Success: false, ErrorMsg: err.Error()}
				return err
			}
			results[idx] = res
			return nil
		})
	}

	return g.Wait()
}

// reconcileOptimisticGroup walks a group's members in index order and
// re-executes any transaction whose declared read/write set conflicts with
// one already committed earlier in the same group — the commit-time
// validation step of optimistic execution.
func reconcileOptimisticGroup(ctx context.Context, group []int, txs []Transaction, exec TxExecutor, results []TransactionResult) {
	ordered := append([]int(nil), group...)
	sort.Ints(ordered)

	committedWrites := make(map[string]struct{})
	for _, idx := range ordered {
		tx := txs[idx]
		conflicted := false
		for _, addr := range tx.ReadSet {
			if _, ok := committedWrites[addr]; ok {
				conflicted = true
				break
			}
		}
		if !conflicted {
			for _, addr := range tx.WriteSet {
				if _, ok := committedWrites[addr]; ok {
					conflicted = true
					break
				}
			}
		}
		if conflicted {
			if res, err := exec(ctx, tx); err == nil {
				results[idx] = res
			} else {
				results[idx] = TransactionResult{TxHash: tx.Hash, Success: false, ErrorMsg: err.Error()}
			}
		}
		for _, addr := range tx.WriteSet {
			committedWrites[addr] = struct{}{}
		}
	}
}
