// Copyright 2025 Certen Protocol
//
// Execution strategies turn a conflict graph into an ExecutionPlan. Each
// models a different parallel-scheduling paradigm; the adaptive selector
// picks among them per batch based on observed workload features.

package scheduler

// StrategyType names a pluggable scheduling strategy.
type StrategyType string

const (
	StrategyAccountSetParallel StrategyType = "account_set_parallel"
	StrategyOptimisticSTM      StrategyType = "optimistic_stm"
	StrategyObjectDAG          StrategyType = "object_dag"
	StrategySequential         StrategyType = "sequential"
)

// Strategy plans execution order and grouping for a submitted batch.
type Strategy interface {
	PlanExecution(txs []Transaction, graph *ConflictGraph) (*ExecutionPlan, error)
	Name() StrategyType
	Description() string
}

// SequentialStrategy runs every transaction in its own group, in order. It
// is the fallback for an unrecognized or failed strategy selection.
type SequentialStrategy struct{}

func (SequentialStrategy) PlanExecution(txs []Transaction, _ *ConflictGraph) (*ExecutionPlan, error) {
	groups := make([][]int, len(txs))
	order := make([]int, len(txs))
	for i := range txs {
		groups[i] = []int{i}
		order[i] = i
	}
	return &ExecutionPlan{ParallelGroups: groups, DependencyOrder: order}, nil
}

func (SequentialStrategy) Name() StrategyType    { return StrategySequential }
func (SequentialStrategy) Description() string   { return "one transaction per group, strict order" }

// AccountSetParallelStrategy groups transactions by greedy graph coloring
// over their declared read/write sets, in submission order — the account
// read/write-set style of parallelism.
type AccountSetParallelStrategy struct{}

func (AccountSetParallelStrategy) PlanExecution(txs []Transaction, graph *ConflictGraph) (*ExecutionPlan, error) {
	n := len(txs)
	neighbors := make([][]int, n)
	for _, e := range graph.Edges {
		neighbors[e[0]] = append(neighbors[e[0]], e[1])
		neighbors[e[1]] = append(neighbors[e[1]], e[0])
	}

	colors := make([]int, n)
	for i := range colors {
		colors[i] = -1
	}

	var groups [][]int
	for i := 0; i < n; i++ {
		used := make(map[int]struct{})
		for _, nb := range neighbors[i] {
			if nb < i && colors[nb] >= 0 {
				used[colors[nb]] = struct{}{}
			}
		}
		color := 0
		for {
			if _, taken := used[color]; !taken {
				break
			}
			color++
		}
		colors[i] = color
		for color >= len(groups) {
			groups = append(groups, nil)
		}
		groups[color] = append(groups[color], i)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return &ExecutionPlan{ParallelGroups: groups, DependencyOrder: order}, nil
}

func (AccountSetParallelStrategy) Name() StrategyType { return StrategyAccountSetParallel }
func (AccountSetParallelStrategy) Description() string {
	return "greedy graph coloring over account read/write sets, submission order"
}

// OptimisticSTMStrategy plans a single speculative group: every transaction
// is attempted concurrently, and the dispatcher validates read/write sets
// at commit time, re-running any transaction whose inputs were invalidated
// by a conflicting writer in the same group.
type OptimisticSTMStrategy struct{}

func (OptimisticSTMStrategy) PlanExecution(txs []Transaction, _ *ConflictGraph) (*ExecutionPlan, error) {
	all := make([]int, len(txs))
	for i := range txs {
		all[i] = i
	}
	groups := [][]int{}
	if len(all) > 0 {
		groups = [][]int{all}
	}
	return &ExecutionPlan{ParallelGroups: groups, DependencyOrder: all}, nil
}

func (OptimisticSTMStrategy) Name() StrategyType { return StrategyOptimisticSTM }
func (OptimisticSTMStrategy) Description() string {
	return "speculative execution with commit-time conflict detection"
}

// ObjectDAGStrategy layers transactions by conflict depth: a transaction's
// layer is one past the deepest layer of any earlier transaction it
// conflicts with. Layers execute in order; a layer's members touch
// disjoint sub-DAGs of objects and run concurrently.
type ObjectDAGStrategy struct{}

func (ObjectDAGStrategy) PlanExecution(txs []Transaction, graph *ConflictGraph) (*ExecutionPlan, error) {
	n := len(txs)
	depth := make([]int, n)

	predecessors := make([][]int, n)
	for _, e := range graph.Edges {
		i, j := e[0], e[1]
		if i < j {
			predecessors[j] = append(predecessors[j], i)
		} else {
			predecessors[i] = append(predecessors[i], j)
		}
	}

	maxDepth := 0
	for i := 0; i < n; i++ {
		d := 0
		for _, p := range predecessors[i] {
			if depth[p]+1 > d {
				d = depth[p] + 1
			}
		}
		depth[i] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	groups := make([][]int, maxDepth+1)
	for i := 0; i < n; i++ {
		groups[depth[i]] = append(groups[depth[i]], i)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return &ExecutionPlan{ParallelGroups: groups, DependencyOrder: order}, nil
}

func (ObjectDAGStrategy) Name() StrategyType { return StrategyObjectDAG }
func (ObjectDAGStrategy) Description() string {
	return "per-object sub-DAG layering, object-level parallelism"
}

// ForStrategyType resolves a StrategyType to its Strategy implementation,
// falling back to SequentialStrategy for anything unrecognized.
func ForStrategyType(t StrategyType) Strategy {
	switch t {
	case StrategyAccountSetParallel:
		return AccountSetParallelStrategy{}
	case StrategyOptimisticSTM:
		return OptimisticSTMStrategy{}
	case StrategyObjectDAG:
		return ObjectDAGStrategy{}
	default:
		return SequentialStrategy{}
	}
}
