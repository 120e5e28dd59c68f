// Copyright 2025 Certen Protocol
//
// Scheduler type definitions: the transaction shape the conflict analyzer
// and strategies operate on, execution plans, and batch results.

package scheduler

// Transaction is the unit the scheduler plans and dispatches. ReadSet and
// WriteSet are declared ahead of execution — the scheduler never inspects
// bytecode to discover them.
type Transaction struct {
	Hash     string
	From     string
	To       string
	Data     []byte
	GasLimit uint64
	GasPrice uint64
	Nonce    uint64
	ReadSet  []string
	WriteSet []string
}

// ExecutionPlan groups transaction indices (into the batch submitted to the
// scheduler) that may run concurrently, in dependency order. Groups earlier
// in ParallelGroups must complete before later ones start; members within a
// group carry no edge between each other in the conflict graph, except in
// the optimistic-STM plan, whose single speculative group holds the whole
// batch and is reconciled by the dispatcher at commit time.
type ExecutionPlan struct {
	ParallelGroups  [][]int
	DependencyOrder []int
}

// TransactionResult is the per-transaction outcome of a dispatched plan.
type TransactionResult struct {
	TxHash   string
	Success  bool
	GasUsed  uint64
	Output   []byte
	Logs     []string
	ErrorMsg string
}

// ExecutionStats summarizes a batch run.
type ExecutionStats struct {
	TotalTransactions      int
	SuccessfulTransactions int
	FailedTransactions     int
	TotalGasUsed           uint64
	ExecutionTimeMs        int64
	ParallelEfficiency     float64
	ConflictsDetected      int
}

// BatchResult is what SubmitBatch returns.
type BatchResult struct {
	BatchId            string
	TransactionResults []TransactionResult
	ExecutionStats     ExecutionStats
}

// Config configures a Scheduler.
type Config struct {
	WorkerThreads             int
	BatchSize                 int
	MaxQueueSize              int
	EnableOptimisticExecution bool
}

// DefaultConfig mirrors the defaults of the reference scheduler, with
// WorkerThreads resolved to the host's logical CPU count by NewScheduler
// when left at zero.
func DefaultConfig() Config {
	return Config{
		BatchSize:                 100,
		MaxQueueSize:              10000,
		EnableOptimisticExecution: true,
	}
}

// Status reports a running Scheduler's current state.
type Status struct {
	StrategyType       StrategyType
	WorkerThreads      int
	TotalProcessed     uint64
	ConflictsDetected  uint64
	ParallelEfficiency float64
}
