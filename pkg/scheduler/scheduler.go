// Copyright 2025 Certen Protocol
//
// Scheduler composes conflict analysis, strategy selection, and dispatch
// into a single SubmitBatch entry point: analyze conflicts, pick an
// execution plan, run it, report stats.

package scheduler

import (
	"context"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scheduler is the parallel execution scheduler's main entry point.
type Scheduler struct {
	mu sync.Mutex

	cfg        Config
	dispatcher *Dispatcher
	selector   *AdaptiveSelector
	adaptive   bool
	fixed      StrategyType

	totalProcessed    uint64
	totalSuccessful   uint64
	conflictsDetected uint64

	log *log.Logger
}

// NewScheduler builds a Scheduler that adaptively selects a strategy per
// batch. WorkerThreads in cfg, if zero, resolves to runtime.NumCPU().
func NewScheduler(cfg Config, logger *log.Logger) *Scheduler {
	if cfg.WorkerThreads <= 0 {
		cfg.WorkerThreads = runtime.NumCPU()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[Scheduler] ", log.LstdFlags)
	}
	return &Scheduler{
		cfg:        cfg,
		dispatcher: NewDispatcher(cfg.WorkerThreads),
		selector:   NewAdaptiveSelector(0.1),
		adaptive:   true,
		log:        logger,
	}
}

// NewFixedStrategyScheduler builds a Scheduler that always runs the given
// strategy, bypassing adaptive selection.
func NewFixedStrategyScheduler(cfg Config, strategy StrategyType, logger *log.Logger) *Scheduler {
	s := NewScheduler(cfg, logger)
	s.adaptive = false
	s.fixed = strategy
	return s
}

// SubmitBatch analyzes conflicts, picks a strategy, plans, and dispatches
// txs, returning the per-transaction results and batch statistics.
func (s *Scheduler) SubmitBatch(ctx context.Context, txs []Transaction, exec TxExecutor) (*BatchResult, error) {
	if exec == nil {
		return nil, ErrNilExecutor
	}
	if len(txs) == 0 {
		return nil, ErrEmptyBatch
	}
	if s.cfg.BatchSize > 0 && len(txs) > s.cfg.BatchSize {
		return nil, ErrBatchTooLarge
	}

	start := time.Now()
	batchId := uuid.New().String()
	s.log.Printf("submitting batch %s of %d transactions", batchId, len(txs))

	graph := BuildConflictGraph(txs)
	features := ExtractFeatures(txs, graph)

	strategyType := s.fixed
	if s.adaptive {
		strategyType = s.selector.SelectStrategy(features)
	}
	strategy := ForStrategyType(strategyType)

	plan, err := strategy.PlanExecution(txs, graph)
	if err != nil {
		return nil, err
	}

	results, err := s.dispatcher.ExecuteParallel(ctx, plan, txs, exec)
	if err != nil {
		s.log.Printf("batch execution error: %v", err)
	}

	elapsed := time.Since(start)
	stats := summarize(results, len(plan.ParallelGroups), len(graph.Edges), elapsed)

	s.mu.Lock()
	s.totalProcessed += uint64(stats.TotalTransactions)
	s.totalSuccessful += uint64(stats.SuccessfulTransactions)
	s.conflictsDetected += uint64(stats.ConflictsDetected)
	s.mu.Unlock()

	if s.adaptive {
		actual := ActualPerformance{
			TPS:        tps(stats, elapsed),
			LatencyMs:  float64(elapsed.Milliseconds()),
			Efficiency: stats.ParallelEfficiency,
		}
		s.selector.RecordOutcome(strategyType, features, actual)
	}

	s.log.Printf("batch %s complete: strategy=%s success=%d/%d efficiency=%.2f",
		batchId, strategyType, stats.SuccessfulTransactions, stats.TotalTransactions, stats.ParallelEfficiency)

	return &BatchResult{BatchId: batchId, TransactionResults: results, ExecutionStats: stats}, err
}

// Status reports the scheduler's cumulative counters.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	strategy := s.fixed
	if s.adaptive {
		strategy = s.selector.CurrentStrategy()
	}

	efficiency := 0.0
	if s.totalProcessed > 0 {
		efficiency = float64(s.totalSuccessful) / float64(s.totalProcessed)
	}

	return Status{
		StrategyType:       strategy,
		WorkerThreads:      s.cfg.WorkerThreads,
		TotalProcessed:     s.totalProcessed,
		ConflictsDetected:  s.conflictsDetected,
		ParallelEfficiency: efficiency,
	}
}

func summarize(results []TransactionResult, groupCount, conflicts int, elapsed time.Duration) ExecutionStats {
	var successful, failed int
	var gasUsed uint64
	for _, r := range results {
		if r.Success {
			successful++
		} else {
			failed++
		}
		gasUsed += r.GasUsed
	}

	efficiency := 0.0
	if len(results) > 0 {
		efficiency = float64(successful) / float64(len(results))
	}

	return ExecutionStats{
		TotalTransactions:      len(results),
		SuccessfulTransactions: successful,
		FailedTransactions:     failed,
		TotalGasUsed:           gasUsed,
		ExecutionTimeMs:        elapsed.Milliseconds(),
		ParallelEfficiency:     efficiency,
		ConflictsDetected:      conflicts,
	}
}

func tps(stats ExecutionStats, elapsed time.Duration) float64 {
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		return float64(stats.TotalTransactions)
	}
	return float64(stats.TotalTransactions) / seconds
}
