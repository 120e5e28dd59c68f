// Copyright 2025 Certen Protocol
//
// Composition root for the off-chain execution channel core. No HTTP/API
// surface is wired here (out of scope per the core's interface contract);
// this binary starts the node on an in-memory development chain adapter
// (configured adapter URLs are not used here), and blocks until
// interrupted.

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/certen/offchain-channel/pkg/chainadapter"
	"github.com/certen/offchain-channel/pkg/compiler"
	"github.com/certen/offchain-channel/pkg/config"
	"github.com/certen/offchain-channel/pkg/kvstore"
	"github.com/certen/offchain-channel/pkg/predictive"
	"github.com/certen/offchain-channel/pkg/scheduler"
	"github.com/certen/offchain-channel/pkg/session"
	"github.com/certen/offchain-channel/pkg/vm"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("starting off-chain execution channel core")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	disk, err := kvstore.OpenGoLevelDB("compile-cache", cfg.CacheDir)
	if err != nil {
		log.Fatalf("open compilation cache store at %s: %v", cfg.CacheDir, err)
	}
	defer disk.Close()

	compilerCache, err := compiler.NewCache(
		cfg.CacheMemoryCacheSize,
		disk,
		compiler.PipelineConfig{
			TargetArch:        compiler.TargetArch(cfg.VMMoveTargetArch),
			OptimizationLevel: compiler.OptimizationLevel(cfg.VMMoveOptimizationLevel),
			EnableGasMetering: cfg.VMMoveEnableGasMetering,
		},
		log.New(log.Writer(), "[CompileCache] ", log.LstdFlags),
	)
	if err != nil {
		log.Fatalf("create compilation cache: %v", err)
	}

	// The node always runs against an in-memory adapter; adapters.* URLs
	// from the configuration are not wired to a real adapter here.
	adapter := chainadapter.Adapter(chainadapter.NewMockAdapter())
	log.Printf("using in-memory chain adapter (%d configured adapters.* RPC URLs not used)", len(cfg.AdapterRPCURLs))

	// The prediction cache backs the ephemeral-validator side of the node:
	// speculative results a session can consume without a VM round trip.
	// The session manager both consults it (before a VM call) and
	// populates it (after one), since this binary has no separate
	// speculative-execution driver ahead of the real one.
	predictionCache := predictive.NewCache(cfg.PredictionMaxEntries, cfg.PredictionValidityWindow)

	sessionMgr, err := session.NewManager(session.Config{
		Adapter:         adapter,
		CompilerCache:   compilerCache,
		VmKind:          vm.Kind(cfg.VMDefaultKind),
		Limits:          vm.DefaultLimits(),
		Logger:          log.New(log.Writer(), "[SessionManager] ", log.LstdFlags),
		PredictionCache: predictionCache,
	})
	if err != nil {
		log.Fatalf("create session manager: %v", err)
	}

	sched := scheduler.NewScheduler(scheduler.Config{
		WorkerThreads:             cfg.SchedulerWorkerThreads,
		BatchSize:                 cfg.SchedulerBatchSize,
		EnableOptimisticExecution: true,
	}, log.New(log.Writer(), "[Scheduler] ", log.LstdFlags))

	log.Printf("off-chain execution channel core ready: %d active sessions, scheduler status=%+v, prediction cache=%+v",
		sessionMgr.ActiveSessionCount(), sched.Status(), predictionCache.Stats())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	log.Println("off-chain execution channel core stopped")
}
