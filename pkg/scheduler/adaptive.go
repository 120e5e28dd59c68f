// Copyright 2025 Certen Protocol
//
// Adaptive strategy selection: a per-strategy linear performance predictor,
// trained from observed batch outcomes, feeds an epsilon-greedy selector
// that picks which scheduling strategy to run next.

package scheduler

import (
	"math/rand"
	"sync"
)

// ActualPerformance is what SubmitBatch observed for a completed batch.
type ActualPerformance struct {
	TPS        float64
	LatencyMs  float64
	Efficiency float64
}

// PerformancePrediction is a strategy's predicted outcome for a workload.
type PerformancePrediction struct {
	Strategy            StrategyType
	PredictedTPS        float64
	PredictedLatencyMs  float64
	PredictedEfficiency float64
	Confidence          float64
}

// performanceRecord pairs a strategy's observed performance with the
// workload features that produced it.
type performanceRecord struct {
	strategy StrategyType
	features WorkloadFeatures
	actual   ActualPerformance
}

// predictionModel is a small linear model over (transaction count,
// conflict density, read/write ratio) predicting TPS; latency and
// efficiency are derived from the TPS prediction and conflict density.
type predictionModel struct {
	weights [3]float64
	bias    float64
}

// defaultModel returns the strategy's hard-coded prior, used until enough
// training samples accumulate to fit one from data.
func defaultModel(strategy StrategyType) predictionModel {
	switch strategy {
	case StrategyAccountSetParallel:
		return predictionModel{weights: [3]float64{100.0, -50.0, 20.0}, bias: 1000.0}
	case StrategyOptimisticSTM:
		return predictionModel{weights: [3]float64{80.0, -30.0, 30.0}, bias: 800.0}
	case StrategyObjectDAG:
		return predictionModel{weights: [3]float64{120.0, -20.0, 10.0}, bias: 1200.0}
	default:
		return predictionModel{weights: [3]float64{60.0, -40.0, 15.0}, bias: 500.0}
	}
}

func (m predictionModel) predict(f WorkloadFeatures) (tps, latencyMs, efficiency float64) {
	rwr := f.ReadWriteRatio
	if rwr > 10.0 {
		rwr = 10.0
	}
	featureVec := [3]float64{float64(f.TransactionCount), f.ConflictDensity, rwr}

	tps = m.bias
	for i, w := range m.weights {
		tps += w * featureVec[i]
	}
	if tps < 1.0 {
		tps = 1.0
	}

	latencyMs = 1000.0 / tps
	efficiency = (1.0-f.ConflictDensity)*0.9 + 0.1
	return tps, latencyMs, efficiency
}

// trainModel fits a fresh model by averaging the deltas between the
// default prior's predictions and the observed outcomes into its bias —
// a deliberately simple regression, matched in spirit to the reference
// scheduler's "simplified linear regression" placeholder.
func trainModel(strategy StrategyType, samples []performanceRecord) predictionModel {
	model := defaultModel(strategy)
	if len(samples) == 0 {
		return model
	}
	var biasAdjust float64
	for _, s := range samples {
		predictedTPS, _, _ := model.predict(s.features)
		biasAdjust += s.actual.TPS - predictedTPS
	}
	model.bias += biasAdjust / float64(len(samples))
	return model
}

// predictor tracks one prediction model per strategy plus its accuracy,
// retraining whenever enough fresh samples accumulate for a strategy.
type predictor struct {
	mu       sync.Mutex
	models   map[StrategyType]predictionModel
	accuracy map[StrategyType]float64
	samples  map[StrategyType][]performanceRecord
}

func newPredictor() *predictor {
	return &predictor{
		models:   make(map[StrategyType]predictionModel),
		accuracy: make(map[StrategyType]float64),
		samples:  make(map[StrategyType][]performanceRecord),
	}
}

// predict returns a prediction for strategy, falling back to the default
// model (confidence 0.5) if no model has been trained yet.
func (p *predictor) predict(strategy StrategyType, features WorkloadFeatures) PerformancePrediction {
	p.mu.Lock()
	defer p.mu.Unlock()

	model, ok := p.models[strategy]
	if !ok {
		model = defaultModel(strategy)
	}
	confidence, ok := p.accuracy[strategy]
	if !ok {
		confidence = 0.5
	}

	tps, latency, efficiency := model.predict(features)
	return PerformancePrediction{
		Strategy:            strategy,
		PredictedTPS:        tps,
		PredictedLatencyMs:  latency,
		PredictedEfficiency: efficiency,
		Confidence:          confidence,
	}
}

// record files an observed outcome and retrains the strategy's model. With
// fewer than five samples for a strategy, the default model is kept.
func (p *predictor) record(strategy StrategyType, features WorkloadFeatures, actual ActualPerformance) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.samples[strategy] = append(p.samples[strategy], performanceRecord{strategy: strategy, features: features, actual: actual})
	samples := p.samples[strategy]

	if len(samples) < 5 {
		p.models[strategy] = defaultModel(strategy)
		return
	}

	model := trainModel(strategy, samples)
	p.models[strategy] = model
	p.accuracy[strategy] = modelAccuracy(model, samples)
}

func modelAccuracy(model predictionModel, samples []performanceRecord) float64 {
	if len(samples) == 0 {
		return 0.5
	}
	var totalError float64
	for _, s := range samples {
		tps, latency, _ := model.predict(s.features)
		tpsErr := absRatio(tps-s.actual.TPS, maxf(s.actual.TPS, 1.0))
		latencyErr := absRatio(latency-s.actual.LatencyMs, maxf(s.actual.LatencyMs, 1.0))
		totalError += (tpsErr + latencyErr) / 2.0
	}
	avgErr := totalError / float64(len(samples))
	if avgErr > 1.0 {
		avgErr = 1.0
	}
	acc := 1.0 - avgErr
	if acc < 0 {
		acc = 0
	}
	return acc
}

func absRatio(d, denom float64) float64 {
	if d < 0 {
		d = -d
	}
	return d / denom
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// AvailableStrategies lists the strategies the adaptive selector chooses
// among.
var AvailableStrategies = []StrategyType{StrategyAccountSetParallel, StrategyOptimisticSTM, StrategyObjectDAG}

// SelectionAlgorithm picks a strategy from a set of predictions.
type SelectionAlgorithm interface {
	Select(predictions []PerformancePrediction) StrategyType
}

// GreedySelection always picks the strategy with the highest predicted TPS.
type GreedySelection struct{}

func (GreedySelection) Select(predictions []PerformancePrediction) StrategyType {
	if len(predictions) == 0 {
		return StrategyAccountSetParallel
	}
	best := predictions[0]
	for _, p := range predictions[1:] {
		if p.PredictedTPS > best.PredictedTPS {
			best = p
		}
	}
	return best.Strategy
}

// EpsilonGreedySelection explores a random strategy with probability
// Epsilon, otherwise falls back to greedy selection.
type EpsilonGreedySelection struct {
	Epsilon float64
}

func (e EpsilonGreedySelection) Select(predictions []PerformancePrediction) StrategyType {
	if len(predictions) == 0 {
		return StrategyAccountSetParallel
	}
	if rand.Float64() < e.Epsilon {
		return AvailableStrategies[rand.Intn(len(AvailableStrategies))]
	}
	return GreedySelection{}.Select(predictions)
}

// AdaptiveSelector chooses a strategy per batch based on its workload
// features, then records the batch's actual performance to improve future
// selections.
type AdaptiveSelector struct {
	predictor *predictor
	algorithm SelectionAlgorithm

	mu      sync.Mutex
	history []performanceRecord
	current StrategyType
}

// NewAdaptiveSelector builds a selector using epsilon-greedy exploration.
func NewAdaptiveSelector(epsilon float64) *AdaptiveSelector {
	return &AdaptiveSelector{
		predictor: newPredictor(),
		algorithm: EpsilonGreedySelection{Epsilon: epsilon},
		current:   StrategyAccountSetParallel,
	}
}

// SelectStrategy predicts every available strategy's performance against
// features and returns the one the selection algorithm picks.
func (a *AdaptiveSelector) SelectStrategy(features WorkloadFeatures) StrategyType {
	predictions := make([]PerformancePrediction, 0, len(AvailableStrategies))
	for _, s := range AvailableStrategies {
		predictions = append(predictions, a.predictor.predict(s, features))
	}

	chosen := a.algorithm.Select(predictions)

	a.mu.Lock()
	a.current = chosen
	a.mu.Unlock()
	return chosen
}

// RecordOutcome files a batch's actual performance under the strategy that
// ran it, updating that strategy's predictor.
func (a *AdaptiveSelector) RecordOutcome(strategy StrategyType, features WorkloadFeatures, actual ActualPerformance) {
	a.predictor.record(strategy, features, actual)

	a.mu.Lock()
	a.history = append(a.history, performanceRecord{strategy: strategy, features: features, actual: actual})
	a.mu.Unlock()
}

// CurrentStrategy reports the most recently selected strategy.
func (a *AdaptiveSelector) CurrentStrategy() StrategyType {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// AveragePerformance is the mean observed TPS across all recorded batches.
func (a *AdaptiveSelector) AveragePerformance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.history) == 0 {
		return 0.0
	}
	var total float64
	for _, r := range a.history {
		total += r.actual.TPS
	}
	return total / float64(len(a.history))
}

// StrategyDistribution counts how often each strategy has been recorded.
func (a *AdaptiveSelector) StrategyDistribution() map[StrategyType]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	dist := make(map[StrategyType]int)
	for _, r := range a.history {
		dist[r.strategy]++
	}
	return dist
}
