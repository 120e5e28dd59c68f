// Copyright 2025 Certen Protocol
//
// Workload feature extraction: summarizes a batch of transactions into the
// vector the adaptive strategy selector predicts performance from.

package scheduler

import (
	"math"
	"sort"
)

// SizeDistribution summarizes a sample of transaction payload sizes.
type SizeDistribution struct {
	Mean        float64
	StdDev      float64
	Percentiles map[float64]int
}

// SizeDistributionFromSamples computes mean, stddev, and the 50/90/99
// percentiles of samples.
func SizeDistributionFromSamples(samples []int) SizeDistribution {
	if len(samples) == 0 {
		return SizeDistribution{Percentiles: map[float64]int{}}
	}

	sum := 0
	for _, s := range samples {
		sum += s
	}
	mean := float64(sum) / float64(len(samples))

	var variance float64
	for _, s := range samples {
		d := float64(s) - mean
		variance += d * d
	}
	variance /= float64(len(samples))

	sorted := append([]int(nil), samples...)
	sort.Ints(sorted)

	percentile := func(p float64) int {
		idx := int(float64(len(sorted)) * p)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}

	return SizeDistribution{
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Percentiles: map[float64]int{
			0.5:  percentile(0.5),
			0.9:  percentile(0.9),
			0.99: percentile(0.99),
		},
	}
}

// GasPattern summarizes a batch's gas-limit usage.
type GasPattern struct {
	AverageGas    float64
	GasVariance   float64
	HighGasRatio float64
}

// GasPatternFromSamples computes the mean, variance, and the fraction of
// samples exceeding twice the mean.
func GasPatternFromSamples(samples []uint64) GasPattern {
	if len(samples) == 0 {
		return GasPattern{}
	}

	var sum uint64
	for _, s := range samples {
		sum += s
	}
	avg := float64(sum) / float64(len(samples))

	var variance float64
	for _, s := range samples {
		d := float64(s) - avg
		variance += d * d
	}
	variance /= float64(len(samples))

	threshold := avg * 2.0
	high := 0
	for _, s := range samples {
		if float64(s) > threshold {
			high++
		}
	}

	return GasPattern{
		AverageGas:   avg,
		GasVariance:  variance,
		HighGasRatio: float64(high) / float64(len(samples)),
	}
}

// WorkloadFeatures is the feature vector the adaptive selector's
// performance predictor consumes.
type WorkloadFeatures struct {
	TransactionCount            int
	ConflictDensity             float64
	ReadWriteRatio              float64
	AddressEntropy              float64
	TransactionSizeDistribution SizeDistribution
	TemporalLocality            float64
	SpatialLocality              float64
	GasUsagePattern              GasPattern
}

// ExtractFeatures computes a WorkloadFeatures vector for a submitted batch.
// graph must have been built over the same txs.
func ExtractFeatures(txs []Transaction, graph *ConflictGraph) WorkloadFeatures {
	return WorkloadFeatures{
		TransactionCount:             len(txs),
		ConflictDensity:              graph.ConflictDensity(),
		ReadWriteRatio:               readWriteRatio(txs),
		AddressEntropy:               addressEntropy(txs),
		TransactionSizeDistribution:  SizeDistributionFromSamples(payloadSizes(txs)),
		TemporalLocality:             temporalLocality(txs),
		SpatialLocality:              spatialLocality(txs),
		GasUsagePattern:              GasPatternFromSamples(gasLimits(txs)),
	}
}

func payloadSizes(txs []Transaction) []int {
	sizes := make([]int, len(txs))
	for i, tx := range txs {
		sizes[i] = len(tx.Data)
	}
	return sizes
}

func gasLimits(txs []Transaction) []uint64 {
	limits := make([]uint64, len(txs))
	for i, tx := range txs {
		limits[i] = tx.GasLimit
	}
	return limits
}

func readWriteRatio(txs []Transaction) float64 {
	var reads, writes int
	for _, tx := range txs {
		reads += len(tx.ReadSet)
		writes += len(tx.WriteSet)
	}
	if writes == 0 {
		return math.Inf(1)
	}
	return float64(reads) / float64(writes)
}

// addressEntropy is the Shannon entropy, in bits, of the distribution of
// per-address accesses (reads and writes both count) across the batch.
// A batch touching zero addresses has entropy 0.
func addressEntropy(txs []Transaction) float64 {
	counts := make(map[string]int)
	total := 0
	for _, tx := range txs {
		for _, addr := range tx.ReadSet {
			counts[addr]++
			total++
		}
		for _, addr := range tx.WriteSet {
			counts[addr]++
			total++
		}
	}
	if total == 0 {
		return 0.0
	}

	var entropy float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}

// spatialLocality is the fraction of addresses touched by this batch that
// are touched by more than one transaction — a proxy for how much state
// the batch revisits rather than spreads across.
func spatialLocality(txs []Transaction) float64 {
	counts := make(map[string]int)
	for _, tx := range txs {
		seen := make(map[string]struct{})
		for _, addr := range tx.ReadSet {
			seen[addr] = struct{}{}
		}
		for _, addr := range tx.WriteSet {
			seen[addr] = struct{}{}
		}
		for addr := range seen {
			counts[addr]++
		}
	}
	if len(counts) == 0 {
		return 0.0
	}
	reused := 0
	for _, c := range counts {
		if c > 1 {
			reused++
		}
	}
	return float64(reused) / float64(len(counts))
}

// temporalLocality measures how close together in submission order an
// address's repeat accesses fall, averaged over every address accessed
// more than once. 1.0 means every repeat access is adjacent; 0.0 means
// repeats are maximally spread across the batch.
func temporalLocality(txs []Transaction) float64 {
	positions := make(map[string][]int)
	for i, tx := range txs {
		seen := make(map[string]struct{})
		for _, addr := range tx.ReadSet {
			seen[addr] = struct{}{}
		}
		for _, addr := range tx.WriteSet {
			seen[addr] = struct{}{}
		}
		for addr := range seen {
			positions[addr] = append(positions[addr], i)
		}
	}

	n := len(txs)
	if n <= 1 {
		return 0.0
	}

	var sum float64
	var count int
	for _, idxs := range positions {
		if len(idxs) < 2 {
			continue
		}
		var gapSum float64
		for i := 1; i < len(idxs); i++ {
			gapSum += float64(idxs[i] - idxs[i-1])
		}
		meanGap := gapSum / float64(len(idxs)-1)
		sum += 1.0 - (meanGap-1)/float64(n-1)
		count++
	}
	if count == 0 {
		return 0.0
	}
	locality := sum / float64(count)
	if locality < 0 {
		locality = 0
	}
	return locality
}
