// Copyright 2025 Certen Protocol
//
// Conflict analysis: builds a conflict graph over a batch's declared
// read/write sets. An edge (i, j) means transaction i must not run
// concurrently with transaction j.

package scheduler

import mapset "github.com/deckarep/golang-set/v2"

// ConflictGraph records the pairwise conflicts within a submitted batch.
type ConflictGraph struct {
	Nodes          int
	Edges          [][2]int
	ReadConflicts  map[string][]int
	WriteConflicts map[string][]int
}

// BuildConflictGraph detects write-write and write-read conflicts across
// transactions, indexed by their position in txs.
func BuildConflictGraph(txs []Transaction) *ConflictGraph {
	readConflicts := make(map[string][]int)
	writeConflicts := make(map[string][]int)

	for i, tx := range txs {
		for _, addr := range tx.ReadSet {
			readConflicts[addr] = append(readConflicts[addr], i)
		}
		for _, addr := range tx.WriteSet {
			writeConflicts[addr] = append(writeConflicts[addr], i)
		}
	}

	var edges [][2]int
	for addr, writers := range writeConflicts {
		for i := 0; i < len(writers); i++ {
			for j := i + 1; j < len(writers); j++ {
				edges = append(edges, [2]int{writers[i], writers[j]})
			}
		}
		for _, writer := range writers {
			for _, reader := range readConflicts[addr] {
				if writer != reader {
					edges = append(edges, [2]int{writer, reader})
				}
			}
		}
	}

	return &ConflictGraph{
		Nodes:          len(txs),
		Edges:          edges,
		ReadConflicts:  readConflicts,
		WriteConflicts: writeConflicts,
	}
}

// ConflictDensity is len(Edges) divided by the number of possible
// transaction pairs. Edges are emitted per address, so a pair that
// conflicts on several addresses counts once per address and the result
// can exceed the fraction of pairs that conflict.
func (g *ConflictGraph) ConflictDensity() float64 {
	totalPairs := g.Nodes * (g.Nodes - 1) / 2
	if totalPairs == 0 {
		return 0.0
	}
	return float64(len(g.Edges)) / float64(totalPairs)
}

// hasConflict reports whether a and b touch a common address in a
// conflicting way (write-write, or write-read in either direction).
func hasConflict(a, b Transaction) bool {
	aWrites := mapset.NewThreadUnsafeSet(a.WriteSet...)
	bWrites := mapset.NewThreadUnsafeSet(b.WriteSet...)
	if aWrites.Intersect(bWrites).Cardinality() > 0 {
		return true
	}

	aReads := mapset.NewThreadUnsafeSet(a.ReadSet...)
	bReads := mapset.NewThreadUnsafeSet(b.ReadSet...)
	if aWrites.Intersect(bReads).Cardinality() > 0 {
		return true
	}
	if bWrites.Intersect(aReads).Cardinality() > 0 {
		return true
	}
	return false
}
