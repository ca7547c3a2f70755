// Package cluster implements the Cluster Former: for each verified
// document pair it groups matches whose window indices form contiguous
// runs on both sides into cluster records summarizing a reused passage.
package cluster

import (
	"sort"

	"github.com/kshedden/intertext/internal/store"
)

// Cluster is one reused-passage record. SourceDoc/SourceWindows and
// TargetDoc/TargetWindows are oriented toward the earlier-published
// document when year metadata is available for both sides of the pair;
// otherwise they default to (DocA, DocB) in that order.
type Cluster struct {
	DocA, DocB int

	SourceDoc     int
	TargetDoc     int
	SourceWindows []int
	TargetWindows []int
	MeanSim       int
}

// Config parameterizes cluster formation.
type Config struct {
	MinSim int
}

// Form streams every verified document pair from st and returns the
// clusters formed across the whole corpus. yearOf maps doc_id to a
// publication year for source/target orientation; a doc_id absent from
// yearOf is treated as having no known year.
func Form(st store.Store, cfg Config, yearOf map[int]int) ([]Cluster, error) {
	var out []Cluster
	err := st.StreamMatchPairs(func(docA, docB int) error {
		var rows []store.MatchRow
		if err := st.StreamMatchRows(docA, docB, func(r store.MatchRow) error {
			rows = append(rows, r)
			return nil
		}); err != nil {
			return err
		}
		out = append(out, formPair(docA, docB, rows, cfg.MinSim, yearOf)...)
		return nil
	})
	return out, err
}

// run is a maximal inclusive span of consecutive integers.
type run struct {
	start, end int
}

func (r run) contains(v int) bool { return v >= r.start && v <= r.end }

// runsOf decomposes a set of integers into its maximal runs, sorted by
// start.
func runsOf(set map[int]struct{}) []run {
	if len(set) == 0 {
		return nil
	}
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var runs []run
	start := keys[0]
	prev := keys[0]
	for _, k := range keys[1:] {
		if k == prev+1 {
			prev = k
			continue
		}
		runs = append(runs, run{start: start, end: prev})
		start, prev = k, k
	}
	runs = append(runs, run{start: start, end: prev})
	return runs
}

// runIndexOf maps every member of every run to that run's ordinal, for
// O(1) "which run is w in" lookups.
func runIndexOf(runs []run) map[int]int {
	idx := make(map[int]int)
	for i, r := range runs {
		for v := r.start; v <= r.end; v++ {
			idx[v] = i
		}
	}
	return idx
}

func formPair(docA, docB int, rows []store.MatchRow, minSim int, yearOf map[int]int) []Cluster {
	if len(rows) == 0 {
		return nil
	}

	aSet := make(map[int]struct{})
	bSet := make(map[int]struct{})
	for _, r := range rows {
		aSet[r.WinA] = struct{}{}
		bSet[r.WinB] = struct{}{}
	}
	aRuns := runsOf(aSet)
	bRuns := runsOf(bSet)
	aIdx := runIndexOf(aRuns)
	bIdx := runIndexOf(bRuns)

	type runPair struct{ a, b int }
	groups := make(map[runPair][]store.MatchRow)
	for _, r := range rows {
		key := runPair{aIdx[r.WinA], bIdx[r.WinB]}
		groups[key] = append(groups[key], r)
	}

	// Stable output order: by run pair (a run index, then b run index).
	keys := make([]runPair, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})

	var out []Cluster
	for _, key := range keys {
		members := groups[key]
		aMembers := make(map[int]struct{})
		bMembers := make(map[int]struct{})
		sum := 0
		for _, r := range members {
			aMembers[r.WinA] = struct{}{}
			bMembers[r.WinB] = struct{}{}
			sum += r.Sim
		}
		mean := sum / len(members)
		if mean < minSim {
			continue
		}
		c := Cluster{
			DocA: docA, DocB: docB,
			SourceDoc: docA, TargetDoc: docB,
			SourceWindows: sortedKeys(aMembers),
			TargetWindows: sortedKeys(bMembers),
			MeanSim:       mean,
		}
		orient(&c, yearOf)
		out = append(out, c)
	}
	return out
}

// orient swaps Source/Target to put the earlier-published document first
// when year metadata is known for both sides; otherwise (d_a, d_b) is
// kept as the source/target order.
func orient(c *Cluster, yearOf map[int]int) {
	ya, aok := yearOf[c.DocA]
	yb, bok := yearOf[c.DocB]
	if aok && bok && yb < ya {
		c.SourceDoc, c.TargetDoc = c.DocB, c.DocA
		c.SourceWindows, c.TargetWindows = c.TargetWindows, c.SourceWindows
	}
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
