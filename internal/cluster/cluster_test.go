package cluster

import (
	"testing"

	"github.com/kshedden/intertext/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.OpenFileTree(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFileTree: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestFormGroupsContiguousRunsIntoOneCluster(t *testing.T) {
	st := newTestStore(t)
	rows := []store.MatchRow{
		{DocA: 1, DocB: 2, WinA: 10, WinB: 50, Sim: 90},
		{DocA: 1, DocB: 2, WinA: 11, WinB: 51, Sim: 92},
		{DocA: 1, DocB: 2, WinA: 12, WinB: 52, Sim: 88},
	}
	if err := st.AppendMatches(rows); err != nil {
		t.Fatalf("AppendMatches: %v", err)
	}

	clusters, err := Form(st, Config{MinSim: 0}, nil)
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("want 1 cluster for a single contiguous run, got %d: %+v", len(clusters), clusters)
	}
	c := clusters[0]
	if len(c.SourceWindows) != 3 || len(c.TargetWindows) != 3 {
		t.Fatalf("want 3 windows on each side, got %d/%d", len(c.SourceWindows), len(c.TargetWindows))
	}
	if c.MeanSim != (90+92+88)/3 {
		t.Fatalf("want mean similarity %d, got %d", (90+92+88)/3, c.MeanSim)
	}
}

func TestFormSplitsNonContiguousRunsIntoSeparateClusters(t *testing.T) {
	st := newTestStore(t)
	rows := []store.MatchRow{
		{DocA: 1, DocB: 2, WinA: 1, WinB: 1, Sim: 90},
		{DocA: 1, DocB: 2, WinA: 2, WinB: 2, Sim: 90},
		// a gap in both a and b windows starts a new run
		{DocA: 1, DocB: 2, WinA: 10, WinB: 10, Sim: 90},
	}
	if err := st.AppendMatches(rows); err != nil {
		t.Fatalf("AppendMatches: %v", err)
	}

	clusters, err := Form(st, Config{MinSim: 0}, nil)
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("want 2 clusters for two disjoint runs, got %d: %+v", len(clusters), clusters)
	}
}

func TestFormAppliesMinSimFilter(t *testing.T) {
	st := newTestStore(t)
	if err := st.AppendMatches([]store.MatchRow{
		{DocA: 1, DocB: 2, WinA: 1, WinB: 1, Sim: 40},
	}); err != nil {
		t.Fatalf("AppendMatches: %v", err)
	}

	clusters, err := Form(st, Config{MinSim: 50}, nil)
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	if len(clusters) != 0 {
		t.Fatalf("want 0 clusters below MinSim, got %d", len(clusters))
	}
}

func TestFormOrientsBySourceYear(t *testing.T) {
	st := newTestStore(t)
	if err := st.AppendMatches([]store.MatchRow{
		{DocA: 1, DocB: 2, WinA: 1, WinB: 1, Sim: 90},
	}); err != nil {
		t.Fatalf("AppendMatches: %v", err)
	}

	// doc 1 published 2010, doc 2 published 2005: doc 2 is earlier, so it
	// should be oriented as the source.
	yearOf := map[int]int{1: 2010, 2: 2005}
	clusters, err := Form(st, Config{MinSim: 0}, yearOf)
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("want 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.SourceDoc != 2 || c.TargetDoc != 1 {
		t.Fatalf("want source=2 (earlier year), target=1; got source=%d target=%d", c.SourceDoc, c.TargetDoc)
	}
}

func TestFormKeepsDocAFirstWhenYearsUnknown(t *testing.T) {
	st := newTestStore(t)
	if err := st.AppendMatches([]store.MatchRow{
		{DocA: 3, DocB: 9, WinA: 1, WinB: 1, Sim: 90},
	}); err != nil {
		t.Fatalf("AppendMatches: %v", err)
	}

	clusters, err := Form(st, Config{MinSim: 0}, nil)
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("want 1 cluster, got %d", len(clusters))
	}
	if clusters[0].SourceDoc != 3 || clusters[0].TargetDoc != 9 {
		t.Fatalf("want default order (3,9) preserved, got (%d,%d)", clusters[0].SourceDoc, clusters[0].TargetDoc)
	}
}
