package candidate

import (
	"testing"

	"github.com/kshedden/intertext/internal/store"
)

func TestCanonicalizeOrdersByDocID(t *testing.T) {
	got := canonicalize(store.Posting{DocID: 5, WindowID: 1}, store.Posting{DocID: 2, WindowID: 7})
	if got.DocA != 2 || got.DocB != 5 {
		t.Fatalf("want DocA=2 DocB=5 (sorted), got DocA=%d DocB=%d", got.DocA, got.DocB)
	}
	if got.WinA != 7 || got.WinB != 1 {
		t.Fatalf("want window ids to follow their own doc across the swap: WinA=7 WinB=1, got WinA=%d WinB=%d", got.WinA, got.WinB)
	}
}

func TestEmitPairsSkipsSameDocument(t *testing.T) {
	postings := []store.Posting{
		{DocID: 1, WindowID: 0},
		{DocID: 1, WindowID: 1},
	}
	out := make(chan store.CandidateRow, 10)
	emitPairs(postings, -1, out)
	close(out)
	if n := len(out); n != 0 {
		t.Fatalf("want 0 pairs for postings all from the same document, got %d", n)
	}
}

func TestEmitPairsFocalModeFilter(t *testing.T) {
	postings := []store.Posting{
		{DocID: 1, WindowID: 0},
		{DocID: 2, WindowID: 0},
		{DocID: 3, WindowID: 0},
	}
	out := make(chan store.CandidateRow, 10)
	emitPairs(postings, 2, out)
	close(out)
	for row := range out {
		if row.DocA != 2 && row.DocB != 2 {
			t.Fatalf("focal mode should only emit pairs touching doc 2, got %+v", row)
		}
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	st, err := store.OpenFileTree(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFileTree: %v", err)
	}
	defer st.Close()

	// A band shared by three documents should produce every cross-document
	// pair, and a single-document band should contribute nothing (it is
	// never surfaced by StreamBandsMultiDoc in the first place).
	if err := st.AppendHashbands([]store.HashbandRow{
		{BandKey: "k1", DocID: 1, WindowID: 0},
		{BandKey: "k1", DocID: 2, WindowID: 0},
		{BandKey: "k1", DocID: 3, WindowID: 0},
		{BandKey: "k2", DocID: 1, WindowID: 5},
	}); err != nil {
		t.Fatalf("AppendHashbands: %v", err)
	}

	if err := Generate(st, Config{FocalDocID: -1}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var pairs [][2]int
	if err := st.StreamCandidatePairs(func(a, b int) error {
		pairs = append(pairs, [2]int{a, b})
		return nil
	}); err != nil {
		t.Fatalf("StreamCandidatePairs: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("want 3 candidate pairs from a 3-document band, got %d: %v", len(pairs), pairs)
	}
}
