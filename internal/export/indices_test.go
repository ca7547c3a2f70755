package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func sampleRecords() []MatchRecord {
	return []MatchRecord{
		{ID: 0, Similarity: 60, Probability: 10, SourceSegmentIDs: []int{1}, TargetSegmentIDs: []int{1}, SourceAuthor: "b", SourceTitle: "y", SourceYear: "2001", SourceFileID: 1, TargetFileID: 2},
		{ID: 1, Similarity: 90, Probability: 30, SourceSegmentIDs: []int{1, 2, 3}, TargetSegmentIDs: []int{1, 2}, SourceAuthor: "a", SourceTitle: "x", SourceYear: "1999", SourceFileID: 1, TargetFileID: 3},
		{ID: 2, Similarity: 75, Probability: 20, SourceSegmentIDs: []int{1, 2}, TargetSegmentIDs: []int{1}, SourceAuthor: "c", SourceTitle: "z", SourceYear: "2010", SourceFileID: 2, TargetFileID: 3},
	}
}

// readTuples parses a match-ids-by-*.json file's
// (match_idx, source_file_id, target_file_id, length, probability,
// similarity) rows into plain float64 columns, which is enough to check
// the match_idx (column 0) ordering and the length column (column 3).
func readTuples(t *testing.T, path string) [][]float64 {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return rows
}

func idColumn(rows [][]float64) []int {
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = int(r[0])
	}
	return ids
}

func TestWriteIndicesSimilarityDescending(t *testing.T) {
	dir := t.TempDir()
	if err := writeIndices(dir, sampleRecords(), true); err != nil {
		t.Fatalf("writeIndices: %v", err)
	}
	rows := readTuples(t, filepath.Join(dir, "api", "indices", "match-ids-by-similarity.json"))
	want := []int{1, 2, 0} // similarities 90, 75, 60
	got := idColumn(rows)
	if len(got) != len(want) {
		t.Fatalf("want %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: want id %d, got %d (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestWriteIndicesTupleShape(t *testing.T) {
	dir := t.TempDir()
	if err := writeIndices(dir, sampleRecords(), true); err != nil {
		t.Fatalf("writeIndices: %v", err)
	}
	rows := readTuples(t, filepath.Join(dir, "api", "indices", "match-ids-by-similarity.json"))
	for _, row := range rows {
		if len(row) != 6 {
			t.Fatalf("want a 6-element (match_idx, source_file_id, target_file_id, length, probability, similarity) tuple, got %v", row)
		}
	}
	// row for id 1: source_file_id=1, target_file_id=3, length=min(3,2)=2, probability=30, similarity=90
	for _, row := range rows {
		if int(row[0]) != 1 {
			continue
		}
		if int(row[1]) != 1 || int(row[2]) != 3 || int(row[3]) != 2 || row[4] != 30 || int(row[5]) != 90 {
			t.Fatalf("want (1, 1, 3, 2, 30, 90), got %v", row)
		}
	}
}

func TestWriteIndicesAuthorAscending(t *testing.T) {
	dir := t.TempDir()
	if err := writeIndices(dir, sampleRecords(), true); err != nil {
		t.Fatalf("writeIndices: %v", err)
	}
	rows := readTuples(t, filepath.Join(dir, "api", "indices", "match-ids-by-author.json"))
	want := []int{1, 0, 2} // authors a, b, c
	got := idColumn(rows)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: want id %d, got %d (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestWriteIndicesSkipsProbabilityWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	if err := writeIndices(dir, sampleRecords(), false); err != nil {
		t.Fatalf("writeIndices: %v", err)
	}
	path := filepath.Join(dir, "api", "indices", "match-ids-by-probability.json")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("want match-ids-by-probability.json to be omitted when probabilities are disabled, stat err=%v", err)
	}
}

func TestWriteIndicesLengthDescending(t *testing.T) {
	dir := t.TempDir()
	if err := writeIndices(dir, sampleRecords(), true); err != nil {
		t.Fatalf("writeIndices: %v", err)
	}
	rows := readTuples(t, filepath.Join(dir, "api", "indices", "match-ids-by-length.json"))
	// lengths: id0=min(1,1)=1, id1=min(3,2)=2, id2=min(2,1)=1
	want := []int{1, 0, 2}
	got := idColumn(rows)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: want id %d, got %d (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestMatchLengthIsMinOfBothSides(t *testing.T) {
	r := MatchRecord{SourceSegmentIDs: []int{1, 2, 3}, TargetSegmentIDs: []int{1}}
	if got := matchLength(r); got != 1 {
		t.Fatalf("want min(3, 1) = 1, got %d", got)
	}
}

func TestJoinInts(t *testing.T) {
	if got := joinInts(nil); got != "" {
		t.Fatalf("want empty string for nil slice, got %q", got)
	}
	if got := joinInts([]int{1, 2, 3}); got != "1,2,3" {
		t.Fatalf("want \"1,2,3\", got %q", got)
	}
}

func TestWriteScatterplotsAggregatesBySourceFileID(t *testing.T) {
	dir := t.TempDir()
	if err := writeScatterplots(dir, sampleRecords()); err != nil {
		t.Fatalf("writeScatterplots: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "api", "scatterplots", "source-file_id-sum.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var buckets []scatterBucket
	if err := json.Unmarshal(data, &buckets); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	// records 0 and 1 share SourceFileID=1 (sims 60+90=150); record 2 has SourceFileID=2 (sim 75).
	byKey := make(map[string]scatterBucket, len(buckets))
	for _, b := range buckets {
		byKey[b.Key] = b
	}
	if byKey["1"].Similarity != 150 {
		t.Fatalf("want source file 1's summed similarity to be 150, got %v", byKey["1"].Similarity)
	}
	if byKey["2"].Similarity != 75 {
		t.Fatalf("want source file 2's summed similarity to be 75, got %v", byKey["2"].Similarity)
	}
	if byKey["1"].Type != "source" || byKey["1"].Unit != "file_id" || byKey["1"].Statistic != "sum" {
		t.Fatalf("want type/unit/statistic set on every bucket, got %+v", byKey["1"])
	}
}

func TestWriteScatterplotsMeanDividesByCount(t *testing.T) {
	dir := t.TempDir()
	if err := writeScatterplots(dir, sampleRecords()); err != nil {
		t.Fatalf("writeScatterplots: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "api", "scatterplots", "source-file_id-mean.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var buckets []scatterBucket
	if err := json.Unmarshal(data, &buckets); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, b := range buckets {
		if b.Key == "1" && b.Similarity != 75 { // mean(60, 90) = 75
			t.Fatalf("want source file 1's mean similarity to be 75, got %v", b.Similarity)
		}
	}
}

func TestWriteScatterplotsCarriesAttribution(t *testing.T) {
	dir := t.TempDir()
	if err := writeScatterplots(dir, sampleRecords()); err != nil {
		t.Fatalf("writeScatterplots: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "api", "scatterplots", "source-author-sum.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var buckets []scatterBucket
	if err := json.Unmarshal(data, &buckets); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, b := range buckets {
		if b.Key == "a" {
			if b.Title != "x" {
				t.Fatalf("want bucket keyed on author a to carry source_title x, got %q", b.Title)
			}
			if b.SourceYear != "1999" {
				t.Fatalf("want source_year preserved from the representative match, got %q", b.SourceYear)
			}
		}
	}
}
