// Package export writes the persisted layout the external viewer
// consumes: per-document match arrays, sorted index files, scatterplot
// aggregates, display texts, and a run summary. Every file is written
// atomically (temp file then rename) so a reader never observes a
// partially written export.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/kshedden/intertext/internal/cluster"
	"github.com/kshedden/intertext/internal/config"
	"github.com/kshedden/intertext/internal/corpus"
	"github.com/kshedden/intertext/internal/text"
)

// Run writes the full output tree under rc.OutputDir from the formed
// clusters. excludedIDs are document ids dropped from the export (but
// which still participated in fingerprinting, candidate generation, and
// verification).
func Run(rc *config.RunConfig, docs []corpus.Document, meta map[string]corpus.Metadata, excludedIDs []int, clusters []cluster.Cluster) error {
	excluded := make(map[int]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}

	opts := text.Options{
		StripDiacritics: rc.StripDiacritics,
		XMLBaseTag:      rc.XMLBaseTag,
		XMLRemoveTags:   rc.XMLRemoveTags,
	}

	paths := make([]string, len(docs))
	for _, d := range docs {
		paths[d.DocID] = d.Path
	}

	var counts *wordCounts
	if rc.ComputeProbabilities {
		var err error
		counts, err = buildWordCounts(docs, opts)
		if err != nil {
			return fmt.Errorf("computing word counts: %w", err)
		}
	}

	b := &builder{
		rc:      rc,
		docs:    docs,
		paths:   paths,
		meta:    meta,
		opts:    opts,
		counts:  counts,
		excl:    excluded,
		display: make(map[int][]string),
		pageMap: make(map[int]map[int]string),
	}

	records, byDoc, err := b.buildRecords(clusters)
	if err != nil {
		return fmt.Errorf("formatting match records: %w", err)
	}

	if err := writeMatchFiles(rc.OutputDir, byDoc); err != nil {
		return fmt.Errorf("writing match files: %w", err)
	}
	if err := writeIndices(rc.OutputDir, records, rc.ComputeProbabilities); err != nil {
		return fmt.Errorf("writing indices: %w", err)
	}
	if err := writeScatterplots(rc.OutputDir, records); err != nil {
		return fmt.Errorf("writing scatterplots: %w", err)
	}
	if err := writeTexts(rc.OutputDir, docs, opts); err != nil {
		return fmt.Errorf("writing texts: %w", err)
	}
	if err := writeRunConfig(rc.OutputDir, rc, len(docs), len(records)); err != nil {
		return fmt.Errorf("writing config.json: %w", err)
	}
	return nil
}

// writeJSONAtomic marshals v and writes it to path via a temp file in the
// same directory followed by a rename, so a concurrent reader never sees
// a half-written file.
func writeJSONAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// writeMatchFiles writes one api/matches/<doc_id>.json file per document in
// ascending doc_id order, so two runs over the same clusters produce byte-
// identical write sequences (useful for anyone tailing or diffing output).
func writeMatchFiles(outputDir string, byDoc map[int][]MatchRecord) error {
	for _, docID := range sortedIntKeys(byDoc) {
		path := filepath.Join(outputDir, "api", "matches", strconv.Itoa(docID)+".json")
		if err := writeJSONAtomic(path, byDoc[docID]); err != nil {
			return err
		}
	}
	return nil
}

func writeRunConfig(outputDir string, rc *config.RunConfig, numDocs, numMatches int) error {
	summary := map[string]interface{}{
		"num_documents":     numDocs,
		"num_matches":       numMatches,
		"window_length":     rc.WindowLength,
		"slide_length":      rc.SlideLength,
		"chargram_length":   rc.ChargramLength,
		"num_permutations":  rc.NumPermutations,
		"hashband_length":   rc.HashbandLength,
		"hashband_step":     rc.HashbandStep,
		"min_sim":           rc.MinSim,
		"banish_distance":   rc.BanishDistance,
		"strip_diacritics":  rc.StripDiacritics,
		"backend":           rc.Backend.String(),
		"similarity_algo":   rc.SimilarityAlgo.String(),
	}
	return writeJSONAtomic(filepath.Join(outputDir, "api", "config.json"), summary)
}

func sortedIntKeys(m map[int][]MatchRecord) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
