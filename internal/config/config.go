// Package config defines the RunConfig value that is threaded by reference
// through every stage of the text reuse pipeline, and the flag/JSON loading
// that produces it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backend selects which Store implementation backs the three relations.
type Backend int

const (
	// BackendSQLite stores the Hashband, Candidate, and Match relations in
	// a single embedded SQLite database.
	BackendSQLite Backend = iota
	// BackendFileTree shards each relation across append-only files keyed
	// by band key or document-pair prefix.
	BackendFileTree
)

func (b Backend) String() string {
	if b == BackendFileTree {
		return "filetree"
	}
	return "sqlite"
}

func (a SimilarityAlgo) String() string {
	if a == SimilarityGreedy {
		return "greedy"
	}
	return "ratio"
}

// SimilarityAlgo selects the exact-match verification metric.
type SimilarityAlgo int

const (
	// SimilarityRatio is the classic "ratio" metric: twice the matched
	// length over the summed lengths, scaled to 100.
	SimilarityRatio SimilarityAlgo = iota
	// SimilarityGreedy is the greedy longest-common-substring subtraction
	// metric.
	SimilarityGreedy
)

// RunConfig holds every parameter governing a single pipeline run. It is
// populated once from flags (optionally overlaid with a JSON file) and then
// passed by reference to every stage; nothing here is read from globals.
type RunConfig struct {
	// InfileGlob selects the document set. Infiles is the resolved,
	// lexicographically sorted path list; its order fixes doc_ids.
	InfileGlob string
	Infiles    []string

	// BanishGlob selects documents whose matches trigger banish
	// propagation. Banished files are appended to Infiles.
	BanishGlob      string
	BanishedDocIDs  []int

	// ExcludeGlob selects documents dropped from the export step.
	ExcludeGlob     string
	ExcludedDocIDs  []int

	// OnlyPath restricts every cross-document pair to ones touching this
	// document ("focal mode").
	OnlyPath string
	FocalDoc int // -1 when unset

	// MetadataPath points to a JSON file mapping basename -> metadata.
	MetadataPath string

	WindowLength   int // W: words per window
	SlideLength    int // S: window stride
	ChargramLength int // C: shingle length for MinHash
	NumPermutations int // K: MinHash signature length
	Seed           int64

	HashbandLength int // B: signature entries per band
	HashbandStep   int // T: band stride across K

	MinSim     int // 1..100
	MaxFileSim float64 // applied only when HasMaxFileSim is set
	HasMaxFileSim bool

	BanishDistance int // D

	StripDiacritics bool

	XMLBaseTag    string
	XMLRemoveTags []string
	XMLPageTag    string
	XMLPageAttr   string

	OutputDir string
	CacheDir  string

	Backend        Backend
	SimilarityAlgo SimilarityAlgo

	BatchSize      int
	WriteFrequency int

	ComputeProbabilities bool
	BounterSizeMB        int

	UpdateMetadataOnly bool

	Verbose bool

	CPUProfile string
}

// Default returns a RunConfig populated with the documented flag defaults.
func Default() *RunConfig {
	return &RunConfig{
		WindowLength:    14,
		SlideLength:     4,
		ChargramLength:  4,
		NumPermutations: 64,
		Seed:            1,
		HashbandLength:  4,
		HashbandStep:    3,
		MinSim:          50,
		BanishDistance:  4,
		OutputDir:       "output",
		CacheDir:        "cache",
		Backend:         BackendSQLite,
		SimilarityAlgo:  SimilarityRatio,
		BatchSize:       5000,
		WriteFrequency:  20000,
		BounterSizeMB:   64,
		FocalDoc:        -1,
	}
}

// LoadJSON overlays fields present in the JSON file at path onto rc. Missing
// fields leave the existing (flag-default) value untouched.
func LoadJSON(rc *RunConfig, path string) error {
	fid, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer fid.Close()

	dec := json.NewDecoder(fid)
	if err := dec.Decode(rc); err != nil {
		return fmt.Errorf("decoding config file: %w", err)
	}
	return nil
}

// Validate checks the configuration errors that must fail before any
// work begins. It returns the first error found.
func (rc *RunConfig) Validate() error {
	if len(rc.Infiles) == 0 {
		return fmt.Errorf("no infiles: --infiles matched no files")
	}
	if rc.MinSim < 1 || rc.MinSim > 100 {
		return fmt.Errorf("min_sim must be in [1,100], got %d", rc.MinSim)
	}
	if rc.XMLPageTag != "" && rc.MetadataPath == "" {
		return fmt.Errorf("--xml_page_tag requires --metadata to be provided")
	}
	if rc.HasMaxFileSim && rc.MaxFileSim < float64(rc.MinSim)/100 {
		return fmt.Errorf("max_file_sim (%v) can not be smaller than min_sim (%d)", rc.MaxFileSim, rc.MinSim)
	}
	return nil
}

// EscapedCachePath returns the path used to store a per-document cache
// artifact (word list, window list, or MinHash signature), keyed by the
// document path with separators escaped, matching the on-disk convention
// the pipeline's cache directory uses throughout a run.
func EscapedCachePath(cacheDir, subdir, docPath, ext string) string {
	escaped := strings.ReplaceAll(filepath.ToSlash(docPath), "/", "___")
	return filepath.Join(cacheDir, subdir, escaped+ext)
}
