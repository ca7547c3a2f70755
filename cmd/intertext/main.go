// intertext discovers near-duplicate and reused passages across a corpus
// of text documents: it fingerprints overlapping word windows with
// MinHash, indexes them into locality-sensitive hashbands, generates and
// verifies candidate document pairs, propagates a banish filter, forms
// clusters of contiguous matching windows, and exports the result as the
// JSON tree a companion viewer reads.
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/profile"

	"github.com/kshedden/intertext/internal/config"
	"github.com/kshedden/intertext/internal/corpus"
	"github.com/kshedden/intertext/internal/export"
	"github.com/kshedden/intertext/internal/logging"
	"github.com/kshedden/intertext/internal/pipeline"
	"github.com/kshedden/intertext/internal/store"
)

func main() {
	rc := config.Default()

	var (
		configPath    string
		xmlRemoveTags string
		maxFileSim    string
		backend       string
		algo          string
	)

	flag.StringVar(&configPath, "config", "", "JSON config file overlaying flag defaults")
	flag.StringVar(&rc.InfileGlob, "infiles", "", "glob selecting the corpus")
	flag.StringVar(&rc.BanishGlob, "banish", "", "glob selecting banished documents")
	flag.StringVar(&rc.ExcludeGlob, "exclude", "", "glob selecting documents dropped from export")
	flag.StringVar(&rc.OnlyPath, "only", "", "restrict all pairs to this document (focal mode)")
	flag.StringVar(&rc.MetadataPath, "metadata", "", "JSON metadata file (basename -> attributes)")

	flag.IntVar(&rc.WindowLength, "window_length", rc.WindowLength, "words per window")
	flag.IntVar(&rc.SlideLength, "slide_length", rc.SlideLength, "window stride in words")
	flag.IntVar(&rc.ChargramLength, "chargram_length", rc.ChargramLength, "character shingle length for MinHash")
	flag.IntVar(&rc.NumPermutations, "num_permutations", rc.NumPermutations, "MinHash signature length")
	flag.Int64Var(&rc.Seed, "seed", rc.Seed, "MinHash permutation seed")

	flag.IntVar(&rc.HashbandLength, "hashband_length", rc.HashbandLength, "signature entries per band")
	flag.IntVar(&rc.HashbandStep, "hashband_step", rc.HashbandStep, "band stride across the signature")

	flag.IntVar(&rc.MinSim, "min_sim", rc.MinSim, "minimum accepted similarity, 1-100")
	flag.StringVar(&maxFileSim, "max_file_sim", "", "drop a pair entirely if matched windows exceed this fraction of either file")
	flag.IntVar(&rc.BanishDistance, "banish_distance", rc.BanishDistance, "graph distance within which matches touching a banished doc are dropped")

	flag.BoolVar(&rc.StripDiacritics, "strip_diacritics", rc.StripDiacritics, "fold diacritics to ASCII before fingerprinting")
	flag.StringVar(&rc.XMLBaseTag, "xml_base_tag", rc.XMLBaseTag, "XML tag whose content is extracted before windowing")
	flag.StringVar(&xmlRemoveTags, "xml_remove_tags", "", "comma-separated XML tags stripped from the base tag's content")
	flag.StringVar(&rc.XMLPageTag, "xml_page_tag", rc.XMLPageTag, "XML tag marking page boundaries, for $PAGE_ID URL substitution")
	flag.StringVar(&rc.XMLPageAttr, "xml_page_attr", rc.XMLPageAttr, "attribute on xml_page_tag holding the page identifier")

	flag.StringVar(&rc.OutputDir, "output", rc.OutputDir, "output directory (db, logs, and exported api/ tree)")
	flag.StringVar(&rc.CacheDir, "cache", rc.CacheDir, "cache directory for per-document word/window/signature artifacts")

	flag.StringVar(&backend, "backend", rc.Backend.String(), "storage backend: sqlite or filetree")
	flag.StringVar(&algo, "similarity_algo", rc.SimilarityAlgo.String(), "verification metric: ratio or greedy")

	flag.IntVar(&rc.BatchSize, "batch_size", rc.BatchSize, "candidate generation batch size")
	flag.IntVar(&rc.WriteFrequency, "write_frequency", rc.WriteFrequency, "candidate rows buffered between store flushes")

	flag.BoolVar(&rc.ComputeProbabilities, "compute_probabilities", rc.ComputeProbabilities, "compute the advisory probability field (extra corpus pass)")
	flag.IntVar(&rc.BounterSizeMB, "bounter_size_mb", rc.BounterSizeMB, "word-count table size in MB (not read: word counts use an exact, unbounded table)")

	flag.BoolVar(&rc.UpdateMetadataOnly, "update_metadata_only", rc.UpdateMetadataOnly, "re-export using an existing db without recomputing matches")
	flag.BoolVar(&rc.Verbose, "verbose", rc.Verbose, "verbose stage logging to stderr in addition to the intertext.log file")
	flag.StringVar(&rc.CPUProfile, "cpu_profile", rc.CPUProfile, "write a CPU profile to this directory")

	flag.Parse()

	if configPath != "" {
		if err := config.LoadJSON(rc, configPath); err != nil {
			log.Fatalf("loading config: %v", err)
		}
		// Parse the command line again so flags given explicitly take
		// precedence over values read from the config file.
		flag.Parse()
	}
	if xmlRemoveTags != "" {
		rc.XMLRemoveTags = strings.Split(xmlRemoveTags, ",")
	}
	if maxFileSim != "" {
		v, err := strconv.ParseFloat(maxFileSim, 64)
		if err != nil {
			log.Fatalf("invalid --max_file_sim %q: %v", maxFileSim, err)
		}
		rc.MaxFileSim = v
		rc.HasMaxFileSim = true
	}
	switch backend {
	case "sqlite":
		rc.Backend = config.BackendSQLite
	case "filetree":
		rc.Backend = config.BackendFileTree
	default:
		log.Fatalf("unknown --backend %q: must be sqlite or filetree", backend)
	}
	switch algo {
	case "ratio":
		rc.SimilarityAlgo = config.SimilarityRatio
	case "greedy":
		rc.SimilarityAlgo = config.SimilarityGreedy
	default:
		log.Fatalf("unknown --similarity_algo %q: must be ratio or greedy", algo)
	}

	docs, banishedIDs, excludedIDs, focalID, err := corpus.Resolve(rc.InfileGlob, rc.BanishGlob, rc.ExcludeGlob, rc.OnlyPath)
	if err != nil {
		log.Fatalf("resolving corpus: %v", err)
	}
	rc.Infiles = make([]string, len(docs))
	for _, d := range docs {
		rc.Infiles[d.DocID] = d.Path
	}
	rc.BanishedDocIDs = banishedIDs
	rc.ExcludedDocIDs = excludedIDs
	rc.FocalDoc = focalID

	if err := rc.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	meta, err := corpus.LoadMetadata(rc.MetadataPath, docs)
	if err != nil {
		log.Fatalf("loading metadata: %v", err)
	}

	if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	if rc.CPUProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(rc.CPUProfile)).Stop()
	}

	logger, err := logging.New(rc.OutputDir, "intertext")
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	if rc.Verbose {
		logger.SetOutput(io.MultiWriter(logger.Writer(), os.Stderr))
	}

	st, err := store.Open(rc)
	if err != nil {
		log.Fatalf("opening storage backend: %v", err)
	}
	defer st.Close()

	if !rc.UpdateMetadataOnly {
		p := pipeline.New(rc, st, docs, meta, logger)
		if err := p.Run(); err != nil {
			log.Fatalf("pipeline run: %v", err)
		}
		if err := export.Run(rc, docs, meta, rc.ExcludedDocIDs, p.Clusters); err != nil {
			log.Fatalf("export: %v", err)
		}
		return
	}

	// Metadata-only mode reforms clusters from the existing Match
	// relation and re-exports, without rerunning fingerprinting,
	// candidate generation, or verification. Useful after editing the
	// metadata file alone.
	rebuilt, err := pipeline.FormClustersOnly(rc, st, docs, meta)
	if err != nil {
		log.Fatalf("reforming clusters: %v", err)
	}
	if err := export.Run(rc, docs, meta, rc.ExcludedDocIDs, rebuilt); err != nil {
		log.Fatalf("export: %v", err)
	}
}
