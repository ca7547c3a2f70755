// Package verify implements the Verifier: for each candidate document
// pair it re-reads the candidate window texts and computes a
// character-level similarity, writing accepted rows to the Match
// relation and applying the anti-noise filter that rejects passages
// dominated by single-character tokens (punctuation runs, OCR noise).
package verify

import (
	"log"
	"math"
	"strings"

	"github.com/kshedden/intertext/internal/cache"
	"github.com/kshedden/intertext/internal/config"
	"github.com/kshedden/intertext/internal/store"
)

// Config parameterizes one verification run.
type Config struct {
	MinSim        int
	Algo          config.SimilarityAlgo
	GreedyMinLen  int
	WindowLength  int
	MaxFileSim    float64
	HasMaxFileSim bool
}

// Verifier re-reads candidate windows and writes accepted matches.
type Verifier struct {
	st       store.Store
	cache    *cache.Cache
	docPaths []string // doc_id -> path, dense
	cfg      Config
	sim      Similarity
	logger   *log.Logger
}

// New builds a Verifier. docPaths must be indexable by doc_id.
func New(st store.Store, c *cache.Cache, docPaths []string, cfg Config, logger *log.Logger) *Verifier {
	var sim Similarity
	if cfg.Algo == config.SimilarityGreedy {
		sim = Greedy{MinLen: cfg.GreedyMinLen}
	} else {
		sim = Ratio{}
	}
	return &Verifier{st: st, cache: c, docPaths: docPaths, cfg: cfg, sim: sim, logger: logger}
}

// Run streams every candidate document pair and verifies its window
// pairs, writing accepted matches one flush per pair.
func (v *Verifier) Run() error {
	return v.st.StreamCandidatePairs(func(docA, docB int) error {
		return v.verifyPair(docA, docB)
	})
}

func (v *Verifier) verifyPair(docA, docB int) error {
	pathA, pathB := v.docPaths[docA], v.docPaths[docB]

	windowsA, err := v.cache.Windows(pathA)
	if err != nil {
		return err
	}
	windowsB, err := v.cache.Windows(pathB)
	if err != nil {
		return err
	}

	var accepted []store.MatchRow
	err = v.st.StreamCandidateWindows(docA, docB, func(winA, winB int) error {
		if winA < 0 || winA >= len(windowsA) || winB < 0 || winB >= len(windowsB) {
			v.logger.Printf("out-of-bounds candidate window: doc_a=%d win_a=%d (have %d), doc_b=%d win_b=%d (have %d)",
				docA, winA, len(windowsA), docB, winB, len(windowsB))
			return nil
		}
		textA, textB := windowsA[winA], windowsB[winB]
		if isNoise(textA, v.cfg.WindowLength) || isNoise(textB, v.cfg.WindowLength) {
			return nil
		}
		sim := v.sim.Score(textA, textB)
		if sim < float64(v.cfg.MinSim) {
			return nil
		}
		accepted = append(accepted, store.MatchRow{
			DocA: docA, DocB: docB, WinA: winA, WinB: winB,
			Sim: int(math.Floor(sim)),
		})
		return nil
	})
	if err != nil {
		return err
	}
	if len(accepted) == 0 {
		return nil
	}

	if v.cfg.HasMaxFileSim {
		capA := v.cfg.MaxFileSim * float64(len(windowsA))
		capB := v.cfg.MaxFileSim * float64(len(windowsB))
		if float64(len(accepted)) > capA || float64(len(accepted)) > capB {
			return nil
		}
	}

	return v.st.AppendMatches(accepted)
}

// isNoise reports whether text is dominated by single-character tokens:
// at least 0.75*windowLength of its space-separated tokens have length 1.
// This filters punctuation/noise matches that would otherwise pass a raw
// similarity threshold.
func isNoise(text string, windowLength int) bool {
	if windowLength <= 0 {
		return false
	}
	tokens := strings.Fields(text)
	singleChar := 0
	for _, t := range tokens {
		if len([]rune(t)) == 1 {
			singleChar++
		}
	}
	return float64(singleChar) >= 0.75*float64(windowLength)
}
