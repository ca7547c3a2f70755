package export

import (
	"math"
	"strings"

	"github.com/kshedden/intertext/internal/corpus"
	"github.com/kshedden/intertext/internal/text"
)

// wordCounts is an exact corpus-wide word frequency table (a plain map
// with no memory bound) used only to produce the advisory "probability" field: roughly, how unlikely a
// matched passage's vocabulary is to have arisen by chance, scaled for
// display rather than carrying any statistical guarantee.
type wordCounts struct {
	counts map[string]int
	total  int
}

// buildWordCounts tallies every document's words once. It is skipped
// entirely when the run has probabilities disabled, since it requires a
// full extra pass over the corpus.
func buildWordCounts(docs []corpus.Document, opts text.Options) (*wordCounts, error) {
	wc := &wordCounts{counts: make(map[string]int)}
	for _, d := range docs {
		words, err := text.Words(d.Path, opts)
		if err != nil {
			return nil, err
		}
		for _, w := range words {
			wc.counts[strings.ToLower(w)]++
			wc.total++
		}
	}
	return wc, nil
}

// prob scores a pair of matched strings with the source tool's advisory
// probability heuristic: the larger of the two sides' summed per-word
// relative frequency, rounded to three decimals and scaled by 1000 for
// display. A nil wordCounts (probabilities disabled) always scores 0.
func (wc *wordCounts) prob(a, b string) float64 {
	if wc == nil || wc.total == 0 {
		return 0
	}
	pa := wc.sumFreq(a)
	pb := wc.sumFreq(b)
	p := pa
	if pb > p {
		p = pb
	}
	// round(p, 3) * 1000 collapses to round(p*1000).
	return math.Round(p * 1000)
}

func (wc *wordCounts) sumFreq(s string) float64 {
	var sum float64
	for _, w := range strings.Fields(s) {
		sum += float64(wc.counts[strings.ToLower(w)]) / float64(wc.total)
	}
	return sum
}
