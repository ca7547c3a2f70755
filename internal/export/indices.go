package export

import (
	"path/filepath"
	"sort"
	"strconv"

	"github.com/kshedden/intertext/internal/corpus"
	"github.com/kshedden/intertext/internal/text"
)

// sortHeuristic names one of the viewer's pre-sorted index files, together
// with the key it sorts on and whether that sort is descending.
type sortHeuristic struct {
	name       string
	descending bool
	key        func(r MatchRecord) interface{}
}

// matchLength is the viewer's notion of a match's size: the shorter of
// the two sides' window-run spans, since a match can only be said to
// span as much text as its shorter side actually covers.
func matchLength(r MatchRecord) int {
	sl, tl := len(r.SourceSegmentIDs), len(r.TargetSegmentIDs)
	if sl < tl {
		return sl
	}
	return tl
}

var heuristics = []sortHeuristic{
	{name: "length", descending: true, key: func(r MatchRecord) interface{} { return matchLength(r) }},
	{name: "probability", descending: true, key: func(r MatchRecord) interface{} { return r.Probability }},
	{name: "similarity", descending: true, key: func(r MatchRecord) interface{} { return r.Similarity }},
	{name: "author", descending: false, key: func(r MatchRecord) interface{} { return r.SourceAuthor }},
	{name: "title", descending: false, key: func(r MatchRecord) interface{} { return r.SourceTitle }},
	{name: "year", descending: false, key: func(r MatchRecord) interface{} { return r.SourceYear }},
}

// writeIndices writes one api/indices/match-ids-by-<name>.json file per
// sort heuristic, each holding the full set of matches as
// (match_idx, source_file_id, target_file_id, length, probability,
// similarity) tuples in that heuristic's order. The probability
// heuristic is omitted when probabilities were not computed, matching
// the source tool's behavior of dropping that index entirely rather
// than emitting one sorted on an all-zero field.
func writeIndices(outputDir string, records []MatchRecord, computeProbabilities bool) error {
	for _, h := range heuristics {
		if h.name == "probability" && !computeProbabilities {
			continue
		}
		ordered := append([]MatchRecord{}, records...)
		sort.SliceStable(ordered, func(i, j int) bool {
			return lessBy(h, ordered[i], ordered[j])
		})
		tuples := make([][6]interface{}, len(ordered))
		for i, r := range ordered {
			tuples[i] = [6]interface{}{r.ID, r.SourceFileID, r.TargetFileID, matchLength(r), r.Probability, r.Similarity}
		}
		path := filepath.Join(outputDir, "api", "indices", "match-ids-by-"+h.name+".json")
		if err := writeJSONAtomic(path, tuples); err != nil {
			return err
		}
	}
	return nil
}

func lessBy(h sortHeuristic, a, b MatchRecord) bool {
	ka, kb := h.key(a), h.key(b)
	var less bool
	switch va := ka.(type) {
	case int:
		less = va < kb.(int)
	case float64:
		less = va < kb.(float64)
	case string:
		less = va < kb.(string)
	}
	if h.descending {
		return !less && ka != kb
	}
	return less
}

// scatterBucket is one bucket of a scatterplot file: every match sharing
// a (side, dimension) key, aggregated to a single similarity statistic
// but still carrying one representative match's attribution so the
// viewer can label the point without a second lookup.
type scatterBucket struct {
	Type       string  `json:"type"`
	Unit       string  `json:"unit"`
	Statistic  string  `json:"statistic"`
	Key        string  `json:"key"`
	Similarity float64 `json:"similarity"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Match      string  `json:"match"`
	SourceYear string  `json:"source_year"`
	TargetYear string  `json:"target_year"`
}

// scatterGroup accumulates similarity observations for one (dimension,
// key) bucket, e.g. one source document's segment-id bucket, so that sum
// and mean aggregates can be emitted side by side. rep is the first
// match seen for this bucket, used for its title/author/match text and
// source/target years.
type scatterGroup struct {
	sum   int
	count int
	rep   MatchRecord
}

func (g *scatterGroup) add(r MatchRecord) {
	if g.count == 0 {
		g.rep = r
	}
	g.sum += r.Similarity
	g.count++
}

func (g scatterGroup) mean() float64 {
	if g.count == 0 {
		return 0
	}
	return float64(g.sum) / float64(g.count)
}

// writeScatterplots aggregates similarities across three dimensions
// (segment_ids, file_id, author) for both source and target sides, each
// as sum and mean, into api/scatterplots/<side>-<dimension>-<stat>.json
// files, one record array per file with one entry per bucket.
func writeScatterplots(outputDir string, records []MatchRecord) error {
	type bucketFn struct {
		dimension string
		key       func(r MatchRecord, source bool) string
	}
	buckets := []bucketFn{
		{"segment_ids", func(r MatchRecord, source bool) string {
			ids := r.SourceSegmentIDs
			fileID := r.SourceFileID
			if !source {
				ids = r.TargetSegmentIDs
				fileID = r.TargetFileID
			}
			return strconv.Itoa(fileID) + "." + joinInts(ids)
		}},
		{"file_id", func(r MatchRecord, source bool) string {
			if source {
				return strconv.Itoa(r.SourceFileID)
			}
			return strconv.Itoa(r.TargetFileID)
		}},
		{"author", func(r MatchRecord, source bool) string {
			if source {
				return r.SourceAuthor
			}
			return r.TargetAuthor
		}},
	}

	for _, side := range []bool{true, false} {
		sideName := "source"
		if !side {
			sideName = "target"
		}
		for _, b := range buckets {
			groups := make(map[string]*scatterGroup)
			var order []string
			for _, r := range records {
				key := b.key(r, side)
				g, ok := groups[key]
				if !ok {
					g = &scatterGroup{}
					groups[key] = g
					order = append(order, key)
				}
				g.add(r)
			}
			sort.Strings(order)

			sums := make([]scatterBucket, len(order))
			means := make([]scatterBucket, len(order))
			for i, k := range order {
				g := groups[k]
				title, author, match := sideAttribution(g.rep, side)
				base := scatterBucket{
					Type:       sideName,
					Unit:       b.dimension,
					Key:        k,
					Title:      title,
					Author:     author,
					Match:      match,
					SourceYear: g.rep.SourceYear,
					TargetYear: g.rep.TargetYear,
				}
				sumEntry, meanEntry := base, base
				sumEntry.Statistic, sumEntry.Similarity = "sum", float64(g.sum)
				meanEntry.Statistic, meanEntry.Similarity = "mean", g.mean()
				sums[i] = sumEntry
				means[i] = meanEntry
			}
			prefix := sideName + "-" + b.dimension
			if err := writeJSONAtomic(filepath.Join(outputDir, "api", "scatterplots", prefix+"-sum.json"), sums); err != nil {
				return err
			}
			if err := writeJSONAtomic(filepath.Join(outputDir, "api", "scatterplots", prefix+"-mean.json"), means); err != nil {
				return err
			}
		}
	}
	return nil
}

// sideAttribution picks the title/author/match-text fields belonging to
// whichever side a scatterplot bucket is keyed on.
func sideAttribution(r MatchRecord, source bool) (title, author, match string) {
	if source {
		return r.SourceTitle, r.SourceAuthor, r.SourceMatch
	}
	return r.TargetTitle, r.TargetAuthor, r.TargetMatch
}

func joinInts(ids []int) string {
	out := make([]string, len(ids))
	for i, v := range ids {
		out[i] = strconv.Itoa(v)
	}
	s := ""
	for i, v := range out {
		if i > 0 {
			s += ","
		}
		s += v
	}
	return s
}

// writeTexts writes one api/texts/<doc_id>.json file per document holding
// its full display-formatted word list, so the viewer can render
// surrounding context for any match without re-reading source files.
func writeTexts(outputDir string, docs []corpus.Document, opts text.Options) error {
	for _, d := range docs {
		words, err := text.DisplayWords(d.Path, opts)
		if err != nil {
			continue
		}
		path := filepath.Join(outputDir, "api", "texts", strconv.Itoa(d.DocID)+".json")
		if err := writeJSONAtomic(path, words); err != nil {
			return err
		}
	}
	return nil
}
