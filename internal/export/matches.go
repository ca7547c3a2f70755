package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kshedden/intertext/internal/cluster"
	"github.com/kshedden/intertext/internal/config"
	"github.com/kshedden/intertext/internal/corpus"
	"github.com/kshedden/intertext/internal/text"
)

// MatchRecord is one exported, display-ready match: a formatted cluster
// oriented source->target with its surrounding context and attribution.
// source_file_path and target_file_path are written distinctly here; an
// earlier edition of this tool wrote source_file_path into both fields,
// which this implementation corrects.
type MatchRecord struct {
	ID                int     `json:"_id"`
	Similarity        int     `json:"similarity"`
	Probability       float64 `json:"probability"`
	SourceFileID      int     `json:"source_file_id"`
	TargetFileID      int     `json:"target_file_id"`
	SourceSegmentIDs  []int   `json:"source_segment_ids"`
	TargetSegmentIDs  []int   `json:"target_segment_ids"`
	SourceFilename    string  `json:"source_filename"`
	TargetFilename    string  `json:"target_filename"`
	SourceFilePath    string  `json:"source_file_path"`
	TargetFilePath    string  `json:"target_file_path"`
	SourcePrematch    string  `json:"source_prematch"`
	TargetPrematch    string  `json:"target_prematch"`
	SourceMatch       string  `json:"source_match"`
	TargetMatch       string  `json:"target_match"`
	SourcePostmatch   string  `json:"source_postmatch"`
	TargetPostmatch   string  `json:"target_postmatch"`
	SourceYear        string  `json:"source_year"`
	TargetYear        string  `json:"target_year"`
	SourceAuthor      string  `json:"source_author"`
	TargetAuthor      string  `json:"target_author"`
	SourceTitle       string  `json:"source_title"`
	TargetTitle       string  `json:"target_title"`
	SourceURL         string  `json:"source_url"`
	TargetURL         string  `json:"target_url"`
}

type builder struct {
	rc     *config.RunConfig
	docs   []corpus.Document
	paths  []string
	meta   map[string]corpus.Metadata
	opts   text.Options
	counts *wordCounts
	excl   map[int]struct{}

	display map[int][]string          // doc_id -> display words, memoized
	pageMap map[int]map[int]string    // doc_id -> window_id -> page id, memoized
}

func (b *builder) displayWords(docID int) ([]string, error) {
	if w, ok := b.display[docID]; ok {
		return w, nil
	}
	w, err := text.DisplayWords(b.paths[docID], b.opts)
	if err != nil {
		return nil, err
	}
	b.display[docID] = w
	return w, nil
}

func (b *builder) windowPageMap(docID int) map[int]string {
	if m, ok := b.pageMap[docID]; ok {
		return m
	}
	if b.rc.XMLPageTag == "" {
		b.pageMap[docID] = nil
		return nil
	}
	m, err := text.WindowPageMap(b.paths[docID], b.rc.XMLPageTag, b.rc.XMLPageAttr, b.rc.SlideLength)
	if err != nil {
		m = nil
	}
	b.pageMap[docID] = m
	return m
}

// buildRecords formats every cluster into a MatchRecord, excluding any
// pair touching an excluded document, and returns both the flat list (in
// deterministic id order) and the per-document grouping the viewer's
// matches/<doc_id>.json files need.
//
// Each cluster is first minted a uuid, mirroring the source tool
// assigning str(uuid4()) to every formatted match; since a match shares
// one record between its source-document and target-document file
// listings here (rather than being written out twice as in the source
// tool), the uuid is immediately remapped to a small sequential int in
// first-seen order, the same combine-time remapping json_output.py's
// guid_to_int performs when it merges per-pair files into the final
// index.
func (b *builder) buildRecords(clusters []cluster.Cluster) ([]MatchRecord, map[int][]MatchRecord, error) {
	var records []MatchRecord
	byDoc := make(map[int][]MatchRecord)
	guidToInt := make(map[string]int)

	for _, c := range clusters {
		if _, ok := b.excl[c.DocA]; ok {
			continue
		}
		if _, ok := b.excl[c.DocB]; ok {
			continue
		}
		guid := uuid.New().String()
		id := len(guidToInt)
		guidToInt[guid] = id

		rec, err := b.formatCluster(id, c)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
		byDoc[rec.SourceFileID] = append(byDoc[rec.SourceFileID], rec)
		byDoc[rec.TargetFileID] = append(byDoc[rec.TargetFileID], rec)
	}
	return records, byDoc, nil
}

func (b *builder) formatCluster(id int, c cluster.Cluster) (MatchRecord, error) {
	srcWords, err := b.displayWords(c.SourceDoc)
	if err != nil {
		return MatchRecord{}, fmt.Errorf("loading display words for doc %d: %w", c.SourceDoc, err)
	}
	tgtWords, err := b.displayWords(c.TargetDoc)
	if err != nil {
		return MatchRecord{}, fmt.Errorf("loading display words for doc %d: %w", c.TargetDoc, err)
	}

	srcStrings := matchStrings(srcWords, c.SourceWindows, b.rc.SlideLength, b.rc.WindowLength)
	tgtStrings := matchStrings(tgtWords, c.TargetWindows, b.rc.SlideLength, b.rc.WindowLength)

	srcPath, tgtPath := b.paths[c.SourceDoc], b.paths[c.TargetDoc]
	srcBase, tgtBase := filepath.Base(srcPath), filepath.Base(tgtPath)
	srcMeta := b.meta[srcBase]
	tgtMeta := b.meta[tgtBase]

	return MatchRecord{
		ID:               id,
		Similarity:       c.MeanSim,
		Probability:      b.counts.prob(srcStrings.match, tgtStrings.match),
		SourceFileID:     c.SourceDoc,
		TargetFileID:     c.TargetDoc,
		SourceSegmentIDs: c.SourceWindows,
		TargetSegmentIDs: c.TargetWindows,
		SourceFilename:   srcBase,
		TargetFilename:   tgtBase,
		SourceFilePath:   srcPath,
		TargetFilePath:   tgtPath,
		SourcePrematch:   srcStrings.prematch,
		TargetPrematch:   tgtStrings.prematch,
		SourceMatch:      srcStrings.match,
		TargetMatch:      tgtStrings.match,
		SourcePostmatch:  srcStrings.postmatch,
		TargetPostmatch:  tgtStrings.postmatch,
		SourceYear:       srcMeta.Year,
		TargetYear:       tgtMeta.Year,
		SourceAuthor:     srcMeta.Author,
		TargetAuthor:     tgtMeta.Author,
		SourceTitle:      srcMeta.Title,
		TargetTitle:      tgtMeta.Title,
		SourceURL:        b.resolveURL(srcMeta.URL, c.SourceDoc, c.SourceWindows),
		TargetURL:        b.resolveURL(tgtMeta.URL, c.TargetDoc, c.TargetWindows),
	}, nil
}

func (b *builder) resolveURL(url string, docID int, windows []int) string {
	if b.rc.XMLPageTag == "" || len(windows) == 0 {
		return url
	}
	pageMap := b.windowPageMap(docID)
	pageID := pageMap[windows[0]]
	return strings.ReplaceAll(url, "$PAGE_ID", pageID)
}

type contextStrings struct {
	prematch, match, postmatch string
}

// matchStrings renders the prematch/match/postmatch display strings for a
// cluster's window run: the matched span is
// [min(ids)*S, max(ids)*S+W), with one window-length of context on either
// side. Leading/trailing <br/> markers at the context boundary are
// trimmed so the viewer doesn't show a stray break before the first or
// after the last rendered word.
func matchStrings(words []string, windowIDs []int, slideLength, windowLength int) contextStrings {
	if len(windowIDs) == 0 || len(words) == 0 {
		return contextStrings{}
	}
	minID, maxID := windowIDs[0], windowIDs[0]
	for _, w := range windowIDs {
		if w < minID {
			minID = w
		}
		if w > maxID {
			maxID = w
		}
	}
	start := minID * slideLength
	end := maxID*slideLength + windowLength

	preStart := start - windowLength
	if preStart < 0 {
		preStart = 0
	}
	postEnd := end + windowLength
	if postEnd > len(words) {
		postEnd = len(words)
	}
	if start > len(words) {
		start = len(words)
	}
	if end > len(words) {
		end = len(words)
	}

	prematch := strings.TrimPrefix(strings.Join(words[preStart:start], " "), "<br/>")
	match := strings.Join(words[start:end], " ")
	postmatch := strings.TrimSuffix(strings.Join(words[end:postEnd], " "), "<br/>")

	return contextStrings{prematch: prematch, match: match, postmatch: postmatch}
}
