// Package candidate implements the Candidate Generator: it streams the
// Hashband relation grouped by band (already filtered to bands spanning
// two or more documents) in blocks of BatchSize bands, enumerates the
// cross-product of postings per band, canonicalizes and deduplicates
// the resulting pairs, and appends them to the Candidate relation in
// flushes.
package candidate

import (
	"sync"

	"github.com/kshedden/intertext/internal/store"
)

// Config parameterizes one candidate-generation run.
type Config struct {
	// Workers bounds the number of goroutines enumerating band
	// cross-products concurrently. Zero selects a small default.
	Workers int
	// WriteFrequency is the number of deduplicated rows accumulated
	// before a flush to the store.
	WriteFrequency int
	// FocalDocID restricts every emitted pair to ones touching this
	// document. Negative disables focal mode.
	FocalDocID int
	// BatchSize is the number of bands paginated off the Hashband
	// stream per block before that block is handed to the worker pool,
	// mirroring the Python original's chunked_iterator pagination over
	// the hashband cursor. Zero or negative selects a small default.
	BatchSize int
}

type band struct {
	key      string
	postings []store.Posting
}

// Generate runs the candidate generator against st using cfg, blocking
// until the Hashband stream is exhausted and all candidates are flushed.
func Generate(st store.Store, cfg Config) error {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	writeFreq := cfg.WriteFrequency
	if writeFreq <= 0 {
		writeFreq = 20000
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5000
	}

	bandCh := make(chan []band, workers*2)
	rowCh := make(chan store.CandidateRow, workers*4)

	var workersWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workersWG.Add(1)
		go func() {
			defer workersWG.Done()
			for batch := range bandCh {
				for _, b := range batch {
					emitPairs(b.postings, cfg.FocalDocID, rowCh)
				}
			}
		}()
	}
	go func() {
		workersWG.Wait()
		close(rowCh)
	}()

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- writeLoop(st, rowCh, writeFreq)
	}()

	var batch []band
	streamErr := st.StreamBandsMultiDoc(func(bandKey string, postings []store.Posting) error {
		if cfg.FocalDocID >= 0 && !postingsInclude(postings, cfg.FocalDocID) {
			return nil
		}
		batch = append(batch, band{key: bandKey, postings: postings})
		if len(batch) >= batchSize {
			bandCh <- batch
			batch = nil
		}
		return nil
	})
	if len(batch) > 0 {
		bandCh <- batch
	}
	close(bandCh)

	writeErr := <-writerDone
	if streamErr != nil {
		return streamErr
	}
	return writeErr
}

func postingsInclude(postings []store.Posting, docID int) bool {
	for _, p := range postings {
		if p.DocID == docID {
			return true
		}
	}
	return false
}

// emitPairs enumerates the document-distinct cross-product of a band's
// postings, applying the focal-mode filter, and sends each canonicalized
// candidate to out.
func emitPairs(postings []store.Posting, focalDocID int, out chan<- store.CandidateRow) {
	for i := 0; i < len(postings); i++ {
		for j := i + 1; j < len(postings); j++ {
			a, b := postings[i], postings[j]
			if a.DocID == b.DocID {
				continue
			}
			if focalDocID >= 0 && a.DocID != focalDocID && b.DocID != focalDocID {
				continue
			}
			out <- canonicalize(a, b)
		}
	}
}

// canonicalize orders a pair of postings so DocA < DocB, matching the
// Candidate relation's key invariant.
func canonicalize(a, b store.Posting) store.CandidateRow {
	if a.DocID < b.DocID {
		return store.CandidateRow{DocA: a.DocID, DocB: b.DocID, WinA: a.WindowID, WinB: b.WindowID}
	}
	return store.CandidateRow{DocA: b.DocID, DocB: a.DocID, WinA: b.WindowID, WinB: a.WindowID}
}

// writeLoop drains rowCh, deduplicating on the full 4-tuple (the
// file-tree backend relies on the generator, not the store, for
// Candidate set semantics), and flushes to st every writeFreq unique
// rows and once more at the end.
func writeLoop(st store.Store, rowCh <-chan store.CandidateRow, writeFreq int) error {
	seen := make(map[[4]int]struct{})
	buf := make([]store.CandidateRow, 0, writeFreq)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := st.AppendCandidates(buf); err != nil {
			return err
		}
		buf = buf[:0]
		return nil
	}

	for row := range rowCh {
		key := [4]int{row.DocA, row.DocB, row.WinA, row.WinB}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		buf = append(buf, row)
		if len(buf) >= writeFreq {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
