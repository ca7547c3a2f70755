package pipeline

import (
	"sync"

	"github.com/kshedden/intertext/internal/corpus"
	"github.com/kshedden/intertext/internal/hashband"
	"github.com/kshedden/intertext/internal/store"
)

// fingerprintConcurrency bounds the number of documents fingerprinted at
// once. CPU-bound, one task per document, so a small multiple of
// available cores is plenty.
const fingerprintConcurrency = 8

// fingerprintStage windows and fingerprints every document, derives its
// hashband triples, and appends them to the store, one goroutine per
// document bounded by a semaphore channel.
func (p *Pipeline) fingerprintStage() error {
	limit := make(chan bool, fingerprintConcurrency)
	errc := make(chan error, len(p.Docs))

	var wg sync.WaitGroup
	for _, doc := range p.Docs {
		doc := doc
		limit <- true
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-limit }()
			if err := p.fingerprintDoc(doc); err != nil {
				errc <- err
			}
		}()
	}
	wg.Wait()
	close(errc)

	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) fingerprintDoc(doc corpus.Document) error {
	windows, err := p.Cache.Windows(doc.Path)
	if err != nil {
		p.Logger.Printf("skipping doc_id=%d (%s): %v", doc.DocID, doc.Path, err)
		return nil
	}
	if len(windows) == 0 {
		return nil
	}

	sigs, err := p.Cache.Signatures(doc.Path)
	if err != nil {
		p.Logger.Printf("skipping doc_id=%d (%s): signature error: %v", doc.DocID, doc.Path, err)
		return nil
	}

	hbCfg := p.hashbandConfig()
	var rows []store.HashbandRow
	for windowID, sig := range sigs {
		for _, t := range hashband.Bands(sig, hbCfg) {
			rows = append(rows, store.HashbandRow{
				BandKey:  t.BandKey,
				DocID:    doc.DocID,
				WindowID: windowID,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return p.Store.AppendHashbands(rows)
}
