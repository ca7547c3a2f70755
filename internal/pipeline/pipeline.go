// Package pipeline orchestrates the full run: fingerprinting and hashband
// indexing, candidate generation, verification, banish-propagation, and
// cluster formation, in that order, with a hard barrier between each
// stage so that stage N+1 only starts once stage N's workers have
// drained.
package pipeline

import (
	"fmt"
	"log"

	"github.com/kshedden/intertext/internal/banish"
	"github.com/kshedden/intertext/internal/cache"
	"github.com/kshedden/intertext/internal/candidate"
	"github.com/kshedden/intertext/internal/cluster"
	"github.com/kshedden/intertext/internal/config"
	"github.com/kshedden/intertext/internal/corpus"
	"github.com/kshedden/intertext/internal/fingerprint"
	"github.com/kshedden/intertext/internal/hashband"
	"github.com/kshedden/intertext/internal/metrics"
	"github.com/kshedden/intertext/internal/store"
	"github.com/kshedden/intertext/internal/text"
	"github.com/kshedden/intertext/internal/verify"
)

// Pipeline holds everything a run needs once the corpus and store are
// resolved: the RunConfig, the Store handle, the shared cache, and the
// resolved document set.
type Pipeline struct {
	RC    *config.RunConfig
	Store store.Store
	Cache *cache.Cache
	Docs  []corpus.Document
	Meta  map[string]corpus.Metadata

	Logger *log.Logger

	Clusters []cluster.Cluster
}

// New wires a Pipeline from a resolved RunConfig, Store, and document set.
func New(rc *config.RunConfig, st store.Store, docs []corpus.Document, meta map[string]corpus.Metadata, logger *log.Logger) *Pipeline {
	textOpts := text.Options{
		StripDiacritics: rc.StripDiacritics,
		XMLBaseTag:      rc.XMLBaseTag,
		XMLRemoveTags:   rc.XMLRemoveTags,
	}
	fpCfg := fingerprint.Config{K: rc.NumPermutations, C: rc.ChargramLength, Seed: rc.Seed}
	c := cache.New(rc.CacheDir, textOpts, rc.WindowLength, rc.SlideLength, fingerprint.Default{}, fpCfg)

	return &Pipeline{
		RC:     rc,
		Store:  st,
		Cache:  c,
		Docs:   docs,
		Meta:   meta,
		Logger: logger,
	}
}

// Run executes every stage of the pipeline in order, blocking until
// clusters are formed and stored on p.Clusters for the export stage.
func (p *Pipeline) Run() error {
	p.Logger.Printf("stage: fingerprint+hashband (%d documents)", len(p.Docs))
	fpStage := metrics.StartStage(p.Logger, "fingerprint")
	fpStage.Add("documents", int64(len(p.Docs)))
	if err := p.fingerprintStage(); err != nil {
		return fmt.Errorf("fingerprint/hashband stage: %w", err)
	}
	fpStage.Finish()

	p.Logger.Printf("stage: candidate generation")
	candStage := metrics.StartStage(p.Logger, "candidate")
	candCfg := candidate.Config{
		WriteFrequency: p.RC.WriteFrequency,
		FocalDocID:     p.RC.FocalDoc,
		BatchSize:      p.RC.BatchSize,
	}
	if err := candidate.Generate(p.Store, candCfg); err != nil {
		return fmt.Errorf("candidate generation: %w", err)
	}
	candStage.Finish()

	p.Logger.Printf("stage: verification")
	verifyStage := metrics.StartStage(p.Logger, "verify")
	docPaths := make([]string, len(p.Docs))
	for _, d := range p.Docs {
		docPaths[d.DocID] = d.Path
	}
	verifyCfg := verify.Config{
		MinSim:        p.RC.MinSim,
		Algo:          p.RC.SimilarityAlgo,
		WindowLength:  p.RC.WindowLength,
		MaxFileSim:    p.RC.MaxFileSim,
		HasMaxFileSim: p.RC.HasMaxFileSim,
	}
	v := verify.New(p.Store, p.Cache, docPaths, verifyCfg, p.Logger)
	if err := v.Run(); err != nil {
		return fmt.Errorf("verification: %w", err)
	}
	verifyStage.Finish()

	p.Logger.Printf("stage: banish propagation (%d banished docs)", len(p.RC.BanishedDocIDs))
	banishStage := metrics.StartStage(p.Logger, "banish")
	banishStage.Add("banished_docs", int64(len(p.RC.BanishedDocIDs)))
	banishCfg := banish.Config{BanishedDocIDs: p.RC.BanishedDocIDs, Distance: p.RC.BanishDistance}
	if err := banish.Run(p.Store, banishCfg); err != nil {
		return fmt.Errorf("banish propagation: %w", err)
	}
	banishStage.Finish()

	p.Logger.Printf("stage: cluster formation")
	clusterStage := metrics.StartStage(p.Logger, "cluster")
	yearOf := p.yearsByDocID()
	clusters, err := cluster.Form(p.Store, cluster.Config{MinSim: p.RC.MinSim}, yearOf)
	if err != nil {
		return fmt.Errorf("cluster formation: %w", err)
	}
	p.Clusters = clusters
	clusterStage.Add("clusters", int64(len(clusters)))
	clusterStage.Finish()
	p.Logger.Printf("done: %d clusters", len(clusters))
	return nil
}

// FormClustersOnly re-forms clusters from an existing Store's Match
// relation without rerunning fingerprinting, candidate generation,
// verification, or banish propagation. It is used for --update_metadata_only
// runs, where only attribution (author/title/year/url) has changed and the
// match data itself is still valid.
func FormClustersOnly(rc *config.RunConfig, st store.Store, docs []corpus.Document, meta map[string]corpus.Metadata) ([]cluster.Cluster, error) {
	yearOf := make(map[int]int)
	for _, d := range docs {
		base := baseName(d.Path)
		m, ok := meta[base]
		if !ok {
			continue
		}
		if y, ok := parseYear(m.Year); ok {
			yearOf[d.DocID] = y
		}
	}
	return cluster.Form(st, cluster.Config{MinSim: rc.MinSim}, yearOf)
}

func (p *Pipeline) yearsByDocID() map[int]int {
	out := make(map[int]int)
	for _, d := range p.Docs {
		base := baseName(d.Path)
		m, ok := p.Meta[base]
		if !ok {
			continue
		}
		if y, ok := parseYear(m.Year); ok {
			out[d.DocID] = y
		}
	}
	return out
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func parseYear(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// hashbandConfig projects the hashband (B, T) parameters out of RC.
func (p *Pipeline) hashbandConfig() hashband.Config {
	return hashband.Config{B: p.RC.HashbandLength, T: p.RC.HashbandStep}
}
