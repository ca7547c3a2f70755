// Package corpus resolves the document set for a run: glob expansion, dense
// doc_id assignment, role classification, and metadata loading/defaulting.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Role classifies a document's participation in the pipeline.
type Role int

const (
	RoleNormal Role = iota
	RoleExcluded
	RoleBanished
	RoleFocal
)

// Document is a single corpus member. DocID is its dense index in the
// canonical (sorted) input order; this index is assigned once and never
// changes for the lifetime of a run.
type Document struct {
	DocID int
	Path  string
	Role  Role
}

// Metadata holds the optional per-document attribution used by cluster
// orientation and the JSON export.
type Metadata struct {
	Author string `json:"author"`
	Title  string `json:"title"`
	Year   string `json:"year"`
	URL    string `json:"url"`
}

// Corpus is the resolved, ordered document set plus per-basename metadata.
type Corpus struct {
	Docs     []Document
	Metadata map[string]Metadata // keyed by basename
}

// Resolve expands infileGlob, banishGlob, and excludeGlob into a single
// dense, sorted document list. Infile order is lexicographic; banished
// files are appended after the sorted infile set so infile indices stay
// densely assigned. onlyPath, when non-empty, must match one of the
// resolved paths.
func Resolve(infileGlob, banishGlob, excludeGlob, onlyPath string) (docs []Document, banishedIDs, excludedIDs []int, focalID int, err error) {
	infiles, err := globSorted(infileGlob)
	if err != nil {
		return nil, nil, nil, -1, err
	}
	if len(infiles) == 0 {
		return nil, nil, nil, -1, fmt.Errorf("no infiles: %q matched no files", infileGlob)
	}

	var banished []string
	if banishGlob != "" {
		banished, err = globSorted(banishGlob)
		if err != nil {
			return nil, nil, nil, -1, err
		}
	}
	banishedSet := make(map[string]bool, len(banished))
	for _, p := range banished {
		banishedSet[p] = true
	}

	all := append(append([]string{}, infiles...), banished...)

	var excludeSet map[string]bool
	if excludeGlob != "" {
		excludes, err := globSorted(excludeGlob)
		if err != nil {
			return nil, nil, nil, -1, err
		}
		excludeSet = make(map[string]bool, len(excludes))
		for _, p := range excludes {
			excludeSet[p] = true
		}
	}

	focalID = -1
	docs = make([]Document, len(all))
	for i, p := range all {
		role := RoleNormal
		switch {
		case banishedSet[p]:
			role = RoleBanished
			banishedIDs = append(banishedIDs, i)
		case excludeSet[p]:
			role = RoleExcluded
			excludedIDs = append(excludedIDs, i)
		}
		if onlyPath != "" && p == onlyPath {
			focalID = i
			if role == RoleNormal {
				role = RoleFocal
			}
		}
		docs[i] = Document{DocID: i, Path: p, Role: role}
	}
	if onlyPath != "" && focalID < 0 {
		return nil, nil, nil, -1, fmt.Errorf("--only path %q is not among the resolved infiles", onlyPath)
	}

	return docs, banishedIDs, excludedIDs, focalID, nil
}

func globSorted(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// LoadMetadata reads a JSON metadata file (basename -> attribute map) and
// fills in defaults ("Unknown" author, basename title) for any document
// missing from it, matching the source tool's metadata-defaulting step.
func LoadMetadata(path string, docs []Document) (map[string]Metadata, error) {
	raw := map[string]Metadata{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading metadata file: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing metadata file: %w", err)
		}
	}

	for _, d := range docs {
		base := filepath.Base(d.Path)
		m := raw[base]
		if strings.TrimSpace(m.Author) == "" {
			m.Author = "Unknown"
		} else {
			m.Author = strings.TrimSpace(m.Author)
		}
		if strings.TrimSpace(m.Title) == "" {
			m.Title = base
		} else {
			m.Title = strings.TrimSpace(m.Title)
		}
		m.Year = strings.TrimSpace(m.Year)
		m.URL = strings.TrimSpace(m.URL)
		raw[base] = m
	}

	return raw, nil
}
