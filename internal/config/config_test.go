package config

import (
	"testing"

	"github.com/BurntSushi/toml"
)

// validateCase mirrors one [[case]] table in testdata/validate_cases.toml.
type validateCase struct {
	Name           string  `toml:"name"`
	MinSim         int     `toml:"min_sim"`
	MaxFileSim     float64 `toml:"max_file_sim"`
	HasMaxFileSim  bool    `toml:"has_max_file_sim"`
	WantErr        bool    `toml:"want_err"`
}

type validateCases struct {
	Case []validateCase `toml:"case"`
}

// TestValidateFixtures loads its cases from a TOML fixture, a
// table-of-named-cases shape, rather than hard-coding them as Go
// literals.
func TestValidateFixtures(t *testing.T) {
	var cases validateCases
	if _, err := toml.DecodeFile("testdata/validate_cases.toml", &cases); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	if len(cases.Case) == 0 {
		t.Fatal("fixture file produced no cases")
	}

	for _, c := range cases.Case {
		t.Run(c.Name, func(t *testing.T) {
			rc := Default()
			rc.Infiles = []string{"a.txt", "b.txt"}
			rc.MinSim = c.MinSim
			rc.MaxFileSim = c.MaxFileSim
			rc.HasMaxFileSim = c.HasMaxFileSim

			err := rc.Validate()
			if c.WantErr && err == nil {
				t.Fatalf("want an error, got nil")
			}
			if !c.WantErr && err != nil {
				t.Fatalf("want no error, got %v", err)
			}
		})
	}
}

func TestValidateRequiresInfiles(t *testing.T) {
	rc := Default()
	if err := rc.Validate(); err == nil {
		t.Fatal("want an error when no infiles were resolved")
	}
}

func TestValidateXMLPageTagRequiresMetadata(t *testing.T) {
	rc := Default()
	rc.Infiles = []string{"a.txt"}
	rc.XMLPageTag = "page"
	if err := rc.Validate(); err == nil {
		t.Fatal("want an error when --xml_page_tag is set without --metadata")
	}
	rc.MetadataPath = "meta.json"
	if err := rc.Validate(); err != nil {
		t.Fatalf("want no error once --metadata is set, got %v", err)
	}
}

func TestBackendString(t *testing.T) {
	if got := BackendSQLite.String(); got != "sqlite" {
		t.Fatalf("want \"sqlite\", got %q", got)
	}
	if got := BackendFileTree.String(); got != "filetree" {
		t.Fatalf("want \"filetree\", got %q", got)
	}
}

func TestSimilarityAlgoString(t *testing.T) {
	if got := SimilarityRatio.String(); got != "ratio" {
		t.Fatalf("want \"ratio\", got %q", got)
	}
	if got := SimilarityGreedy.String(); got != "greedy" {
		t.Fatalf("want \"greedy\", got %q", got)
	}
}

func TestEscapedCachePathIsStable(t *testing.T) {
	a := EscapedCachePath("cache", "minhashes", "/a/b/doc.txt", ".sig.sz")
	b := EscapedCachePath("cache", "minhashes", "/a/b/doc.txt", ".sig.sz")
	if a != b {
		t.Fatalf("want a deterministic path, got %q vs %q", a, b)
	}
	other := EscapedCachePath("cache", "minhashes", "/a/c/doc.txt", ".sig.sz")
	if a == other {
		t.Fatalf("distinct document paths must not collide onto the same cache path: %q", a)
	}
}
