package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kshedden/intertext/internal/fingerprint"
	"github.com/kshedden/intertext/internal/text"
)

func writeTempDoc(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestWindowsMemoizesAcrossCalls(t *testing.T) {
	path := writeTempDoc(t, "one two three four five six seven eight")
	c := New(t.TempDir(), text.Options{}, 3, 2, fingerprint.Default{}, fingerprint.Config{K: 4, C: 3})

	first, err := c.Windows(path)
	if err != nil {
		t.Fatalf("Windows: %v", err)
	}
	if err := os.WriteFile(path, []byte("completely different contents"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	second, err := c.Windows(path)
	if err != nil {
		t.Fatalf("Windows (memoized): %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("want the memoized result to be reused despite the file changing underneath, got %d vs %d windows", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("window %d changed between calls despite memoization: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestSignaturesRoundTripThroughDiskCache(t *testing.T) {
	path := writeTempDoc(t, "the quick brown fox jumps over the lazy dog again")
	cacheDir := t.TempDir()
	fpCfg := fingerprint.Config{K: 8, C: 4, Seed: 5}

	c1 := New(cacheDir, text.Options{}, 6, 3, fingerprint.Default{}, fpCfg)
	sigs1, err := c1.Signatures(path)
	if err != nil {
		t.Fatalf("Signatures (first cache instance): %v", err)
	}
	if len(sigs1) == 0 {
		t.Fatal("want at least one window's signature")
	}

	// A fresh Cache instance sharing the same cacheDir should load the
	// persisted signature file rather than recomputing, and get the same
	// values either way.
	c2 := New(cacheDir, text.Options{}, 6, 3, fingerprint.Default{}, fpCfg)
	sigs2, err := c2.Signatures(path)
	if err != nil {
		t.Fatalf("Signatures (second cache instance): %v", err)
	}
	if len(sigs1) != len(sigs2) {
		t.Fatalf("want the same number of window signatures, got %d vs %d", len(sigs1), len(sigs2))
	}
	for i := range sigs1 {
		for j := range sigs1[i] {
			if sigs1[i][j] != sigs2[i][j] {
				t.Fatalf("window %d entry %d: want %d, got %d", i, j, sigs1[i][j], sigs2[i][j])
			}
		}
	}
}
