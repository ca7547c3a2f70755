package pipeline

import "testing"

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"/a/b/c.txt": "c.txt",
		"c.txt":      "c.txt",
		"/a/b/":      "",
	}
	for in, want := range cases {
		if got := baseName(in); got != want {
			t.Fatalf("baseName(%q): want %q, got %q", in, want, got)
		}
	}
}

func TestParseYear(t *testing.T) {
	if y, ok := parseYear("1987"); !ok || y != 1987 {
		t.Fatalf("want (1987, true), got (%d, %v)", y, ok)
	}
	if _, ok := parseYear(""); ok {
		t.Fatal("want ok=false for an empty year string")
	}
	if _, ok := parseYear("circa 1900"); ok {
		t.Fatal("want ok=false for a non-numeric year string")
	}
}
