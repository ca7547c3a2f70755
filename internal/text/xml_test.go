package text

import (
	"strings"
	"testing"
)

func TestExtractTagReturnsBodyText(t *testing.T) {
	got := extractTag("<html><body><p>hello world</p></body></html>", "body", nil)
	if got != "hello world " {
		t.Fatalf("want \"hello world \", got %q", got)
	}
}

func TestExtractTagRemovesSubtags(t *testing.T) {
	s := "<body>keep this<footnote>drop this</footnote>and this</body>"
	got := extractTag(s, "body", []string{"footnote"})
	if strings.Contains(got, "drop this") {
		t.Fatalf("want footnote content removed, got %q", got)
	}
	if !strings.Contains(got, "keep this") || !strings.Contains(got, "and this") {
		t.Fatalf("want surrounding text preserved, got %q", got)
	}
}

func TestExtractTagMissingReturnsEmpty(t *testing.T) {
	got := extractTag("<html><body>hi</body></html>", "nosuchtag", nil)
	if got != "" {
		t.Fatalf("want empty string for a missing tag, got %q", got)
	}
}

func TestExtractTagCaseInsensitive(t *testing.T) {
	got := extractTag("<HTML><BODY>hi there</BODY></HTML>", "body", nil)
	if !strings.Contains(got, "hi there") {
		t.Fatalf("want the tag match to be case-insensitive, got %q", got)
	}
}
