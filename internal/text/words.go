package text

import (
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Words reads path as UTF-8, optionally extracts the content of a named XML
// base tag (dropping any configured removable sub-tags), optionally folds
// diacritics to ASCII, and splits on whitespace. The result is a finite,
// materialized word sequence that callers may iterate more than once.
func Words(path string, opts Options) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := string(raw)

	if opts.XMLBaseTag != "" {
		s = extractTag(s, opts.XMLBaseTag, opts.XMLRemoveTags)
	}
	if opts.StripDiacritics {
		s = foldDiacritics(s)
	}

	return strings.Fields(s), nil
}

// DisplayWords is the viewer-facing variant of Words: newlines are preserved
// as explicit "<br/>" break markers appended to the preceding word instead
// of being collapsed by whitespace splitting, and diacritics are never
// stripped (display always shows the original text). This variant must
// never feed the fingerprinter.
func DisplayWords(path string, opts Options) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	if opts.XMLBaseTag != "" {
		s = extractTag(s, opts.XMLBaseTag, opts.XMLRemoveTags)
	}

	lines := strings.Fields(strings.ReplaceAll(s, "\n", " \x00NEWLINE\x00 "))
	formatted := make([]string, 0, len(lines))
	for _, tok := range lines {
		if tok == "\x00NEWLINE\x00" {
			if n := len(formatted); n > 0 && !strings.HasSuffix(formatted[n-1], "<br/><br/>") {
				formatted[n-1] += "<br/>"
			}
			continue
		}
		formatted = append(formatted, tok)
	}
	return formatted, nil
}

// foldDiacritics performs an NFKD-style fold to ASCII: characters are
// decomposed and combining marks are dropped, matching the effect of the
// source tool's unidecode-based normalization for the common case of
// Latin-script diacritics.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
