package text

import "strings"

// Windows applies Words, then slides a window of length w by stride s
// across the resulting word list: for i = 0, s, 2s, ... while i+w <=
// len(words), it yields the space-joined slice words[i:i+w]. The last
// partial window, if any, is discarded. An empty document yields an empty
// window sequence.
func Windows(path string, opts Options, w, s int) ([]string, error) {
	words, err := Words(path, opts)
	if err != nil {
		return nil, err
	}
	return windowsFromWords(words, w, s), nil
}

func windowsFromWords(words []string, w, s int) []string {
	if w <= 0 || s <= 0 || len(words) < w {
		return nil
	}
	n := (len(words)-w)/s + 1
	out := make([]string, 0, n)
	for i := 0; i+w <= len(words); i += s {
		out = append(out, strings.Join(words[i:i+w], " "))
	}
	return out
}

// NumWindows returns the window count a call to Windows with the given
// word-list length and parameters would produce, without materializing the
// windows themselves.
func NumWindows(numWords, w, s int) int {
	if w <= 0 || s <= 0 || numWords < w {
		return 0
	}
	return (numWords-w)/s + 1
}
