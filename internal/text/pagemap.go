package text

import (
	"fmt"
	"os"
	"strings"
)

// WindowPageMap parses path treating xmlPageTag as a page delimiter and
// returns a mapping from window_id to a page identifier: either the value
// of xmlPageAttr on the page tag, or (if xmlPageAttr is empty) the text
// between the page tag and its close, or a sequential integer if neither
// form of identification is present. Errors are non-fatal to the caller;
// this function simply returns what it can along with an error describing
// what went wrong, and the caller is expected to log and continue with
// empty URLs.
func WindowPageMap(path, xmlPageTag, xmlPageAttr string, slideLength int) (map[int]string, error) {
	if xmlPageTag == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s for page map: %w", path, err)
	}
	content := strings.ToLower(string(raw))
	tag := strings.ToLower(xmlPageTag)
	attr := strings.ToLower(xmlPageAttr)

	const marker = "\x00PAGEBREAK\x00"
	content = strings.ReplaceAll(content, "<"+tag+" ", marker)
	content = strings.ReplaceAll(content, "<"+tag+"/>", marker)
	pages := strings.Split(content, marker)
	if len(pages) <= 1 {
		return map[int]string{}, nil
	}

	result := map[int]string{}
	windowID := 0
	for pageIndex, page := range pages[1:] {
		pageID, body := parsePage(page, tag, attr, pageIndex)
		words := strings.Fields(stripTags(body))
		for wordIndex := range words {
			if wordIndex > 0 && wordIndex%slideLength == 0 {
				windowID++
			}
			result[windowID] = pageID
		}
	}
	return result, nil
}

func parsePage(page, tag, attr string, pageIndex int) (pageID, body string) {
	if attr != "" {
		if gt := strings.Index(page, ">"); gt >= 0 {
			openTag := page[:gt]
			if idx := strings.Index(openTag, attr+"="); idx >= 0 {
				rest := openTag[idx+len(attr)+1:]
				rest = strings.Trim(rest, `"' `)
				if sp := strings.IndexAny(rest, " \t\n\"'"); sp >= 0 {
					rest = rest[:sp]
				}
				pageID = strings.TrimRight(rest, "/>")
			}
			body = page[gt+1:]
		}
		if pageID == "" {
			pageID = fmt.Sprintf("%d", pageIndex)
		}
		return pageID, body
	}

	if closeIdx := strings.Index(page, "</"+tag); closeIdx >= 0 {
		head := page[:closeIdx]
		if gt := strings.Index(head, ">"); gt >= 0 {
			pageID = head[gt+1:]
		} else {
			pageID = head
		}
	} else {
		pageID = fmt.Sprintf("%d", pageIndex)
	}

	body = page
	if gt := strings.Index(page, ">"); gt >= 0 {
		body = page[gt+1:]
	}
	return strings.TrimSpace(pageID), body
}

// stripTags removes anything that looks like an XML/HTML tag from s,
// leaving plain text behind. It is a best-effort helper for the page map,
// which only needs approximate word boundaries.
func stripTags(s string) string {
	var sb strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
