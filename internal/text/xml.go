package text

import (
	"strings"

	"golang.org/x/net/html"
)

// extractTag returns the text content of the first element named tag
// (case-insensitive), with any elements named in removeTags excised first.
// If the tag is not found, the empty string is returned; this is a
// non-fatal condition, and the caller treats an empty base as "no
// content".
func extractTag(s, tag string, removeTags []string) string {
	tag = strings.ToLower(tag)
	remove := make(map[string]bool, len(removeTags))
	for _, t := range removeTags {
		remove[strings.ToLower(t)] = true
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var target *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if target != nil {
			return
		}
		if n.Type == html.ElementNode && strings.ToLower(n.Data) == tag {
			target = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if target == nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && remove[strings.ToLower(n.Data)] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(target)
	return sb.String()
}
