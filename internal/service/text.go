package service

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// contentMarker separates the indexed header from the body text in
// search data. Read time counts the words after it.
const contentMarker = "=c=o=n=t=e=n=t="

// wordsPerMinute is the reading speed used for read time
const wordsPerMinute = 200

// stripTags renders an HTML fragment as plain text. Unparseable input
// is returned unchanged.
func stripTags(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return fragment
	}
	var b strings.Builder
	for _, n := range nodes {
		nodeText(&b, n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func nodeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		nodeText(b, c)
	}
	if n.Type == html.ElementNode && n.DataAtom != atom.Span && n.DataAtom != atom.A {
		b.WriteByte(' ')
	}
}

// searchData builds the precomputed search text of one translation
func searchData(title, leadIn string, categories, services []string, content string) string {
	bits := []string{title, stripTags(leadIn)}
	bits = append(bits, categories...)
	bits = append(bits, services...)
	bits = append(bits, contentMarker)
	if body := stripTags(content); body != "" {
		bits = append(bits, body)
	}
	return strings.Join(bits, " ")
}

// readTime returns the minutes needed to read the body of data, or 0
// when data has no body marker.
func readTime(data string) int {
	i := strings.Index(data, contentMarker)
	if i < 0 {
		return 0
	}
	words := len(strings.Fields(data[i+len(contentMarker):]))
	return (words + wordsPerMinute - 1) / wordsPerMinute
}
