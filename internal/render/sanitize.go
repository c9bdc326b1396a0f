package render

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// inlineTags are the elements the block editor's inline toolbar produces.
var inlineTags = map[atom.Atom]bool{
	atom.B:      true,
	atom.Strong: true,
	atom.I:      true,
	atom.Em:     true,
	atom.U:      true,
	atom.S:      true,
	atom.Code:   true,
	atom.Mark:   true,
	atom.Br:     true,
	atom.A:      true,
	atom.Sub:    true,
	atom.Sup:    true,
}

// dropped elements disappear with their content.
var dropped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Template: true,
}

// SanitizeInline keeps the inline formatting of s and strips everything
// else, leaving text content in place.
func SanitizeInline(s string) string {
	if s == "" {
		return ""
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return html.EscapeString(s)
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		writeClean(&buf, n)
	}
	return buf.String()
}

func writeClean(buf *bytes.Buffer, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
	default:
		return
	}

	if dropped[n.DataAtom] {
		return
	}
	if !inlineTags[n.DataAtom] {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeClean(buf, c)
		}
		return
	}

	if n.DataAtom == atom.Br {
		buf.WriteString("<br>")
		return
	}

	buf.WriteString("<" + n.Data)
	if n.DataAtom == atom.A {
		if href, ok := attr(n, "href"); ok && SafeURL(href) {
			buf.WriteString(` href="` + html.EscapeString(href) + `"`)
		}
	}
	buf.WriteString(">")
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeClean(buf, c)
	}
	buf.WriteString("</" + n.Data + ">")
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SafeURL accepts absolute http(s) and mailto links and site-relative paths.
func SafeURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	case "mailto":
		return true
	}
	return false
}
