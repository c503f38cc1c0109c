package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser lays out HTML as sized runs: h1..h6 become bold heading runs,
// block elements become body runs, and a <title> that differs from the first
// heading is placed above it.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	l := newLayout()
	if t := findNode(root, isTag("title")); t != nil {
		title := textContent(t)
		var first string
		if h := findNode(root, func(n *html.Node) bool { return headingLevel(n) > 0 }); h != nil {
			first = textContent(h)
		}
		if title != "" && !strings.EqualFold(title, first) {
			l.add(para{text: title, size: sizeTitle, weight: doctree.WeightBold})
		}
	}

	start := root
	if b := findNode(root, isTag("body")); b != nil {
		start = b
	}
	layoutHTML(l, start)
	return l.document(), nil
}

func layoutHTML(l *layout, n *html.Node) {
	if n.Type == html.ElementNode {
		if level := headingLevel(n); level > 0 {
			l.add(para{text: textContent(n), size: headingSize(level), weight: doctree.WeightBold})
			return
		}
		switch n.Data {
		case "script", "style", "nav", "footer", "header", "title", "noscript", "template":
			return
		case "p", "li", "td", "th", "blockquote", "pre", "dt", "dd", "figcaption", "caption":
			pr := body(textContent(n))
			// A paragraph made only of <strong> or <b> is a run-in heading.
			if onlyStrong(n) {
				pr.weight = doctree.WeightBold
			}
			l.add(pr)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		layoutHTML(l, c)
	}
}

// headingLevel returns 1..6 for h1..h6 elements and 0 otherwise.
func headingLevel(n *html.Node) int {
	if n.Type != html.ElementNode || len(n.Data) != 2 || n.Data[0] != 'h' {
		return 0
	}
	if d := n.Data[1]; d >= '1' && d <= '6' {
		return int(d - '0')
	}
	return 0
}

// onlyStrong reports whether every non-blank text node under n sits inside
// a <strong> or <b> element.
func onlyStrong(n *html.Node) bool {
	found := false
	var visit func(*html.Node, bool) bool
	visit = func(n *html.Node, strong bool) bool {
		switch {
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) != "":
			if !strong {
				return false
			}
			found = true
		case n.Type == html.ElementNode && (n.Data == "strong" || n.Data == "b"):
			strong = true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !visit(c, strong) {
				return false
			}
		}
		return true
	}
	return visit(n, false) && found
}

// textContent joins the text under n with whitespace collapsed.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func isTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }
}

// findNode returns the first node in document order that matches.
func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}
