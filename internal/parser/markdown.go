package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. ATX and setext
// headings become bold runs sized by level; everything else is body text.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	l := newLayout()
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			l.add(para{
				text:   string(node.Text(src)),
				size:   headingSize(node.Level),
				weight: doctree.WeightBold,
			})
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				l.add(body(extractText(item, src)))
			}
		case *ast.ThematicBreak:
		default:
			l.add(body(extractText(n, src)))
		}
	}
	return l.document(), nil
}

func body(text string) para {
	return para{text: text, size: sizeBody, weight: doctree.WeightRegular}
}

// extractText gets the text content of a goldmark AST node. Leaf blocks
// such as code blocks contribute their raw lines; containers contribute the
// text of their inline children.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if !n.HasChildren() && n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(bytes.TrimRight(line.Value(src), "\n"))
			buf.WriteByte(' ')
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
			continue
		}
		if buf.Len() > 0 && c.Type() == ast.TypeBlock {
			buf.WriteByte(' ')
		}
		buf.WriteString(extractText(c, src))
	}
	return strings.TrimSpace(buf.String())
}
