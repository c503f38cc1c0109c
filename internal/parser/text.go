package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// TextParser handles plain text files. Text carries no font metadata, so
// runs have no size and the document is scored on patterns alone.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	l := newLayout()
	for scanner.Scan() {
		line := scanner.Text()
		// Form feeds separate pages in text exported from PDFs.
		parts := strings.Split(line, "\f")
		for i, part := range parts {
			l.add(para{text: part, pageBreak: i > 0})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return l.document(), nil
}
