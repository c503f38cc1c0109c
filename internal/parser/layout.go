package parser

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Synthetic page geometry for sources without layout, in points.
const (
	pageWidth    = 612.0
	pageHeight   = 792.0
	pageMargin   = 72.0
	lineHeight   = 1.2 // multiple of font size
	paraSpacing  = 0.6 // multiple of font size
	avgCharWidth = 0.5 // multiple of font size
)

// Font sizes assigned to markup levels.
const (
	sizeTitle = 28.0
	sizeBody  = 12.0
)

var headingSizes = [...]float64{24, 18, 15, 13, 13, 13}

// headingSize returns the synthetic font size for an h1..h6 level.
func headingSize(level int) float64 {
	if level < 1 {
		return sizeBody
	}
	if level > len(headingSizes) {
		level = len(headingSizes)
	}
	return headingSizes[level-1]
}

// para is one logical block of a structured source.
type para struct {
	text   string
	size   float64 // 0 when the source has no size information
	weight doctree.Weight
	italic bool
	// pageBreak starts a new page before this paragraph.
	pageBreak bool
}

// layout places paragraphs top to bottom on synthetic pages. Every line
// becomes one run; the first line of each paragraph carries Break, so
// paragraphs never merge with each other.
type layout struct {
	pages []doctree.Page
	y     float64
}

func newLayout() *layout {
	l := &layout{}
	l.newPage()
	return l
}

func (l *layout) newPage() {
	l.pages = append(l.pages, doctree.Page{
		Index:  len(l.pages),
		Width:  pageWidth,
		Height: pageHeight,
	})
	l.y = pageMargin
}

func (l *layout) current() *doctree.Page {
	return &l.pages[len(l.pages)-1]
}

func (l *layout) add(p para) {
	text := strings.TrimSpace(p.text)
	if text == "" {
		if p.pageBreak {
			l.newPage()
		}
		return
	}
	if p.pageBreak && len(l.current().Runs) > 0 {
		l.newPage()
	}
	size := p.size
	metric := size
	if metric <= 0 {
		metric = sizeBody
	}
	maxChars := int((pageWidth - 2*pageMargin) / (avgCharWidth * metric))

	for i, line := range wrap(text, maxChars) {
		if l.y+metric*lineHeight > pageHeight-pageMargin {
			l.newPage()
		}
		width := float64(len([]rune(line))) * avgCharWidth * metric
		pg := l.current()
		pg.Runs = append(pg.Runs, doctree.TextRun{
			Text:     line,
			Page:     pg.Index,
			BBox:     doctree.BBox{X0: pageMargin, Y0: l.y, X1: pageMargin + width, Y1: l.y + metric},
			FontSize: size,
			Weight:   p.weight,
			Italic:   p.italic,
			Baseline: l.y + metric,
			Break:    i == 0,
		})
		l.y += metric * lineHeight
	}
	l.y += metric * paraSpacing
}

// document returns the laid-out pages, dropping a trailing empty page.
func (l *layout) document() *doctree.Document {
	pages := l.pages
	if n := len(pages); n > 1 && len(pages[n-1].Runs) == 0 {
		pages = pages[:n-1]
	}
	return &doctree.Document{Pages: pages}
}

// wrap splits text into lines of at most width runes, breaking on spaces.
// Existing newlines are kept as line breaks.
func wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	for _, src := range strings.Split(text, "\n") {
		words := strings.Fields(src)
		var cur strings.Builder
		n := 0
		for _, w := range words {
			wl := len([]rune(w))
			if n > 0 && n+1+wl > width {
				lines = append(lines, cur.String())
				cur.Reset()
				n = 0
			}
			if n > 0 {
				cur.WriteByte(' ')
				n++
			}
			cur.WriteString(w)
			n += wl
		}
		if n > 0 {
			lines = append(lines, cur.String())
		}
	}
	return lines
}
