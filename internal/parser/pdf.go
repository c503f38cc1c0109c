package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
	rscpdf "rsc.io/pdf"
)

// PDFParser handles PDF files. It reads positioned glyphs with
// ledongthuc/pdf and groups them into runs, falling back to rsc.io/pdf when
// the primary reader fails.
type PDFParser struct {
	FallbackRSC bool
}

// ErrNoPages is returned when a PDF has no readable page.
var ErrNoPages = errors.New("pdf has no readable pages")

// Run grouping tolerances, as fractions of the font size.
const (
	runBaselineTolerance = 0.3
	runMaxGap            = 1.0
	runWordGap           = 0.15
)

// glyph is one positioned text piece in PDF space (Y grows upward).
type glyph struct {
	font string
	size float64
	x, y float64
	w    float64
	s    string
}

type rawPage struct {
	width, height float64
	top           float64 // upper Y of the media box
	left          float64
	glyphs        []glyph
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages, err := readLedongthuc(data)
	if err != nil && p.FallbackRSC {
		pages, err = readRSC(data)
		if err != nil {
			err = fmt.Errorf("rsc fallback: %w", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf runs: %w", err)
	}

	doc := &doctree.Document{Pages: make([]doctree.Page, len(pages))}
	for i, rp := range pages {
		doc.Pages[i] = doctree.Page{
			Index:  i,
			Width:  rp.width,
			Height: rp.height,
			Runs:   groupRuns(rp, i),
		}
	}
	return doc, nil
}

// recoverPage runs fn and converts a reader panic into an error, so one
// malformed page never takes down the document.
func recoverPage(fn func() rawPage) (rp rawPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	return fn(), nil
}

func readLedongthuc(data []byte) (pages []rawPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	failed := 0
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		rp, perr := recoverPage(func() rawPage {
			if page.V.IsNull() {
				return defaultPage()
			}
			rp := pageBox(ledongthucBox(page.V))
			for _, t := range page.Content().Text {
				rp.glyphs = append(rp.glyphs, glyph{font: t.Font, size: t.FontSize, x: t.X, y: t.Y, w: t.W, s: t.S})
			}
			return rp
		})
		if perr != nil {
			failed++
			rp = defaultPage()
		}
		pages = append(pages, rp)
	}
	if len(pages) == 0 || failed == len(pages) {
		return nil, ErrNoPages
	}
	return pages, nil
}

func readRSC(data []byte) (pages []rawPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	reader, err := rscpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	failed := 0
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		rp, perr := recoverPage(func() rawPage {
			if page.V.IsNull() {
				return defaultPage()
			}
			rp := pageBox(rscBox(page.V))
			for _, t := range page.Content().Text {
				rp.glyphs = append(rp.glyphs, glyph{font: t.Font, size: t.FontSize, x: t.X, y: t.Y, w: t.W, s: t.S})
			}
			return rp
		})
		if perr != nil {
			failed++
			rp = defaultPage()
		}
		pages = append(pages, rp)
	}
	if len(pages) == 0 || failed == len(pages) {
		return nil, ErrNoPages
	}
	return pages, nil
}

// ledongthucBox returns the inherited MediaBox as [x0 y0 x1 y1].
func ledongthucBox(v pdflib.Value) []float64 {
	for ; !v.IsNull(); v = v.Key("Parent") {
		if box := v.Key("MediaBox"); box.Len() == 4 {
			return []float64{box.Index(0).Float64(), box.Index(1).Float64(), box.Index(2).Float64(), box.Index(3).Float64()}
		}
	}
	return nil
}

func rscBox(v rscpdf.Value) []float64 {
	for ; !v.IsNull(); v = v.Key("Parent") {
		if box := v.Key("MediaBox"); box.Len() == 4 {
			return []float64{box.Index(0).Float64(), box.Index(1).Float64(), box.Index(2).Float64(), box.Index(3).Float64()}
		}
	}
	return nil
}

func defaultPage() rawPage {
	return rawPage{width: pageWidth, height: pageHeight, top: pageHeight}
}

func pageBox(box []float64) rawPage {
	if len(box) != 4 {
		return defaultPage()
	}
	x0, y0 := min(box[0], box[2]), min(box[1], box[3])
	x1, y1 := max(box[0], box[2]), max(box[1], box[3])
	if x1-x0 <= 0 || y1-y0 <= 0 {
		return defaultPage()
	}
	return rawPage{width: x1 - x0, height: y1 - y0, top: y1, left: x0}
}

// groupRuns joins consecutive glyphs that share a font, a size and a
// baseline into runs, converting coordinates to top-down page space.
func groupRuns(rp rawPage, pageIndex int) []doctree.TextRun {
	var runs []doctree.TextRun
	var cur *pdfRun
	flush := func() {
		if cur == nil {
			return
		}
		if r, ok := cur.run(rp, pageIndex); ok {
			runs = append(runs, r)
		}
		cur = nil
	}
	for _, g := range rp.glyphs {
		g.size = math.Abs(g.size)
		if g.s == "" {
			continue
		}
		if cur != nil && cur.continues(g) {
			cur.add(g)
			continue
		}
		flush()
		cur = &pdfRun{first: g, last: g}
		cur.text.WriteString(g.s)
	}
	flush()
	return runs
}

type pdfRun struct {
	first, last glyph
	text        strings.Builder
}

func (r *pdfRun) continues(g glyph) bool {
	if g.font != r.first.font || math.Abs(g.size-r.first.size) > 0.01 {
		return false
	}
	size := max(g.size, 1)
	if math.Abs(g.y-r.last.y) > runBaselineTolerance*size {
		return false
	}
	gap := g.x - (r.last.x + r.last.w)
	return gap >= -runMaxGap*size && gap <= runMaxGap*size
}

func (r *pdfRun) add(g glyph) {
	gap := g.x - (r.last.x + r.last.w)
	cur := r.text.String()
	if gap > runWordGap*max(g.size, 1) && !strings.HasSuffix(cur, " ") && !strings.HasPrefix(g.s, " ") {
		r.text.WriteByte(' ')
	}
	r.text.WriteString(g.s)
	r.last = g
}

func (r *pdfRun) run(rp rawPage, pageIndex int) (doctree.TextRun, bool) {
	text := strings.TrimSpace(r.text.String())
	if text == "" {
		return doctree.TextRun{}, false
	}
	family, weight, italic := fontStyle(r.first.font)
	baseline := rp.top - r.first.y
	return doctree.TextRun{
		Text: text,
		Page: pageIndex,
		BBox: doctree.BBox{
			X0: r.first.x - rp.left,
			Y0: baseline - r.first.size,
			X1: r.last.x + r.last.w - rp.left,
			Y1: baseline,
		},
		FontFamily: family,
		FontSize:   r.first.size,
		Weight:     weight,
		Italic:     italic,
		Baseline:   baseline,
	}, true
}

// fontStyle derives family, weight and slant from a PDF base font name
// such as "ABCDEF+Helvetica-BoldOblique".
func fontStyle(name string) (string, doctree.Weight, bool) {
	if name == "" {
		return "", doctree.WeightUnknown, false
	}
	if i := strings.IndexByte(name, '+'); i == 6 {
		name = name[i+1:]
	}
	family := name
	if i := strings.IndexAny(name, "-,"); i > 0 {
		family = name[:i]
	}
	lower := strings.ToLower(name)
	weight := doctree.WeightRegular
	for _, marker := range []string{"bold", "black", "heavy", "semibold", "demi"} {
		if strings.Contains(lower, marker) {
			weight = doctree.WeightBold
			break
		}
	}
	italic := strings.Contains(lower, "italic") || strings.Contains(lower, "oblique")
	return family, weight, italic
}
