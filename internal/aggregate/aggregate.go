// Package aggregate groups positioned text runs into text blocks and derives
// the document-wide statistics the signal extractors score against.
package aggregate

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/dgallion1/docoutline/internal/doctree"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultBodySize is assumed when no run carries a font size.
	DefaultBodySize = 12.0

	sizeTolerance     = 0.5
	baselineTolerance = 0.5 // fraction of font size
	sameLineMaxGap    = 1.5 // fraction of font size
	lineGapFactor     = 1.5 // multiple of the page median inter-line gap
	noGapFallback     = 0.5 // fraction of font size when a page has no measurable gap
	wordSpaceGap      = 0.15
)

// Result is the aggregator output for one document.
type Result struct {
	Blocks  []doctree.TextBlock
	Context *Context
}

type run struct {
	doctree.TextRun
	sizeKnown bool
}

// Aggregate merges the runs of a document into blocks in reading order.
// Runs with missing font sizes are assigned the body baseline.
func Aggregate(doc *doctree.Document) Result {
	pages := make([][]run, len(doc.Pages))
	fontInfo := true
	for i, p := range doc.Pages {
		known := false
		for _, r := range p.Runs {
			text := Normalize(r.Text)
			if text == "" {
				continue
			}
			r.Text = text
			if r.FontSize > 0 && !math.IsNaN(r.FontSize) && !math.IsInf(r.FontSize, 0) {
				known = true
			} else {
				r.FontSize = 0
			}
			if r.Baseline == 0 {
				r.Baseline = r.BBox.Y1
			}
			pages[i] = append(pages[i], run{TextRun: r, sizeKnown: r.FontSize > 0})
		}
		if len(pages[i]) > 0 && !known {
			fontInfo = false
		}
	}

	body := bodySizeFromRuns(pages)
	for _, runs := range pages {
		for j := range runs {
			if !runs[j].sizeKnown {
				runs[j].FontSize = body
			}
		}
	}

	ctx := &Context{
		BodySize:  body,
		PageCount: len(doc.Pages),
		FontInfo:  fontInfo,
		pages:     make(map[int]*PageStats, len(doc.Pages)),
	}

	var blocks []doctree.TextBlock
	for i, runs := range pages {
		page := doc.Pages[i]
		gap := medianLineGap(runs)
		ps := &PageStats{Width: page.Width, Height: page.Height, LineGap: gap}
		ctx.pages[i] = ps

		pageBlocks := mergeRuns(runs, gap)
		setSpacing(pageBlocks)
		for _, b := range pageBlocks {
			b.Index = len(blocks)
			b.Page = i
			blocks = append(blocks, b)
			ps.Sizes = append(ps.Sizes, b.FontSize)
		}
		sort.Float64s(ps.Sizes)
	}

	markRunning(blocks, ctx.PageCount)
	ctx.finish(blocks)

	return Result{Blocks: blocks, Context: ctx}
}

// Normalize applies NFKC and collapses whitespace.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// mergeRuns groups consecutive runs of one page into blocks.
func mergeRuns(runs []run, lineGap float64) []doctree.TextBlock {
	var blocks []doctree.TextBlock
	var acc *accumulator
	for _, r := range runs {
		if acc != nil && !r.Break {
			if sameLine(acc.last, r) && compatible(acc.last, r) {
				acc.addSameLine(r)
				continue
			}
			if nextLine(acc, r, lineGap) && compatible(acc.last, r) {
				acc.addNextLine(r)
				continue
			}
		}
		if acc != nil {
			blocks = append(blocks, acc.block())
		}
		acc = newAccumulator(r)
	}
	if acc != nil {
		blocks = append(blocks, acc.block())
	}
	return blocks
}

func compatible(a, b run) bool {
	if math.Abs(a.FontSize-b.FontSize) > sizeTolerance {
		return false
	}
	if a.Weight == doctree.WeightUnknown || b.Weight == doctree.WeightUnknown {
		return true
	}
	return a.Weight == b.Weight
}

func sameLine(prev, r run) bool {
	size := max(prev.FontSize, r.FontSize)
	if math.Abs(prev.Baseline-r.Baseline) > baselineTolerance*size {
		return false
	}
	gap := r.BBox.X0 - prev.BBox.X1
	return r.BBox.X0 >= prev.BBox.X0 && gap <= sameLineMaxGap*size
}

func nextLine(acc *accumulator, r run, lineGap float64) bool {
	threshold := lineGapFactor * lineGap
	if lineGap <= 0 {
		threshold = noGapFallback * r.FontSize
	}
	gap := r.BBox.Y0 - acc.box.Y1
	return gap >= -baselineTolerance*r.FontSize && gap < threshold
}

// medianLineGap is the median positive vertical gap between consecutive lines.
func medianLineGap(runs []run) float64 {
	var gaps []float64
	for i := 1; i < len(runs); i++ {
		prev, cur := runs[i-1], runs[i]
		if math.Abs(prev.Baseline-cur.Baseline) <= baselineTolerance*max(prev.FontSize, cur.FontSize) {
			continue
		}
		if g := cur.BBox.Y0 - prev.BBox.Y1; g >= 0 {
			gaps = append(gaps, g)
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Float64s(gaps)
	return Quantile(gaps, 0.5)
}

func setSpacing(blocks []doctree.TextBlock) {
	for i := range blocks {
		if i > 0 {
			blocks[i].SpaceBefore = max(0, blocks[i].BBox.Y0-blocks[i-1].BBox.Y1)
		}
		if i+1 < len(blocks) {
			blocks[i].SpaceAfter = max(0, blocks[i+1].BBox.Y0-blocks[i].BBox.Y1)
		}
	}
}

type accumulator struct {
	text     strings.Builder
	box      doctree.BBox
	last     run
	lines    int
	sizes    map[float64]int
	families map[string]int
	bold     int
	regular  int
	italic   int
	chars    int
	known    bool
}

func newAccumulator(r run) *accumulator {
	a := &accumulator{
		box:      r.BBox,
		lines:    1,
		sizes:    make(map[float64]int),
		families: make(map[string]int),
	}
	a.text.WriteString(r.Text)
	a.count(r)
	return a
}

func (a *accumulator) count(r run) {
	n := len([]rune(r.Text))
	a.chars += n
	a.sizes[r.FontSize] += n
	if r.FontFamily != "" {
		a.families[r.FontFamily] += n
	}
	switch r.Weight {
	case doctree.WeightBold:
		a.bold += n
	case doctree.WeightRegular:
		a.regular += n
	}
	if r.Italic {
		a.italic += n
	}
	if r.sizeKnown {
		a.known = true
	}
	a.last = r
}

func (a *accumulator) addSameLine(r run) {
	gap := r.BBox.X0 - a.last.BBox.X1
	cur := a.text.String()
	if gap > wordSpaceGap*r.FontSize && !strings.HasSuffix(cur, " ") && !strings.HasPrefix(r.Text, " ") {
		a.text.WriteByte(' ')
	}
	a.text.WriteString(r.Text)
	a.box = a.box.Union(r.BBox)
	a.count(r)
}

func (a *accumulator) addNextLine(r run) {
	cur := a.text.String()
	first, _ := firstRune(r.Text)
	if strings.HasSuffix(cur, "-") && unicode.IsLower(first) {
		a.text.Reset()
		a.text.WriteString(strings.TrimSuffix(cur, "-"))
	} else {
		a.text.WriteByte(' ')
	}
	a.text.WriteString(r.Text)
	a.box = a.box.Union(r.BBox)
	a.lines++
	a.count(r)
}

func (a *accumulator) block() doctree.TextBlock {
	b := doctree.TextBlock{
		Text:      a.text.String(),
		BBox:      a.box,
		FontSize:  dominantSize(a.sizes),
		SizeKnown: a.known,
		Lines:     a.lines,
		Italic:    a.italic*2 > a.chars,
	}
	b.FontFamily = dominantFamily(a.families)
	switch {
	case a.bold == 0 && a.regular == 0:
		b.Weight = doctree.WeightUnknown
	case a.bold*2 > a.chars:
		b.Weight = doctree.WeightBold
	default:
		b.Weight = doctree.WeightRegular
	}
	return b
}

func dominantSize(sizes map[float64]int) float64 {
	best, bestN := 0.0, -1
	for s, n := range sizes {
		if n > bestN || (n == bestN && s > best) {
			best, bestN = s, n
		}
	}
	return best
}

func dominantFamily(families map[string]int) string {
	best, bestN := "", -1
	for f, n := range families {
		if n > bestN || (n == bestN && f < best) {
			best, bestN = f, n
		}
	}
	return best
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}

// bodySizeFromRuns returns the most common font size in 0.5pt buckets,
// weighted by character count.
func bodySizeFromRuns(pages [][]run) float64 {
	counts := make(map[int]int)
	for _, runs := range pages {
		for _, r := range runs {
			if !r.sizeKnown {
				continue
			}
			counts[bucket(r.FontSize)] += len([]rune(r.Text))
		}
	}
	if len(counts) == 0 {
		return DefaultBodySize
	}
	best, bestN := 0, -1
	for b, n := range counts {
		// Ties go to the smaller size.
		if n > bestN || (n == bestN && b < best) {
			best, bestN = b, n
		}
	}
	return float64(best) * sizeTolerance
}

func bucket(size float64) int {
	return int(math.Round(size / sizeTolerance))
}
