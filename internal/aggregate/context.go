package aggregate

import (
	"math"
	"regexp"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Context holds document-wide statistics shared by all signal extractors.
// One Context exists per document and is never shared across documents.
type Context struct {
	BodySize   float64 // most common font size, weighted by characters
	BodyFamily string
	SizeSpread float64 // weighted standard deviation of block font sizes, floored
	PageCount  int
	// FontInfo is false when any non-empty page arrived without font sizes.
	FontInfo bool

	pages map[int]*PageStats
}

// PageStats are per-page layout statistics.
type PageStats struct {
	Width   float64
	Height  float64
	LineGap float64   // median inter-line gap
	Sizes   []float64 // block font sizes, ascending
}

// Page returns the statistics for a page index, or an empty record.
func (c *Context) Page(i int) *PageStats {
	if ps, ok := c.pages[i]; ok {
		return ps
	}
	return &PageStats{}
}

// ZScore returns the font size deviation from the body baseline in spread units.
func (c *Context) ZScore(size float64) float64 {
	if c.SizeSpread <= 0 {
		return 0
	}
	return (size - c.BodySize) / c.SizeSpread
}

func (c *Context) finish(blocks []doctree.TextBlock) {
	families := make(map[string]int)
	var sum, weight float64
	for _, b := range blocks {
		n := float64(len([]rune(b.Text)))
		if b.FontFamily != "" {
			families[b.FontFamily] += int(n)
		}
		sum += b.FontSize * n
		weight += n
	}
	c.BodyFamily = dominantFamily(families)

	spread := 0.0
	if weight > 0 {
		mean := sum / weight
		var ss float64
		for _, b := range blocks {
			n := float64(len([]rune(b.Text)))
			d := b.FontSize - mean
			ss += d * d * n
		}
		spread = math.Sqrt(ss / weight)
	}
	c.SizeSpread = max(spread, 1.0, 0.1*c.BodySize)
}

// Quantile returns the q-quantile of ascending values using linear interpolation.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	index := float64(len(sorted)-1) * q
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

const (
	runningMinPages = 3
	runningMaxWords = 12
)

var digitsRe = regexp.MustCompile(`\d+`)

// markRunning flags blocks whose text repeats on at least half of the pages,
// such as running headers, footers and page numbers.
func markRunning(blocks []doctree.TextBlock, pageCount int) {
	if pageCount < runningMinPages {
		return
	}
	pagesByKey := make(map[string]map[int]bool)
	keys := make([]string, len(blocks))
	for i, b := range blocks {
		if len(strings.Fields(b.Text)) > runningMaxWords {
			continue
		}
		key := digitsRe.ReplaceAllString(strings.ToLower(b.Text), "#")
		keys[i] = key
		if pagesByKey[key] == nil {
			pagesByKey[key] = make(map[int]bool)
		}
		pagesByKey[key][b.Page] = true
	}
	for i := range blocks {
		if keys[i] == "" {
			continue
		}
		n := len(pagesByKey[keys[i]])
		if n >= runningMinPages && n*2 >= pageCount {
			blocks[i].Running = true
		}
	}
}
