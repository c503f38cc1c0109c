package signal

import (
	"math"

	"github.com/dgallion1/docoutline/internal/aggregate"
	"github.com/dgallion1/docoutline/internal/doctree"
)

// Visual component weights.
const (
	visualSizeWeight     = 0.55
	visualWeightWeight   = 0.15
	visualPositionWeight = 0.15
	visualSpacingWeight  = 0.15

	// PromoteScore moves the size bucket one level shallower.
	PromoteScore = 0.85

	bucketL1Quantile = 0.90
	bucketL2Quantile = 0.80
	centerTolerance  = 0.10 // fraction of page width
	spacingSaturate  = 3.0  // gap, in line gaps, that scores 1
)

// Visual scores typography and layout relative to the document body baseline.
type Visual struct{}

// Score implements Extractor. The returned level is the size bucket; it is a
// suggestion the scorer only uses when nothing stronger commits.
func (Visual) Score(b doctree.TextBlock, ctx *aggregate.Context) doctree.SignalScore {
	size := sizeScore(ctx.ZScore(b.FontSize))
	score := visualSizeWeight*size +
		visualWeightWeight*weightScore(b.Weight) +
		visualPositionWeight*positionScore(b, ctx.Page(b.Page)) +
		visualSpacingWeight*spacingScore(b, ctx)
	score = clamp01(score)

	return doctree.SignalScore{
		Available: true,
		Score:     score,
		Level:     bucketLevel(b, ctx, score),
	}
}

// sizeScore is a logistic over the z-score centered one spread above body.
func sizeScore(z float64) float64 {
	return 1 / (1 + math.Exp(-2*(z-1)))
}

func weightScore(w doctree.Weight) float64 {
	switch w {
	case doctree.WeightBold:
		return 1
	case doctree.WeightRegular:
		return 0
	default:
		return 0.5
	}
}

// positionScore favors blocks near the top of the page and centered blocks.
// Unknown page geometry is neutral.
func positionScore(b doctree.TextBlock, ps *aggregate.PageStats) float64 {
	top := 0.5
	if ps.Height > 0 {
		top = 1 - clamp01(b.BBox.Y0/ps.Height)
	}
	centered := 0.5
	if ps.Width > 0 && b.BBox.Width() > 0 {
		mid := (b.BBox.X0 + b.BBox.X1) / 2
		if math.Abs(mid-ps.Width/2) <= centerTolerance*ps.Width && b.BBox.Width() < 0.8*ps.Width {
			centered = 1
		} else {
			centered = 0
		}
	}
	return (top + centered) / 2
}

// spacingScore grows with the larger of the gaps around the block, measured
// in page line gaps.
func spacingScore(b doctree.TextBlock, ctx *aggregate.Context) float64 {
	ref := ctx.Page(b.Page).LineGap
	if ref <= 0 {
		ref = 0.5 * ctx.BodySize
	}
	if ref <= 0 {
		return 0
	}
	gap := max(b.SpaceBefore, b.SpaceAfter)
	return clamp01(gap / (spacingSaturate * ref))
}

// bucketLevel maps the block font size onto the page size distribution.
func bucketLevel(b doctree.TextBlock, ctx *aggregate.Context, score float64) doctree.Level {
	if b.FontSize <= ctx.BodySize+0.25 {
		return doctree.Level3
	}
	sizes := ctx.Page(b.Page).Sizes
	level := doctree.Level3
	switch {
	case len(sizes) == 0:
	case b.FontSize >= aggregate.Quantile(sizes, bucketL1Quantile):
		level = doctree.Level1
	case b.FontSize >= aggregate.Quantile(sizes, bucketL2Quantile):
		level = doctree.Level2
	}
	if score >= PromoteScore && level > doctree.Level1 {
		level--
	}
	return level
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
