// Package scorer fuses per-block evidence into heading candidates. Fusion is
// a pure function of the evidence record and the tier policy.
package scorer

import (
	"math"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/fallback"
)

// Policy holds the weights and thresholds of one tier.
type Policy struct {
	Semantic float64
	Visual   float64
	Pattern  float64
	// TieBreak is the visual weight added on top of the pattern score when
	// visual is not a primary signal.
	TieBreak float64
	// Threshold is the fused confidence a block must exceed to be a heading.
	Threshold float64
	// SemanticLevel is the stricter confidence needed to take the semantic level.
	SemanticLevel float64
}

// MarkerFloor is the pattern score at which a committed level also floors the
// fused confidence.
const MarkerFloor = 0.80

var policies = map[fallback.Tier]Policy{
	fallback.TierFull:   {Semantic: 0.45, Visual: 0.35, Pattern: 0.20, Threshold: 0.50, SemanticLevel: 0.70},
	fallback.TierHybrid: {Visual: 0.65, Pattern: 0.35, Threshold: 0.45},
	fallback.TierBasic:  {Pattern: 1.0, TieBreak: 0.05, Threshold: 0.30},
}

// PolicyFor returns the policy of a tier. Unknown tiers use the basic policy.
func PolicyFor(t fallback.Tier) Policy {
	if p, ok := policies[t]; ok {
		return p
	}
	return policies[fallback.TierBasic]
}

// Fuse combines the evidence of one block into a fused confidence under p.
// Signals that are not available are left out of the weighted mean rather
// than counted as zero.
func Fuse(ev doctree.Evidence, p Policy) float64 {
	var sum, weight float64
	add := func(s doctree.SignalScore, w float64) {
		if !s.Available || w <= 0 {
			return
		}
		sum += w * s.Score
		weight += w
	}
	add(ev.Semantic, p.Semantic)
	add(ev.Visual, p.Visual)
	add(ev.Pattern, p.Pattern)

	fused := 0.0
	if weight > 0 {
		fused = sum / weight
	}
	if p.TieBreak > 0 && ev.Visual.Available {
		fused += p.TieBreak * ev.Visual.Score
	}
	if ev.Pattern.Available && ev.Pattern.Level != doctree.LevelNone && ev.Pattern.Score >= MarkerFloor {
		fused = math.Max(fused, ev.Pattern.Score)
	}
	return clamp01(fused)
}

// Score turns one block and its evidence into a candidate.
func Score(b doctree.TextBlock, ev doctree.Evidence, st fallback.State) doctree.Candidate {
	p := PolicyFor(st.Tier)
	if !st.SemanticEnabled() {
		ev.Semantic = doctree.SignalScore{}
	}
	conf := Fuse(ev, p)
	c := doctree.Candidate{Block: b, Confidence: conf}
	if b.Running || conf <= p.Threshold {
		return c
	}

	switch {
	case ev.Pattern.Available && ev.Pattern.Level != doctree.LevelNone:
		c.Level, c.LevelSource = ev.Pattern.Level, doctree.SourcePattern
	case ev.Semantic.Available && ev.Semantic.Level != doctree.LevelNone && conf >= p.SemanticLevel:
		c.Level, c.LevelSource = ev.Semantic.Level, doctree.SourceSemantic
	case ev.Visual.Available && ev.Visual.Level != doctree.LevelNone:
		c.Level, c.LevelSource = ev.Visual.Level, doctree.SourceVisual
	default:
		c.Level, c.LevelSource = doctree.Level3, doctree.SourceVisual
	}
	return c
}

// ScoreAll scores every block. evidence must be parallel to blocks.
func ScoreAll(blocks []doctree.TextBlock, evidence []doctree.Evidence, st fallback.State) []doctree.Candidate {
	out := make([]doctree.Candidate, len(blocks))
	for i, b := range blocks {
		out[i] = Score(b, evidence[i], st)
	}
	return out
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
