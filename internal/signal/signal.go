// Package signal holds the independent sources of heading evidence. Pattern
// and Visual score one block at a time; Semantic scores batches under a
// deadline because it calls into a model.
package signal

import (
	"github.com/dgallion1/docoutline/internal/aggregate"
	"github.com/dgallion1/docoutline/internal/doctree"
)

// Extractor scores a single block against document-wide statistics.
type Extractor interface {
	Score(b doctree.TextBlock, ctx *aggregate.Context) doctree.SignalScore
}

// ScoreBlocks runs an extractor over every block in order.
func ScoreBlocks(e Extractor, blocks []doctree.TextBlock, ctx *aggregate.Context) []doctree.SignalScore {
	out := make([]doctree.SignalScore, len(blocks))
	for i, b := range blocks {
		out[i] = e.Score(b, ctx)
	}
	return out
}
