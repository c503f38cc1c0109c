package signal

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// DefaultBatchSize is the number of blocks sent per classifier call.
const DefaultBatchSize = 16

// Prediction is a classifier verdict for one text.
type Prediction struct {
	Heading float64       // calibrated probability that the text is a heading
	Level   doctree.Level // coarse heading tier, LevelNone when undecided
}

// Classifier labels block texts. Implementations must honor ctx cancellation.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]Prediction, error)
}

// Semantic scores blocks with a text classifier.
type Semantic struct {
	Classifier Classifier
	BatchSize  int
}

// ScoreAll classifies every eligible block. Running headers and texts outside
// the heading length limits are not sent to the model and score zero.
// On any error, including ctx expiry, no scores are returned so that a
// document is never fused with partial semantic evidence.
func (s *Semantic) ScoreAll(ctx context.Context, blocks []doctree.TextBlock) ([]doctree.SignalScore, error) {
	batch := s.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	out := make([]doctree.SignalScore, len(blocks))
	var idx []int
	var texts []string
	for i, b := range blocks {
		out[i] = doctree.SignalScore{Available: true}
		if b.Running || !eligible(b.Text) {
			continue
		}
		idx = append(idx, i)
		texts = append(texts, b.Text)
	}

	for start := 0; start < len(texts); start += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batch, len(texts))
		preds, err := s.Classifier.Classify(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("classify batch %d: %w", start/batch, err)
		}
		if len(preds) != end-start {
			return nil, fmt.Errorf("classify batch %d: expected %d predictions, got %d", start/batch, end-start, len(preds))
		}
		for j, p := range preds {
			out[idx[start+j]] = doctree.SignalScore{
				Available: true,
				Score:     clamp01(p.Heading),
				Level:     p.Level,
			}
		}
	}
	return out, nil
}

func eligible(text string) bool {
	n := len([]rune(strings.TrimSpace(text)))
	return n >= MinHeadingLength && n <= MaxHeadingLength
}
