package signal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/doctree"
)

type fakeClassifier struct {
	calls int
	delay time.Duration
	err   error
}

func (f *fakeClassifier) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Prediction, len(texts))
	for i, t := range texts {
		if strings.HasPrefix(t, "Heading") {
			out[i] = Prediction{Heading: 0.9, Level: doctree.Level2}
		} else {
			out[i] = Prediction{Heading: 0.1}
		}
	}
	return out, nil
}

func blocks(texts ...string) []doctree.TextBlock {
	out := make([]doctree.TextBlock, len(texts))
	for i, t := range texts {
		out[i] = doctree.TextBlock{Index: i, Text: t}
	}
	return out
}

func TestSemantic_ScoreAllBatches(t *testing.T) {
	fc := &fakeClassifier{}
	s := &Semantic{Classifier: fc, BatchSize: 2}

	in := blocks("Heading One", "body text here", "Heading Two", "x", "more body text")
	in[4].Running = true

	scores, err := s.ScoreAll(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.calls != 2 {
		t.Errorf("expected 2 classifier calls for 3 eligible blocks, got %d", fc.calls)
	}
	if scores[0].Score != 0.9 || scores[0].Level != doctree.Level2 {
		t.Errorf("expected heading prediction, got %+v", scores[0])
	}
	if scores[3].Score != 0 || !scores[3].Available {
		t.Errorf("expected short block to score zero, got %+v", scores[3])
	}
	if scores[4].Score != 0 {
		t.Errorf("expected running block to score zero, got %+v", scores[4])
	}
}

func TestSemantic_ErrorDiscardsPartialScores(t *testing.T) {
	boom := errors.New("inference failed")
	s := &Semantic{Classifier: &fakeClassifier{err: boom}}
	scores, err := s.ScoreAll(context.Background(), blocks("Heading One"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped inference error, got %v", err)
	}
	if scores != nil {
		t.Errorf("expected no scores on error, got %d", len(scores))
	}
}

func TestSemantic_DeadlineStopsScoring(t *testing.T) {
	s := &Semantic{Classifier: &fakeClassifier{delay: time.Second}, BatchSize: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.ScoreAll(ctx, blocks("Heading One", "Heading Two"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
