// Package outline runs the per-document extraction pipeline: aggregation,
// signal extraction, fusion and hierarchy building, in that order and on a
// single goroutine.
package outline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docoutline/internal/aggregate"
	"github.com/dgallion1/docoutline/internal/cache"
	"github.com/dgallion1/docoutline/internal/chunker"
	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/fallback"
	"github.com/dgallion1/docoutline/internal/hierarchy"
	"github.com/dgallion1/docoutline/internal/metrics"
	"github.com/dgallion1/docoutline/internal/scorer"
	"github.com/dgallion1/docoutline/internal/signal"
)

// ErrNoText is returned when the run source produced no text for a document.
var ErrNoText = errors.New("outline: document has no extractable text")

// DefaultBudget is the per-document time budget for semantic scoring.
const DefaultBudget = 10 * time.Second

// Options configures an Extractor.
type Options struct {
	Budget    time.Duration
	BatchSize int
	Chunk     chunker.Config
	Cache     *cache.Store // optional
}

// Result is the outcome for one document.
type Result struct {
	Outline    doctree.Outline
	Tree       []*doctree.OutlineNode
	Chunks     []doctree.Chunk
	State      fallback.State
	Headings   int
	LevelSkips int
	// LevelSources counts headings by the signal that decided their level.
	LevelSources map[doctree.Source]int
	Cached       bool
}

// Extractor is safe for concurrent use by multiple workers. Each call owns
// its aggregation context and tier state.
type Extractor struct {
	controller *fallback.Controller
	classifier signal.Classifier
	opts       Options
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// New creates an Extractor. classifier may be nil when the semantic tier is
// never available.
func New(controller *fallback.Controller, classifier signal.Classifier, opts Options, log *slog.Logger) *Extractor {
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = signal.DefaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		controller: controller,
		classifier: classifier,
		opts:       opts,
		metrics:    metrics.Get(),
		log:        log,
	}
}

// Extract decides the tier for doc and runs the pipeline.
func (e *Extractor) Extract(ctx context.Context, doc *doctree.Document) (*Result, error) {
	start := time.Now()
	if doc.RunCount() == 0 {
		return nil, ErrNoText
	}
	agg := aggregate.Aggregate(doc)
	if len(agg.Blocks) == 0 {
		return nil, ErrNoText
	}

	st := e.controller.Decide(ctx, agg.Context.FontInfo)
	log := e.log.With("doc", doc.Name)
	log.Info("tier selected", "tier", st.Tier.String(), "reason", st.Reason, "blocks", len(agg.Blocks))

	if res, ok := e.lookup(ctx, doc, st, log); ok {
		return res, nil
	}

	res, err := e.run(ctx, agg, st, start.Add(e.opts.Budget), log)
	if err != nil {
		return nil, err
	}
	e.store(ctx, doc, res, log)
	return res, nil
}

// ExtractWithState runs the pipeline with a fixed tier, bypassing the
// controller and the cache.
func (e *Extractor) ExtractWithState(ctx context.Context, doc *doctree.Document, st fallback.State) (*Result, error) {
	if doc.RunCount() == 0 {
		return nil, ErrNoText
	}
	agg := aggregate.Aggregate(doc)
	if len(agg.Blocks) == 0 {
		return nil, ErrNoText
	}
	return e.run(ctx, agg, st, time.Now().Add(e.opts.Budget), e.log.With("doc", doc.Name))
}

func (e *Extractor) run(ctx context.Context, agg aggregate.Result, st fallback.State, deadline time.Time, log *slog.Logger) (*Result, error) {
	blocks := agg.Blocks
	pattern := signal.ScoreBlocks(signal.Pattern{}, blocks, agg.Context)
	signal.ResolveEnumerations(blocks, pattern)
	visual := signal.ScoreBlocks(signal.Visual{}, blocks, agg.Context)

	var semantic []doctree.SignalScore
	if st.SemanticEnabled() {
		var err error
		semantic, err = e.scoreSemantic(ctx, blocks, deadline)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("semantic scoring: %w", ctx.Err())
			}
			reason := fallback.ReasonSemanticFail
			if errors.Is(err, context.DeadlineExceeded) {
				reason = fallback.ReasonBudget
			}
			st = st.Demote(reason)
			semantic = nil
			e.metrics.RecordDemotion(reason)
			log.Warn("semantic scoring demoted", "tier", st.Tier.String(), "reason", reason, "error", err)
		}
	}

	evidence := make([]doctree.Evidence, len(blocks))
	for i := range blocks {
		evidence[i] = doctree.Evidence{Pattern: pattern[i], Visual: visual[i]}
		if semantic != nil {
			evidence[i].Semantic = semantic[i]
		}
	}

	cands := scorer.ScoreAll(blocks, evidence, st)
	h := hierarchy.Build(cands)
	out := hierarchy.Flatten(h.Title, h.Roots)

	sources := make(map[doctree.Source]int)
	for i, c := range cands {
		if c.IsHeading() && i != h.TitleIndex {
			sources[c.LevelSource]++
		}
	}

	return &Result{
		Outline:      out,
		Tree:         h.Roots,
		Chunks:       chunker.ChunkOutline(h.Preamble, h.Roots, e.opts.Chunk),
		State:        st,
		Headings:     len(out.Entries),
		LevelSkips:   h.LevelSkips,
		LevelSources: sources,
	}, nil
}

// scoreSemantic runs the classifier under the document deadline.
func (e *Extractor) scoreSemantic(ctx context.Context, blocks []doctree.TextBlock, deadline time.Time) ([]doctree.SignalScore, error) {
	if e.classifier == nil {
		return nil, errors.New("no classifier configured")
	}
	sctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	s := &signal.Semantic{Classifier: e.classifier, BatchSize: e.opts.BatchSize}
	return s.ScoreAll(sctx, blocks)
}

func (e *Extractor) lookup(ctx context.Context, doc *doctree.Document, st fallback.State, log *slog.Logger) (*Result, bool) {
	if e.opts.Cache == nil || doc.Hash == "" {
		return nil, false
	}
	entry, ok, err := e.opts.Cache.Get(ctx, doc.Hash, int(st.Tier))
	if err != nil {
		log.Warn("outline cache lookup failed", "error", err)
		return nil, false
	}
	e.metrics.RecordCache(ok)
	if !ok {
		return nil, false
	}
	return &Result{
		Outline:  entry.Outline,
		Tree:     entry.Tree,
		Chunks:   chunker.ChunkOutline("", entry.Tree, e.opts.Chunk),
		State:    st,
		Headings: len(entry.Outline.Entries),
		Cached:   true,
	}, true
}

func (e *Extractor) store(ctx context.Context, doc *doctree.Document, res *Result, log *slog.Logger) {
	if e.opts.Cache == nil || doc.Hash == "" {
		return
	}
	err := e.opts.Cache.Put(ctx, cache.Entry{
		Hash:    doc.Hash,
		Tier:    int(res.State.Tier),
		Name:    doc.Name,
		Outline: res.Outline,
		Tree:    res.Tree,
	})
	if err != nil {
		log.Warn("outline cache store failed", "error", err)
	}
}
