package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docoutline/internal/metrics"
	"github.com/dgallion1/docoutline/internal/signal"
)

// Loader builds an embedder. It may block; Model bounds it with a timeout.
type Loader func() (Embedder, error)

// Disabled is a Loader for configurations that turn the semantic tier off.
func Disabled() Loader {
	return func() (Embedder, error) {
		return nil, fmt.Errorf("%w: disabled by configuration", ErrModelUnavailable)
	}
}

// ProbeError reports which probe stage failed.
type ProbeError struct {
	Stage string // "load" or "inference"
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("model probe %s: %v", e.Stage, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

const probeText = "Introduction"

// Model lazily loads the classifier and answers health probes. Once loaded it
// is stateless at inference and shared read-only by all workers.
type Model struct {
	load         Loader
	initTimeout  time.Duration
	probeTimeout time.Duration
	stats        *LatencyStats
	log          *slog.Logger

	mu  sync.Mutex
	clf *Classifier
	emb Embedder
}

func NewModel(load Loader, initTimeout, probeTimeout time.Duration, stats *LatencyStats, log *slog.Logger) *Model {
	if stats == nil {
		stats = NewLatencyStats(time.Hour)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Model{
		load:         load,
		initTimeout:  initTimeout,
		probeTimeout: probeTimeout,
		stats:        stats,
		log:          log,
	}
}

// Probe loads the model if needed within the init budget, then runs one
// inference within the probe timeout.
func (m *Model) Probe(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clf == nil {
		lctx, cancel := context.WithTimeout(ctx, m.initTimeout)
		defer cancel()

		start := time.Now()
		emb, err := loadWithin(lctx, m.load)
		if err != nil {
			return &ProbeError{Stage: "load", Err: err}
		}
		clf, err := NewClassifier(lctx, emb)
		if err != nil {
			_ = emb.Close()
			return &ProbeError{Stage: "load", Err: err}
		}
		m.clf, m.emb = clf, emb
		m.log.Info("semantic model loaded", "duration_ms", time.Since(start).Milliseconds())
	}

	pctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()
	if _, err := m.classify(pctx, m.clf, []string{probeText}); err != nil {
		return &ProbeError{Stage: "inference", Err: err}
	}
	return nil
}

// Classify implements signal.Classifier.
func (m *Model) Classify(ctx context.Context, texts []string) ([]signal.Prediction, error) {
	m.mu.Lock()
	clf := m.clf
	m.mu.Unlock()
	if clf == nil {
		return nil, ErrNotLoaded
	}
	return m.classify(ctx, clf, texts)
}

func (m *Model) classify(ctx context.Context, clf *Classifier, texts []string) ([]signal.Prediction, error) {
	start := time.Now()
	preds, err := clf.Classify(ctx, texts)
	elapsed := time.Since(start)
	m.stats.Record(elapsed, err)
	metrics.Get().SemanticLatency.Observe(elapsed.Seconds())
	return preds, err
}

// Stats returns the latency tracker.
func (m *Model) Stats() *LatencyStats { return m.stats }

// Loaded reports whether a probe has loaded the model.
func (m *Model) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clf != nil
}

// Close releases the embedder.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emb == nil {
		return nil
	}
	err := m.emb.Close()
	m.clf, m.emb = nil, nil
	return err
}

// loadWithin runs a blocking loader and gives up when ctx ends. A loader that
// finishes after the deadline has its embedder closed.
func loadWithin(ctx context.Context, load Loader) (Embedder, error) {
	type result struct {
		emb Embedder
		err error
	}
	ch := make(chan result, 1)
	go func() {
		emb, err := load()
		ch <- result{emb, err}
	}()

	select {
	case r := <-ch:
		return r.emb, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil && r.emb != nil {
				_ = r.emb.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
