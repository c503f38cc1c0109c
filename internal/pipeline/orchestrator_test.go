package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/fallback"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/signal"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type okProber struct{}

func (okProber) Probe(context.Context) error { return nil }

// slowOnMarker classifies short lines as headings and stalls on any batch
// containing the word "slow" until its context ends.
type slowOnMarker struct{}

func (slowOnMarker) Classify(ctx context.Context, texts []string) ([]signal.Prediction, error) {
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), "slow") {
			<-ctx.Done()
			return nil, ctx.Err()
		}
	}
	out := make([]signal.Prediction, len(texts))
	for i, t := range texts {
		if len(strings.Fields(t)) <= 4 {
			out[i] = signal.Prediction{Heading: 0.9, Level: doctree.Level1}
		} else {
			out[i] = signal.Prediction{Heading: 0.1}
		}
	}
	return out, nil
}

func testConfig() config.Config {
	return config.Config{
		WorkerCount:  3,
		MaxQueueSize: 10,
		ModelName:    "test",
		ModelShared:  true,
		JobTTL:       time.Hour,
	}
}

func newTestOrchestrator(t *testing.T, cfg config.Config, budget time.Duration) *Orchestrator {
	t.Helper()
	ctrl := fallback.NewController(okProber{}, 3, fallback.TierAuto, discard())
	ex := outline.New(ctrl, slowOnMarker{}, outline.Options{Budget: budget}, discard())
	return NewOrchestrator(cfg, ex, discard())
}

func markdownDoc(heading string) []byte {
	return []byte("# Annual Report\n\n" +
		"This opening paragraph is ordinary body text with enough words to set the baseline size.\n\n" +
		"## " + heading + "\n\n" +
		"Another paragraph of ordinary body text follows the section heading in the document.\n")
}

func waitAll(t *testing.T, jobs []*Job) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, j := range jobs {
		if err := j.Wait(ctx); err != nil {
			t.Fatalf("job %s did not finish: %v", j.Filename, err)
		}
	}
}

func TestOrchestrator_BatchWithMixedTiers(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(), 300*time.Millisecond)
	o.Start(context.Background())
	t.Cleanup(o.Stop)

	batchID, jobs := o.SubmitBatch([]File{
		{Name: "one.md", Data: markdownDoc("Overview")},
		{Name: "two.md", Data: markdownDoc("Slow Section")},
		{Name: "three.md", Data: markdownDoc("Results")},
	})
	waitAll(t, jobs)

	if got := o.Batch(batchID); len(got) != 3 {
		t.Fatalf("expected 3 jobs in batch, got %d", len(got))
	}
	want := map[string]string{"one.md": "full", "two.md": "hybrid", "three.md": "full"}
	for _, j := range jobs {
		snap := j.Snapshot()
		if snap.Status != StatusCompleted {
			t.Fatalf("%s: expected completed, got %q (%s)", snap.Filename, snap.Status, snap.Error)
		}
		if snap.Tier != want[snap.Filename] {
			t.Errorf("%s: expected tier %q, got %q (%s)", snap.Filename, want[snap.Filename], snap.Tier, snap.TierReason)
		}
		if snap.Outline == nil || snap.Outline.Title != "Annual Report" {
			t.Errorf("%s: expected title Annual Report, got %+v", snap.Filename, snap.Outline)
		}
		if len(snap.ContentHash) != 64 {
			t.Errorf("%s: expected content hash, got %q", snap.Filename, snap.ContentHash)
		}
	}
	if reason := jobs[1].Snapshot().TierReason; reason != fallback.ReasonBudget {
		t.Errorf("expected demotion reason %q, got %q", fallback.ReasonBudget, reason)
	}
}

func TestOrchestrator_FailedDocumentDoesNotStopBatch(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(), time.Second)
	o.Start(context.Background())
	t.Cleanup(o.Stop)

	_, jobs := o.SubmitBatch([]File{
		{Name: "empty.txt", Data: []byte("\n\n   \n")},
		{Name: "notes.txt", Data: []byte("1 Introduction\nplain words here\n")},
		{Name: "broken.pdf", Data: []byte("not a pdf")},
	})
	waitAll(t, jobs)

	if s := jobs[0].Snapshot(); s.Status != StatusFailed || !strings.Contains(s.Error, "no extractable text") {
		t.Errorf("expected empty document to fail with no text, got %q (%s)", s.Status, s.Error)
	}
	if s := jobs[1].Snapshot(); s.Status != StatusCompleted || s.Tier != "basic" {
		t.Errorf("expected text document completed at basic tier, got %q %q (%s)", s.Status, s.Tier, s.Error)
	}
	if s := jobs[2].Snapshot(); s.Status != StatusFailed || s.Phase != "parsing" {
		t.Errorf("expected broken pdf to fail while parsing, got %q %q", s.Status, s.Phase)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := newTestOrchestrator(t, cfg, time.Second)
	// Workers are not started, so the queue never drains.

	if err := o.Submit(NewJob("a.txt", []byte("a"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	job := NewJob("b.txt", []byte("b"))
	err := o.Submit(job)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if job.Status() != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", job.Status())
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}

	o.Stop()
	if err := o.Submit(NewJob("c.txt", nil)); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped after Stop, got %v", err)
	}
}

func TestOrchestrator_PoolSizeFollowsModelInstances(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerCount = 8
	cfg.ModelShared = false
	cfg.ModelInstances = 2
	o := newTestOrchestrator(t, cfg, time.Second)
	if o.Workers() != 2 {
		t.Errorf("expected 2 worker slots, got %d", o.Workers())
	}
}

func TestOrchestrator_EnqueueWaitsForRoom(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := newTestOrchestrator(t, cfg, time.Second)
	o.Start(context.Background())
	t.Cleanup(o.Stop)

	var jobs []*Job
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		j := NewJob(name, []byte("SECTION ONE\nbody text line\n"))
		if err := o.Enqueue(context.Background(), j); err != nil {
			t.Fatalf("unexpected enqueue error: %v", err)
		}
		jobs = append(jobs, j)
	}
	waitAll(t, jobs)
	for _, j := range jobs {
		if j.Status() != StatusCompleted {
			t.Errorf("%s: expected completed, got %q", j.Filename, j.Status())
		}
	}
}
