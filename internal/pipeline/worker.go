package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docoutline/internal/metrics"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
)

// Worker processes one document at a time.
type Worker struct {
	extractor *outline.Extractor
	parseOpts parser.Options
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewWorker(ex *outline.Extractor, opts parser.Options, log *slog.Logger) *Worker {
	return &Worker{
		extractor: ex,
		parseOpts: opts,
		metrics:   metrics.Get(),
		log:       log,
	}
}

// Process parses the job's file and extracts its outline. Failures are
// recorded on the job and never escape to sibling jobs.
func (w *Worker) Process(ctx context.Context, job *Job) {
	start := time.Now()
	log := w.log.With("job_id", job.ID, "doc", job.Filename)
	if job.BatchID != "" {
		log = log.With("batch_id", job.BatchID)
	}

	job.SetStatus(StatusParsing, "parsing")
	doc, err := parser.ParseBytes(job.FileData(), job.Filename, w.parseOpts)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.Fail("parsing", fmt.Errorf("parse: %w", err))
		w.metrics.RecordDocument("none", string(StatusFailed), 0)
		return
	}
	job.setHash(doc.Hash)

	job.SetStatus(StatusDetecting, "detecting")
	res, err := w.extractor.Extract(ctx, doc)
	if err != nil {
		log.Error("outline extraction failed", "error", err)
		job.Fail("detecting", err)
		w.metrics.RecordDocument("none", string(StatusFailed), 0)
		return
	}

	job.Complete(res)
	elapsed := time.Since(start)
	w.metrics.RecordDocument(res.State.Tier.String(), string(StatusCompleted), elapsed.Seconds())
	log.Info("document completed",
		"tier", res.State.Tier.String(),
		"headings", res.Headings,
		"level_skips", res.LevelSkips,
		"cached", res.Cached,
		"duration_ms", elapsed.Milliseconds(),
	)
}
