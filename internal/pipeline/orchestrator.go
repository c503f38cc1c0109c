package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned by Submit when the job queue has no room.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("pipeline stopped")
)

// Orchestrator runs outline jobs on a bounded pool of worker slots. Workers
// share the Extractor; every document gets its own tier state and
// aggregation context.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	extractor *outline.Extractor
	parseOpts parser.Options
	log       *slog.Logger
	workers   int

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. The pool size follows
// cfg.PoolSize.
func NewOrchestrator(cfg config.Config, ex *outline.Extractor, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		queue:     make(chan *Job, max(cfg.MaxQueueSize, 1)),
		extractor: ex,
		parseOpts: parser.Options{PDFFallbackRSC: cfg.PDFFallbackRSC},
		log:       log,
		workers:   max(cfg.PoolSize(), 1),
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.extractor, o.parseOpts, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels in-flight work and waits for the workers to exit. Jobs still
// queued are failed.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.mu.Unlock()

	o.wg.Wait()
	for job := range o.queue {
		job.Fail("queued", ErrStopped)
	}
}

// Submit queues a job without blocking.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		err := fmt.Errorf("%w (%d)", ErrQueueFull, cap(o.queue))
		job.Fail("queued", err)
		return err
	}
}

// Enqueue queues a job, waiting for room in the queue.
func (o *Orchestrator) Enqueue(ctx context.Context, job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	case <-ctx.Done():
		job.Fail("queued", ctx.Err())
		return ctx.Err()
	}
}

// File is one document of a batch submission.
type File struct {
	Name string
	Data []byte
}

// SubmitBatch queues every file under one batch ID. A file that cannot be
// queued fails on its own; the rest of the batch proceeds.
func (o *Orchestrator) SubmitBatch(files []File) (string, []*Job) {
	batchID := uuid.NewString()
	jobs := make([]*Job, 0, len(files))
	for _, f := range files {
		job := NewJob(f.Name, f.Data)
		job.BatchID = batchID
		if err := o.Submit(job); err != nil {
			o.log.Warn("batch job not queued", "batch_id", batchID, "filename", f.Name, "error", err)
		}
		jobs = append(jobs, job)
	}
	return batchID, jobs
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Batch returns the jobs submitted under a batch ID.
func (o *Orchestrator) Batch(id string) []*Job {
	return o.jobs.Batch(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Workers returns the number of worker slots.
func (o *Orchestrator) Workers() int {
	return o.workers
}
