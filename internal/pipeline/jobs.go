package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/google/uuid"
)

// JobStatus represents the state of an outline job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusDetecting JobStatus = "detecting"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single document.
type Job struct {
	mu sync.Mutex

	ID       string
	BatchID  string
	Filename string

	status      JobStatus
	phase       string
	contentHash string
	errMsg      string
	createdAt   time.Time
	updatedAt   time.Time

	fileData []byte
	result   *outline.Result
	done     chan struct{}
	doneOnce sync.Once
}

// NewJob creates a queued job holding the file bytes.
func NewJob(filename string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Filename:  filename,
		status:    StatusQueued,
		phase:     "queued",
		createdAt: now,
		updatedAt: now,
		fileData:  data,
		done:      make(chan struct{}),
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	j.phase = phase
	j.updatedAt = time.Now()
}

// Status returns the current status.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) setHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.contentHash = hash
}

// Complete records the result and releases waiters.
func (j *Job) Complete(res *outline.Result) {
	j.mu.Lock()
	j.result = res
	j.status = StatusCompleted
	j.phase = "done"
	j.fileData = nil
	j.updatedAt = time.Now()
	j.mu.Unlock()
	j.finish()
}

// Fail records a per-document failure and releases waiters.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	j.status = StatusFailed
	j.phase = phase
	j.errMsg = err.Error()
	j.fileData = nil
	j.updatedAt = time.Now()
	j.mu.Unlock()
	j.finish()
}

func (j *Job) finish() {
	j.doneOnce.Do(func() { close(j.done) })
}

// Done is closed when the job completes or fails.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result returns the outline result of a completed job, or nil.
func (j *Job) Result() *outline.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// FileData returns the raw file bytes until the job finishes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string           `json:"job_id"`
	BatchID     string           `json:"batch_id,omitempty"`
	Filename    string           `json:"filename"`
	Status      JobStatus        `json:"status"`
	Phase       string           `json:"phase"`
	ContentHash string           `json:"content_hash,omitempty"`
	Tier        string           `json:"tier,omitempty"`
	TierReason  string           `json:"tier_reason,omitempty"`
	Headings    int              `json:"headings"`
	LevelSkips  int              `json:"level_skips"`
	Cached      bool             `json:"cached"`
	Error       string           `json:"error,omitempty"`
	Outline     *doctree.Outline `json:"result,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := JobSnapshot{
		ID:          j.ID,
		BatchID:     j.BatchID,
		Filename:    j.Filename,
		Status:      j.status,
		Phase:       j.phase,
		ContentHash: j.contentHash,
		Error:       j.errMsg,
		CreatedAt:   j.createdAt,
		UpdatedAt:   j.updatedAt,
	}
	if r := j.result; r != nil {
		out := r.Outline
		snap.Outline = &out
		snap.Tier = r.State.Tier.String()
		snap.TierReason = r.State.Reason
		snap.Headings = r.Headings
		snap.LevelSkips = r.LevelSkips
		snap.Cached = r.Cached
	}
	return snap
}

func (j *Job) finished(now time.Time, ttl time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	terminal := j.status == StatusCompleted || j.status == StatusFailed
	return terminal && now.Sub(j.updatedAt) > ttl
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	batches map[string][]*Job
	ttl     time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs:    make(map[string]*Job),
		batches: make(map[string][]*Job),
		ttl:     ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	if job.BatchID != "" {
		s.batches[job.BatchID] = append(s.batches[job.BatchID], job)
	}
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Batch returns the jobs of a batch in submission order.
func (s *JobStore) Batch(id string) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Job(nil), s.batches[id]...)
}

// Cleanup removes finished jobs older than the TTL. Running jobs are kept.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if !job.finished(now, s.ttl) {
			continue
		}
		delete(s.jobs, id)
		if job.BatchID == "" {
			continue
		}
		rest := s.batches[job.BatchID][:0]
		for _, b := range s.batches[job.BatchID] {
			if b.ID != id {
				rest = append(rest, b)
			}
		}
		if len(rest) == 0 {
			delete(s.batches, job.BatchID)
		} else {
			s.batches[job.BatchID] = rest
		}
	}
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
