package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"kbase/internal/domain"
)

// Ingester is the part of the knowledge base a batch job writes to.
type Ingester interface {
	Ingest(docs ...domain.Document) (domain.AddResult, error)
	ExistingSources() map[string]struct{}
}

// Status is the lifecycle state of a Job.
type Status int

const (
	StatusRunning Status = iota
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Report describes a batch job. Counts are in files except Chunks.
type Report struct {
	JobID     string         `json:"job_id"`
	Total     int            `json:"total"`
	Processed int            `json:"processed"`
	Added     int            `json:"added"`
	Skipped   int            `json:"skipped"`
	Empty     int            `json:"empty"`
	Failed    int            `json:"failed"`
	Chunks    int            `json:"chunks"`
	Errors    []string       `json:"errors,omitempty"`
	Cancelled bool           `json:"cancelled"`
	ByType    map[string]int `json:"by_type"`
	Elapsed   time.Duration  `json:"elapsed"`
}

// Job is a running or finished batch.
type Job struct {
	ID string

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status Status
	report Report
}

// Cancel asks the job to stop before its next file. The file being
// processed, if any, is completed first.
func (j *Job) Cancel() { j.cancel() }

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes and returns its final report.
func (j *Job) Wait() Report {
	<-j.done
	return j.Progress()
}

// Status reports the lifecycle state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Progress returns a copy of the report so far.
func (j *Job) Progress() Report {
	j.mu.Lock()
	defer j.mu.Unlock()
	r := j.report
	r.Errors = append([]string(nil), j.report.Errors...)
	r.ByType = make(map[string]int, len(j.report.ByType))
	for k, v := range j.report.ByType {
		r.ByType[k] = v
	}
	return r
}

func (j *Job) update(fn func(r *Report)) {
	j.mu.Lock()
	fn(&j.report)
	j.mu.Unlock()
}

// Runner executes batch ingestion jobs, one at a time.
type Runner struct {
	kb      Ingester
	loaders *Registry
	log     *slog.Logger
	sem     *semaphore.Weighted
}

func NewRunner(kb Ingester, loaders *Registry, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{kb: kb, loaders: loaders, log: log, sem: semaphore.NewWeighted(1)}
}

// Start discovers the files under paths and ingests them in the background.
// It fails with domain.ErrJobRunning while another job is active.
func (r *Runner) Start(ctx context.Context, paths []string) (*Job, error) {
	if !r.sem.TryAcquire(1) {
		return nil, domain.ErrJobRunning
	}
	files, err := Discover(paths, r.loaders.Extensions())
	if err != nil {
		r.sem.Release(1)
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
		report: Report{Total: len(files), ByType: make(map[string]int)},
	}
	job.report.JobID = job.ID
	r.log.Info("batch started", "job", job.ID, "files", len(files))

	go func() {
		defer close(job.done)
		defer r.sem.Release(1)
		defer cancel()
		r.run(ctx, job, files)
	}()
	return job, nil
}

func (r *Runner) run(ctx context.Context, job *Job, files []string) {
	start := time.Now()
	existing := r.kb.ExistingSources()
	status := StatusCompleted

	for _, path := range files {
		if ctx.Err() != nil {
			status = StatusCancelled
			break
		}
		// A started file always runs to completion.
		out := r.ingestFile(context.WithoutCancel(ctx), path, existing)
		job.update(out.apply)
	}

	job.mu.Lock()
	job.status = status
	job.report.Cancelled = status == StatusCancelled
	job.report.Elapsed = time.Since(start)
	rep := job.report
	job.mu.Unlock()

	r.log.Info("batch finished", "job", job.ID, "status", status,
		"processed", rep.Processed, "total", rep.Total, "added", rep.Added,
		"skipped", rep.Skipped, "failed", rep.Failed, "chunks", rep.Chunks)
}

// IngestFile loads and ingests a single file outside of a batch.
func (r *Runner) IngestFile(ctx context.Context, path string) (FileOutcome, error) {
	out := r.ingestFile(ctx, path, r.kb.ExistingSources())
	return out, out.Err
}

type outcome int

const (
	outcomeAdded outcome = iota
	outcomeSkipped
	outcomeEmpty
	outcomeFailed
)

// FileOutcome is the result of ingesting one file.
type FileOutcome struct {
	Path   string
	Kind   string
	Chunks int
	Err    error

	result outcome
}

// Skipped reports whether the file's source was already stored.
func (o FileOutcome) Skipped() bool { return o.result == outcomeSkipped }

func (o FileOutcome) apply(rep *Report) {
	rep.Processed++
	switch o.result {
	case outcomeAdded:
		rep.Added++
		rep.Chunks += o.Chunks
		rep.ByType[o.Kind]++
	case outcomeSkipped:
		rep.Skipped++
	case outcomeEmpty:
		rep.Empty++
	case outcomeFailed:
		rep.Failed++
		rep.Errors = append(rep.Errors, o.Err.Error())
	}
}

func (r *Runner) ingestFile(ctx context.Context, path string, existing map[string]struct{}) FileOutcome {
	out := FileOutcome{Path: path}
	loader, err := r.loaders.For(path)
	if err != nil {
		out.result, out.Err = outcomeFailed, err
		return out
	}
	out.Kind = loader.Kind()

	source := SourceKey(path)
	if _, ok := existing[source]; ok {
		r.log.Debug("file already ingested", "path", path)
		out.result = outcomeSkipped
		return out
	}

	docs, err := loader.Load(ctx, path)
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		r.log.Warn("file has no content", "path", path)
		out.result = outcomeEmpty
		return out
	case err != nil:
		r.log.Error("load failed", "path", path, "error", err)
		out.result, out.Err = outcomeFailed, err
		return out
	}

	res, err := r.kb.Ingest(docs...)
	if err != nil {
		r.log.Error("ingest failed", "path", path, "error", err)
		out.result, out.Err = outcomeFailed, fmt.Errorf("%s: %w", path, err)
		return out
	}
	existing[source] = struct{}{}
	if res.Added == 0 {
		out.result = outcomeSkipped
		return out
	}
	out.result, out.Chunks = outcomeAdded, res.Added
	r.log.Info("file ingested", "path", path, "type", out.Kind, "chunks", res.Added)
	return out
}
