// Package minutes generates meeting minutes from transcripts. Jobs are
// enqueued by the REST boundary and processed by a background worker so the
// request path never waits on the language model.
package minutes

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/metrics"
)

// Job is one minutes-generation request.
type Job struct {
	ID          uuid.UUID
	MeetingID   string
	RequestedBy string
	Transcript  string
}

// Summarizer turns a raw transcript into minutes text.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Store records job outcomes.
type Store interface {
	Complete(ctx context.Context, id uuid.UUID, summary string) error
	Fail(ctx context.Context, id uuid.UUID) error
}

// Queue hands jobs from the REST boundary to the worker. Enqueue never
// blocks; a full queue rejects the job so the caller can report it.
type Queue struct {
	ch chan Job
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 32
	}
	return &Queue{ch: make(chan Job, size)}
}

// Enqueue submits a job. Reports false when the queue is full.
func (q *Queue) Enqueue(job Job) bool {
	select {
	case q.ch <- job:
		return true
	default:
		return false
	}
}

func (q *Queue) Len() int {
	return len(q.ch)
}

// Worker drains the queue, summarizes transcripts, and records outcomes.
type Worker struct {
	queue *Queue
	sum   Summarizer
	store Store
	met   *metrics.Metrics
	log   *zap.Logger
}

func NewWorker(queue *Queue, sum Summarizer, store Store, met *metrics.Metrics, log *zap.Logger) *Worker {
	return &Worker{queue: queue, sum: sum, store: store, met: met, log: log}
}

// Run processes jobs until ctx is cancelled. Jobs still queued at shutdown
// stay pending in the database and can be rerun.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case job := <-w.queue.ch:
			w.process(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	log := w.log.With(
		zap.String("job", job.ID.String()),
		zap.String("meeting", job.MeetingID))

	summary, err := w.sum.Summarize(ctx, job.Transcript)
	if err != nil {
		log.Warn("summarization failed", zap.Error(err))
		if ferr := w.store.Fail(ctx, job.ID); ferr != nil {
			log.Error("mark job failed", zap.Error(ferr))
		}
		if w.met != nil {
			w.met.MinutesJobs.WithLabelValues("failed").Inc()
		}
		return
	}

	if err := w.store.Complete(ctx, job.ID, summary); err != nil {
		log.Error("store summary", zap.Error(err))
		if w.met != nil {
			w.met.MinutesJobs.WithLabelValues("failed").Inc()
		}
		return
	}
	if w.met != nil {
		w.met.MinutesJobs.WithLabelValues("done").Inc()
	}
	log.Info("minutes generated", zap.Int("summary_bytes", len(summary)))
}
