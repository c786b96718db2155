package minutes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeSummarizer struct {
	out string
	err error
}

func (s *fakeSummarizer) Summarize(context.Context, string) (string, error) {
	return s.out, s.err
}

type fakeStore struct {
	mu        sync.Mutex
	completed map[uuid.UUID]string
	failed    map[uuid.UUID]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		completed: make(map[uuid.UUID]string),
		failed:    make(map[uuid.UUID]bool),
	}
}

func (s *fakeStore) Complete(_ context.Context, id uuid.UUID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[id] = summary
	return nil
}

func (s *fakeStore) Fail(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = true
	return nil
}

func (s *fakeStore) summaryOf(id uuid.UUID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.completed[id]
	return sum, ok
}

func (s *fakeStore) failedOf(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed[id]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerCompletesJob(t *testing.T) {
	q := NewQueue(4)
	store := newFakeStore()
	w := NewWorker(q, &fakeSummarizer{out: "decisions: ship it"}, store, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	job := Job{ID: uuid.New(), MeetingID: "standup", Transcript: "we talked"}
	if !q.Enqueue(job) {
		t.Fatal("enqueue rejected on empty queue")
	}

	waitFor(t, func() bool {
		_, ok := store.summaryOf(job.ID)
		return ok
	})
	if sum, _ := store.summaryOf(job.ID); sum != "decisions: ship it" {
		t.Fatalf("summary = %q", sum)
	}
}

func TestWorkerMarksFailure(t *testing.T) {
	q := NewQueue(4)
	store := newFakeStore()
	w := NewWorker(q, &fakeSummarizer{err: errors.New("model down")}, store, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	job := Job{ID: uuid.New(), MeetingID: "standup"}
	q.Enqueue(job)

	waitFor(t, func() bool { return store.failedOf(job.ID) })
	if _, ok := store.summaryOf(job.ID); ok {
		t.Fatal("failed job must not record a summary")
	}
}

func TestEnqueueRejectsWhenFull(t *testing.T) {
	q := NewQueue(2)
	if !q.Enqueue(Job{ID: uuid.New()}) || !q.Enqueue(Job{ID: uuid.New()}) {
		t.Fatal("enqueue failed below capacity")
	}
	if q.Enqueue(Job{ID: uuid.New()}) {
		t.Fatal("enqueue must reject when full")
	}
	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
}
