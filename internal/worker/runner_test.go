package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"refnet/internal/core"
	"refnet/internal/queue"
	"refnet/internal/xerrors"
)

type fakeQueueRepo struct {
	items  []*core.QueueItem
	nextID int64
}

func (f *fakeQueueRepo) Enqueue(ctx context.Context, item core.QueueItem) (int64, error) {
	f.nextID++
	item.ID = f.nextID
	item.Status = core.QueuePending
	f.items = append(f.items, &item)
	return item.ID, nil
}

func (f *fakeQueueRepo) Claim(ctx context.Context, stage core.Stage, workerID string) (*core.QueueItem, error) {
	for _, it := range f.items {
		if it.TaskType == stage && it.Status == core.QueuePending {
			it.Status = core.QueueRunning
			it.WorkerID = workerID
			return it, nil
		}
	}
	return nil, nil
}

func (f *fakeQueueRepo) Complete(ctx context.Context, id int64, status core.QueueStatus, errMsg string, execTime time.Duration) error {
	for _, it := range f.items {
		if it.ID == id {
			it.Status = status
			it.ErrorMessage = errMsg
			return nil
		}
	}
	return nil
}

func (f *fakeQueueRepo) Reclaim(ctx context.Context, leaseBound time.Duration) (int, int, error) {
	return 0, 0, nil
}
func (f *fakeQueueRepo) PurgeTerminal(ctx context.Context, retention time.Duration) (int, error) {
	return 0, nil
}
func (f *fakeQueueRepo) ListPendingPaperIDs(ctx context.Context, stage core.Stage, status string, limit int) ([]string, error) {
	return nil, nil
}
func (f *fakeQueueRepo) ListGenerateReadyPaperIDs(ctx context.Context, limit int) ([]string, error) {
	return nil, nil
}

type countingHandler struct {
	calls int32
	fail  error
}

func (h *countingHandler) Handle(ctx context.Context, item *core.QueueItem) error {
	atomic.AddInt32(&h.calls, 1)
	return h.fail
}

func TestRunnerCompletesSuccessfulJob(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := queue.New(repo, queue.Config{})
	_, _ = q.Enqueue(context.Background(), "paper-1", core.StageCrawl, 50, nil)

	h := &countingHandler{}
	r := New(Config{Stage: core.StageCrawl, Concurrency: 1, PollJitter: 5 * time.Millisecond}, q, h, xerrors.DefaultRetryPolicy())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	if repo.items[0].Status != core.QueueCompleted {
		t.Errorf("expected job to complete, got status %s", repo.items[0].Status)
	}
	if atomic.LoadInt32(&h.calls) != 1 {
		t.Errorf("expected handler called once, got %d", h.calls)
	}
}

func TestRunnerFailsPermanentErrorWithoutRetry(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := queue.New(repo, queue.Config{})
	_, _ = q.Enqueue(context.Background(), "paper-1", core.StageCrawl, 50, nil)

	h := &countingHandler{fail: xerrors.Wrap(xerrors.ErrNotFound, "no such paper")}
	r := New(Config{Stage: core.StageCrawl, Concurrency: 1, PollJitter: 5 * time.Millisecond}, q, h, xerrors.DefaultRetryPolicy())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	if repo.items[0].Status != core.QueueFailed {
		t.Errorf("expected job to fail, got status %s", repo.items[0].Status)
	}
	if atomic.LoadInt32(&h.calls) != 1 {
		t.Errorf("expected a permanent error to not be retried, got %d calls", h.calls)
	}
}

func TestRunnerRetriesTransientError(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := queue.New(repo, queue.Config{})
	_, _ = q.Enqueue(context.Background(), "paper-1", core.StageCrawl, 50, nil)

	h := &countingHandler{fail: xerrors.Wrap(xerrors.ErrTransient, "connection reset")}
	retry := xerrors.RetryPolicy{MaxAttempts: 3, BackoffBase: time.Millisecond, BackoffMax: 5 * time.Millisecond}
	r := New(Config{Stage: core.StageCrawl, Concurrency: 1, PollJitter: 5 * time.Millisecond}, q, h, retry)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	if atomic.LoadInt32(&h.calls) < 2 {
		t.Errorf("expected a transient error to be retried at least once, got %d calls", h.calls)
	}
	if repo.items[0].Status != core.QueueFailed {
		t.Errorf("expected job to end failed after exhausting retries, got status %s", repo.items[0].Status)
	}
}

func TestRunnerStopsOnContextCancellation(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := queue.New(repo, queue.Config{})
	h := &countingHandler{}
	r := New(Config{Stage: core.StageCrawl, Concurrency: 2, PollJitter: time.Millisecond}, q, h, xerrors.DefaultRetryPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after context cancellation")
	}
}
