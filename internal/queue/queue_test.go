package queue

import (
	"context"
	"testing"
	"time"

	"refnet/internal/core"
)

// fakeQueueRepo is an in-memory stand-in for persistence.QueueRepository,
// just enough to exercise Queue's defaulting and delegation.
type fakeQueueRepo struct {
	items      []*core.QueueItem
	nextID     int64
	leaseBound time.Duration
}

func (f *fakeQueueRepo) Enqueue(ctx context.Context, item core.QueueItem) (int64, error) {
	for _, existing := range f.items {
		if existing.PaperID == item.PaperID && existing.TaskType == item.TaskType && !existing.Status.IsTerminal() {
			if item.Priority > existing.Priority {
				existing.Priority = item.Priority
			}
			return existing.ID, nil
		}
	}
	f.nextID++
	item.ID = f.nextID
	item.Status = core.QueuePending
	item.MaxRetries = item.MaxRetries
	f.items = append(f.items, &item)
	return item.ID, nil
}

func (f *fakeQueueRepo) Claim(ctx context.Context, stage core.Stage, workerID string) (*core.QueueItem, error) {
	var best *core.QueueItem
	for _, it := range f.items {
		if it.TaskType != stage || it.Status != core.QueuePending {
			continue
		}
		if best == nil || it.Priority > best.Priority {
			best = it
		}
	}
	if best == nil {
		return nil, nil
	}
	best.Status = core.QueueRunning
	best.WorkerID = workerID
	return best, nil
}

func (f *fakeQueueRepo) Complete(ctx context.Context, id int64, status core.QueueStatus, errMsg string, execTime time.Duration) error {
	for _, it := range f.items {
		if it.ID == id {
			it.Status = status
			it.ErrorMessage = errMsg
			it.ExecutionTime = execTime
			return nil
		}
	}
	return nil
}

func (f *fakeQueueRepo) Reclaim(ctx context.Context, leaseBound time.Duration) (int, int, error) {
	f.leaseBound = leaseBound
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

func TestEnqueueIdempotentRaisesMaxPriority(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := New(repo, Config{})

	id1, err := q.Enqueue(context.Background(), "paper-x", core.StageCrawl, 40, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := q.Enqueue(context.Background(), "paper-x", core.StageCrawl, 80, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected the same queue row id, got %d and %d", id1, id2)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected exactly one queue row, got %d", len(repo.items))
	}
	if repo.items[0].Priority != 80 {
		t.Errorf("expected priority raised to 80, got %d", repo.items[0].Priority)
	}
}

func TestClaimPicksHighestPriority(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := New(repo, Config{})

	_, _ = q.Enqueue(context.Background(), "paper-low", core.StageCrawl, 20, nil)
	_, _ = q.Enqueue(context.Background(), "paper-high", core.StageCrawl, 90, nil)

	item, err := q.Claim(context.Background(), core.StageCrawl, "worker-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item == nil || item.PaperID != "paper-high" {
		t.Fatalf("expected to claim paper-high, got %+v", item)
	}
	if item.Status != core.QueueRunning {
		t.Errorf("expected claimed item to be running, got %s", item.Status)
	}
}

func TestNewDefaultsApplied(t *testing.T) {
	q := New(&fakeQueueRepo{}, Config{})
	if q.maxRetries != 5 {
		t.Errorf("expected default max retries 5, got %d", q.maxRetries)
	}
	if q.lease != 60*time.Minute {
		t.Errorf("expected default lease 60m, got %s", q.lease)
	}
	if q.retention != 30*24*time.Hour {
		t.Errorf("expected default retention 30d, got %s", q.retention)
	}
}

func TestReclaimPassesConfiguredLease(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := New(repo, Config{Lease: 10 * time.Minute})
	if _, _, err := q.Reclaim(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.leaseBound != 10*time.Minute {
		t.Errorf("expected lease bound 10m, got %s", repo.leaseBound)
	}
}
