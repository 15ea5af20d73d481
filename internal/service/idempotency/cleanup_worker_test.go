package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var _ domain.IdempotencyRepository = (*fakeExpiryStore)(nil)

func TestCleanupWorker_DeleteExpired_DrainsInBatches(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		batchSize   int
		batches     []int
		wantDeleted int
		wantCalls   int
	}{
		// Последний неполный батч останавливает цикл.
		{name: "three batches", batchSize: 3, batches: []int{3, 3, 2}, wantDeleted: 8, wantCalls: 3},
		{name: "single short batch", batchSize: 10, batches: []int{4}, wantDeleted: 4, wantCalls: 1},
		{name: "nothing expired", batchSize: 5, batches: []int{0}, wantDeleted: 0, wantCalls: 1},
		// Ровные батчи требуют ещё одного вызова, чтобы увидеть пустой хвост.
		{name: "exact multiple", batchSize: 2, batches: []int{2, 2, 0}, wantDeleted: 4, wantCalls: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeExpiryStore{batches: tc.batches}
			worker := NewCleanupWorker(store, WithBatchSize(tc.batchSize))

			deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
			if err != nil {
				t.Fatalf("DeleteExpired failed: %v", err)
			}
			if deleted != tc.wantDeleted {
				t.Fatalf("deleted: got=%d want=%d", deleted, tc.wantDeleted)
			}
			if calls := store.deleteCalls(); calls != tc.wantCalls {
				t.Fatalf("delete calls: got=%d want=%d", calls, tc.wantCalls)
			}
		})
	}
}

func TestCleanupWorker_DeleteExpired_PropagatesCutoff(t *testing.T) {
	t.Parallel()

	cutoff := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeExpiryStore{batches: []int{1}}
	worker := NewCleanupWorker(store, WithBatchSize(50))

	if _, err := worker.DeleteExpired(context.Background(), cutoff); err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if got := store.lastCutoff(); !got.Equal(cutoff) {
		t.Fatalf("cutoff passed to repo: got=%s want=%s", got, cutoff)
	}
}

func TestCleanupWorker_DeleteExpired_StopsOnRepoError(t *testing.T) {
	t.Parallel()

	store := &fakeExpiryStore{
		batches: []int{2, 2},
		failOn:  2,
	}
	worker := NewCleanupWorker(store, WithBatchSize(2))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err == nil {
		t.Fatal("expected error from second batch")
	}
	// Удалённое до ошибки не теряется в счётчике.
	if deleted != 2 {
		t.Fatalf("deleted before failure: got=%d want=2", deleted)
	}
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	store := &fakeExpiryStore{}
	worker := NewCleanupWorker(store, WithInterval(5*time.Millisecond), WithBatchSize(10))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}

	if store.deleteCalls() == 0 {
		t.Fatal("expected at least one cleanup pass before cancel")
	}
}

// fakeExpiryStore отдаёт заранее заданные размеры батчей и падает
// на failOn-м вызове DeleteExpired.
type fakeExpiryStore struct {
	mu      sync.Mutex
	batches []int
	failOn  int
	count   int
	cutoff  time.Time
}

func (f *fakeExpiryStore) DeleteExpired(before time.Time, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.count++
	f.cutoff = before

	if f.failOn > 0 && f.count == f.failOn {
		return 0, errors.New("storage unavailable")
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func (f *fakeExpiryStore) deleteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *fakeExpiryStore) lastCutoff() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cutoff
}

func (f *fakeExpiryStore) CreateProcessing(string, string, time.Time) (domain.IdempotencyRecord, error) {
	panic("not used in cleanup tests")
}

func (f *fakeExpiryStore) Get(string) (domain.IdempotencyRecord, error) {
	panic("not used in cleanup tests")
}

func (f *fakeExpiryStore) MarkDone(string, []byte, int) error {
	panic("not used in cleanup tests")
}

func (f *fakeExpiryStore) MarkFailed(string, []byte, int) error {
	panic("not used in cleanup tests")
}
