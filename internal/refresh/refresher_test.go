package refresh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lucasnoah/prflow/internal/snapshot"
	"github.com/lucasnoah/prflow/internal/source"
	"github.com/lucasnoah/prflow/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource returns records, or err when set. When block is non-nil each
// Fetch waits for it to be closed.
type fakeSource struct {
	mu      sync.Mutex
	records []workflow.RawFixRecord
	err     error
	block   chan struct{}

	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context) ([]workflow.RawFixRecord, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records, f.err
}

func (f *fakeSource) set(records []workflow.RawFixRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records, f.err = records, err
}

func rec(status string) workflow.RawFixRecord {
	return workflow.RawFixRecord{Status: workflow.Text(status)}
}

func TestRefreshStoresSnapshot(t *testing.T) {
	src := &fakeSource{records: []workflow.RawFixRecord{rec("merged"), rec("pending")}}
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "last.json"))
	r := New(src, Options{Store: store})

	_, ok := r.Latest()
	assert.False(t, ok)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fake", snap.Source)
	assert.Equal(t, 2, snap.Report.Summary.Total)

	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, snap.ID, latest.ID)
	assert.NoError(t, r.LastError())
	assert.False(t, r.LastAttempt().IsZero())

	cached, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, snap.ID, cached.ID)
}

func TestRefreshErrorKeepsPrevious(t *testing.T) {
	src := &fakeSource{records: []workflow.RawFixRecord{rec("merged")}}
	r := New(src, Options{})

	first, err := r.Refresh(context.Background())
	require.NoError(t, err)

	boom := errors.New("connection refused")
	src.set(nil, boom)
	got, err := r.Refresh(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, first.ID, got.ID)

	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, first.ID, latest.ID)
	assert.ErrorIs(t, r.LastError(), boom)

	src.set([]workflow.RawFixRecord{rec("reverted")}, nil)
	_, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.NoError(t, r.LastError())
	latest, _ = r.Latest()
	assert.Equal(t, 1, latest.Report.Summary.Failed)
}

func TestRefreshErrorWithoutPrevious(t *testing.T) {
	src := &fakeSource{err: source.ErrUnsuccessful}
	r := New(src, Options{})

	snap, err := r.Refresh(context.Background())
	require.ErrorIs(t, err, source.ErrUnsuccessful)
	assert.True(t, snap.Empty())
	_, ok := r.Latest()
	assert.False(t, ok)
}

func TestRefreshNeverOverlaps(t *testing.T) {
	src := &fakeSource{block: make(chan struct{})}
	r := New(src, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Refresh(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(src.block)
	wg.Wait()

	assert.EqualValues(t, 5, src.calls.Load())
	assert.EqualValues(t, 1, src.maxSeen.Load())
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	src := &fakeSource{records: []workflow.RawFixRecord{rec("merged")}}
	r := New(src, Options{Interval: time.Hour})

	r.Start(context.Background())
	r.Start(context.Background())
	assert.Eventually(t, func() bool {
		_, ok := r.Latest()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	r.Stop()
	assert.EqualValues(t, 1, src.calls.Load())
}

// Cancelling the parent context ends the loop the same way Stop does, so a
// later Start must run again.
func TestStartAfterParentCancel(t *testing.T) {
	src := &fakeSource{}
	r := New(src, Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	require.Eventually(t, func() bool {
		r.Start(context.Background())
		return src.calls.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)
	r.Stop()
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestTriggerCoalesces(t *testing.T) {
	src := &fakeSource{block: make(chan struct{})}
	r := New(src, Options{Interval: time.Hour})
	r.Start(context.Background())
	defer r.Stop()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	for i := 0; i < 5; i++ {
		r.Trigger()
	}
	close(src.block)

	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestIntervalTicks(t *testing.T) {
	src := &fakeSource{}
	r := New(src, Options{Interval: 20 * time.Millisecond})
	r.Start(context.Background())
	defer r.Stop()

	assert.Eventually(t, func() bool { return src.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestContextCancelStopsLoop(t *testing.T) {
	src := &fakeSource{}
	r := New(src, Options{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSeedFromStore(t *testing.T) {
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "last.json"))
	cached := snapshot.New("fake", []workflow.RawFixRecord{rec("merged")}, time.Now())
	require.NoError(t, store.Save(cached))

	src := &fakeSource{block: make(chan struct{})}
	r := New(src, Options{Interval: time.Hour, Store: store})
	r.Start(context.Background())

	require.Eventually(t, func() bool {
		snap, ok := r.Latest()
		return ok && snap.ID == cached.ID
	}, 2*time.Second, 5*time.Millisecond)

	close(src.block)
	require.Eventually(t, func() bool {
		snap, _ := r.Latest()
		return snap.ID != cached.ID
	}, 2*time.Second, 5*time.Millisecond)
	r.Stop()
}

func TestFileSourceChangeTriggersRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	r := New(source.NewFileSource(path), Options{Interval: time.Hour})
	r.Start(context.Background())
	defer r.Stop()

	require.Eventually(t, func() bool {
		_, ok := r.Latest()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	// Let the watcher register the directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`[{"status": "merged"}, {"status": "merged"}]`), 0o644))
	assert.Eventually(t, func() bool {
		snap, _ := r.Latest()
		return snap.Report.Summary.Merged == 2
	}, 5*time.Second, 20*time.Millisecond)
}
