// Package refresh keeps the latest derived snapshot current by polling a
// fix source on an interval and on demand.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/prflow/internal/snapshot"
	"github.com/lucasnoah/prflow/internal/source"
)

// Options configures a Refresher. Zero values fall back to defaults.
type Options struct {
	Interval time.Duration   // default 30s
	Timeout  time.Duration   // per-fetch timeout; default 30s
	Store    *snapshot.Store // optional on-disk cache
	Logger   *zap.Logger
	Now      func() time.Time
}

const (
	defaultInterval = 30 * time.Second
	defaultTimeout  = 30 * time.Second
)

// watcher is implemented by sources that can report their own changes.
type watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Refresher polls a Source and keeps the most recent snapshot in memory.
// A failed fetch leaves the previous snapshot in place and is reported by
// LastError until the next successful cycle.
type Refresher struct {
	src      source.Source
	store    *snapshot.Store
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time

	trigger chan struct{}
	cycleMu sync.Mutex // held for the duration of one fetch-derive-store cycle

	mu          sync.RWMutex
	latest      snapshot.Snapshot
	have        bool
	lastErr     error
	lastAttempt time.Time

	runMu   sync.Mutex
	running bool
	runID   uint64 // bumped per Start so a stale loop cannot clear a newer run
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Refresher for src.
func New(src source.Source, opts Options) *Refresher {
	r := &Refresher{
		src:      src,
		store:    opts.Store,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		now:      opts.Now,
		trigger:  make(chan struct{}, 1),
	}
	if r.interval <= 0 {
		r.interval = defaultInterval
	}
	if r.timeout <= 0 {
		r.timeout = defaultTimeout
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.logger = r.logger.With(zap.String("source", src.Name()))
	return r
}

// Start runs the poll loop in the background until ctx is cancelled or Stop
// is called. Calling Start on a running Refresher is a no-op. Once the loop
// has exited, by either route, Start may be called again.
func (r *Refresher) Start(ctx context.Context) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.runID++
	id := r.runID

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(ctx)
		cancel()

		r.runMu.Lock()
		if r.runID == id {
			r.running = false
		}
		r.runMu.Unlock()
	}()
}

// Stop cancels the poll loop and waits for it to exit.
func (r *Refresher) Stop() {
	r.runMu.Lock()
	if !r.running {
		r.runMu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.runMu.Unlock()

	cancel()
	r.wg.Wait()
	r.logger.Debug("refresher stopped")
}

// Run polls until ctx is cancelled. It performs one cycle immediately, then
// one per interval and one per coalesced Trigger. If the source can watch
// itself, changes trigger a cycle too.
func (r *Refresher) Run(ctx context.Context) error {
	r.seed()
	r.logger.Info("refresher started", zap.Duration("interval", r.interval))

	var wg sync.WaitGroup
	defer wg.Wait()
	if w, ok := r.src.(watcher); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Watch(ctx, r.Trigger); err != nil {
				r.logger.Warn("source watch stopped", zap.Error(err))
			}
		}()
	}

	r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Refresh(ctx)
		case <-r.trigger:
			r.Refresh(ctx)
		}
	}
}

// Trigger requests a cycle. Requests made while one is already pending are
// merged into it.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Refresh performs one cycle synchronously and returns the resulting latest
// snapshot. Cycles never overlap: concurrent callers run one after another.
func (r *Refresher) Refresh(ctx context.Context) (snapshot.Snapshot, error) {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	start := r.now()
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	records, err := r.src.Fetch(fetchCtx)
	cancel()

	r.mu.Lock()
	r.lastAttempt = start
	if err != nil {
		r.lastErr = err
		prev := r.latest
		r.mu.Unlock()
		if errors.Is(err, context.Canceled) {
			r.logger.Debug("refresh cancelled")
		} else {
			r.logger.Warn("refresh failed, keeping previous snapshot", zap.Error(err))
		}
		return prev, err
	}
	snap := snapshot.New(r.src.Name(), records, start)
	r.latest = snap
	r.have = true
	r.lastErr = nil
	r.mu.Unlock()

	r.logger.Info("refreshed",
		zap.String("refresh_id", snap.ID),
		zap.Int("fixes", snap.Report.Summary.Total),
		zap.Int("merged", snap.Report.Summary.Merged),
		zap.Int("failed", snap.Report.Summary.Failed),
		zap.Duration("took", r.now().Sub(start)),
	)

	if r.store != nil {
		if err := r.store.Save(snap); err != nil {
			r.logger.Warn("could not cache snapshot", zap.String("path", r.store.Path()), zap.Error(err))
		}
	}
	return snap, nil
}

// seed loads the cached snapshot so the first render does not wait for a fetch.
func (r *Refresher) seed() {
	if r.store == nil {
		return
	}
	snap, err := r.store.Load()
	if err != nil {
		if !errors.Is(err, snapshot.ErrNoSnapshot) {
			r.logger.Warn("ignoring unreadable snapshot cache", zap.Error(err))
		}
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.have {
		r.latest = snap
		r.have = true
	}
}

// Latest returns the most recent snapshot and whether one exists.
func (r *Refresher) Latest() (snapshot.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.have
}

// LastError returns the error of the most recent cycle, or nil if it succeeded.
func (r *Refresher) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// LastAttempt returns when the most recent cycle started.
func (r *Refresher) LastAttempt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastAttempt
}
