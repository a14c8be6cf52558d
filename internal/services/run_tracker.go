package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	"github.com/yungbote/studydeck-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

// DefaultHeartbeatInterval is how often a running job touches updated_at.
const DefaultHeartbeatInterval = time.Minute

// RunTracker counts the pipeline runs executing in this process so shutdown
// can wait for them and the stale sweep can leave them alone. A nil tracker
// tracks nothing.
type RunTracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	active map[uuid.UUID]struct{}
	closed bool
}

func NewRunTracker() *RunTracker {
	return &RunTracker{active: map[uuid.UUID]struct{}{}}
}

// Begin registers a run. It returns false once Wait has been called.
func (t *RunTracker) Begin(jobID uuid.UUID) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.active[jobID] = struct{}{}
	t.wg.Add(1)
	return true
}

func (t *RunTracker) End(jobID uuid.UUID) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if _, ok := t.active[jobID]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.active, jobID)
	t.mu.Unlock()
	t.wg.Done()
}

func (t *RunTracker) Running(jobID uuid.UUID) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[jobID]
	return ok
}

// Active lists the jobs still running.
func (t *RunTracker) Active() []uuid.UUID {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uuid.UUID, 0, len(t.active))
	for id := range t.active {
		out = append(out, id)
	}
	return out
}

// Wait refuses new runs and blocks until the running ones end or ctx is done.
func (t *RunTracker) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startHeartbeat keeps a running job out of the stale sweep until stop is
// called.
func startHeartbeat(ctx context.Context, log *logger.Logger, jobRepo repos.ProcessingJobRepo, jobID uuid.UUID, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ctx, cancel := context.WithCancel(ctxutil.Detached(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := jobRepo.Heartbeat(dbctx.New(ctx), jobID); err != nil {
					log.Warn("job heartbeat failed", "job_id", jobID, "error", err)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// SweepStale reclaims stale jobs once, then every interval until ctx ends.
// Jobs running in this process are skipped.
func SweepStale(ctx context.Context, log *logger.Logger, jobSvc ProcessingJobService, runs *RunTracker, olderThan, interval time.Duration) {
	if olderThan <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	sweep := func() {
		if _, err := jobSvc.ReclaimStale(dbctx.New(ctx), olderThan, runs.Running); err != nil && ctx.Err() == nil {
			log.Warn("stale job sweep failed", "error", err)
		}
	}
	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
