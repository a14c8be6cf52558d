package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studydeck-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studydeck-backend/internal/domain"
)

func TestRunTrackerWaitDrainsAndRefusesNewRuns(t *testing.T) {
	tr := NewRunTracker()
	a, b := uuid.New(), uuid.New()
	require.True(t, tr.Begin(a))
	require.True(t, tr.Begin(b))
	assert.True(t, tr.Running(a))
	assert.ElementsMatch(t, []uuid.UUID{a, b}, tr.Active())

	tr.End(b)
	tr.End(b)
	assert.False(t, tr.Running(b))

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Wait(short), context.DeadlineExceeded)
	assert.False(t, tr.Begin(uuid.New()))

	done := make(chan error, 1)
	go func() { done <- tr.Wait(context.Background()) }()
	tr.End(a)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the last run ended")
	}
	assert.Empty(t, tr.Active())
}

func TestNilRunTracker(t *testing.T) {
	var tr *RunTracker
	assert.True(t, tr.Begin(uuid.New()))
	tr.End(uuid.New())
	assert.False(t, tr.Running(uuid.New()))
	assert.NoError(t, tr.Wait(context.Background()))
}

func TestHeartbeatKeepsJobFresh(t *testing.T) {
	h := newHarness(t, 1, 1)
	user := uuid.New()
	h.fund(user, 10)
	doc := seedJobDoc(h, user)
	job, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 5})
	require.NoError(t, err)
	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, h.set.Jobs.UpdateFields(h.dbc(), job.ID, map[string]interface{}{"updated_at": old}))

	stop := startHeartbeat(h.ctx, testutil.Logger(t), h.set.Jobs, job.ID, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		got, err := h.set.Jobs.GetByID(h.dbc(), job.ID)
		return err == nil && got != nil && got.UpdatedAt.After(old.Add(30*time.Minute))
	}, time.Second, 10*time.Millisecond)
	stop()

	n, err := h.jobs.ReclaimStale(h.dbc(), 10*time.Minute, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, types.JobProcessing, h.job(job.ID).Status)
}

func TestSweepStaleReclaimsOnStartup(t *testing.T) {
	h := newHarness(t, 1, 1)
	user := uuid.New()
	h.fund(user, 20)
	doc := seedJobDoc(h, user)
	job, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 15})
	require.NoError(t, err)
	require.NoError(t, h.set.Jobs.UpdateFields(h.dbc(), job.ID, map[string]interface{}{"updated_at": time.Now().UTC().Add(-time.Hour)}))
	assert.Equal(t, 5, h.balance(user))

	ctx, cancel := context.WithCancel(h.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		SweepStale(ctx, testutil.Logger(t), h.jobs, h.runs, 10*time.Minute, time.Hour)
	}()
	require.Eventually(t, func() bool {
		got, err := h.set.Jobs.GetByID(h.dbc(), job.ID)
		return err == nil && got != nil && got.Status == types.JobRefunded
	}, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 20, h.balance(user))
}
