package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studydeck-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/domain/jobs"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/studydeck-backend/internal/pkg/errors"
)

func TestProcessingJobRepoTransition(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewProcessingJobRepo(db, testutil.Logger(t))

	docID := uuid.New()
	job := &types.ProcessingJob{DocumentID: docID, UserID: uuid.New(), Kind: jobs.KindInitial, EstimatedCredits: 131}
	if err := repo.Create(dbc, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.Status != types.JobPending {
		t.Fatalf("default status: want=pending got=%s", job.Status)
	}

	moved, err := repo.Transition(dbc, job.ID, types.JobPending, types.JobProcessing, map[string]interface{}{"stage": jobs.StageExtract})
	if err != nil || !moved {
		t.Fatalf("Transition pending->processing: moved=%v err=%v", moved, err)
	}
	moved, err = repo.Transition(dbc, job.ID, types.JobPending, types.JobProcessing, nil)
	if err != nil || moved {
		t.Fatalf("Transition from stale status: moved=%v err=%v", moved, err)
	}

	if err := repo.UpdateProgressIfActive(dbc, job.ID, jobs.StageTopics, 60); err != nil {
		t.Fatalf("UpdateProgressIfActive: %v", err)
	}
	if err := repo.UpdateProgressIfActive(dbc, job.ID, jobs.StageExtract, 20); err != nil {
		t.Fatalf("UpdateProgressIfActive regress: %v", err)
	}
	got, err := repo.GetByID(dbc, job.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.Progress != 60 || got.Stage != jobs.StageTopics {
		t.Fatalf("progress: want=60/topics got=%d/%s", got.Progress, got.Stage)
	}

	active, err := repo.GetActiveForDocument(dbc, docID)
	if err != nil || active == nil || active.ID != job.ID {
		t.Fatalf("GetActiveForDocument: got=%v err=%v", active, err)
	}
}

func TestProcessingJobRepoOneActivePerDocument(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.New(context.Background())
	repo := NewProcessingJobRepo(db, testutil.Logger(t))

	docID, userID := uuid.New(), uuid.New()
	first := &types.ProcessingJob{DocumentID: docID, UserID: userID, Kind: jobs.KindInitial}
	if err := repo.Create(dbc, first); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	second := &types.ProcessingJob{DocumentID: docID, UserID: userID, Kind: jobs.KindRegenerateQuestions}
	if err := repo.Create(dbc, second); !apperr.IsUniqueViolation(err) {
		t.Fatalf("Create second active: want unique violation got=%v", err)
	}

	if _, err := repo.Transition(dbc, first.ID, types.JobPending, types.JobFailed, nil); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	third := &types.ProcessingJob{DocumentID: docID, UserID: userID, Kind: jobs.KindRegenerateQuestions}
	if err := repo.Create(dbc, third); err != nil {
		t.Fatalf("Create after first finished: %v", err)
	}
	if n, err := repo.CountByDocument(dbc, docID); err != nil || n != 2 {
		t.Fatalf("CountByDocument: want=2 got=%d err=%v", n, err)
	}
}

func TestProcessingJobRepoListStaleActive(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewProcessingJobRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	stale := &types.ProcessingJob{DocumentID: uuid.New(), UserID: uuid.New(), Kind: jobs.KindInitial, Status: types.JobProcessing}
	fresh := &types.ProcessingJob{DocumentID: uuid.New(), UserID: uuid.New(), Kind: jobs.KindInitial, Status: types.JobProcessing}
	finished := &types.ProcessingJob{DocumentID: uuid.New(), UserID: uuid.New(), Kind: jobs.KindInitial, Status: types.JobCompleted}
	for _, j := range []*types.ProcessingJob{stale, fresh, finished} {
		if err := repo.Create(dbc, j); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	old := now.Add(-2 * time.Hour)
	for _, id := range []uuid.UUID{stale.ID, finished.ID} {
		if err := repo.UpdateFields(dbc, id, map[string]interface{}{"updated_at": old}); err != nil {
			t.Fatalf("UpdateFields: %v", err)
		}
	}

	got, err := repo.ListStaleActive(dbc, now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("ListStaleActive: %v", err)
	}
	if len(got) != 1 || got[0].ID != stale.ID {
		t.Fatalf("ListStaleActive: want=[%s] got=%v", stale.ID, got)
	}

	if err := repo.Heartbeat(dbc, stale.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if err := repo.Heartbeat(dbc, finished.ID); err != nil {
		t.Fatalf("Heartbeat finished: %v", err)
	}
	got, err = repo.ListStaleActive(dbc, now.Add(-time.Hour), 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("after heartbeat: want none got=%v err=%v", got, err)
	}
	done, _ := repo.GetByID(dbc, finished.ID)
	if done == nil || done.UpdatedAt.After(now.Add(-time.Hour)) {
		t.Fatalf("heartbeat touched a finished job: %+v", done)
	}

	n, err := repo.Count(dbc)
	if err != nil || n != 3 {
		t.Fatalf("Count: want=3 got=%d err=%v", n, err)
	}
}
