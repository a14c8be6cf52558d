package services

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	"github.com/yungbote/studydeck-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/domain/jobs"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
)

func seedJobDoc(h *harness, owner uuid.UUID) *types.Document {
	return testutil.SeedDocument(h.t, h.ctx, h.db, owner, Fingerprint([]byte(uuid.NewString())), types.DocumentProcessing)
}

func TestCreateAndReserveOneActiveJobPerDocument(t *testing.T) {
	h := newHarness(t, 1, 1)
	user := uuid.New()
	h.fund(user, 100)
	doc := seedJobDoc(h, user)

	job, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 30})
	require.NoError(t, err)
	assert.Equal(t, types.JobProcessing, job.Status)
	assert.NotNil(t, job.DeductedAt)
	assert.Equal(t, 70, h.balance(user))

	_, err = h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 30})
	assert.ErrorIs(t, err, ErrJobAlreadyActive)
	assert.Equal(t, 70, h.balance(user))
	assert.Equal(t, int64(1), h.jobCount())
}

func TestCreateAndReserveInsufficientLeavesNoJob(t *testing.T) {
	h := newHarness(t, 1, 1)
	user := uuid.New()
	h.fund(user, 100)
	doc := seedJobDoc(h, user)

	_, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 131})
	var insufficient *InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(0), h.jobCount())
	assert.Equal(t, 100, h.balance(user))
}

func TestResolveFailureRefundsExactlyOnce(t *testing.T) {
	h := newHarness(t, 1, 1)
	user := uuid.New()
	h.fund(user, 100)
	doc := seedJobDoc(h, user)

	job, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 40})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.jobs.ResolveFailure(h.dbc(), job.ID, errModelDown); err != nil {
				t.Errorf("resolve failure: %v", err)
			}
		}()
	}
	wg.Wait()

	got := h.job(job.ID)
	assert.Equal(t, types.JobRefunded, got.Status)
	assert.NotNil(t, got.RefundedAt)
	assert.Contains(t, got.Error, errModelDown.Error())
	assert.Equal(t, 100, h.balance(user))

	refunds, err := h.set.Transactions.CountByJob(h.dbc(), job.ID, types.CreditRefund)
	require.NoError(t, err)
	assert.Equal(t, int64(1), refunds)

	d, err := h.set.Documents.GetByID(h.dbc(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DocumentFailed, d.Status)
}

func TestResolveSuccessReconciles(t *testing.T) {
	cases := []struct {
		name        string
		funds       int
		actual      int
		wantBalance int
		wantUnpaid  bool
		wantRefund  bool
	}{
		{name: "exact", funds: 100, actual: 50, wantBalance: 50},
		{name: "refund difference", funds: 100, actual: 42, wantBalance: 58, wantRefund: true},
		{name: "charge adjustment", funds: 100, actual: 59, wantBalance: 41},
		{name: "adjustment unpaid", funds: 52, actual: 59, wantBalance: 2, wantUnpaid: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, 1, 1)
			user := uuid.New()
			h.fund(user, tc.funds)
			doc := seedJobDoc(h, user)

			job, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 50})
			require.NoError(t, err)
			done, err := h.jobs.ResolveSuccess(h.dbc(), job.ID, Outcome{ActualCredits: tc.actual, PromptTokens: 10, CompletionTokens: 5})
			require.NoError(t, err)

			assert.Equal(t, types.JobCompleted, done.Status)
			require.NotNil(t, done.ActualCredits)
			assert.Equal(t, tc.actual, *done.ActualCredits)
			assert.Equal(t, tc.wantBalance, h.balance(user))
			assert.Equal(t, tc.wantRefund, done.RefundedAt != nil)

			stored := h.job(job.ID)
			assert.Equal(t, tc.wantUnpaid, containsKey(stored.Metadata, "unpaid_adjustment"))
			assert.Equal(t, 10, stored.PromptTokens)

			d, err := h.set.Documents.GetByID(h.dbc(), doc.ID)
			require.NoError(t, err)
			assert.Equal(t, types.DocumentCompleted, d.Status)

			rec, err := h.ledger.Reconstruct(h.dbc(), user)
			require.NoError(t, err)
			assert.True(t, rec.Consistent, "mismatches: %v", rec.Mismatches)

			// Resolving twice changes nothing.
			_, err = h.jobs.ResolveSuccess(h.dbc(), job.ID, Outcome{ActualCredits: 1})
			require.NoError(t, err)
			assert.Equal(t, tc.wantBalance, h.balance(user))
		})
	}
}

func TestCompletedJobCannotFail(t *testing.T) {
	h := newHarness(t, 1, 1)
	user := uuid.New()
	h.fund(user, 10)
	doc := seedJobDoc(h, user)

	job, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 5})
	require.NoError(t, err)
	_, err = h.jobs.ResolveSuccess(h.dbc(), job.ID, Outcome{ActualCredits: 5})
	require.NoError(t, err)

	_, err = h.jobs.ResolveFailure(h.dbc(), job.ID, errors.New("late"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 5, h.balance(user))
}

func TestRegenerationFailureLeavesDocument(t *testing.T) {
	h := newHarness(t, 1, 1)
	user := uuid.New()
	h.fund(user, 10)
	doc := testutil.SeedDocument(t, h.ctx, h.db, user, "fp-regen", types.DocumentCompleted)

	job, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{
		DocumentID: doc.ID, UserID: user, Kind: jobs.KindRegenerateFlashcards,
		Estimate: 2, LedgerKind: types.CreditGeneration,
	})
	require.NoError(t, err)
	_, err = h.jobs.ResolveFailure(h.dbc(), job.ID, errModelDown)
	require.NoError(t, err)

	d, err := h.set.Documents.GetByID(h.dbc(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DocumentCompleted, d.Status)
	assert.Equal(t, 10, h.balance(user))
}

func TestRecordProgressIgnoresFinishedJobs(t *testing.T) {
	h := newHarness(t, 1, 1)
	user := uuid.New()
	h.fund(user, 10)
	doc := seedJobDoc(h, user)

	job, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 5})
	require.NoError(t, err)
	require.NoError(t, h.jobs.RecordProgress(h.dbc(), job.ID, jobs.StageTopics, 150))
	assert.Equal(t, 100, h.job(job.ID).Progress)

	_, err = h.jobs.ResolveFailure(h.dbc(), job.ID, errModelDown)
	require.NoError(t, err)
	require.NoError(t, h.jobs.RecordProgress(h.dbc(), job.ID, jobs.StageTopics, 10))
	assert.Equal(t, jobs.StageFailed, h.job(job.ID).Stage)
}

// lateJobs lets another resolver move the job to won just before the
// failing transition runs.
type lateJobs struct {
	repos.ProcessingJobRepo
	won types.JobStatus
}

func (r *lateJobs) Transition(dbc dbctx.Context, id uuid.UUID, from, to types.JobStatus, updates map[string]interface{}) (bool, error) {
	if to == types.JobFailed && r.won != "" {
		if err := r.ProcessingJobRepo.UpdateFields(dbc, id, map[string]interface{}{"status": r.won}); err != nil {
			return false, err
		}
		r.won = ""
	}
	return r.ProcessingJobRepo.Transition(dbc, id, from, to, updates)
}

func TestResolveFailureLosingRaceIsNoop(t *testing.T) {
	for _, won := range []types.JobStatus{types.JobFailed, types.JobRefunded} {
		t.Run(string(won), func(t *testing.T) {
			h := newHarness(t, 1, 1)
			user := uuid.New()
			h.fund(user, 100)
			doc := seedJobDoc(h, user)

			job, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 40})
			require.NoError(t, err)

			racing := &lateJobs{ProcessingJobRepo: h.set.Jobs, won: won}
			svc := NewProcessingJobService(h.db, testutil.Logger(t), racing, h.set.Documents, h.ledger, NewJobNotifier(nil))
			got, err := svc.ResolveFailure(h.dbc(), job.ID, errModelDown)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, won, got.Status)

			// The winner owns the refund.
			refunds, err := h.set.Transactions.CountByJob(h.dbc(), job.ID, types.CreditRefund)
			require.NoError(t, err)
			assert.Equal(t, int64(0), refunds)
			assert.Equal(t, 60, h.balance(user))
		})
	}
}

func TestReclaimStaleRefundsAbandonedJobs(t *testing.T) {
	h := newHarness(t, 1, 1)
	user := uuid.New()
	h.fund(user, 100)

	reserve := func() (*types.Document, *types.ProcessingJob) {
		doc := seedJobDoc(h, user)
		job, err := h.jobs.CreateAndReserve(h.dbc(), JobSpec{DocumentID: doc.ID, UserID: user, Estimate: 10})
		require.NoError(t, err)
		return doc, job
	}
	backdate := func(id uuid.UUID) {
		require.NoError(t, h.set.Jobs.UpdateFields(h.dbc(), id, map[string]interface{}{"updated_at": time.Now().UTC().Add(-time.Hour)}))
	}
	abandonedDoc, abandoned := reserve()
	_, running := reserve()
	_, fresh := reserve()
	backdate(abandoned.ID)
	backdate(running.ID)
	assert.Equal(t, 70, h.balance(user))

	require.True(t, h.runs.Begin(running.ID))
	defer h.runs.End(running.ID)

	n, err := h.jobs.ReclaimStale(h.dbc(), 10*time.Minute, h.runs.Running)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := h.job(abandoned.ID)
	assert.Equal(t, types.JobRefunded, got.Status)
	assert.Contains(t, got.Error, ErrJobAbandoned.Error())
	assert.Equal(t, types.JobProcessing, h.job(running.ID).Status)
	assert.Equal(t, types.JobProcessing, h.job(fresh.ID).Status)
	assert.Equal(t, 80, h.balance(user))

	d, err := h.set.Documents.GetByID(h.dbc(), abandonedDoc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DocumentFailed, d.Status)
	active, err := h.set.Jobs.GetActiveForDocument(h.dbc(), abandonedDoc.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	// A second sweep finds nothing new.
	n, err = h.jobs.ReclaimStale(h.dbc(), 10*time.Minute, h.runs.Running)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 80, h.balance(user))
}

func TestMergeMetadataKeepsUnreadableInput(t *testing.T) {
	log := testutil.Logger(t)

	got := mergeMetadata(log, datatypes.JSON(`{not json`), map[string]any{"retry": true})
	assert.True(t, containsKey(got, "retry"))
	assert.True(t, containsKey(got, "corrupt_metadata"))

	got = mergeMetadata(log, datatypes.JSON(`null`), map[string]any{"retry": true})
	assert.JSONEq(t, `{"retry":true}`, string(got))

	got = mergeMetadata(log, datatypes.JSON(`{"a":1}`), map[string]any{"b": 2})
	assert.JSONEq(t, `{"a":1,"b":2}`, string(got))
}

func containsKey(raw []byte, key string) bool {
	m := map[string]any{}
	if len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}
