package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/domain/jobs"
	"github.com/yungbote/studydeck-backend/internal/pricing"
)

func TestDocumentEfficiency(t *testing.T) {
	h := newHarness(t, 3, 20)
	user := uuid.New()
	h.fund(user, 100)

	res, err := h.upload(user, "report me")
	require.NoError(t, err)
	h.usage.Flush()

	rep, err := h.reports.DocumentEfficiency(h.ctx, user, res.DocumentID)
	require.NoError(t, err)

	actual := 20 + 3*pricing.PerTopicCredits + pricing.VocabularyPerDocument
	assert.Equal(t, int64(actual), rep.CreditsCharged)
	assert.Equal(t, 1, rep.Jobs)
	assert.Equal(t, int64(1+3*3+1), rep.Usage.Calls)
	assert.Equal(t, int64(1000)*rep.Usage.Calls, rep.Usage.PromptTokens)
	assert.InDelta(t, float64(actual)*pricing.DefaultUSDPerCredit, rep.CreditValueUSD, 1e-9)
	require.Greater(t, rep.Usage.CostUSD, 0.0)
	assert.Greater(t, rep.Markup, 0.0)
	assert.Len(t, rep.ByOperation, 5)

	_, err = h.reports.DocumentEfficiency(h.ctx, uuid.New(), res.DocumentID)
	assert.Error(t, err)
}

func TestGlobalEfficiencyCountsRefundsAgainstCharges(t *testing.T) {
	h := newHarness(t, 5, 20)
	h.ai.failAt["questions"] = 1
	user := uuid.New()
	h.fund(user, 200)

	_, err := h.upload(user, "fails")
	require.Error(t, err)
	h.ai.failAt["questions"] = 0
	_, err = h.upload(user, "works")
	require.NoError(t, err)
	h.usage.Flush()

	rep, err := h.reports.GlobalEfficiency(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Jobs)
	assert.Equal(t, int64(estimate20Pages), rep.CreditsCharged)
	assert.Equal(t, int64(200), rep.CreditsByKind[types.CreditPurchase])
	assert.Equal(t, int64(estimate20Pages), rep.CreditsByKind[types.CreditRefund])
	assert.Nil(t, rep.DocumentID)
}

// Enough jobs that a single IN list would pass SQLite's bind-variable limit.
func TestGlobalEfficiencyScalesPastBindLimits(t *testing.T) {
	if testing.Short() {
		t.Skip("bulk insert")
	}
	const n = 33000
	h := newHarness(t, 1, 1)
	user := uuid.New()
	docID := uuid.New()

	jobRows := make([]*types.ProcessingJob, 0, n)
	for i := 0; i < n; i++ {
		jobRows = append(jobRows, &types.ProcessingJob{
			ID: uuid.New(), DocumentID: docID, UserID: user, Kind: jobs.KindInitial,
			Status: types.JobCompleted, Stage: jobs.StageFinalize, EstimatedCredits: 2,
		})
	}
	require.NoError(t, h.db.CreateInBatches(jobRows, 400).Error)

	txns := make([]*types.CreditTransaction, 0, n)
	for _, j := range jobRows {
		id := j.ID
		txns = append(txns, &types.CreditTransaction{UserID: user, Amount: -2, Kind: types.CreditProcessing, JobID: &id})
	}
	require.NoError(t, h.db.CreateInBatches(txns, 400).Error)

	rep, err := h.reports.GlobalEfficiency(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, n, rep.Jobs)
	assert.Equal(t, int64(2*n), rep.CreditsCharged)
	assert.Equal(t, int64(-2*n), rep.CreditsByKind[types.CreditProcessing])
}
