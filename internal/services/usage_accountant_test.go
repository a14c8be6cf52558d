package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	"github.com/yungbote/studydeck-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/domain/usage"
	"github.com/yungbote/studydeck-backend/internal/platform/openai"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pricing"
)

func TestUsageAccountantRecordsCost(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	acct := NewUsageAccountant(log, set.Usage, pricing.NewTable(map[string]pricing.ModelRate{
		"house": {PromptPerMillion: 1, CompletionPerMillion: 2},
	}))
	defer acct.Close()

	docID, user := uuid.New(), uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	acct.Record(ctx, UsageEvent{DocumentID: &docID, UserID: user, Operation: usage.OpTopicDiscovery, Model: "house", Usage: openai.Usage{PromptTokens: 1_000_000, CompletionTokens: 500_000}})
	acct.Record(ctx, UsageEvent{DocumentID: &docID, UserID: user, Operation: usage.OpVocabulary, Model: "mystery", Usage: openai.Usage{PromptTokens: 10, CompletionTokens: 10}})
	// A cancelled caller must not lose the record.
	cancel()
	acct.Flush()

	recs, err := set.Usage.ListByDocument(dbctx.New(context.Background()), docID)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	byOp := map[types.UsageOperation]*types.TokenUsageRecord{}
	for _, r := range recs {
		byOp[r.Operation] = r
	}
	house := byOp[usage.OpTopicDiscovery]
	require.NotNil(t, house)
	assert.InDelta(t, 2.0, house.EstimatedCostUSD, 1e-9)
	assert.Equal(t, 1_500_000, house.TotalTokens)
	assert.Equal(t, string(pricing.SourceTable), house.PricingSource)
	assert.Nil(t, house.JobID)

	assert.Equal(t, string(pricing.SourceFallback), byOp[usage.OpVocabulary].PricingSource)
}

type brokenUsageRepo struct {
	repos.TokenUsageRepo
	panic bool
}

func (r brokenUsageRepo) Create(dbctx.Context, *types.TokenUsageRecord) error {
	if r.panic {
		panic("boom")
	}
	return errors.New("disk full")
}

func TestUsageAccountantSwallowsFailures(t *testing.T) {
	log := testutil.Logger(t)
	for _, repo := range []brokenUsageRepo{{}, {panic: true}} {
		acct := NewUsageAccountant(log, repo, nil)
		assert.NotPanics(t, func() {
			acct.Record(context.Background(), UsageEvent{UserID: uuid.New(), Operation: usage.OpFlashcards, Model: "gpt-4o"})
			acct.Flush()
		})
		acct.Close()
		// Records after Close are dropped without blocking.
		acct.Record(context.Background(), UsageEvent{UserID: uuid.New(), Operation: usage.OpFlashcards})
	}
}
