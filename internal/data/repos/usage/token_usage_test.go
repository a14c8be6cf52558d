package usage

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/studydeck-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	domainusage "github.com/yungbote/studydeck-backend/internal/domain/usage"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
)

func TestTokenUsageRepoTotals(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.New(context.Background())
	repo := NewTokenUsageRepo(db, testutil.Logger(t))

	docID, userID := uuid.New(), uuid.New()
	recs := []*types.TokenUsageRecord{
		{DocumentID: &docID, UserID: userID, Operation: domainusage.OpTopicDiscovery, Model: "m", PromptTokens: 100, CompletionTokens: 10, EstimatedCostUSD: 0.5},
		{DocumentID: &docID, UserID: userID, Operation: domainusage.OpFlashcards, Model: "m", PromptTokens: 200, CompletionTokens: 20, EstimatedCostUSD: 0.25},
		{DocumentID: &docID, UserID: userID, Operation: domainusage.OpFlashcards, Model: "m", PromptTokens: 50, CompletionTokens: 5, EstimatedCostUSD: 0.25},
	}
	for _, rec := range recs {
		if err := repo.Create(dbc, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	other := uuid.New()
	if err := repo.Create(dbc, &types.TokenUsageRecord{DocumentID: &other, UserID: userID, Operation: domainusage.OpVocabulary, Model: "m", PromptTokens: 1}); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	totals, err := repo.TotalsByDocument(dbc, docID)
	if err != nil {
		t.Fatalf("TotalsByDocument: %v", err)
	}
	if totals.Calls != 3 || totals.PromptTokens != 350 || totals.CompletionTokens != 35 || math.Abs(totals.CostUSD-1.0) > 1e-9 {
		t.Fatalf("totals: got=%+v", totals)
	}

	byOp, err := repo.TotalsByOperation(dbc, &docID)
	if err != nil || len(byOp) != 2 {
		t.Fatalf("TotalsByOperation: len=%d err=%v", len(byOp), err)
	}
	if byOp[0].Operation != domainusage.OpFlashcards || byOp[0].Calls != 2 {
		t.Fatalf("TotalsByOperation[0]: got=%+v", byOp[0])
	}

	all, err := repo.TotalsAll(dbc)
	if err != nil || all.Calls != 4 {
		t.Fatalf("TotalsAll: got=%+v err=%v", all, err)
	}
}
