package study

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studydeck-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
)

func TestContentRepoBatchesAndCounts(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	topics := NewTopicRepo(db, testutil.Logger(t))
	content := NewContentRepo(db, testutil.Logger(t))

	docID := uuid.New()
	t1 := &types.Topic{DocumentID: docID, Title: "Cells", Position: 1}
	t0 := &types.Topic{DocumentID: docID, Title: "Atoms", Position: 0}
	for _, tp := range []*types.Topic{t1, t0} {
		if err := topics.Create(dbc, tp); err != nil {
			t.Fatalf("Create topic: %v", err)
		}
	}
	listed, err := topics.ListByDocument(dbc, docID)
	if err != nil || len(listed) != 2 || listed[0].ID != t0.ID {
		t.Fatalf("ListByDocument: len=%d err=%v", len(listed), err)
	}

	if err := content.CreateFlashcards(dbc, []*types.Flashcard{
		{TopicID: t0.ID, DocumentID: docID, Front: "f1", Back: "b1"},
		{TopicID: t0.ID, DocumentID: docID, Front: "f2", Back: "b2"},
	}); err != nil {
		t.Fatalf("CreateFlashcards: %v", err)
	}
	if err := content.CreateQuestions(dbc, []*types.Question{
		{TopicID: t0.ID, DocumentID: docID, Prompt: "q", Choices: datatypes.JSON(`["a","b"]`), AnswerIndex: 1},
	}); err != nil {
		t.Fatalf("CreateQuestions: %v", err)
	}
	if err := content.CreateVocabulary(dbc, []*types.VocabularyTerm{{DocumentID: docID, Term: "atom", Definition: "unit"}}); err != nil {
		t.Fatalf("CreateVocabulary: %v", err)
	}
	if err := content.CreateExplanations(dbc, nil); err != nil {
		t.Fatalf("CreateExplanations empty: %v", err)
	}

	counts, err := content.CountByDocument(dbc, docID)
	if err != nil {
		t.Fatalf("CountByDocument: %v", err)
	}
	want := ContentCounts{Topics: 2, Flashcards: 2, Questions: 1, Explanations: 0, Vocabulary: 1}
	if counts != want {
		t.Fatalf("counts: want=%+v got=%+v", want, counts)
	}

	if err := content.DeleteByDocument(dbc, docID); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	if err := topics.DeleteByDocument(dbc, docID); err != nil {
		t.Fatalf("DeleteByDocument topics: %v", err)
	}
	counts, err = content.CountByDocument(dbc, docID)
	if err != nil || counts != (ContentCounts{}) {
		t.Fatalf("counts after delete: got=%+v err=%v", counts, err)
	}
}

func TestContentRepoReplaceIsScopedToTopic(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.New(context.Background())
	content := NewContentRepo(db, testutil.Logger(t))

	docID := uuid.New()
	keep := testutil.SeedTopic(t, dbc.Ctx, db, docID, 0)
	swap := testutil.SeedTopic(t, dbc.Ctx, db, docID, 1)
	if err := content.CreateFlashcards(dbc, []*types.Flashcard{
		{TopicID: keep.ID, DocumentID: docID, Front: "keep", Back: "k"},
		{TopicID: swap.ID, DocumentID: docID, Front: "old", Back: "o"},
	}); err != nil {
		t.Fatalf("CreateFlashcards: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return content.ReplaceFlashcards(dbc.WithTx(tx), swap.ID, []*types.Flashcard{
			{TopicID: swap.ID, DocumentID: docID, Front: "new1", Back: "n"},
			{TopicID: swap.ID, DocumentID: docID, Front: "new2", Back: "n"},
		})
	})
	if err != nil {
		t.Fatalf("ReplaceFlashcards: %v", err)
	}

	swapped, err := content.ListFlashcardsByTopic(dbc, swap.ID)
	if err != nil || len(swapped) != 2 || swapped[0].Front == "old" {
		t.Fatalf("swapped topic: got=%d err=%v", len(swapped), err)
	}
	kept, err := content.ListFlashcardsByTopic(dbc, keep.ID)
	if err != nil || len(kept) != 1 || kept[0].Front != "keep" {
		t.Fatalf("untouched topic: got=%d err=%v", len(kept), err)
	}
}
