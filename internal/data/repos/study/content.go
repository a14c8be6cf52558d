package study

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

// ContentCounts is the number of generated rows per kind for one document.
type ContentCounts struct {
	Topics       int64 `json:"topics"`
	Flashcards   int64 `json:"flashcards"`
	Questions    int64 `json:"questions"`
	Explanations int64 `json:"explanations"`
	Vocabulary   int64 `json:"vocabulary"`
}

// ContentRepo persists generated study material. Each Create call writes one
// batch in a single statement.
type ContentRepo interface {
	CreateFlashcards(dbc dbctx.Context, rows []*types.Flashcard) error
	CreateQuestions(dbc dbctx.Context, rows []*types.Question) error
	CreateExplanations(dbc dbctx.Context, rows []*types.Explanation) error
	CreateVocabulary(dbc dbctx.Context, rows []*types.VocabularyTerm) error

	ListFlashcards(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Flashcard, error)
	ListQuestions(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Question, error)
	ListExplanations(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Explanation, error)
	ListVocabulary(dbc dbctx.Context, documentID uuid.UUID) ([]*types.VocabularyTerm, error)

	ListFlashcardsByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.Flashcard, error)
	ListQuestionsByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.Question, error)
	ListExplanationsByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.Explanation, error)

	// Replace* delete the existing rows for the owner and insert rows.
	// Callers pass a transaction to make the swap atomic.
	ReplaceFlashcards(dbc dbctx.Context, topicID uuid.UUID, rows []*types.Flashcard) error
	ReplaceExplanations(dbc dbctx.Context, topicID uuid.UUID, rows []*types.Explanation) error
	ReplaceVocabulary(dbc dbctx.Context, documentID uuid.UUID, rows []*types.VocabularyTerm) error

	CountByDocument(dbc dbctx.Context, documentID uuid.UUID) (ContentCounts, error)
	DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error
}

type contentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return &contentRepo{
		db:  db,
		log: baseLog.With("repo", "ContentRepo"),
	}
}

func (r *contentRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *contentRepo) CreateFlashcards(dbc dbctx.Context, rows []*types.Flashcard) error {
	if len(rows) == 0 {
		return nil
	}
	return r.tx(dbc).Create(&rows).Error
}

func (r *contentRepo) CreateQuestions(dbc dbctx.Context, rows []*types.Question) error {
	if len(rows) == 0 {
		return nil
	}
	return r.tx(dbc).Create(&rows).Error
}

func (r *contentRepo) CreateExplanations(dbc dbctx.Context, rows []*types.Explanation) error {
	if len(rows) == 0 {
		return nil
	}
	return r.tx(dbc).Create(&rows).Error
}

func (r *contentRepo) CreateVocabulary(dbc dbctx.Context, rows []*types.VocabularyTerm) error {
	if len(rows) == 0 {
		return nil
	}
	return r.tx(dbc).Create(&rows).Error
}

func (r *contentRepo) ListFlashcards(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Flashcard, error) {
	var out []*types.Flashcard
	err := r.tx(dbc).Where("document_id = ?", documentID).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *contentRepo) ListQuestions(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Question, error) {
	var out []*types.Question
	err := r.tx(dbc).Where("document_id = ?", documentID).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *contentRepo) ListExplanations(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Explanation, error) {
	var out []*types.Explanation
	err := r.tx(dbc).Where("document_id = ?", documentID).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *contentRepo) ListVocabulary(dbc dbctx.Context, documentID uuid.UUID) ([]*types.VocabularyTerm, error) {
	var out []*types.VocabularyTerm
	err := r.tx(dbc).Where("document_id = ?", documentID).Order("term ASC").Find(&out).Error
	return out, err
}

func (r *contentRepo) ListFlashcardsByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.Flashcard, error) {
	var out []*types.Flashcard
	err := r.tx(dbc).Where("topic_id = ?", topicID).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *contentRepo) ListQuestionsByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.Question, error) {
	var out []*types.Question
	err := r.tx(dbc).Where("topic_id = ?", topicID).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *contentRepo) ListExplanationsByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.Explanation, error) {
	var out []*types.Explanation
	err := r.tx(dbc).Where("topic_id = ?", topicID).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *contentRepo) ReplaceFlashcards(dbc dbctx.Context, topicID uuid.UUID, rows []*types.Flashcard) error {
	if err := r.tx(dbc).Where("topic_id = ?", topicID).Delete(&types.Flashcard{}).Error; err != nil {
		return err
	}
	return r.CreateFlashcards(dbc, rows)
}

func (r *contentRepo) ReplaceExplanations(dbc dbctx.Context, topicID uuid.UUID, rows []*types.Explanation) error {
	if err := r.tx(dbc).Where("topic_id = ?", topicID).Delete(&types.Explanation{}).Error; err != nil {
		return err
	}
	return r.CreateExplanations(dbc, rows)
}

func (r *contentRepo) ReplaceVocabulary(dbc dbctx.Context, documentID uuid.UUID, rows []*types.VocabularyTerm) error {
	if err := r.tx(dbc).Where("document_id = ?", documentID).Delete(&types.VocabularyTerm{}).Error; err != nil {
		return err
	}
	return r.CreateVocabulary(dbc, rows)
}

func (r *contentRepo) CountByDocument(dbc dbctx.Context, documentID uuid.UUID) (ContentCounts, error) {
	var c ContentCounts
	models := []struct {
		model interface{}
		dst   *int64
	}{
		{&types.Topic{}, &c.Topics},
		{&types.Flashcard{}, &c.Flashcards},
		{&types.Question{}, &c.Questions},
		{&types.Explanation{}, &c.Explanations},
		{&types.VocabularyTerm{}, &c.Vocabulary},
	}
	for _, m := range models {
		if err := r.tx(dbc).Model(m.model).Where("document_id = ?", documentID).Count(m.dst).Error; err != nil {
			return c, err
		}
	}
	return c, nil
}

// DeleteByDocument removes every generated row except topics.
func (r *contentRepo) DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error {
	if documentID == uuid.Nil {
		return nil
	}
	for _, m := range []interface{}{&types.Flashcard{}, &types.Question{}, &types.Explanation{}, &types.VocabularyTerm{}} {
		if err := r.tx(dbc).Where("document_id = ?", documentID).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}
