package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Topic struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	Title      string    `gorm:"column:title;not null" json:"title"`
	Summary    string    `gorm:"column:summary" json:"summary"`
	Position   int       `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Topic) TableName() string { return "topic" }

func (t *Topic) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type Flashcard struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TopicID    uuid.UUID `gorm:"type:uuid;not null;index" json:"topic_id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	Front      string    `gorm:"column:front;not null" json:"front"`
	Back       string    `gorm:"column:back;not null" json:"back"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (Flashcard) TableName() string { return "flashcard" }

func (f *Flashcard) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

type Question struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TopicID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"topic_id"`
	DocumentID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_id"`
	Prompt      string         `gorm:"column:prompt;not null" json:"prompt"`
	Choices     datatypes.JSON `gorm:"column:choices" json:"choices"`
	AnswerIndex int            `gorm:"column:answer_index;not null;default:0" json:"answer_index"`
	Rationale   string         `gorm:"column:rationale" json:"rationale,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (Question) TableName() string { return "question" }

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

type Explanation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TopicID    uuid.UUID `gorm:"type:uuid;not null;index" json:"topic_id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	Concept    string    `gorm:"column:concept;not null" json:"concept"`
	Body       string    `gorm:"column:body;not null" json:"body"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (Explanation) TableName() string { return "explanation" }

func (e *Explanation) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type VocabularyTerm struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	Term       string    `gorm:"column:term;not null" json:"term"`
	Definition string    `gorm:"column:definition;not null" json:"definition"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (VocabularyTerm) TableName() string { return "vocabulary_term" }

func (v *VocabularyTerm) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
