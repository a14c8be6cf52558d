package usage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Operation string

const (
	OpTopicDiscovery Operation = "topic_discovery"
	OpFlashcards     Operation = "flashcards"
	OpQuestions      Operation = "questions"
	OpExplanations   Operation = "explanations"
	OpVocabulary     Operation = "vocabulary"
)

// TokenUsageRecord is one AI call. JobID is nil for calls made before a job
// existed (topic discovery during preflight).
type TokenUsageRecord struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	JobID            *uuid.UUID `gorm:"type:uuid;column:job_id;index" json:"job_id,omitempty"`
	DocumentID       *uuid.UUID `gorm:"type:uuid;column:document_id;index" json:"document_id,omitempty"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Operation        Operation  `gorm:"column:operation;not null;index" json:"operation"`
	Model            string     `gorm:"column:model;not null" json:"model"`
	PromptTokens     int        `gorm:"column:prompt_tokens;not null;default:0" json:"prompt_tokens"`
	CompletionTokens int        `gorm:"column:completion_tokens;not null;default:0" json:"completion_tokens"`
	TotalTokens      int        `gorm:"column:total_tokens;not null;default:0" json:"total_tokens"`
	EstimatedCostUSD float64    `gorm:"column:estimated_cost_usd;not null;default:0" json:"estimated_cost_usd"`
	PricingSource    string     `gorm:"column:pricing_source" json:"pricing_source"`
	CreatedAt        time.Time  `gorm:"not null;index" json:"created_at"`
}

func (TokenUsageRecord) TableName() string { return "token_usage_record" }

func (r *TokenUsageRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
