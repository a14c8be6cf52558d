package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// ActiveStatuses are the states covered by the one-active-job-per-document index.
var ActiveStatuses = []Status{StatusPending, StatusProcessing}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRefunded
}

type Kind string

const (
	KindInitial                Kind = "initial"
	KindRegenerateQuestions    Kind = "regenerate_questions"
	KindRegenerateFlashcards   Kind = "regenerate_flashcards"
	KindRegenerateExplanations Kind = "regenerate_explanations"
	KindRegenerateVocabulary   Kind = "regenerate_vocabulary"
)

// Pipeline stages reported through Stage.
const (
	StageQueued     = "queued"
	StageUpload     = "upload"
	StageExtract    = "extract"
	StageAnalyze    = "analyze"
	StageTopics     = "topics"
	StageVocabulary = "vocabulary"
	StageFinalize   = "finalize"
	StageGenerate   = "generate"
	StageFailed     = "failed"
)

// ProcessingJob is one credit-metered unit of work against a document.
type ProcessingJob struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind             Kind           `gorm:"column:kind;not null;index" json:"kind"`
	TopicID          *uuid.UUID     `gorm:"type:uuid;column:topic_id;index" json:"topic_id,omitempty"`
	Status           Status         `gorm:"column:status;not null;index" json:"status"`
	Stage            string         `gorm:"column:stage;not null" json:"stage"`
	Progress         int            `gorm:"column:progress;not null;default:0" json:"progress"`
	EstimatedCredits int            `gorm:"column:estimated_credits;not null;default:0" json:"estimated_credits"`
	ActualCredits    *int           `gorm:"column:actual_credits" json:"actual_credits,omitempty"`
	PromptTokens     int            `gorm:"column:prompt_tokens;not null;default:0" json:"prompt_tokens"`
	CompletionTokens int            `gorm:"column:completion_tokens;not null;default:0" json:"completion_tokens"`
	Error            string         `gorm:"column:error" json:"error,omitempty"`
	Metadata         datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	DeductedAt       *time.Time     `gorm:"column:deducted_at" json:"deducted_at,omitempty"`
	CompletedAt      *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	RefundedAt       *time.Time     `gorm:"column:refunded_at" json:"refunded_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (ProcessingJob) TableName() string { return "processing_job" }

func (j *ProcessingJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = StatusPending
	}
	if j.Stage == "" {
		j.Stage = StageQueued
	}
	if len(j.Metadata) == 0 {
		j.Metadata = datatypes.JSON([]byte("{}"))
	}
	return nil
}
