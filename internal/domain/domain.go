package domain

import (
	"github.com/yungbote/studydeck-backend/internal/domain/credits"
	"github.com/yungbote/studydeck-backend/internal/domain/documents"
	"github.com/yungbote/studydeck-backend/internal/domain/jobs"
	"github.com/yungbote/studydeck-backend/internal/domain/study"
	"github.com/yungbote/studydeck-backend/internal/domain/usage"
)

type Document = documents.Document
type DocumentStatus = documents.Status

const (
	DocumentPending    = documents.StatusPending
	DocumentProcessing = documents.StatusProcessing
	DocumentCompleted  = documents.StatusCompleted
	DocumentFailed     = documents.StatusFailed
)

type Topic = study.Topic
type Flashcard = study.Flashcard
type Question = study.Question
type Explanation = study.Explanation
type VocabularyTerm = study.VocabularyTerm

type CreditAccount = credits.CreditAccount
type CreditTransaction = credits.CreditTransaction
type CreditKind = credits.Kind

const (
	CreditPurchase   = credits.KindPurchase
	CreditProcessing = credits.KindProcessing
	CreditRefund     = credits.KindRefund
	CreditGeneration = credits.KindGeneration
	CreditBonus      = credits.KindBonus
	CreditGift       = credits.KindGift
	CreditAdjustment = credits.KindAdjustment
)

type ProcessingJob = jobs.ProcessingJob
type JobStatus = jobs.Status
type JobKind = jobs.Kind

const (
	JobPending    = jobs.StatusPending
	JobProcessing = jobs.StatusProcessing
	JobCompleted  = jobs.StatusCompleted
	JobFailed     = jobs.StatusFailed
	JobRefunded   = jobs.StatusRefunded
)

type TokenUsageRecord = usage.TokenUsageRecord
type UsageOperation = usage.Operation

// Models lists every persisted type in migration order.
func Models() []interface{} {
	return []interface{}{
		&Document{},
		&Topic{},
		&Flashcard{},
		&Question{},
		&Explanation{},
		&VocabularyTerm{},
		&CreditAccount{},
		&CreditTransaction{},
		&ProcessingJob{},
		&TokenUsageRecord{},
	}
}
