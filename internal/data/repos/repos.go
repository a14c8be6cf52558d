package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/studydeck-backend/internal/data/repos/credits"
	"github.com/yungbote/studydeck-backend/internal/data/repos/documents"
	"github.com/yungbote/studydeck-backend/internal/data/repos/jobs"
	"github.com/yungbote/studydeck-backend/internal/data/repos/study"
	"github.com/yungbote/studydeck-backend/internal/data/repos/usage"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

type DocumentRepo = documents.DocumentRepo
type TopicRepo = study.TopicRepo
type ContentRepo = study.ContentRepo
type CreditAccountRepo = credits.AccountRepo
type CreditTransactionRepo = credits.TransactionRepo
type ProcessingJobRepo = jobs.ProcessingJobRepo
type TokenUsageRepo = usage.TokenUsageRepo
type ContentCounts = study.ContentCounts
type UsageTotals = usage.Totals
type OperationTotals = usage.OperationTotals

// Set is every repository bound to one database handle.
type Set struct {
	Documents    DocumentRepo
	Topics       TopicRepo
	Content      ContentRepo
	Accounts     CreditAccountRepo
	Transactions CreditTransactionRepo
	Jobs         ProcessingJobRepo
	Usage        TokenUsageRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Documents:    documents.NewDocumentRepo(db, log),
		Topics:       study.NewTopicRepo(db, log),
		Content:      study.NewContentRepo(db, log),
		Accounts:     credits.NewAccountRepo(db, log),
		Transactions: credits.NewTransactionRepo(db, log),
		Jobs:         jobs.NewProcessingJobRepo(db, log),
		Usage:        usage.NewTokenUsageRepo(db, log),
	}
}
