package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/studydeck-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureLedgerIndexes(db)
}

// EnsureLedgerIndexes creates the partial unique indexes that gorm tags cannot
// express. The syntax is shared by Postgres and SQLite.
func EnsureLedgerIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			name: "idx_processing_job_active_document",
			sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_processing_job_active_document
				ON processing_job(document_id)
				WHERE status IN ('pending', 'processing');`,
		},
		{
			name: "idx_credit_transaction_job_reservation",
			sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_credit_transaction_job_reservation
				ON credit_transaction(job_id)
				WHERE kind IN ('processing', 'generation') AND job_id IS NOT NULL;`,
		},
		{
			name: "idx_credit_transaction_job_refund",
			sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_credit_transaction_job_refund
				ON credit_transaction(job_id)
				WHERE kind = 'refund' AND job_id IS NOT NULL;`,
		},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
