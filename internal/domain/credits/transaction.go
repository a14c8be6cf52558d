package credits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Kind string

const (
	KindPurchase   Kind = "purchase"
	KindProcessing Kind = "processing"
	KindRefund     Kind = "refund"
	KindGeneration Kind = "generation"
	KindBonus      Kind = "bonus"
	KindGift       Kind = "gift"
	KindAdjustment Kind = "adjustment"
)

// CreditTransaction is an append-only ledger row. Amount is signed; BalanceAfter
// is the account balance immediately after this row was applied.
type CreditTransaction struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount       int        `gorm:"column:amount;not null" json:"amount"`
	Kind         Kind       `gorm:"column:kind;not null;index" json:"kind"`
	JobID        *uuid.UUID `gorm:"type:uuid;column:job_id;index" json:"job_id,omitempty"`
	Reason       string     `gorm:"column:reason" json:"reason,omitempty"`
	BalanceAfter int        `gorm:"column:balance_after;not null" json:"balance_after"`
	CreatedAt    time.Time  `gorm:"not null;index" json:"created_at"`
}

func (CreditTransaction) TableName() string { return "credit_transaction" }

func (t *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
