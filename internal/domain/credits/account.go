package credits

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInsufficientCredits is returned by a reservation the balance cannot cover.
var ErrInsufficientCredits = errors.New("insufficient credits")

// CreditAccount is the running balance for one user. It is only written by
// the ledger, together with an appended CreditTransaction.
type CreditAccount struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Balance        int       `gorm:"column:balance;not null;default:0" json:"balance"`
	LifetimeEarned int       `gorm:"column:lifetime_earned;not null;default:0" json:"lifetime_earned"`
	LifetimeSpent  int       `gorm:"column:lifetime_spent;not null;default:0" json:"lifetime_spent"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (CreditAccount) TableName() string { return "credit_account" }
