package credits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

// AccountRepo owns the balance row. Debit and Increment are single
// conditional UPDATE statements; the row lock they take is what serializes
// concurrent writers for one user.
type AccountRepo interface {
	Ensure(dbc dbctx.Context, userID uuid.UUID) (created bool, err error)
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.CreditAccount, error)
	Debit(dbc dbctx.Context, userID uuid.UUID, amount int) (bool, error)
	Increment(dbc dbctx.Context, userID uuid.UUID, amount int) error
	List(dbc dbctx.Context, limit int) ([]*types.CreditAccount, error)
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	return &accountRepo{
		db:  db,
		log: baseLog.With("repo", "CreditAccountRepo"),
	}
}

func (r *accountRepo) Ensure(dbc dbctx.Context, userID uuid.UUID) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&types.CreditAccount{UserID: userID, CreatedAt: now, UpdatedAt: now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *accountRepo) Get(dbc dbctx.Context, userID uuid.UUID) (*types.CreditAccount, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var acct types.CreditAccount
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&acct).Error; err != nil {
		return nil, err
	}
	if acct.UserID == uuid.Nil {
		return nil, nil
	}
	return &acct, nil
}

// Debit subtracts amount only when the balance covers it. It reports false,
// with nothing written, when it does not.
func (r *accountRepo) Debit(dbc dbctx.Context, userID uuid.UUID, amount int) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.CreditAccount{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]interface{}{
			"balance":        gorm.Expr("balance - ?", amount),
			"lifetime_spent": gorm.Expr("lifetime_spent + ?", amount),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *accountRepo) Increment(dbc dbctx.Context, userID uuid.UUID, amount int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.CreditAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance + ?", amount),
			"lifetime_earned": gorm.Expr("lifetime_earned + ?", amount),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *accountRepo) List(dbc dbctx.Context, limit int) ([]*types.CreditAccount, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.CreditAccount
	err := t.WithContext(dbc.Ctx).Order("created_at ASC").Limit(limit).Find(&out).Error
	return out, err
}
