package credits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

// TransactionRepo is append-only: there is no update or delete.
type TransactionRepo interface {
	Append(dbc dbctx.Context, txn *types.CreditTransaction) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.CreditTransaction, error)
	NetCharged(dbc dbctx.Context, documentID *uuid.UUID) (int64, error)
	ListAllByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.CreditTransaction, error)
	CountByJob(dbc dbctx.Context, jobID uuid.UUID, kind types.CreditKind) (int64, error)
	SumByKind(dbc dbctx.Context) (map[types.CreditKind]int64, error)
}

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return &transactionRepo{
		db:  db,
		log: baseLog.With("repo", "CreditTransactionRepo"),
	}
}

func (r *transactionRepo) Append(dbc dbctx.Context, txn *types.CreditTransaction) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).Create(txn).Error
}

func (r *transactionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.CreditTransaction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*types.CreditTransaction
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *transactionRepo) ListAllByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.CreditTransaction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CreditTransaction
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// NetCharged sums what job-linked rows took from users after refunds. A
// non-nil documentID limits it to that document's jobs.
func (r *transactionRepo) NetCharged(dbc dbctx.Context, documentID *uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Model(&types.CreditTransaction{}).
		Where("job_id IS NOT NULL")
	if documentID != nil {
		jobIDs := t.WithContext(dbc.Ctx).
			Model(&types.ProcessingJob{}).
			Select("id").
			Where("document_id = ?", *documentID)
		q = q.Where("job_id IN (?)", jobIDs)
	}
	var total int64
	err := q.Select("COALESCE(SUM(-amount), 0)").Scan(&total).Error
	return total, err
}

func (r *transactionRepo) CountByJob(dbc dbctx.Context, jobID uuid.UUID, kind types.CreditKind) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	err := t.WithContext(dbc.Ctx).
		Model(&types.CreditTransaction{}).
		Where("job_id = ? AND kind = ?", jobID, kind).
		Count(&n).Error
	return n, err
}

func (r *transactionRepo) SumByKind(dbc dbctx.Context) (map[types.CreditKind]int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []struct {
		Kind  types.CreditKind
		Total int64
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.CreditTransaction{}).
		Select("kind, COALESCE(SUM(amount), 0) AS total").
		Group("kind").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[types.CreditKind]int64, len(rows))
	for _, row := range rows {
		out[row.Kind] = row.Total
	}
	return out, nil
}
