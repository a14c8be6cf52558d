package usage

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

// Totals aggregates token usage over a set of records.
type Totals struct {
	Calls            int64   `json:"calls"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

type OperationTotals struct {
	Operation types.UsageOperation `json:"operation"`
	Totals
}

type TokenUsageRepo interface {
	Create(dbc dbctx.Context, rec *types.TokenUsageRecord) error
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.TokenUsageRecord, error)
	TotalsByDocument(dbc dbctx.Context, documentID uuid.UUID) (Totals, error)
	TotalsByOperation(dbc dbctx.Context, documentID *uuid.UUID) ([]OperationTotals, error)
	TotalsAll(dbc dbctx.Context) (Totals, error)
}

type tokenUsageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTokenUsageRepo(db *gorm.DB, baseLog *logger.Logger) TokenUsageRepo {
	return &tokenUsageRepo{
		db:  db,
		log: baseLog.With("repo", "TokenUsageRepo"),
	}
}

func (r *tokenUsageRepo) Create(dbc dbctx.Context, rec *types.TokenUsageRecord) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Create(rec).Error
}

func (r *tokenUsageRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.TokenUsageRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.TokenUsageRecord
	err := t.WithContext(dbc.Ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

const totalsSelect = `COUNT(*) AS calls,
	COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens,
	COALESCE(SUM(completion_tokens), 0) AS completion_tokens,
	COALESCE(SUM(estimated_cost_usd), 0) AS cost_usd`

func (r *tokenUsageRepo) TotalsByDocument(dbc dbctx.Context, documentID uuid.UUID) (Totals, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out Totals
	err := t.WithContext(dbc.Ctx).
		Model(&types.TokenUsageRecord{}).
		Select(totalsSelect).
		Where("document_id = ?", documentID).
		Scan(&out).Error
	return out, err
}

func (r *tokenUsageRepo) TotalsByOperation(dbc dbctx.Context, documentID *uuid.UUID) ([]OperationTotals, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Model(&types.TokenUsageRecord{}).
		Select("operation, " + totalsSelect)
	if documentID != nil {
		q = q.Where("document_id = ?", *documentID)
	}
	var out []OperationTotals
	err := q.Group("operation").Order("operation ASC").Scan(&out).Error
	return out, err
}

func (r *tokenUsageRepo) TotalsAll(dbc dbctx.Context) (Totals, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out Totals
	err := t.WithContext(dbc.Ctx).
		Model(&types.TokenUsageRecord{}).
		Select(totalsSelect).
		Scan(&out).Error
	return out, err
}
