package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, doc *types.Document) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error)
	GetByOwnerAndFingerprint(dbc dbctx.Context, ownerID uuid.UUID, fingerprint string) (*types.Document, error)
	FindCompletedByFingerprint(dbc dbctx.Context, fingerprint string, excludeOwnerID uuid.UUID) (*types.Document, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, limit int) ([]*types.Document, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SetStatus(dbc dbctx.Context, id uuid.UUID, status types.DocumentStatus, errMsg string) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{
		db:  db,
		log: baseLog.With("repo", "DocumentRepo"),
	}
}

func (r *documentRepo) Create(dbc dbctx.Context, doc *types.Document) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Create(doc).Error
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var doc types.Document
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&doc).Error; err != nil {
		return nil, err
	}
	if doc.ID == uuid.Nil {
		return nil, nil
	}
	return &doc, nil
}

func (r *documentRepo) GetByOwnerAndFingerprint(dbc dbctx.Context, ownerID uuid.UUID, fingerprint string) (*types.Document, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if ownerID == uuid.Nil || fingerprint == "" {
		return nil, nil
	}
	var doc types.Document
	if err := t.WithContext(dbc.Ctx).
		Where("owner_id = ? AND fingerprint = ?", ownerID, fingerprint).
		Limit(1).
		Find(&doc).Error; err != nil {
		return nil, err
	}
	if doc.ID == uuid.Nil {
		return nil, nil
	}
	return &doc, nil
}

// FindCompletedByFingerprint returns the oldest completed document with this
// content that belongs to someone other than excludeOwnerID.
func (r *documentRepo) FindCompletedByFingerprint(dbc dbctx.Context, fingerprint string, excludeOwnerID uuid.UUID) (*types.Document, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if fingerprint == "" {
		return nil, nil
	}
	var doc types.Document
	if err := t.WithContext(dbc.Ctx).
		Where("fingerprint = ? AND owner_id <> ? AND status = ?", fingerprint, excludeOwnerID, types.DocumentCompleted).
		Order("created_at ASC").
		Limit(1).
		Find(&doc).Error; err != nil {
		return nil, err
	}
	if doc.ID == uuid.Nil {
		return nil, nil
	}
	return &doc, nil
}

func (r *documentRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, limit int) ([]*types.Document, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Document
	if ownerID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 50
	}
	if err := t.WithContext(dbc.Ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Document{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *documentRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, status types.DocumentStatus, errMsg string) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"status": status,
		"error":  errMsg,
	})
}

func (r *documentRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Document{}).Error
}
