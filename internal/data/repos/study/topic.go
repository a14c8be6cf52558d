package study

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

type TopicRepo interface {
	Create(dbc dbctx.Context, topic *types.Topic) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Topic, error)
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Topic, error)
	DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error
}

type topicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return &topicRepo{
		db:  db,
		log: baseLog.With("repo", "TopicRepo"),
	}
}

func (r *topicRepo) Create(dbc dbctx.Context, topic *types.Topic) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Create(topic).Error
}

func (r *topicRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Topic, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var topic types.Topic
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&topic).Error; err != nil {
		return nil, err
	}
	if topic.ID == uuid.Nil {
		return nil, nil
	}
	return &topic, nil
}

func (r *topicRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Topic, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Topic
	if documentID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("document_id = ?", documentID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topicRepo) DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if documentID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("document_id = ?", documentID).
		Delete(&types.Topic{}).Error
}
