package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/domain/jobs"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

type ProcessingJobRepo interface {
	Create(dbc dbctx.Context, job *types.ProcessingJob) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ProcessingJob, error)
	GetActiveForDocument(dbc dbctx.Context, documentID uuid.UUID) (*types.ProcessingJob, error)
	GetLatestForDocument(dbc dbctx.Context, documentID uuid.UUID) (*types.ProcessingJob, error)
	// ListStaleActive returns pending or processing jobs whose row has not
	// been touched since cutoff.
	ListStaleActive(dbc dbctx.Context, cutoff time.Time, limit int) ([]*types.ProcessingJob, error)
	Count(dbc dbctx.Context) (int64, error)
	CountByDocument(dbc dbctx.Context, documentID uuid.UUID) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// Transition applies updates and sets status=to only while the row is in
	// status from. It reports whether the row moved.
	Transition(dbc dbctx.Context, id uuid.UUID, from, to types.JobStatus, updates map[string]interface{}) (bool, error)
	// UpdateProgressIfActive writes stage/progress without regressing progress
	// and without touching finished jobs.
	UpdateProgressIfActive(dbc dbctx.Context, id uuid.UUID, stage string, progress int) error
	// Heartbeat bumps updated_at on an active job so it is not seen as stale.
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error
}

type processingJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProcessingJobRepo(db *gorm.DB, baseLog *logger.Logger) ProcessingJobRepo {
	return &processingJobRepo{
		db:  db,
		log: baseLog.With("repo", "ProcessingJobRepo"),
	}
}

func (r *processingJobRepo) Create(dbc dbctx.Context, job *types.ProcessingJob) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(job).Error
}

func (r *processingJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ProcessingJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.ProcessingJob
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *processingJobRepo) GetActiveForDocument(dbc dbctx.Context, documentID uuid.UUID) (*types.ProcessingJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.ProcessingJob
	if err := transaction.WithContext(dbc.Ctx).
		Where("document_id = ? AND status IN ?", documentID, jobs.ActiveStatuses).
		Limit(1).
		Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *processingJobRepo) GetLatestForDocument(dbc dbctx.Context, documentID uuid.UUID) (*types.ProcessingJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.ProcessingJob
	if err := transaction.WithContext(dbc.Ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Limit(1).
		Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *processingJobRepo) ListStaleActive(dbc dbctx.Context, cutoff time.Time, limit int) ([]*types.ProcessingJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.ProcessingJob
	err := transaction.WithContext(dbc.Ctx).
		Where("status IN ? AND updated_at < ?", jobs.ActiveStatuses, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *processingJobRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ProcessingJob{}).
		Count(&n).Error
	return n, err
}

func (r *processingJobRepo) CountByDocument(dbc dbctx.Context, documentID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ProcessingJob{}).
		Where("document_id = ?", documentID).
		Count(&n).Error
	return n, err
}

func (r *processingJobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
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
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ProcessingJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *processingJobRepo) Transition(dbc dbctx.Context, id uuid.UUID, from, to types.JobStatus, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	fields := make(map[string]interface{}, len(updates)+2)
	for k, v := range updates {
		fields[k] = v
	}
	fields["status"] = to
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.ProcessingJob{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *processingJobRepo) UpdateProgressIfActive(dbc dbctx.Context, id uuid.UUID, stage string, progress int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ProcessingJob{}).
		Where("id = ? AND status IN ? AND progress <= ?", id, jobs.ActiveStatuses, progress).
		Updates(map[string]interface{}{
			"stage":      stage,
			"progress":   progress,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *processingJobRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ProcessingJob{}).
		Where("id = ? AND status IN ?", id, jobs.ActiveStatuses).
		Update("updated_at", time.Now().UTC()).Error
}

func (r *processingJobRepo) DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("document_id = ?", documentID).
		Delete(&types.ProcessingJob{}).Error
}
