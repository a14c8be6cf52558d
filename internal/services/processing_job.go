package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/domain/jobs"
	"github.com/yungbote/studydeck-backend/internal/observability"
	"github.com/yungbote/studydeck-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/studydeck-backend/internal/pkg/errors"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

// JobSpec describes a job to create and pay for.
type JobSpec struct {
	DocumentID uuid.UUID
	UserID     uuid.UUID
	Kind       types.JobKind
	TopicID    *uuid.UUID
	Estimate   int
	// LedgerKind is the reservation kind; processing unless set.
	LedgerKind types.CreditKind
	Metadata   map[string]any
}

// Outcome is what a successful run actually consumed.
type Outcome struct {
	ActualCredits    int
	PromptTokens     int
	CompletionTokens int
}

// ProcessingJobService owns the job state machine:
//
//	pending -> processing -> completed
//	                      -> failed -> refunded
//
// Every transition is a compare-and-swap on status, and each one that moves
// credits runs in the same datastore transaction as its ledger call.
type ProcessingJobService interface {
	CreateAndReserve(dbc dbctx.Context, spec JobSpec) (*types.ProcessingJob, error)
	CreateCompleted(dbc dbctx.Context, spec JobSpec) (*types.ProcessingJob, error)
	RecordProgress(dbc dbctx.Context, jobID uuid.UUID, stage string, progress int) error
	ResolveSuccess(dbc dbctx.Context, jobID uuid.UUID, out Outcome) (*types.ProcessingJob, error)
	ResolveFailure(dbc dbctx.Context, jobID uuid.UUID, cause error) (*types.ProcessingJob, error)
	Get(dbc dbctx.Context, jobID uuid.UUID) (*types.ProcessingJob, error)
	ReclaimStale(dbc dbctx.Context, olderThan time.Duration, skip func(uuid.UUID) bool) (int, error)
}

type processingJobService struct {
	db     *gorm.DB
	log    *logger.Logger
	jobs   repos.ProcessingJobRepo
	docs   repos.DocumentRepo
	ledger LedgerService
	notify JobNotifier
}

func NewProcessingJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobRepo repos.ProcessingJobRepo,
	docRepo repos.DocumentRepo,
	ledger LedgerService,
	notify JobNotifier,
) ProcessingJobService {
	return &processingJobService{
		db:     db,
		log:    baseLog.With("service", "ProcessingJobService"),
		jobs:   jobRepo,
		docs:   docRepo,
		ledger: ledger,
		notify: notify,
	}
}

func (s *processingJobService) Get(dbc dbctx.Context, jobID uuid.UUID) (*types.ProcessingJob, error) {
	job, err := s.jobs.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
	}
	return job, nil
}

// CreateAndReserve inserts the job, moves it to processing and reserves its
// estimate as one unit. When the reservation is refused nothing is written.
func (s *processingJobService) CreateAndReserve(dbc dbctx.Context, spec JobSpec) (*types.ProcessingJob, error) {
	if spec.DocumentID == uuid.Nil || spec.UserID == uuid.Nil {
		return nil, fmt.Errorf("job needs document and user: %w", apperr.ErrInvalidArgument)
	}
	if spec.Estimate < 0 {
		return nil, fmt.Errorf("negative estimate %d: %w", spec.Estimate, apperr.ErrInvalidArgument)
	}
	if spec.Kind == "" {
		spec.Kind = jobs.KindInitial
	}
	if spec.LedgerKind == "" {
		spec.LedgerKind = types.CreditProcessing
	}
	ctx, span := otel.Tracer("studydeck/jobs").Start(dbc.Ctx, "job.create_and_reserve")
	defer span.End()
	span.SetAttributes(attribute.String("job.kind", string(spec.Kind)), attribute.Int("job.estimate", spec.Estimate))
	dbc.Ctx = ctx

	job := &types.ProcessingJob{
		DocumentID:       spec.DocumentID,
		UserID:           spec.UserID,
		Kind:             spec.Kind,
		TopicID:          spec.TopicID,
		Status:           types.JobPending,
		Stage:            jobs.StageQueued,
		EstimatedCredits: spec.Estimate,
		Metadata:         mergeMetadata(s.log, nil, spec.Metadata),
	}
	balance := -1
	err := inTx(s.db, dbc, func(dbc dbctx.Context) error {
		if err := s.jobs.Create(dbc, job); err != nil {
			if apperr.IsUniqueViolation(err) {
				return ErrJobAlreadyActive
			}
			return fmt.Errorf("create job: %w", err)
		}
		now := time.Now().UTC()
		moved, err := s.jobs.Transition(dbc, job.ID, types.JobPending, types.JobProcessing, map[string]interface{}{
			"deducted_at": now,
		})
		if err != nil {
			return fmt.Errorf("start job: %w", err)
		}
		if !moved {
			return fmt.Errorf("job %s left pending concurrently: %w", job.ID, ErrInvalidTransition)
		}
		if spec.Estimate > 0 {
			jobID := job.ID
			balance, err = s.ledger.Reserve(dbc, ReserveRequest{
				UserID: spec.UserID,
				Amount: spec.Estimate,
				Kind:   spec.LedgerKind,
				Reason: fmt.Sprintf("%s job estimate", spec.Kind),
				JobID:  &jobID,
			})
			if err != nil {
				return err
			}
		}
		job.Status = types.JobProcessing
		job.DeductedAt = &now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.log.Info("job reserved", "job_id", job.ID, "document_id", job.DocumentID, "user_id", job.UserID, "kind", job.Kind, "estimate", job.EstimatedCredits)
	s.notify.JobCreated(dbc.Ctx, job)
	if balance >= 0 {
		s.notify.CreditsChanged(dbc.Ctx, job.UserID, balance)
	}
	return job, nil
}

// CreateCompleted records work that cost nothing, such as a clone of another
// owner's content. No ledger row is written.
func (s *processingJobService) CreateCompleted(dbc dbctx.Context, spec JobSpec) (*types.ProcessingJob, error) {
	if spec.Kind == "" {
		spec.Kind = jobs.KindInitial
	}
	now := time.Now().UTC()
	zero := 0
	job := &types.ProcessingJob{
		DocumentID:    spec.DocumentID,
		UserID:        spec.UserID,
		Kind:          spec.Kind,
		TopicID:       spec.TopicID,
		Status:        types.JobCompleted,
		Stage:         jobs.StageFinalize,
		Progress:      100,
		ActualCredits: &zero,
		Metadata:      mergeMetadata(s.log, nil, spec.Metadata),
		CompletedAt:   &now,
	}
	if err := s.jobs.Create(dbc, job); err != nil {
		return nil, fmt.Errorf("create completed job: %w", err)
	}
	observability.Current().IncJobResolved(string(job.Kind), string(job.Status))
	return job, nil
}

func (s *processingJobService) RecordProgress(dbc dbctx.Context, jobID uuid.UUID, stage string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return s.jobs.UpdateProgressIfActive(dbc, jobID, stage, progress)
}

// ResolveSuccess completes the job and reconciles actual against estimate.
// A shortfall is charged through Reserve; if the balance cannot cover it the
// job still completes and the unpaid amount is kept in metadata.
func (s *processingJobService) ResolveSuccess(dbc dbctx.Context, jobID uuid.UUID, out Outcome) (*types.ProcessingJob, error) {
	ctx, span := otel.Tracer("studydeck/jobs").Start(dbc.Ctx, "job.resolve_success")
	defer span.End()
	dbc.Ctx = ctx

	var (
		job     *types.ProcessingJob
		balance = -1
		already bool
	)
	err := inTx(s.db, dbc, func(dbc dbctx.Context) error {
		var err error
		job, err = s.jobs.GetByID(dbc, jobID)
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		if job == nil {
			return fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
		}
		if job.Status == types.JobCompleted {
			already = true
			return nil
		}
		now := time.Now().UTC()
		actual := out.ActualCredits
		updates := map[string]interface{}{
			"actual_credits":    actual,
			"prompt_tokens":     out.PromptTokens,
			"completion_tokens": out.CompletionTokens,
			"stage":             jobs.StageFinalize,
			"progress":          100,
			"completed_at":      now,
		}
		moved, err := s.jobs.Transition(dbc, job.ID, types.JobProcessing, types.JobCompleted, updates)
		if err != nil {
			return fmt.Errorf("complete job: %w", err)
		}
		if !moved {
			return fmt.Errorf("complete job %s from %s: %w", job.ID, job.Status, ErrInvalidTransition)
		}

		diff := job.EstimatedCredits - actual
		switch {
		case diff > 0:
			balance, err = s.ledger.Credit(dbc, CreditRequest{
				UserID: job.UserID,
				Amount: diff,
				Kind:   types.CreditRefund,
				Reason: fmt.Sprintf("estimate %d, actual %d", job.EstimatedCredits, actual),
				JobID:  &job.ID,
			})
			if err != nil {
				return err
			}
			if err := s.jobs.UpdateFields(dbc, job.ID, map[string]interface{}{"refunded_at": now}); err != nil {
				return fmt.Errorf("stamp refund: %w", err)
			}
			job.RefundedAt = &now
		case diff < 0:
			balance, err = s.ledger.Reserve(dbc, ReserveRequest{
				UserID: job.UserID,
				Amount: -diff,
				Kind:   types.CreditAdjustment,
				Reason: fmt.Sprintf("estimate %d, actual %d", job.EstimatedCredits, actual),
				JobID:  &job.ID,
			})
			var insufficient *InsufficientCreditsError
			if errors.As(err, &insufficient) {
				s.log.Warn("adjustment charge refused; completing job with unpaid balance",
					"job_id", job.ID, "user_id", job.UserID, "shortfall", -diff, "available", insufficient.Available)
				job.Metadata = mergeMetadata(s.log, job.Metadata, map[string]any{"unpaid_adjustment": -diff})
				if err := s.jobs.UpdateFields(dbc, job.ID, map[string]interface{}{"metadata": job.Metadata}); err != nil {
					return fmt.Errorf("record unpaid adjustment: %w", err)
				}
				balance = -1
			} else if err != nil {
				return err
			}
		}
		if job.Kind == jobs.KindInitial {
			if err := s.docs.SetStatus(dbc, job.DocumentID, types.DocumentCompleted, ""); err != nil {
				return fmt.Errorf("complete document: %w", err)
			}
		}
		job.Status = types.JobCompleted
		job.ActualCredits = &actual
		job.PromptTokens = out.PromptTokens
		job.CompletionTokens = out.CompletionTokens
		job.Stage = jobs.StageFinalize
		job.Progress = 100
		job.CompletedAt = &now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if already {
		return job, nil
	}
	observability.Current().IncJobResolved(string(job.Kind), string(job.Status))
	s.log.Info("job completed", "job_id", job.ID, "estimate", job.EstimatedCredits, "actual", out.ActualCredits)
	s.notify.JobDone(dbc.Ctx, job)
	if balance >= 0 {
		s.notify.CreditsChanged(dbc.Ctx, job.UserID, balance)
	}
	return job, nil
}

// ResolveFailure fails the job and returns its full estimate. Calling it again
// after the refund is a no-op.
func (s *processingJobService) ResolveFailure(dbc dbctx.Context, jobID uuid.UUID, cause error) (*types.ProcessingJob, error) {
	// Failure handling must finish even when the request that ran the job
	// has gone away.
	dbc.Ctx = ctxutil.Detached(dbc.Ctx)
	ctx, span := otel.Tracer("studydeck/jobs").Start(dbc.Ctx, "job.resolve_failure")
	defer span.End()
	dbc.Ctx = ctx

	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	var (
		job       *types.ProcessingJob
		balance   = -1
		already   bool
		failStage string
	)
	err := inTx(s.db, dbc, func(dbc dbctx.Context) error {
		var err error
		job, err = s.jobs.GetByID(dbc, jobID)
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		if job == nil {
			return fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
		}
		failStage = job.Stage
		now := time.Now().UTC()

		switch job.Status {
		case types.JobRefunded:
			already = true
			return nil
		case types.JobCompleted:
			return fmt.Errorf("fail completed job %s: %w", job.ID, ErrInvalidTransition)
		case types.JobPending, types.JobProcessing:
			moved, err := s.jobs.Transition(dbc, job.ID, job.Status, types.JobFailed, map[string]interface{}{
				"error": msg,
				"stage": jobs.StageFailed,
			})
			if err != nil {
				return fmt.Errorf("fail job: %w", err)
			}
			if !moved {
				// Another resolver got there first.
				current, err := s.jobs.GetByID(dbc, job.ID)
				if err != nil {
					return fmt.Errorf("reload job: %w", err)
				}
				if current != nil && (current.Status == types.JobFailed || current.Status == types.JobRefunded) {
					job = current
					already = true
					return nil
				}
				return fmt.Errorf("fail job %s from %s: %w", job.ID, job.Status, ErrInvalidTransition)
			}
		case types.JobFailed:
			if job.DeductedAt == nil {
				already = true
				return nil
			}
		}

		if job.DeductedAt == nil {
			// Nothing was reserved, so there is nothing to return.
			if job.Kind == jobs.KindInitial {
				if err := s.docs.SetStatus(dbc, job.DocumentID, types.DocumentFailed, msg); err != nil {
					return fmt.Errorf("fail document: %w", err)
				}
			}
			job.Status = types.JobFailed
			job.Error = msg
			job.Stage = jobs.StageFailed
			return nil
		}
		if job.EstimatedCredits > 0 {
			balance, err = s.ledger.Credit(dbc, CreditRequest{
				UserID: job.UserID,
				Amount: job.EstimatedCredits,
				Kind:   types.CreditRefund,
				Reason: "job failed: full refund",
				JobID:  &job.ID,
			})
			if err != nil {
				return err
			}
		}
		moved, err := s.jobs.Transition(dbc, job.ID, types.JobFailed, types.JobRefunded, map[string]interface{}{
			"refunded_at": now,
		})
		if err != nil {
			return fmt.Errorf("mark refunded: %w", err)
		}
		if !moved {
			return fmt.Errorf("refund job %s: %w", job.ID, ErrInvalidTransition)
		}
		if job.Kind == jobs.KindInitial {
			if err := s.docs.SetStatus(dbc, job.DocumentID, types.DocumentFailed, msg); err != nil {
				return fmt.Errorf("fail document: %w", err)
			}
		}
		job.Status = types.JobRefunded
		job.Error = msg
		job.Stage = jobs.StageFailed
		job.RefundedAt = &now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.log.Error("resolve failure failed", "job_id", jobID, "cause", msg, "error", err)
		return nil, err
	}
	if already {
		return job, nil
	}
	observability.Current().IncJobResolved(string(job.Kind), string(job.Status))
	s.log.Warn("job failed and refunded", "job_id", job.ID, "stage", failStage, "refund", job.EstimatedCredits, "error", msg)
	s.notify.JobFailed(dbc.Ctx, job, failStage, msg)
	if balance >= 0 {
		s.notify.CreditsChanged(dbc.Ctx, job.UserID, balance)
	}
	return job, nil
}

// ReclaimStale fails and refunds active jobs that have not been touched for
// olderThan. Jobs for which skip reports true are left alone.
func (s *processingJobService) ReclaimStale(dbc dbctx.Context, olderThan time.Duration, skip func(uuid.UUID) bool) (int, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("stale window %s: %w", olderThan, apperr.ErrInvalidArgument)
	}
	stale, err := s.jobs.ListStaleActive(dbc, time.Now().UTC().Add(-olderThan), 100)
	if err != nil {
		return 0, fmt.Errorf("list stale jobs: %w", err)
	}
	reclaimed := 0
	for _, job := range stale {
		if skip != nil && skip(job.ID) {
			continue
		}
		if _, err := s.ResolveFailure(dbc, job.ID, ErrJobAbandoned); err != nil {
			s.log.Warn("reclaim stale job", "job_id", job.ID, "error", err)
			continue
		}
		reclaimed++
	}
	if reclaimed > 0 {
		s.log.Info("reclaimed stale jobs", "count", reclaimed, "older_than", olderThan.String())
	}
	return reclaimed, nil
}

// mergeMetadata overlays kv on existing. Unreadable existing metadata is
// logged and replaced rather than merged.
func mergeMetadata(log *logger.Logger, existing datatypes.JSON, kv map[string]any) datatypes.JSON {
	m := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &m); err != nil {
			if log != nil {
				log.Warn("discarding unreadable job metadata", "error", err, "raw", string(existing))
			}
			m = map[string]any{"corrupt_metadata": string(existing)}
		}
		if m == nil {
			m = map[string]any{}
		}
	}
	for k, v := range kv {
		m[k] = v
	}
	raw, err := json.Marshal(m)
	if err != nil {
		if log != nil {
			log.Warn("encode job metadata", "error", err)
		}
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}
