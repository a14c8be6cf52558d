package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/domain/jobs"
	"github.com/yungbote/studydeck-backend/internal/observability"
	"github.com/yungbote/studydeck-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/studydeck-backend/internal/pkg/errors"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/pricing"
	"github.com/yungbote/studydeck-backend/internal/prompts"
)

type UploadRequest struct {
	Title    string
	FileName string
	MimeType string
	Data     []byte
}

type ProcessResult struct {
	DocumentID     uuid.UUID         `json:"document_id"`
	JobID          *uuid.UUID        `json:"job_id,omitempty"`
	Resolution     ResolutionKind    `json:"resolution"`
	CreditEstimate pricing.Breakdown `json:"credit_estimate"`
}

// PreparedJob is a document whose credits are reserved and whose pipeline
// has not run yet. Reuse and clone results carry no job.
type PreparedJob struct {
	Result *ProcessResult

	doc      *types.Document
	job      *types.ProcessingJob
	text     string
	topics   []prompts.TopicDraft
	estimate pricing.Breakdown
	retry    bool
	progress *progressReporter
}

// Pending reports whether Run has work to do.
func (p *PreparedJob) Pending() bool { return p != nil && p.job != nil }

type JobView struct {
	ID               uuid.UUID       `json:"id"`
	Kind             types.JobKind   `json:"kind"`
	Status           types.JobStatus `json:"status"`
	Stage            string          `json:"stage"`
	Progress         int             `json:"progress"`
	EstimatedCredits int             `json:"estimated_credits"`
	ActualCredits    *int            `json:"actual_credits,omitempty"`
	Error            string          `json:"error,omitempty"`
}

type DocumentStatus struct {
	DocumentID      uuid.UUID            `json:"document_id"`
	Title           string               `json:"title"`
	Status          types.DocumentStatus `json:"status"`
	PageCount       int                  `json:"page_count"`
	SharedContentID *uuid.UUID           `json:"shared_content_id,omitempty"`
	Error           string               `json:"error,omitempty"`
	Job             *JobView             `json:"job,omitempty"`
	Counts          repos.ContentCounts  `json:"counts"`
}

type DocumentService interface {
	// ProcessDocument runs preflight, reservation and the pipeline in the
	// caller's goroutine.
	ProcessDocument(ctx context.Context, userID uuid.UUID, req UploadRequest, onProgress ProgressFunc) (*ProcessResult, error)
	// Prepare stops after reservation so the pipeline can run elsewhere.
	Prepare(ctx context.Context, userID uuid.UUID, req UploadRequest, onProgress ProgressFunc) (*PreparedJob, error)
	Run(ctx context.Context, prep *PreparedJob) error
	RetryDocument(ctx context.Context, userID, documentID uuid.UUID, onProgress ProgressFunc) (*PreparedJob, error)
	GetDocumentStatus(ctx context.Context, userID, documentID uuid.UUID) (*DocumentStatus, error)
	ListDocuments(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID uuid.UUID) error
}

type DocumentServiceDeps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Repos       repos.Set
	Fingerprint FingerprintService
	Jobs        ProcessingJobService
	Ledger      LedgerService
	Pipeline    *Pipeline
	Generator   *Generator
	Store       ObjectStore
	Extractor   TextExtractor
	Notify      JobNotifier
	// Runs tracks in-flight pipelines; nil disables tracking.
	Runs *RunTracker
	// HeartbeatInterval defaults to DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration
}

type documentService struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    repos.Set
	fp       FingerprintService
	jobs     ProcessingJobService
	ledger   LedgerService
	pipeline *Pipeline
	gen      *Generator
	store    ObjectStore
	extract  TextExtractor
	notify   JobNotifier
	runs     *RunTracker
	beat     time.Duration
}

func NewDocumentService(d DocumentServiceDeps) DocumentService {
	return &documentService{
		db:       d.DB,
		log:      d.Log.With("service", "DocumentService"),
		repos:    d.Repos,
		fp:       d.Fingerprint,
		jobs:     d.Jobs,
		ledger:   d.Ledger,
		pipeline: d.Pipeline,
		gen:      d.Generator,
		store:    d.Store,
		extract:  d.Extractor,
		notify:   d.Notify,
		runs:     d.Runs,
		beat:     d.HeartbeatInterval,
	}
}

func (s *documentService) ProcessDocument(ctx context.Context, userID uuid.UUID, req UploadRequest, onProgress ProgressFunc) (*ProcessResult, error) {
	prep, err := s.Prepare(ctx, userID, req, onProgress)
	if err != nil {
		return nil, err
	}
	if err := s.Run(ctx, prep); err != nil {
		return prep.Result, err
	}
	return prep.Result, nil
}

func (s *documentService) Prepare(ctx context.Context, userID uuid.UUID, req UploadRequest, onProgress ProgressFunc) (*PreparedJob, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrUnauthorized
	}
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("empty upload: %w", apperr.ErrInvalidArgument)
	}
	dbc := dbctx.New(ctx)
	if _, err := s.ledger.EnsureAccount(dbc, userID); err != nil {
		return nil, fmt.Errorf("ensure credit account: %w", err)
	}

	fp := Fingerprint(req.Data)
	res, err := s.fp.Resolve(dbc, fp, userID)
	if err != nil {
		return nil, err
	}
	switch res.Kind {
	case ResolutionReuse:
		s.log.Info("upload reused existing document", "user_id", userID, "document_id", res.DocumentID)
		return &PreparedJob{Result: &ProcessResult{DocumentID: res.DocumentID, Resolution: ResolutionReuse}}, nil
	case ResolutionCloneFrom:
		return s.cloneFrom(ctx, userID, req, fp, res.SharedContentID)
	}

	doc := &types.Document{
		OwnerID:      userID,
		Title:        documentTitle(req),
		OriginalName: req.FileName,
		MimeType:     req.MimeType,
		SizeBytes:    int64(len(req.Data)),
		StorageKey:   storageKey(userID, fp, req.FileName),
		Fingerprint:  fp,
		Status:       types.DocumentPending,
	}
	progress := newProgressReporter(uuid.Nil, onProgress)

	progress.report(jobs.StageUpload, ProgressUpload, "Uploading %s", doc.Title)
	if err := s.store.Put(ctx, doc.StorageKey, bytes.NewReader(req.Data)); err != nil {
		return nil, &PreflightError{Stage: jobs.StageUpload, Err: err}
	}
	if err := s.repos.Documents.Create(dbc, doc); err != nil {
		if apperr.IsUniqueViolation(err) {
			// A concurrent upload of the same file won the insert.
			existing, gerr := s.repos.Documents.GetByOwnerAndFingerprint(dbc, userID, fp)
			if gerr == nil && existing != nil {
				return &PreparedJob{Result: &ProcessResult{DocumentID: existing.ID, Resolution: ResolutionReuse}}, nil
			}
		}
		s.deleteObject(ctx, doc.StorageKey)
		return nil, &PreflightError{Stage: jobs.StageUpload, Err: err}
	}
	progress.documentID = doc.ID
	return s.prepareExisting(ctx, doc, req.Data, false, progress)
}

func (s *documentService) RetryDocument(ctx context.Context, userID, documentID uuid.UUID, onProgress ProgressFunc) (*PreparedJob, error) {
	dbc := dbctx.New(ctx)
	doc, err := s.loadOwned(dbc, userID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == types.DocumentCompleted {
		return nil, fmt.Errorf("document %s already completed: %w", doc.ID, apperr.ErrConflict)
	}
	active, err := s.repos.Jobs.GetActiveForDocument(dbc, doc.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrJobAlreadyActive
	}
	if strings.TrimSpace(doc.StorageKey) == "" {
		return nil, fmt.Errorf("document %s has no stored source: %w", doc.ID, apperr.ErrInvalidArgument)
	}
	progress := newProgressReporter(doc.ID, onProgress)
	progress.report(jobs.StageUpload, ProgressUpload, "Loading %s", doc.Title)
	data, err := s.readObject(ctx, doc.StorageKey)
	if err != nil {
		return nil, &PreflightError{Stage: jobs.StageUpload, Err: err}
	}
	return s.prepareExisting(ctx, doc, data, true, progress)
}

// prepareExisting runs extraction and topic discovery, then reserves the
// estimate. Preflight failures mark the document failed and touch no credits.
func (s *documentService) prepareExisting(ctx context.Context, doc *types.Document, data []byte, retry bool, progress *progressReporter) (*PreparedJob, error) {
	dbc := dbctx.New(ctx)
	failPreflight := func(stage string, err error) (*PreparedJob, error) {
		perr := &PreflightError{Stage: stage, Err: err}
		if uerr := s.repos.Documents.SetStatus(dbc, doc.ID, types.DocumentFailed, perr.Error()); uerr != nil {
			s.log.Warn("mark document failed", "document_id", doc.ID, "error", uerr)
		}
		progress.failed(stage, err)
		return nil, perr
	}

	progress.report(jobs.StageExtract, ProgressExtract, "Extracting text")
	start := time.Now()
	ex, err := s.extract.Extract(ctx, ExtractFile{Name: doc.OriginalName, MimeType: doc.MimeType, Data: data})
	if err == nil && strings.TrimSpace(ex.Text) == "" {
		err = fmt.Errorf("no text found")
	}
	if err != nil {
		observability.Current().ObserveStage(jobs.StageExtract, "error", time.Since(start))
		return failPreflight(jobs.StageExtract, err)
	}
	observability.Current().ObserveStage(jobs.StageExtract, "ok", time.Since(start))
	if err := s.repos.Documents.UpdateFields(dbc, doc.ID, map[string]interface{}{"page_count": ex.PageCount}); err != nil {
		return failPreflight(jobs.StageExtract, err)
	}
	doc.PageCount = ex.PageCount

	progress.report(jobs.StageAnalyze, ProgressAnalyze, "Finding topics in %d pages", ex.PageCount)
	start = time.Now()
	docID := doc.ID
	topics, err := s.gen.Topics(ctx, callScope{DocumentID: &docID, UserID: doc.OwnerID}, nil, doc.Title, ex.Text, 2*pricing.HeuristicTopicCount(ex.PageCount))
	if err != nil {
		observability.Current().ObserveStage(jobs.StageAnalyze, "error", time.Since(start))
		return failPreflight(jobs.StageAnalyze, err)
	}
	observability.Current().ObserveStage(jobs.StageAnalyze, "ok", time.Since(start))

	estimate := pricing.EstimateForPages(ex.PageCount)
	progress.report(jobs.StageAnalyze, ProgressEstimate, "Estimated %d credits for %d topics", estimate.Total, len(topics))

	job, err := s.jobs.CreateAndReserve(dbc, JobSpec{
		DocumentID: doc.ID,
		UserID:     doc.OwnerID,
		Kind:       jobs.KindInitial,
		Estimate:   estimate.Total,
		Metadata: map[string]any{
			"estimate":          estimate,
			"topics_discovered": len(topics),
			"retry":             retry,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := s.repos.Documents.SetStatus(dbc, doc.ID, types.DocumentProcessing, ""); err != nil {
		if _, ferr := s.jobs.ResolveFailure(dbc, job.ID, &PersistenceError{Stage: "document", Err: err}); ferr != nil {
			s.log.Error("refund after document update failure", "job_id", job.ID, "error", ferr)
		}
		return nil, &PersistenceError{Stage: "document", Err: err}
	}
	doc.Status = types.DocumentProcessing

	progress.jobID = job.ID
	prep := &PreparedJob{
		doc:      doc,
		job:      job,
		text:     ex.Text,
		topics:   topics,
		estimate: estimate,
		retry:    retry,
		progress: progress,
	}
	prep.Result = &ProcessResult{DocumentID: doc.ID, JobID: &job.ID, Resolution: ResolutionNew, CreditEstimate: estimate}
	progress.sinks = append(progress.sinks, s.jobProgressSink(ctx, job))
	return prep, nil
}

func (s *documentService) jobProgressSink(ctx context.Context, job *types.ProcessingJob) ProgressFunc {
	ctx = ctxutil.Detached(ctx)
	return func(ev ProgressEvent) {
		if err := s.jobs.RecordProgress(dbctx.New(ctx), job.ID, ev.Stage, ev.Progress); err != nil {
			s.log.Warn("persist job progress", "job_id", job.ID, "error", err)
		}
		s.notify.JobProgress(ctx, job, ev)
	}
}

// Run executes the pipeline for a prepared job and resolves it. It ignores
// cancellation of ctx: a reserved job always reaches a terminal state.
func (s *documentService) Run(ctx context.Context, prep *PreparedJob) error {
	if !prep.Pending() {
		return nil
	}
	ctx = ctxutil.Detached(ctx)
	dbc := dbctx.New(ctx)
	job := prep.job

	fail := func(err error) error {
		_, rerr := s.jobs.ResolveFailure(dbc, job.ID, err)
		prep.progress.failed(prep.progress.stage, err)
		if rerr != nil {
			return fmt.Errorf("%v (refund failed: %w)", err, rerr)
		}
		return err
	}
	if !s.runs.Begin(job.ID) {
		return fail(ErrShuttingDown)
	}
	defer s.runs.End(job.ID)
	stopHeartbeat := startHeartbeat(ctx, s.log, s.repos.Jobs, job.ID, s.beat)
	defer stopHeartbeat()

	if prep.retry {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repos.Content.DeleteByDocument(dbc.WithTx(tx), prep.doc.ID); err != nil {
				return err
			}
			return s.repos.Topics.DeleteByDocument(dbc.WithTx(tx), prep.doc.ID)
		})
		if err != nil {
			return fail(&PersistenceError{Stage: "clear previous attempt", Err: err})
		}
	}

	out, err := s.pipeline.Execute(ctx, PipelineInput{
		Job:               job,
		Document:          prep.doc,
		Text:              prep.text,
		Topics:            prep.topics,
		ProcessingCredits: prep.estimate.Processing,
	}, prep.progress)
	if err != nil {
		return fail(err)
	}
	done, err := s.jobs.ResolveSuccess(dbc, job.ID, out)
	if err != nil {
		return fail(&PersistenceError{Stage: "resolve", Err: err})
	}
	prep.job = done
	prep.progress.report(jobs.StageFinalize, ProgressDone, "Done: %d credits used", out.ActualCredits)
	return nil
}

// cloneFrom copies a completed document's content for a new owner. The job
// is written completed with zero cost and no ledger row.
func (s *documentService) cloneFrom(ctx context.Context, userID uuid.UUID, req UploadRequest, fp string, originID uuid.UUID) (*PreparedJob, error) {
	dbc := dbctx.New(ctx)
	origin, err := s.repos.Documents.GetByID(dbc, originID)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, fmt.Errorf("shared document %s: %w", originID, apperr.ErrNotFound)
	}
	root := origin.ID
	if origin.SharedContentID != nil {
		root = *origin.SharedContentID
	}

	doc := &types.Document{
		OwnerID:         userID,
		Title:           documentTitle(req),
		OriginalName:    req.FileName,
		MimeType:        req.MimeType,
		SizeBytes:       int64(len(req.Data)),
		Fingerprint:     fp,
		SharedContentID: &root,
		PageCount:       origin.PageCount,
		Status:          types.DocumentCompleted,
	}
	var job *types.ProcessingJob
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tdbc := dbc.WithTx(tx)
		if err := s.repos.Documents.Create(tdbc, doc); err != nil {
			return err
		}
		if err := s.copyContent(tdbc, origin.ID, doc.ID); err != nil {
			return err
		}
		var err error
		job, err = s.jobs.CreateCompleted(tdbc, JobSpec{
			DocumentID: doc.ID,
			UserID:     userID,
			Kind:       jobs.KindInitial,
			Metadata:   map[string]any{"cloned_from": origin.ID},
		})
		return err
	})
	if err != nil {
		if apperr.IsUniqueViolation(err) {
			if existing, gerr := s.repos.Documents.GetByOwnerAndFingerprint(dbc, userID, fp); gerr == nil && existing != nil {
				return &PreparedJob{Result: &ProcessResult{DocumentID: existing.ID, Resolution: ResolutionReuse}}, nil
			}
		}
		return nil, fmt.Errorf("clone document: %w", err)
	}
	s.log.Info("cloned shared content", "user_id", userID, "document_id", doc.ID, "origin_id", origin.ID)
	s.notify.JobDone(ctx, job)
	return &PreparedJob{Result: &ProcessResult{DocumentID: doc.ID, JobID: &job.ID, Resolution: ResolutionCloneFrom}}, nil
}

func (s *documentService) copyContent(dbc dbctx.Context, fromDocID, toDocID uuid.UUID) error {
	topics, err := s.repos.Topics.ListByDocument(dbc, fromDocID)
	if err != nil {
		return err
	}
	topicIDs := make(map[uuid.UUID]uuid.UUID, len(topics))
	for _, t := range topics {
		nt := &types.Topic{DocumentID: toDocID, Title: t.Title, Summary: t.Summary, Position: t.Position}
		if err := s.repos.Topics.Create(dbc, nt); err != nil {
			return err
		}
		topicIDs[t.ID] = nt.ID
	}

	cards, err := s.repos.Content.ListFlashcards(dbc, fromDocID)
	if err != nil {
		return err
	}
	newCards := make([]*types.Flashcard, 0, len(cards))
	for _, c := range cards {
		newCards = append(newCards, &types.Flashcard{TopicID: topicIDs[c.TopicID], DocumentID: toDocID, Front: c.Front, Back: c.Back})
	}
	if err := s.repos.Content.CreateFlashcards(dbc, newCards); err != nil {
		return err
	}

	questions, err := s.repos.Content.ListQuestions(dbc, fromDocID)
	if err != nil {
		return err
	}
	newQuestions := make([]*types.Question, 0, len(questions))
	for _, q := range questions {
		newQuestions = append(newQuestions, &types.Question{
			TopicID: topicIDs[q.TopicID], DocumentID: toDocID,
			Prompt: q.Prompt, Choices: q.Choices, AnswerIndex: q.AnswerIndex, Rationale: q.Rationale,
		})
	}
	if err := s.repos.Content.CreateQuestions(dbc, newQuestions); err != nil {
		return err
	}

	explanations, err := s.repos.Content.ListExplanations(dbc, fromDocID)
	if err != nil {
		return err
	}
	newExplanations := make([]*types.Explanation, 0, len(explanations))
	for _, e := range explanations {
		newExplanations = append(newExplanations, &types.Explanation{TopicID: topicIDs[e.TopicID], DocumentID: toDocID, Concept: e.Concept, Body: e.Body})
	}
	if err := s.repos.Content.CreateExplanations(dbc, newExplanations); err != nil {
		return err
	}

	terms, err := s.repos.Content.ListVocabulary(dbc, fromDocID)
	if err != nil {
		return err
	}
	newTerms := make([]*types.VocabularyTerm, 0, len(terms))
	for _, v := range terms {
		newTerms = append(newTerms, &types.VocabularyTerm{DocumentID: toDocID, Term: v.Term, Definition: v.Definition})
	}
	return s.repos.Content.CreateVocabulary(dbc, newTerms)
}

func (s *documentService) GetDocumentStatus(ctx context.Context, userID, documentID uuid.UUID) (*DocumentStatus, error) {
	dbc := dbctx.New(ctx)
	doc, err := s.loadOwned(dbc, userID, documentID)
	if err != nil {
		return nil, err
	}
	out := &DocumentStatus{
		DocumentID:      doc.ID,
		Title:           doc.Title,
		Status:          doc.Status,
		PageCount:       doc.PageCount,
		SharedContentID: doc.SharedContentID,
		Error:           doc.Error,
	}
	job, err := s.repos.Jobs.GetLatestForDocument(dbc, doc.ID)
	if err != nil {
		return nil, err
	}
	if job != nil {
		out.Job = &JobView{
			ID:               job.ID,
			Kind:             job.Kind,
			Status:           job.Status,
			Stage:            job.Stage,
			Progress:         job.Progress,
			EstimatedCredits: job.EstimatedCredits,
			ActualCredits:    job.ActualCredits,
			Error:            job.Error,
		}
	}
	if out.Counts, err = s.repos.Content.CountByDocument(dbc, doc.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *documentService) ListDocuments(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Document, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrUnauthorized
	}
	return s.repos.Documents.ListByOwner(dbctx.New(ctx), userID, limit)
}

// DeleteDocument removes the document and its generated content. Jobs and
// ledger rows stay as the audit trail.
func (s *documentService) DeleteDocument(ctx context.Context, userID, documentID uuid.UUID) error {
	dbc := dbctx.New(ctx)
	doc, err := s.loadOwned(dbc, userID, documentID)
	if err != nil {
		return err
	}
	active, err := s.repos.Jobs.GetActiveForDocument(dbc, doc.ID)
	if err != nil {
		return err
	}
	if active != nil {
		return ErrJobAlreadyActive
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tdbc := dbc.WithTx(tx)
		if err := s.repos.Content.DeleteByDocument(tdbc, doc.ID); err != nil {
			return err
		}
		if err := s.repos.Topics.DeleteByDocument(tdbc, doc.ID); err != nil {
			return err
		}
		return s.repos.Documents.Delete(tdbc, doc.ID)
	})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.deleteObject(ctx, doc.StorageKey)
	s.log.Info("document deleted", "document_id", doc.ID, "user_id", userID)
	return nil
}

func (s *documentService) loadOwned(dbc dbctx.Context, userID, documentID uuid.UUID) (*types.Document, error) {
	return loadOwnedDocument(dbc, s.repos.Documents, userID, documentID)
}

// loadOwnedDocument returns the document when userID owns it. uuid.Nil skips
// the ownership check for operator tooling.
func loadOwnedDocument(dbc dbctx.Context, docs repos.DocumentRepo, userID, documentID uuid.UUID) (*types.Document, error) {
	doc, err := docs.GetByID(dbc, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", documentID, apperr.ErrNotFound)
	}
	if userID != uuid.Nil && doc.OwnerID != userID {
		return nil, fmt.Errorf("document %s: %w", documentID, apperr.ErrUnauthorized)
	}
	return doc, nil
}

func (s *documentService) readObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *documentService) deleteObject(ctx context.Context, key string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	if err := s.store.Delete(ctxutil.Detached(ctx), key); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		s.log.Warn("delete stored object", "key", key, "error", err)
	}
}

func documentTitle(req UploadRequest) string {
	if t := strings.TrimSpace(req.Title); t != "" {
		return t
	}
	name := strings.TrimSpace(filepath.Base(req.FileName))
	if name == "" || name == "." {
		return "Untitled document"
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func storageKey(userID uuid.UUID, fp, fileName string) string {
	return fmt.Sprintf("documents/%s/%s%s", userID, fp, strings.ToLower(filepath.Ext(fileName)))
}
