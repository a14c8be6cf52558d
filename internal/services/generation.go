package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/domain/jobs"
	"github.com/yungbote/studydeck-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/studydeck-backend/internal/pkg/errors"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/pricing"
)

// GenerationResult describes one completed on-demand job.
type GenerationResult struct {
	JobID          uuid.UUID     `json:"job_id"`
	Kind           types.JobKind `json:"kind"`
	DocumentID     uuid.UUID     `json:"document_id"`
	TopicID        *uuid.UUID    `json:"topic_id,omitempty"`
	Items          int           `json:"items"`
	CreditsCharged int           `json:"credits_charged"`
}

// GenerationService runs fixed-price jobs against content that already
// exists. Each call is its own job with its own reservation.
type GenerationService interface {
	GenerateMoreQuestions(ctx context.Context, userID, topicID uuid.UUID) (*GenerationResult, error)
	RegenerateFlashcards(ctx context.Context, userID, topicID uuid.UUID) (*GenerationResult, error)
	RegenerateExplanations(ctx context.Context, userID, topicID uuid.UUID) (*GenerationResult, error)
	RegenerateVocabulary(ctx context.Context, userID, documentID uuid.UUID) (*GenerationResult, error)
}

type generationService struct {
	db      *gorm.DB
	log     *logger.Logger
	repos   repos.Set
	jobs    ProcessingJobService
	gen     *Generator
	store   ObjectStore
	extract TextExtractor
	runs    *RunTracker
}

func NewGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	set repos.Set,
	jobSvc ProcessingJobService,
	gen *Generator,
	store ObjectStore,
	extractor TextExtractor,
	runs *RunTracker,
) GenerationService {
	return &generationService{
		db:      db,
		log:     baseLog.With("service", "GenerationService"),
		repos:   set,
		jobs:    jobSvc,
		gen:     gen,
		store:   store,
		extract: extractor,
		runs:    runs,
	}
}

// generateFunc produces and saves one batch inside tx. It returns the number
// of rows written.
type generateFunc func(ctx context.Context, scope callScope, tally *tokenTally) (save func(dbc dbctx.Context) (int, error), err error)

type generationTarget struct {
	doc   *types.Document
	topic *types.Topic
	kind  types.JobKind
	price int
}

func (s *generationService) GenerateMoreQuestions(ctx context.Context, userID, topicID uuid.UUID) (*GenerationResult, error) {
	t, source, err := s.loadTopic(ctx, userID, topicID, jobs.KindRegenerateQuestions, pricing.MoreQuestionsCredits)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, t, func(ctx context.Context, scope callScope, tally *tokenTally) (func(dbctx.Context) (int, error), error) {
		existing, err := s.repos.Content.ListQuestionsByTopic(dbctx.New(ctx), t.topic.ID)
		if err != nil {
			return nil, &PersistenceError{Stage: "load questions", Err: err}
		}
		prior := make([]string, 0, len(existing))
		for _, q := range existing {
			prior = append(prior, q.Prompt)
		}
		rows, err := s.gen.Questions(ctx, scope, tally, t.topic, source, strings.Join(prior, "\n"))
		if err != nil {
			return nil, err
		}
		return func(dbc dbctx.Context) (int, error) {
			return len(rows), s.repos.Content.CreateQuestions(dbc, rows)
		}, nil
	})
}

func (s *generationService) RegenerateFlashcards(ctx context.Context, userID, topicID uuid.UUID) (*GenerationResult, error) {
	t, source, err := s.loadTopic(ctx, userID, topicID, jobs.KindRegenerateFlashcards, pricing.RegenerateFlashcardsCredits)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, t, func(ctx context.Context, scope callScope, tally *tokenTally) (func(dbctx.Context) (int, error), error) {
		existing, err := s.repos.Content.ListFlashcardsByTopic(dbctx.New(ctx), t.topic.ID)
		if err != nil {
			return nil, &PersistenceError{Stage: "load flashcards", Err: err}
		}
		prior := make([]string, 0, len(existing))
		for _, c := range existing {
			prior = append(prior, c.Front)
		}
		rows, err := s.gen.Flashcards(ctx, scope, tally, t.topic, source, strings.Join(prior, "\n"))
		if err != nil {
			return nil, err
		}
		return func(dbc dbctx.Context) (int, error) {
			return len(rows), s.repos.Content.ReplaceFlashcards(dbc, t.topic.ID, rows)
		}, nil
	})
}

func (s *generationService) RegenerateExplanations(ctx context.Context, userID, topicID uuid.UUID) (*GenerationResult, error) {
	t, source, err := s.loadTopic(ctx, userID, topicID, jobs.KindRegenerateExplanations, pricing.RegenerateExplanationsCredits)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, t, func(ctx context.Context, scope callScope, tally *tokenTally) (func(dbctx.Context) (int, error), error) {
		rows, err := s.gen.Explanations(ctx, scope, tally, t.topic, source)
		if err != nil {
			return nil, err
		}
		return func(dbc dbctx.Context) (int, error) {
			return len(rows), s.repos.Content.ReplaceExplanations(dbc, t.topic.ID, rows)
		}, nil
	})
}

func (s *generationService) RegenerateVocabulary(ctx context.Context, userID, documentID uuid.UUID) (*GenerationResult, error) {
	dbc := dbctx.New(ctx)
	doc, err := s.loadDocument(dbc, userID, documentID)
	if err != nil {
		return nil, err
	}
	topics, err := s.repos.Topics.ListByDocument(dbc, doc.ID)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(topics))
	for _, t := range topics {
		titles = append(titles, t.Title)
	}
	source := s.sourceText(ctx, doc, topics...)
	t := generationTarget{doc: doc, kind: jobs.KindRegenerateVocabulary, price: pricing.RegenerateVocabularyCredits}
	return s.run(ctx, t, func(ctx context.Context, scope callScope, tally *tokenTally) (func(dbctx.Context) (int, error), error) {
		rows, err := s.gen.Vocabulary(ctx, scope, tally, doc.ID, doc.Title, source, titles)
		if err != nil {
			return nil, err
		}
		return func(dbc dbctx.Context) (int, error) {
			return len(rows), s.repos.Content.ReplaceVocabulary(dbc, doc.ID, rows)
		}, nil
	})
}

// run reserves the fixed price, generates, saves in one transaction and
// resolves the job. Failures after the reservation refund it in full.
func (s *generationService) run(ctx context.Context, t generationTarget, generate generateFunc) (*GenerationResult, error) {
	ctx, span := otel.Tracer("studydeck/generation").Start(ctx, "generation."+string(t.kind))
	defer span.End()
	span.SetAttributes(attribute.String("document.id", t.doc.ID.String()))

	dbc := dbctx.New(ctx)
	var topicID *uuid.UUID
	if t.topic != nil {
		id := t.topic.ID
		topicID = &id
	}
	job, err := s.jobs.CreateAndReserve(dbc, JobSpec{
		DocumentID: t.doc.ID,
		UserID:     t.doc.OwnerID,
		Kind:       t.kind,
		TopicID:    topicID,
		Estimate:   t.price,
		LedgerKind: types.CreditGeneration,
	})
	if err != nil {
		return nil, err
	}

	// Once credits are reserved the job must reach a terminal state.
	ctx = ctxutil.Detached(ctx)
	dbc = dbctx.New(ctx)
	fail := func(err error) (*GenerationResult, error) {
		span.RecordError(err)
		if _, rerr := s.jobs.ResolveFailure(dbc, job.ID, err); rerr != nil {
			s.log.Error("refund failed", "job_id", job.ID, "error", rerr)
			return nil, fmt.Errorf("%v (refund failed: %w)", err, rerr)
		}
		return nil, err
	}
	if !s.runs.Begin(job.ID) {
		return fail(ErrShuttingDown)
	}
	defer s.runs.End(job.ID)
	stopHeartbeat := startHeartbeat(ctx, s.log, s.repos.Jobs, job.ID, DefaultHeartbeatInterval)
	defer stopHeartbeat()
	if err := s.jobs.RecordProgress(dbc, job.ID, jobs.StageGenerate, 10); err != nil {
		s.log.Warn("persist job progress", "job_id", job.ID, "error", err)
	}

	docID := t.doc.ID
	scope := callScope{JobID: &job.ID, DocumentID: &docID, UserID: job.UserID}
	tally := &tokenTally{}
	save, err := generate(ctx, scope, tally)
	if err != nil {
		return fail(err)
	}
	var items int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := save(dbc.WithTx(tx))
		items = n
		return err
	})
	if err != nil {
		return fail(&PersistenceError{Stage: string(t.kind), Err: err})
	}
	done, err := s.jobs.ResolveSuccess(dbc, job.ID, Outcome{
		ActualCredits:    t.price,
		PromptTokens:     tally.Prompt,
		CompletionTokens: tally.Completion,
	})
	if err != nil {
		return fail(&PersistenceError{Stage: "resolve", Err: err})
	}
	s.log.Info("generation completed", "job_id", done.ID, "kind", t.kind, "items", items)
	return &GenerationResult{
		JobID:          done.ID,
		Kind:           t.kind,
		DocumentID:     t.doc.ID,
		TopicID:        topicID,
		Items:          items,
		CreditsCharged: t.price,
	}, nil
}

func (s *generationService) loadTopic(ctx context.Context, userID, topicID uuid.UUID, kind types.JobKind, price int) (generationTarget, string, error) {
	dbc := dbctx.New(ctx)
	topic, err := s.repos.Topics.GetByID(dbc, topicID)
	if err != nil {
		return generationTarget{}, "", err
	}
	if topic == nil {
		return generationTarget{}, "", fmt.Errorf("topic %s: %w", topicID, apperr.ErrNotFound)
	}
	doc, err := s.loadDocument(dbc, userID, topic.DocumentID)
	if err != nil {
		return generationTarget{}, "", err
	}
	return generationTarget{doc: doc, topic: topic, kind: kind, price: price}, s.sourceText(ctx, doc, topic), nil
}

func (s *generationService) loadDocument(dbc dbctx.Context, userID, documentID uuid.UUID) (*types.Document, error) {
	doc, err := loadOwnedDocument(dbc, s.repos.Documents, userID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != types.DocumentCompleted {
		return nil, fmt.Errorf("document %s is %s: %w", doc.ID, doc.Status, apperr.ErrConflict)
	}
	return doc, nil
}

// sourceText re-extracts the stored upload. Cloned documents have no stored
// file, so they fall back to topic titles and summaries.
func (s *generationService) sourceText(ctx context.Context, doc *types.Document, topics ...*types.Topic) string {
	if s.store != nil && s.extract != nil && strings.TrimSpace(doc.StorageKey) != "" {
		if text, err := s.readAndExtract(ctx, doc); err == nil && strings.TrimSpace(text) != "" {
			return text
		} else if err != nil {
			s.log.Warn("source extraction failed, using topic summaries", "document_id", doc.ID, "error", err)
		}
	}
	var b strings.Builder
	for _, t := range topics {
		b.WriteString(t.Title)
		b.WriteString("\n")
		b.WriteString(t.Summary)
		b.WriteString("\n\n")
	}
	return b.String()
}

func (s *generationService) readAndExtract(ctx context.Context, doc *types.Document) (string, error) {
	rc, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	ex, err := s.extract.Extract(ctx, ExtractFile{Name: doc.OriginalName, MimeType: doc.MimeType, Data: data})
	if err != nil {
		return "", err
	}
	return ex.Text, nil
}
