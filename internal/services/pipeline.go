package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/domain/jobs"
	"github.com/yungbote/studydeck-backend/internal/observability"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/pricing"
	"github.com/yungbote/studydeck-backend/internal/prompts"
)

// Progress checkpoints, in percent.
const (
	ProgressUpload     = 10
	ProgressExtract    = 20
	ProgressAnalyze    = 30
	ProgressEstimate   = 40
	ProgressTopicsFrom = 50
	ProgressTopicsTo   = 80
	ProgressVocabulary = 95
	ProgressDone       = 100
)

type ProgressEvent struct {
	DocumentID uuid.UUID `json:"document_id"`
	JobID      uuid.UUID `json:"job_id,omitempty"`
	Stage      string    `json:"stage"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message"`
	Failed     bool      `json:"failed,omitempty"`
}

type ProgressFunc func(ProgressEvent)

// progressReporter keeps reported progress monotonic.
type progressReporter struct {
	documentID uuid.UUID
	jobID      uuid.UUID
	stage      string
	last       int
	sinks      []ProgressFunc
}

func newProgressReporter(documentID uuid.UUID, sinks ...ProgressFunc) *progressReporter {
	return &progressReporter{documentID: documentID, sinks: sinks}
}

func (r *progressReporter) report(stage string, pct int, format string, args ...any) {
	if pct < r.last {
		pct = r.last
	}
	r.last = pct
	r.stage = stage
	r.emit(ProgressEvent{DocumentID: r.documentID, JobID: r.jobID, Stage: stage, Progress: pct, Message: fmt.Sprintf(format, args...)})
}

func (r *progressReporter) failed(stage string, err error) {
	r.emit(ProgressEvent{DocumentID: r.documentID, JobID: r.jobID, Stage: jobs.StageFailed, Progress: r.last, Message: fmt.Sprintf("%s failed: %v", stage, err), Failed: true})
}

func (r *progressReporter) emit(ev ProgressEvent) {
	for _, fn := range r.sinks {
		if fn != nil {
			fn(ev)
		}
	}
}

// PipelineInput is a reserved job and the material its preflight produced.
type PipelineInput struct {
	Job      *types.ProcessingJob
	Document *types.Document
	Text     string
	Topics   []prompts.TopicDraft
	// ProcessingCredits seeds the actual cost.
	ProcessingCredits int
}

// Pipeline runs the post-reservation stages of an initial job.
type Pipeline struct {
	log     *logger.Logger
	gen     *Generator
	topics  repos.TopicRepo
	content repos.ContentRepo
}

func NewPipeline(baseLog *logger.Logger, gen *Generator, topicRepo repos.TopicRepo, contentRepo repos.ContentRepo) *Pipeline {
	return &Pipeline{
		log:     baseLog.With("service", "Pipeline"),
		gen:     gen,
		topics:  topicRepo,
		content: contentRepo,
	}
}

// Execute generates and saves content topic by topic, then vocabulary. It
// stops at the first failure; topics already finished stay saved.
func (p *Pipeline) Execute(ctx context.Context, in PipelineInput, progress *progressReporter) (Outcome, error) {
	ctx, span := otel.Tracer("studydeck/pipeline").Start(ctx, "pipeline.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", in.Job.ID.String()),
		attribute.Int("pipeline.topics", len(in.Topics)),
	)

	jobID, docID := in.Job.ID, in.Document.ID
	scope := callScope{JobID: &jobID, DocumentID: &docID, UserID: in.Job.UserID}
	tally := &tokenTally{}
	actual := in.ProcessingCredits
	total := len(in.Topics)
	dbc := dbctx.New(ctx)

	outcome := func() Outcome {
		return Outcome{ActualCredits: actual, PromptTokens: tally.Prompt, CompletionTokens: tally.Completion}
	}
	fail := func(stage string, err error) (Outcome, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		return outcome(), err
	}

	titles := make([]string, 0, total)
	for i, draft := range in.Topics {
		progress.report(jobs.StageTopics, topicProgress(i, total), "Generating topic %d of %d: %s", i+1, total, draft.Title)
		if err := p.runTopic(ctx, dbc, scope, tally, in, i, draft); err != nil {
			return fail(jobs.StageTopics, err)
		}
		actual += pricing.PerTopicCredits
		titles = append(titles, draft.Title)
		progress.report(jobs.StageTopics, topicProgress(i+1, total), "Finished topic %d of %d", i+1, total)
	}

	progress.report(jobs.StageVocabulary, ProgressTopicsTo, "Building vocabulary")
	start := time.Now()
	terms, err := p.gen.Vocabulary(ctx, scope, tally, docID, in.Document.Title, in.Text, titles)
	if err != nil {
		observability.Current().ObserveStage(jobs.StageVocabulary, "error", time.Since(start))
		return fail(jobs.StageVocabulary, err)
	}
	if err := p.content.CreateVocabulary(dbc, terms); err != nil {
		observability.Current().ObserveStage(jobs.StageVocabulary, "error", time.Since(start))
		return fail(jobs.StageVocabulary, &PersistenceError{Stage: "vocabulary", Err: err})
	}
	observability.Current().ObserveStage(jobs.StageVocabulary, "ok", time.Since(start))
	actual += pricing.VocabularyPerDocument
	progress.report(jobs.StageVocabulary, ProgressVocabulary, "Saved %d vocabulary terms", len(terms))

	return outcome(), nil
}

func (p *Pipeline) runTopic(ctx context.Context, dbc dbctx.Context, scope callScope, tally *tokenTally, in PipelineInput, position int, draft prompts.TopicDraft) (err error) {
	ctx, span := otel.Tracer("studydeck/pipeline").Start(ctx, "pipeline.topic")
	defer span.End()
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
		}
		observability.Current().ObserveStage(jobs.StageTopics, outcome, time.Since(start))
	}()
	dbc.Ctx = ctx

	// The topic row must exist before any call is spent on it.
	topic := &types.Topic{DocumentID: in.Document.ID, Title: draft.Title, Summary: draft.Summary, Position: position}
	if err := p.topics.Create(dbc, topic); err != nil {
		return &PersistenceError{Stage: "topic", Err: err}
	}
	span.SetAttributes(attribute.String("topic.id", topic.ID.String()))

	cards, err := p.gen.Flashcards(ctx, scope, tally, topic, in.Text, "")
	if err != nil {
		return err
	}
	if err := p.content.CreateFlashcards(dbc, cards); err != nil {
		return &PersistenceError{Stage: "flashcards", Err: err}
	}

	questions, err := p.gen.Questions(ctx, scope, tally, topic, in.Text, "")
	if err != nil {
		return err
	}
	if err := p.content.CreateQuestions(dbc, questions); err != nil {
		return &PersistenceError{Stage: "questions", Err: err}
	}

	explanations, err := p.gen.Explanations(ctx, scope, tally, topic, in.Text)
	if err != nil {
		return err
	}
	if err := p.content.CreateExplanations(dbc, explanations); err != nil {
		return &PersistenceError{Stage: "explanations", Err: err}
	}
	return nil
}

func topicProgress(done, total int) int {
	if total <= 0 {
		return ProgressTopicsTo
	}
	return ProgressTopicsFrom + (ProgressTopicsTo-ProgressTopicsFrom)*done/total
}
