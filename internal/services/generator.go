package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/domain/usage"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/platform/openai"
	"github.com/yungbote/studydeck-backend/internal/prompts"
)

// Items requested per call.
const (
	FlashcardsPerCall   = 5
	QuestionsPerCall    = 3
	ExplanationsPerCall = 2
	VocabularyPerCall   = 15
	MaxTopics           = 30

	defaultExcerptChars = 24000
	topicExcerptChars   = 6000
)

// callScope ties AI calls to the records their usage is charged against.
type callScope struct {
	JobID      *uuid.UUID
	DocumentID *uuid.UUID
	UserID     uuid.UUID
}

type tokenTally struct {
	Prompt     int
	Completion int
}

func (t *tokenTally) add(u openai.Usage) {
	if t == nil {
		return
	}
	t.Prompt += u.PromptTokens
	t.Completion += u.CompletionTokens
}

// Generator turns prompts into validated study material. It never persists
// content; callers save what it returns.
type Generator struct {
	log        *logger.Logger
	ai         AIClient
	usage      UsageAccountant
	model      string
	maxExcerpt int
}

func NewGenerator(baseLog *logger.Logger, ai AIClient, usageAcct UsageAccountant, model string) *Generator {
	return &Generator{
		log:        baseLog.With("service", "Generator"),
		ai:         ai,
		usage:      usageAcct,
		model:      strings.TrimSpace(model),
		maxExcerpt: defaultExcerptChars,
	}
}

// complete runs one prompt. Usage is recorded before the output is decoded,
// so tokens are accounted even when the output is unusable.
func (g *Generator) complete(ctx context.Context, scope callScope, tally *tokenTally, name prompts.PromptName, op types.UsageOperation, in prompts.Input, out any) error {
	p, err := prompts.Build(name, in)
	if err != nil {
		return &GenerationError{Operation: string(op), Err: err}
	}
	resp, err := g.ai.Complete(ctx, openai.Request{System: p.System, Prompt: p.User, Model: g.model})
	if err != nil {
		return &GenerationError{Operation: string(op), Err: err}
	}
	tally.add(resp.Usage)
	if g.usage != nil {
		g.usage.Record(ctx, UsageEvent{
			JobID:      scope.JobID,
			DocumentID: scope.DocumentID,
			UserID:     scope.UserID,
			Operation:  op,
			Model:      resp.Model,
			Usage:      resp.Usage,
		})
	}
	if err := p.Decode(resp.Text, out); err != nil {
		g.log.Warn("unusable model output", "prompt", p.Name, "fingerprint", p.Fingerprint(), "error", err)
		return &GenerationError{Operation: string(op), Err: err}
	}
	return nil
}

func (g *Generator) Topics(ctx context.Context, scope callScope, tally *tokenTally, title, text string, maxTopics int) ([]prompts.TopicDraft, error) {
	if maxTopics <= 0 || maxTopics > MaxTopics {
		maxTopics = MaxTopics
	}
	var drafts []prompts.TopicDraft
	err := g.complete(ctx, scope, tally, prompts.PromptTopicDiscovery, usage.OpTopicDiscovery, prompts.Input{
		DocumentTitle: title,
		Excerpt:       clip(text, g.maxExcerpt),
		MaxTopics:     maxTopics,
	}, &drafts)
	if err != nil {
		return nil, err
	}
	out := make([]prompts.TopicDraft, 0, len(drafts))
	seen := map[string]bool{}
	for _, d := range drafts {
		d.Title = strings.TrimSpace(d.Title)
		key := strings.ToLower(d.Title)
		if d.Title == "" || seen[key] {
			continue
		}
		seen[key] = true
		d.Summary = strings.TrimSpace(d.Summary)
		out = append(out, d)
		if len(out) == maxTopics {
			break
		}
	}
	if len(out) == 0 {
		return nil, &GenerationError{Operation: string(usage.OpTopicDiscovery), Err: fmt.Errorf("no topics found")}
	}
	return out, nil
}

func (g *Generator) Flashcards(ctx context.Context, scope callScope, tally *tokenTally, topic *types.Topic, source, existing string) ([]*types.Flashcard, error) {
	var drafts []prompts.FlashcardDraft
	if err := g.complete(ctx, scope, tally, prompts.PromptFlashcards, usage.OpFlashcards, topicInput(topic, source, existing, FlashcardsPerCall), &drafts); err != nil {
		return nil, err
	}
	rows := make([]*types.Flashcard, 0, len(drafts))
	for _, d := range drafts {
		front, back := strings.TrimSpace(d.Front), strings.TrimSpace(d.Back)
		if front == "" || back == "" {
			continue
		}
		rows = append(rows, &types.Flashcard{TopicID: topic.ID, DocumentID: topic.DocumentID, Front: front, Back: back})
	}
	if len(rows) == 0 {
		return nil, &GenerationError{Operation: string(usage.OpFlashcards), Err: fmt.Errorf("no usable flashcards")}
	}
	return rows, nil
}

func (g *Generator) Questions(ctx context.Context, scope callScope, tally *tokenTally, topic *types.Topic, source, existing string) ([]*types.Question, error) {
	var drafts []prompts.QuestionDraft
	if err := g.complete(ctx, scope, tally, prompts.PromptQuestions, usage.OpQuestions, topicInput(topic, source, existing, QuestionsPerCall), &drafts); err != nil {
		return nil, err
	}
	rows := make([]*types.Question, 0, len(drafts))
	for _, d := range drafts {
		if strings.TrimSpace(d.Prompt) == "" || d.AnswerIndex < 0 || d.AnswerIndex >= len(d.Choices) {
			continue
		}
		choices, err := json.Marshal(d.Choices)
		if err != nil {
			continue
		}
		rows = append(rows, &types.Question{
			TopicID:     topic.ID,
			DocumentID:  topic.DocumentID,
			Prompt:      strings.TrimSpace(d.Prompt),
			Choices:     datatypes.JSON(choices),
			AnswerIndex: d.AnswerIndex,
			Rationale:   strings.TrimSpace(d.Rationale),
		})
	}
	if len(rows) == 0 {
		return nil, &GenerationError{Operation: string(usage.OpQuestions), Err: fmt.Errorf("no usable questions")}
	}
	return rows, nil
}

func (g *Generator) Explanations(ctx context.Context, scope callScope, tally *tokenTally, topic *types.Topic, source string) ([]*types.Explanation, error) {
	var drafts []prompts.ExplanationDraft
	if err := g.complete(ctx, scope, tally, prompts.PromptExplanations, usage.OpExplanations, topicInput(topic, source, "", ExplanationsPerCall), &drafts); err != nil {
		return nil, err
	}
	rows := make([]*types.Explanation, 0, len(drafts))
	for _, d := range drafts {
		concept, body := strings.TrimSpace(d.Concept), strings.TrimSpace(d.Body)
		if concept == "" || body == "" {
			continue
		}
		rows = append(rows, &types.Explanation{TopicID: topic.ID, DocumentID: topic.DocumentID, Concept: concept, Body: body})
	}
	if len(rows) == 0 {
		return nil, &GenerationError{Operation: string(usage.OpExplanations), Err: fmt.Errorf("no usable explanations")}
	}
	return rows, nil
}

func (g *Generator) Vocabulary(ctx context.Context, scope callScope, tally *tokenTally, documentID uuid.UUID, title, source string, topicTitles []string) ([]*types.VocabularyTerm, error) {
	if strings.TrimSpace(source) == "" {
		source = strings.Join(topicTitles, "\n")
	}
	var drafts []prompts.VocabularyDraft
	err := g.complete(ctx, scope, tally, prompts.PromptVocabulary, usage.OpVocabulary, prompts.Input{
		DocumentTitle: title,
		Excerpt:       clip(source, g.maxExcerpt),
		Count:         VocabularyPerCall,
		Existing:      strings.Join(topicTitles, "\n"),
	}, &drafts)
	if err != nil {
		return nil, err
	}
	rows := make([]*types.VocabularyTerm, 0, len(drafts))
	seen := map[string]bool{}
	for _, d := range drafts {
		term, def := strings.TrimSpace(d.Term), strings.TrimSpace(d.Definition)
		if term == "" || def == "" || seen[strings.ToLower(term)] {
			continue
		}
		seen[strings.ToLower(term)] = true
		rows = append(rows, &types.VocabularyTerm{DocumentID: documentID, Term: term, Definition: def})
	}
	if len(rows) == 0 {
		return nil, &GenerationError{Operation: string(usage.OpVocabulary), Err: fmt.Errorf("no usable vocabulary")}
	}
	return rows, nil
}

func topicInput(topic *types.Topic, source, existing string, count int) prompts.Input {
	return prompts.Input{
		TopicTitle:   topic.Title,
		TopicSummary: topic.Summary,
		Excerpt:      topicExcerpt(source, topic.Title, topicExcerptChars),
		Count:        count,
		Existing:     existing,
	}
}

// topicExcerpt returns the window of text starting where the topic title
// first appears, or the head of the text when it does not.
func topicExcerpt(text, title string, limit int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	title = strings.TrimSpace(title)
	if lower := strings.ToLower(text); title != "" && len(lower) == len(text) {
		if i := strings.Index(lower, strings.ToLower(title)); i > 0 {
			text = text[i:]
		}
	}
	return clip(text, limit)
}

// clip truncates s to at most limit runes.
func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
