package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	"github.com/yungbote/studydeck-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/platform/localstore"
	"github.com/yungbote/studydeck-backend/internal/platform/openai"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pricing"
)

var (
	errModelDown = errors.New("model unavailable")
	errDiskFull  = errors.New("disk full")
)

// faultyTopics fails the nth Create (1-based) and passes everything else
// through.
type faultyTopics struct {
	repos.TopicRepo
	mu      sync.Mutex
	creates int
	failAt  int
}

func (f *faultyTopics) Create(dbc dbctx.Context, topic *types.Topic) error {
	f.mu.Lock()
	f.creates++
	fail := f.failAt == f.creates
	f.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return f.TopicRepo.Create(dbc, topic)
}

// faultyContent fails the nth batch save of a kind.
type faultyContent struct {
	repos.ContentRepo
	mu     sync.Mutex
	calls  map[string]int
	failAt map[string]int
}

func (f *faultyContent) hit(kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[kind]++
	if f.failAt[kind] == f.calls[kind] {
		return errDiskFull
	}
	return nil
}

func (f *faultyContent) CreateFlashcards(dbc dbctx.Context, rows []*types.Flashcard) error {
	if err := f.hit("flashcards"); err != nil {
		return err
	}
	return f.ContentRepo.CreateFlashcards(dbc, rows)
}

func (f *faultyContent) CreateQuestions(dbc dbctx.Context, rows []*types.Question) error {
	if err := f.hit("questions"); err != nil {
		return err
	}
	return f.ContentRepo.CreateQuestions(dbc, rows)
}

func (f *faultyContent) CreateExplanations(dbc dbctx.Context, rows []*types.Explanation) error {
	if err := f.hit("explanations"); err != nil {
		return err
	}
	return f.ContentRepo.CreateExplanations(dbc, rows)
}

// fakeAI answers each prompt kind with canned JSON. failAt makes the nth call
// (1-based) of a kind fail.
type fakeAI struct {
	mu     sync.Mutex
	topics int
	calls  map[string]int
	failAt map[string]int
}

func newFakeAI(topics int) *fakeAI {
	return &fakeAI{topics: topics, calls: map[string]int{}, failAt: map[string]int{}}
}

func (f *fakeAI) Calls(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeAI) Complete(_ context.Context, req openai.Request) (openai.Response, error) {
	kind := promptKind(req.System)
	f.mu.Lock()
	f.calls[kind]++
	n := f.calls[kind]
	fail := f.failAt[kind] == n
	f.mu.Unlock()
	if fail {
		return openai.Response{}, errModelDown
	}

	var out any
	switch kind {
	case "topics":
		items := make([]map[string]string, 0, f.topics)
		for i := 1; i <= f.topics; i++ {
			items = append(items, map[string]string{"title": fmt.Sprintf("Topic %d", i), "summary": fmt.Sprintf("Summary %d", i)})
		}
		out = items
	case "flashcards":
		out = []map[string]string{{"front": fmt.Sprintf("Q%d", n), "back": "A"}, {"front": fmt.Sprintf("Q%d'", n), "back": "B"}}
	case "questions":
		out = []map[string]any{
			{"prompt": fmt.Sprintf("Which %d?", n), "choices": []string{"a", "b", "c"}, "answer_index": 1},
			{"prompt": "bad index", "choices": []string{"a", "b"}, "answer_index": 7},
		}
	case "explanations":
		out = []map[string]string{{"concept": "C", "body": "B"}}
	case "vocabulary":
		out = []map[string]string{{"term": "entropy", "definition": "disorder"}, {"term": "Entropy", "definition": "dup"}}
	default:
		return openai.Response{}, fmt.Errorf("unexpected prompt")
	}
	b, _ := json.Marshal(out)
	return openai.Response{Text: string(b), Model: "gpt-4o-mini", Usage: openai.Usage{PromptTokens: 1000, CompletionTokens: 500}}, nil
}

func promptKind(system string) string {
	switch {
	case strings.Contains(system, "distinct topics"):
		return "topics"
	case strings.Contains(system, "flashcards"):
		return "flashcards"
	case strings.Contains(system, "quiz questions"):
		return "questions"
	case strings.Contains(system, "explain"):
		return "explanations"
	case strings.Contains(system, "glossaries"):
		return "vocabulary"
	}
	return ""
}

type fakeExtractor struct {
	pages int
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, file ExtractFile) (Extraction, error) {
	if f.err != nil {
		return Extraction{}, f.err
	}
	return Extraction{Text: "Topic 1 intro. " + string(file.Data), PageCount: f.pages}, nil
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	db      *gorm.DB
	set     repos.Set
	ledger  LedgerService
	jobs    ProcessingJobService
	usage   UsageAccountant
	ai      *fakeAI
	store   *localstore.MemStore
	extract *fakeExtractor
	topics  *faultyTopics
	content *faultyContent
	runs    *RunTracker
	docs    DocumentService
	gen     GenerationService
	reports ReportService
}

func newHarness(t *testing.T, topics, pages int) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)

	h := &harness{
		t:       t,
		ctx:     context.Background(),
		db:      db,
		set:     set,
		ai:      newFakeAI(topics),
		store:   localstore.NewMemStore(),
		extract: &fakeExtractor{pages: pages},
		topics:  &faultyTopics{TopicRepo: set.Topics},
		content: &faultyContent{ContentRepo: set.Content, calls: map[string]int{}, failAt: map[string]int{}},
		runs:    NewRunTracker(),
	}
	notify := NewJobNotifier(nil)
	h.ledger = NewLedgerService(db, log, set.Accounts, set.Transactions, 0)
	h.jobs = NewProcessingJobService(db, log, set.Jobs, set.Documents, h.ledger, notify)
	h.usage = NewUsageAccountant(log, set.Usage, pricing.NewTable(nil))
	t.Cleanup(h.usage.Close)
	generator := NewGenerator(log, h.ai, h.usage, "gpt-4o-mini")
	h.docs = NewDocumentService(DocumentServiceDeps{
		DB:          db,
		Log:         log,
		Repos:       set,
		Fingerprint: NewFingerprintService(log, set.Documents),
		Jobs:        h.jobs,
		Ledger:      h.ledger,
		Pipeline:    NewPipeline(log, generator, h.topics, h.content),
		Generator:   generator,
		Store:       h.store,
		Extractor:   h.extract,
		Notify:      notify,
		Runs:        h.runs,
	})
	h.gen = NewGenerationService(db, log, set, h.jobs, generator, h.store, h.extract, h.runs)
	h.reports = NewReportService(log, set, pricing.DefaultUSDPerCredit)
	return h
}

func (h *harness) dbc() dbctx.Context { return dbctx.New(h.ctx) }

func (h *harness) fund(userID uuid.UUID, amount int) {
	h.t.Helper()
	_, err := h.ledger.Credit(h.dbc(), CreditRequest{UserID: userID, Amount: amount, Kind: types.CreditPurchase, Reason: "test"})
	require.NoError(h.t, err)
}

func (h *harness) balance(userID uuid.UUID) int {
	h.t.Helper()
	acct, err := h.ledger.Balance(h.dbc(), userID)
	require.NoError(h.t, err)
	return acct.Balance
}

func (h *harness) jobCount() int64 {
	h.t.Helper()
	var n int64
	require.NoError(h.t, h.db.Model(&types.ProcessingJob{}).Count(&n).Error)
	return n
}

func (h *harness) txnCount(userID uuid.UUID) int64 {
	h.t.Helper()
	var n int64
	require.NoError(h.t, h.db.Model(&types.CreditTransaction{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func (h *harness) job(id uuid.UUID) *types.ProcessingJob {
	h.t.Helper()
	job, err := h.jobs.Get(h.dbc(), id)
	require.NoError(h.t, err)
	return job
}

func (h *harness) upload(userID uuid.UUID, body string) (*ProcessResult, error) {
	return h.docs.ProcessDocument(h.ctx, userID, UploadRequest{Title: "Thermo", FileName: "thermo.txt", MimeType: "text/plain", Data: []byte(body)}, nil)
}
