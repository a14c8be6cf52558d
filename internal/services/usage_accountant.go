package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/observability"
	"github.com/yungbote/studydeck-backend/internal/platform/openai"
	"github.com/yungbote/studydeck-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/pricing"
)

const defaultUsageTimeout = 10 * time.Second

// UsageEvent is one AI call to account for.
type UsageEvent struct {
	JobID      *uuid.UUID
	DocumentID *uuid.UUID
	UserID     uuid.UUID
	Operation  types.UsageOperation
	Model      string
	Usage      openai.Usage
}

// UsageAccountant records token usage off the caller's path. Record never
// blocks on the datastore and never reports an error.
type UsageAccountant interface {
	Record(ctx context.Context, ev UsageEvent)
	// Flush waits for every record started so far.
	Flush()
	Close()
}

type usageAccountant struct {
	log     *logger.Logger
	repo    repos.TokenUsageRepo
	prices  *pricing.Table
	timeout time.Duration

	wg     sync.WaitGroup
	closed atomic.Bool
}

func NewUsageAccountant(baseLog *logger.Logger, repo repos.TokenUsageRepo, prices *pricing.Table) UsageAccountant {
	if prices == nil {
		prices = pricing.NewTable(nil)
	}
	return &usageAccountant{
		log:     baseLog.With("service", "UsageAccountant"),
		repo:    repo,
		prices:  prices,
		timeout: defaultUsageTimeout,
	}
}

func (a *usageAccountant) Record(ctx context.Context, ev UsageEvent) {
	if a.closed.Load() {
		a.log.Warn("usage accountant closed; dropping record", "operation", ev.Operation)
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.fail(ev, fmt.Errorf("panic: %v", r))
			}
		}()
		rctx, cancel := context.WithTimeout(ctxutil.Detached(ctx), a.timeout)
		defer cancel()
		if err := a.write(rctx, ev); err != nil {
			a.fail(ev, err)
		}
	}()
}

func (a *usageAccountant) write(ctx context.Context, ev UsageEvent) error {
	cost, source := a.prices.Cost(ev.Model, ev.Usage.PromptTokens, ev.Usage.CompletionTokens)
	rec := &types.TokenUsageRecord{
		JobID:            ev.JobID,
		DocumentID:       ev.DocumentID,
		UserID:           ev.UserID,
		Operation:        ev.Operation,
		Model:            ev.Model,
		PromptTokens:     ev.Usage.PromptTokens,
		CompletionTokens: ev.Usage.CompletionTokens,
		TotalTokens:      ev.Usage.Total(),
		EstimatedCostUSD: cost,
		PricingSource:    string(source),
	}
	if err := a.repo.Create(dbctx.New(ctx), rec); err != nil {
		return err
	}
	observability.Current().AddLLMCost(ev.Model, string(source), cost)
	return nil
}

func (a *usageAccountant) fail(ev UsageEvent, err error) {
	accErr := &AccountingError{Operation: string(ev.Operation), Err: err}
	observability.Current().IncUsageFailure(string(ev.Operation))
	a.log.Warn("token usage not recorded", "operation", ev.Operation, "model", ev.Model, "error", accErr)
}

func (a *usageAccountant) Flush() { a.wg.Wait() }

func (a *usageAccountant) Close() {
	a.closed.Store(true)
	a.wg.Wait()
}
