package services

import (
	"context"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/pricing"
)

// EfficiencyReport compares what AI calls cost against what users paid.
type EfficiencyReport struct {
	DocumentID     *uuid.UUID              `json:"document_id,omitempty"`
	Usage          repos.UsageTotals       `json:"usage"`
	ByOperation    []repos.OperationTotals `json:"by_operation"`
	Jobs           int                     `json:"jobs"`
	CreditsCharged int64                   `json:"credits_charged"`
	CreditValueUSD float64                 `json:"credit_value_usd"`
	// Markup is credit value over AI cost; zero when nothing was spent.
	Markup float64 `json:"markup"`
	// CreditsByKind is populated for global reports only.
	CreditsByKind map[types.CreditKind]int64 `json:"credits_by_kind,omitempty"`
}

type ReportService interface {
	DocumentEfficiency(ctx context.Context, userID, documentID uuid.UUID) (*EfficiencyReport, error)
	GlobalEfficiency(ctx context.Context) (*EfficiencyReport, error)
}

type reportService struct {
	log          *logger.Logger
	repos        repos.Set
	usdPerCredit float64
}

func NewReportService(baseLog *logger.Logger, set repos.Set, usdPerCredit float64) ReportService {
	if usdPerCredit <= 0 {
		usdPerCredit = pricing.DefaultUSDPerCredit
	}
	return &reportService{
		log:          baseLog.With("service", "ReportService"),
		repos:        set,
		usdPerCredit: usdPerCredit,
	}
}

func (s *reportService) DocumentEfficiency(ctx context.Context, userID, documentID uuid.UUID) (*EfficiencyReport, error) {
	dbc := dbctx.New(ctx)
	if _, err := loadOwnedDocument(dbc, s.repos.Documents, userID, documentID); err != nil {
		return nil, err
	}
	out := &EfficiencyReport{DocumentID: &documentID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.repos.Usage.TotalsByDocument(dbctx.New(gctx), documentID)
		out.Usage = t
		return err
	})
	g.Go(func() error {
		ops, err := s.repos.Usage.TotalsByOperation(dbctx.New(gctx), &documentID)
		out.ByOperation = ops
		return err
	})
	g.Go(func() error {
		n, err := s.repos.Jobs.CountByDocument(dbctx.New(gctx), documentID)
		out.Jobs = int(n)
		return err
	})
	g.Go(func() error {
		charged, err := s.repos.Transactions.NetCharged(dbctx.New(gctx), &documentID)
		out.CreditsCharged = charged
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.finish(out)
	return out, nil
}

func (s *reportService) GlobalEfficiency(ctx context.Context) (*EfficiencyReport, error) {
	out := &EfficiencyReport{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.repos.Usage.TotalsAll(dbctx.New(gctx))
		out.Usage = t
		return err
	})
	g.Go(func() error {
		ops, err := s.repos.Usage.TotalsByOperation(dbctx.New(gctx), nil)
		out.ByOperation = ops
		return err
	})
	g.Go(func() error {
		byKind, err := s.repos.Transactions.SumByKind(dbctx.New(gctx))
		out.CreditsByKind = byKind
		return err
	})
	g.Go(func() error {
		n, err := s.repos.Jobs.Count(dbctx.New(gctx))
		out.Jobs = int(n)
		return err
	})
	g.Go(func() error {
		charged, err := s.repos.Transactions.NetCharged(dbctx.New(gctx), nil)
		out.CreditsCharged = charged
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.finish(out)
	return out, nil
}

func (s *reportService) finish(r *EfficiencyReport) {
	r.CreditValueUSD = float64(r.CreditsCharged) * s.usdPerCredit
	if r.Usage.CostUSD > 0 {
		r.Markup = math.Round(r.CreditValueUSD/r.Usage.CostUSD*100) / 100
	}
}
