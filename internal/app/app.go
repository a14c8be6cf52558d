package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/studydeck-backend/internal/data/db"
	"github.com/yungbote/studydeck-backend/internal/data/repos"
	httpserver "github.com/yungbote/studydeck-backend/internal/http"
	httpH "github.com/yungbote/studydeck-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studydeck-backend/internal/http/middleware"
	"github.com/yungbote/studydeck-backend/internal/observability"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/platform/extract"
	"github.com/yungbote/studydeck-backend/internal/platform/gcp"
	"github.com/yungbote/studydeck-backend/internal/platform/localstore"
	"github.com/yungbote/studydeck-backend/internal/platform/openai"
	"github.com/yungbote/studydeck-backend/internal/pricing"
	"github.com/yungbote/studydeck-backend/internal/realtime"
	"github.com/yungbote/studydeck-backend/internal/realtime/bus"
	"github.com/yungbote/studydeck-backend/internal/services"
)

type Services struct {
	Ledger     services.LedgerService
	Jobs       services.ProcessingJobService
	Usage      services.UsageAccountant
	Notify     services.JobNotifier
	Documents  services.DocumentService
	Generation services.GenerationService
	Reports    services.ReportService
}

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Repos    repos.Set
	Services Services
	Metrics  *observability.Metrics
	SSEHub   *realtime.SSEHub
	Bus      bus.Bus
	Server   *httpserver.Server
	Runs     *services.RunTracker

	closers []func(context.Context) error
}

// OpenCore connects the datastore and builds the ledger and report services.
// CLI commands that never call the model use it directly.
func OpenCore(ctx context.Context, cfg Config, log *logger.Logger, migrate bool) (*App, error) {
	theDB, err := db.Open(db.Options{
		Driver:     cfg.DB.Driver,
		DSN:        cfg.DB.DSN,
		SQLitePath: cfg.DB.SQLitePath,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{Log: log, Cfg: cfg, DB: theDB}
	a.closers = append(a.closers, func(context.Context) error {
		sqlDB, err := theDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if migrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	a.Repos = repos.NewSet(theDB, log)
	a.Services.Ledger = services.NewLedgerService(theDB, log, a.Repos.Accounts, a.Repos.Transactions, cfg.Credits.SignupBonus)
	a.Services.Reports = services.NewReportService(log, a.Repos, cfg.Pricing.USDPerCredit)
	return a, nil
}

// New builds the full API process: datastore, object store, model client,
// progress bus, services and router.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*App, error) {
	a, err := OpenCore(ctx, cfg, log, true)
	if err != nil {
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg, log := a.Cfg, a.Log

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTel.Enabled,
		ServiceName: cfg.OTel.ServiceName,
		Environment: cfg.OTel.Environment,
		Exporter:    cfg.OTel.Exporter,
		Endpoint:    cfg.OTel.Endpoint,
		Headers:     cfg.OTel.Headers,
		Insecure:    cfg.OTel.Insecure,
		SampleRatio: cfg.OTel.SampleRatio,
	})
	a.closers = append(a.closers, shutdownOTel)
	a.Metrics = observability.Init(cfg.Metrics.Enabled)

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	ai, err := openai.NewClient(log, openai.Config{
		APIKey:     cfg.AI.APIKey,
		BaseURL:    cfg.AI.BaseURL,
		Model:      cfg.AI.Model,
		Timeout:    cfg.AI.Timeout,
		MaxRetries: cfg.AI.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("init openai client: %w", err)
	}

	a.SSEHub = realtime.NewSSEHub(log)
	if err := a.openBus(ctx); err != nil {
		return err
	}
	a.Services.Notify = services.NewJobNotifier(&services.BusEmitter{Bus: a.Bus, Log: log})

	set := a.Repos
	a.Runs = services.NewRunTracker()
	a.Services.Jobs = services.NewProcessingJobService(a.DB, log, set.Jobs, set.Documents, a.Services.Ledger, a.Services.Notify)
	a.Services.Usage = services.NewUsageAccountant(log, set.Usage, pricing.NewTable(cfg.Pricing.Models))
	a.closers = append(a.closers, func(context.Context) error {
		a.Services.Usage.Close()
		return nil
	})

	extractor := extract.New()
	generator := services.NewGenerator(log, ai, a.Services.Usage, cfg.AI.Model)
	a.Services.Documents = services.NewDocumentService(services.DocumentServiceDeps{
		DB:                a.DB,
		Log:               log,
		Repos:             set,
		Fingerprint:       services.NewFingerprintService(log, set.Documents),
		Jobs:              a.Services.Jobs,
		Ledger:            a.Services.Ledger,
		Pipeline:          services.NewPipeline(log, generator, set.Topics, set.Content),
		Generator:         generator,
		Store:             store,
		Extractor:         extractor,
		Notify:            a.Services.Notify,
		Runs:              a.Runs,
		HeartbeatInterval: cfg.Jobs.HeartbeatInterval,
	})
	a.Services.Generation = services.NewGenerationService(a.DB, log, set, a.Services.Jobs, generator, store, extractor, a.Runs)
	// Appended last so it runs first: pipelines finish before the datastore closes.
	a.closers = append(a.closers, a.drainRuns)

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		log.Warn("auth.jwt_secret is empty; every API request will be rejected")
	}
	authMW := httpMW.NewAuthMiddleware(log, cfg.Auth.JWTSecret)

	a.Server = httpserver.NewServer(httpserver.RouterConfig{
		Log:               log,
		AuthMiddleware:    authMW,
		CORSOrigins:       cfg.HTTP.CORSOrigins,
		ServiceName:       cfg.OTel.ServiceName,
		Metrics:           a.Metrics,
		DocumentHandler:   httpH.NewDocumentHandler(log, a.Services.Documents, cfg.HTTP.MaxUploadBytes),
		GenerationHandler: httpH.NewGenerationHandler(log, a.Services.Generation),
		CreditHandler:     httpH.NewCreditHandler(log, a.Services.Ledger, a.Services.Notify),
		ReportHandler:     httpH.NewReportHandler(log, a.Services.Reports),
		RealtimeHandler:   httpH.NewRealtimeHandler(log, a.SSEHub),
		HealthHandler:     httpH.NewHealthHandler(a.DB),
	})
	return nil
}

func (a *App) openStore(ctx context.Context) (services.ObjectStore, error) {
	sc := a.Cfg.Storage
	switch strings.ToLower(sc.Mode) {
	case "gcs", "gcs_emulator":
		bs, err := gcp.NewBucketStore(ctx, a.Log, gcp.BucketConfig{
			Mode:            gcp.StorageMode(strings.ToLower(sc.Mode)),
			Bucket:          sc.Bucket,
			CredentialsFile: sc.CredentialsFile,
			EmulatorHost:    sc.EmulatorHost,
		})
		if err != nil {
			return nil, fmt.Errorf("init bucket store: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return bs.Close() })
		return bs, nil
	default:
		ds, err := localstore.NewDirStore(sc.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("init local store: %w", err)
		}
		a.Log.Info("Using local object store", "dir", sc.LocalDir)
		return ds, nil
	}
}

// openBus uses redis when configured so several API instances share
// progress events; otherwise events stay in-process.
func (a *App) openBus(ctx context.Context) error {
	if strings.TrimSpace(a.Cfg.Redis.Addr) == "" {
		a.Bus = bus.NewLocalBus()
		return nil
	}
	b, err := bus.NewRedisBus(ctx, a.Log, bus.RedisConfig{
		Addr:     a.Cfg.Redis.Addr,
		Password: a.Cfg.Redis.Password,
		DB:       a.Cfg.Redis.DB,
		Channel:  a.Cfg.Redis.Channel,
	})
	if err != nil {
		return fmt.Errorf("init redis bus: %w", err)
	}
	a.Bus = b
	a.closers = append(a.closers, func(context.Context) error { return b.Close() })
	return nil
}

// Run serves HTTP and forwards bus messages into the local hub until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if a.Server == nil {
		return fmt.Errorf("app not wired for serving")
	}
	g, gctx := errgroup.WithContext(ctx)
	if err := a.Bus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start bus forwarder: %w", err)
	}
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTP.Addr)
		return a.Server.Serve(gctx, a.Cfg.HTTP.Addr)
	})
	g.Go(func() error {
		services.SweepStale(gctx, a.Log, a.Services.Jobs, a.Runs, a.Cfg.Jobs.StaleAfter, a.Cfg.Jobs.SweepInterval)
		return nil
	})
	return g.Wait()
}

// drainRuns waits for in-flight pipelines. Runs still going when the drain
// timeout passes are failed and refunded so no reservation outlives the
// process.
func (a *App) drainRuns(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, a.Cfg.Jobs.DrainTimeout)
	defer cancel()
	if err := a.Runs.Wait(wctx); err == nil {
		return nil
	}
	left := a.Runs.Active()
	a.Log.Warn("pipelines still running at shutdown; refunding", "count", len(left))
	for _, id := range left {
		if _, err := a.Services.Jobs.ResolveFailure(dbctx.New(ctx), id, services.ErrShuttingDown); err != nil {
			a.Log.Warn("refund on shutdown failed", "job_id", id, "error", err)
		}
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second+a.Cfg.Jobs.DrainTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.Log.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
	a.Log.Sync()
}
