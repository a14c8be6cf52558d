package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/studydeck-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studydeck-backend/internal/http/middleware"
	"github.com/yungbote/studydeck-backend/internal/observability"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware
	CORSOrigins    []string
	ServiceName    string
	Metrics        *observability.Metrics

	DocumentHandler   *httpH.DocumentHandler
	GenerationHandler *httpH.GenerationHandler
	CreditHandler     *httpH.CreditHandler
	ReportHandler     *httpH.ReportHandler
	RealtimeHandler   *httpH.RealtimeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.Trace(cfg.ServiceName))
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		// Documents
		if cfg.DocumentHandler != nil {
			protected.POST("/documents", cfg.DocumentHandler.UploadDocument)
			protected.GET("/documents", cfg.DocumentHandler.ListDocuments)
			protected.GET("/documents/:id/status", cfg.DocumentHandler.GetDocumentStatus)
			protected.POST("/documents/:id/retry", cfg.DocumentHandler.RetryDocument)
			protected.DELETE("/documents/:id", cfg.DocumentHandler.DeleteDocument)
		}

		// On-demand generation
		if cfg.GenerationHandler != nil {
			protected.POST("/topics/:id/questions", cfg.GenerationHandler.GenerateQuestions)
			protected.POST("/topics/:id/flashcards", cfg.GenerationHandler.RegenerateFlashcards)
			protected.POST("/topics/:id/explanations", cfg.GenerationHandler.RegenerateExplanations)
			protected.POST("/documents/:id/vocabulary", cfg.GenerationHandler.RegenerateVocabulary)
		}

		// Credits
		if cfg.CreditHandler != nil {
			protected.GET("/credits", cfg.CreditHandler.GetBalance)
			protected.GET("/credits/transactions", cfg.CreditHandler.ListTransactions)
			protected.POST("/credits/gift", cfg.CreditHandler.Gift)
		}

		// Reports
		if cfg.ReportHandler != nil {
			protected.GET("/reports/documents/:id", cfg.ReportHandler.DocumentReport)
			protected.GET("/reports/global", cfg.ReportHandler.GlobalReport)
		}
	}

	return r
}
