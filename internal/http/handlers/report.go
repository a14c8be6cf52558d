package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/studydeck-backend/internal/http/response"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/services"
)

type ReportHandler struct {
	log     *logger.Logger
	reports services.ReportService
}

func NewReportHandler(log *logger.Logger, reports services.ReportService) *ReportHandler {
	return &ReportHandler{log: log.With("handler", "ReportHandler"), reports: reports}
}

// GET /api/reports/documents/:id
func (h *ReportHandler) DocumentReport(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	docID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rep, err := h.reports.DocumentEfficiency(c.Request.Context(), userID, docID)
	if err != nil {
		response.RespondServiceError(c, "report_failed", err)
		return
	}
	response.RespondOK(c, rep)
}

// GET /api/reports/global
func (h *ReportHandler) GlobalReport(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	rep, err := h.reports.GlobalEfficiency(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, "report_failed", err)
		return
	}
	response.RespondOK(c, rep)
}
