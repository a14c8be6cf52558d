package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studydeck-backend/internal/http/response"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/services"
)

const (
	multipartMemory  = 32 << 20
	DefaultMaxUpload = 64 << 20
)

type DocumentHandler struct {
	log       *logger.Logger
	documents services.DocumentService
	maxUpload int64
	// spawn runs the pipeline after the response is written.
	spawn func(fn func())
}

func NewDocumentHandler(log *logger.Logger, documents services.DocumentService, maxUpload int64) *DocumentHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &DocumentHandler{
		log:       log.With("handler", "DocumentHandler"),
		documents: documents,
		maxUpload: maxUpload,
		spawn:     func(fn func()) { go fn() },
	}
}

// POST /api/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartMemory)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if fh.Size > h.maxUpload {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Errorf("file is %d bytes, limit is %d", fh.Size, h.maxUpload))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	if len(data) == 0 {
		response.RespondError(c, http.StatusBadRequest, "empty_file", errors.New("uploaded file is empty"))
		return
	}

	mimeType := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	prep, err := h.documents.Prepare(c.Request.Context(), userID, services.UploadRequest{
		Title:    c.PostForm("title"),
		FileName: fh.Filename,
		MimeType: mimeType,
		Data:     data,
	}, nil)
	if err != nil {
		h.log.Warn("upload rejected", "user_id", userID, "file", fh.Filename, "error", err)
		response.RespondServiceError(c, "upload_failed", err)
		return
	}
	if !prep.Pending() {
		response.RespondOK(c, prep.Result)
		return
	}

	ctx := c.Request.Context()
	h.spawn(func() {
		if err := h.documents.Run(ctx, prep); err != nil {
			h.log.Warn("document pipeline failed", "document_id", prep.Result.DocumentID, "error", err)
		}
	})
	response.RespondAccepted(c, prep.Result)
}

// GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	docs, err := h.documents.ListDocuments(c.Request.Context(), userID, limitQuery(c))
	if err != nil {
		response.RespondServiceError(c, "list_documents_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs})
}

// GET /api/documents/:id/status
func (h *DocumentHandler) GetDocumentStatus(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	docID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	st, err := h.documents.GetDocumentStatus(c.Request.Context(), userID, docID)
	if err != nil {
		response.RespondServiceError(c, "load_status_failed", err)
		return
	}
	response.RespondOK(c, st)
}

// POST /api/documents/:id/retry
func (h *DocumentHandler) RetryDocument(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	docID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	prep, err := h.documents.RetryDocument(c.Request.Context(), userID, docID, nil)
	if err != nil {
		response.RespondServiceError(c, "retry_failed", err)
		return
	}
	ctx := c.Request.Context()
	h.spawn(func() {
		if err := h.documents.Run(ctx, prep); err != nil {
			h.log.Warn("document retry failed", "document_id", docID, "error", err)
		}
	})
	response.RespondAccepted(c, prep.Result)
}

// DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	docID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.documents.DeleteDocument(c.Request.Context(), userID, docID); err != nil {
		response.RespondServiceError(c, "delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
