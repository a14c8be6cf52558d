package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studydeck-backend/internal/http/response"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/services"
)

type GenerationHandler struct {
	log        *logger.Logger
	generation services.GenerationService
}

func NewGenerationHandler(log *logger.Logger, generation services.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		log:        log.With("handler", "GenerationHandler"),
		generation: generation,
	}
}

type generateFunc func(ctx context.Context, userID, targetID uuid.UUID) (*services.GenerationResult, error)

func (h *GenerationHandler) serve(c *gin.Context, code string, fn generateFunc) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), userID, targetID)
	if err != nil {
		h.log.Warn("generation failed", "op", code, "target_id", targetID, "error", err)
		response.RespondServiceError(c, code, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/topics/:id/questions
func (h *GenerationHandler) GenerateQuestions(c *gin.Context) {
	h.serve(c, "generate_questions_failed", h.generation.GenerateMoreQuestions)
}

// POST /api/topics/:id/flashcards
func (h *GenerationHandler) RegenerateFlashcards(c *gin.Context) {
	h.serve(c, "regenerate_flashcards_failed", h.generation.RegenerateFlashcards)
}

// POST /api/topics/:id/explanations
func (h *GenerationHandler) RegenerateExplanations(c *gin.Context) {
	h.serve(c, "regenerate_explanations_failed", h.generation.RegenerateExplanations)
}

// POST /api/documents/:id/vocabulary
func (h *GenerationHandler) RegenerateVocabulary(c *gin.Context) {
	h.serve(c, "regenerate_vocabulary_failed", h.generation.RegenerateVocabulary)
}
