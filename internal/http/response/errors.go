package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperr "github.com/yungbote/studydeck-backend/internal/pkg/errors"
	"github.com/yungbote/studydeck-backend/internal/services"
)

// RespondServiceError maps service errors onto status codes. code names the
// failed operation for anything unrecognised.
func RespondServiceError(c *gin.Context, code string, err error) {
	var (
		insufficient *services.InsufficientCreditsError
		preflight    *services.PreflightError
	)
	switch {
	case errors.As(err, &insufficient):
		RespondErrorDetails(c, http.StatusPaymentRequired, "insufficient_credits", err, insufficient)
	case errors.As(err, &preflight):
		RespondErrorDetails(c, http.StatusUnprocessableEntity, "preflight_failed", err, gin.H{"stage": preflight.Stage})
	case errors.Is(err, services.ErrJobAlreadyActive):
		RespondError(c, http.StatusConflict, "job_already_active", err)
	case errors.Is(err, apperr.ErrConflict):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, apperr.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperr.ErrUnauthorized):
		RespondError(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, apperr.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	default:
		RespondError(c, http.StatusInternalServerError, code, err)
	}
}
