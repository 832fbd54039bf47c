package middleware

import (
	"errors"
	"net/http"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusFor maps a domain error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrSameAccount),
		errors.Is(err, apperrors.ErrAccountInactive),
		errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithDomainError writes the error's message for known domain errors.
// Anything else is logged and answered with fallback.
func RespondWithDomainError(c *gin.Context, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		userID, _ := GetUserID(c)
		logging.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		RespondWithError(c, status, fallback)
		return
	}
	RespondWithError(c, status, err.Error())
}
