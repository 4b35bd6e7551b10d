package httpserver

import (
	"errors"
	"net/http"

	"punchout-catalog/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps the domain error taxonomy onto HTTP. The code strings
// are stable; the UI keys its messaging on them.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(status, gin.H{"error": apiError{Code: code, Message: "internal error"}})
		return
	}
	c.JSON(status, gin.H{"error": apiError{Code: code, Message: err.Error()}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrTokenMalformed):
		return http.StatusBadRequest, "TOKEN_MALFORMED"
	case errors.Is(err, domain.ErrTokenUnknown):
		return http.StatusNotFound, "TOKEN_UNKNOWN"
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusGone, "TOKEN_EXPIRED"
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusGone, "SESSION_EXPIRED"
	case errors.Is(err, domain.ErrSessionNotMutable):
		return http.StatusConflict, "SESSION_NOT_MUTABLE"
	case errors.Is(err, domain.ErrLineInvalid):
		return http.StatusUnprocessableEntity, "CART_LINE_INVALID"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "EMPTY_CART"
	case errors.Is(err, domain.ErrBuyerSystemUnknown):
		return http.StatusConflict, "BUYER_SYSTEM_UNKNOWN"
	case errors.Is(err, domain.ErrEncoding):
		return http.StatusUnprocessableEntity, "ENCODING_ERROR"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
