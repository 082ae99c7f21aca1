package api

import (
	"errors"
	"net/http"

	"parts-service/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps an error kind to an HTTP status. NotFound is a 404 on reads
// and a 400 on mutations, where it names a bad reference in the request.
func statusFor(kind apperr.Kind, method string) int {
	switch kind {
	case apperr.KindNotFound:
		if method == http.MethodGet {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case apperr.KindValidation, apperr.KindInsufficientStock,
		apperr.KindForbiddenTransition, apperr.KindOverpayment:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// describe returns the status, stable code and client-safe message for err.
// Unclassified errors are logged and replaced by a generic message.
func (h *Handler) describe(c *gin.Context, err error) (int, string, string) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		return http.StatusInternalServerError, apperr.CodeOf(apperr.KindInternal), "internal error"
	}
	return statusFor(appErr.Kind, c.Request.Method), appErr.Code(), appErr.Message
}

// respondError writes {error, code}
func (h *Handler) respondError(c *gin.Context, err error) {
	status, code, message := h.describe(c, err)
	c.JSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}

// respondEnvelopeError writes {success: false, error, code}
func (h *Handler) respondEnvelopeError(c *gin.Context, err error) {
	status, code, message := h.describe(c, err)
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

func respondEnvelope(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
