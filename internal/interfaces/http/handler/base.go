package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mfirdausali/wif-fin-sub004/internal/domain/shared"
	"github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/logger"
	infra "github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/printing"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/dto"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the status derived from code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	status := dto.GetHTTPStatus(code)
	c.JSON(status, dto.NewErrorResponse(status, code, message, getRequestID(c)))
}

// ValidationError sends a 400 response with per-field details
func (h *BaseHandler) ValidationError(c *gin.Context, message string, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		shared.ErrValidation.Code, message, getRequestID(c), details))
}

// HandleError converts a domain or render error into a structured response.
// Untyped errors become a generic 500 so internals never reach the client.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	code, message := classify(err)
	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("request failed",
			zap.String("code", code),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.JSON(status, dto.NewErrorResponse(status, code, message, getRequestID(c)))
}

// HandleBindError maps a failed body bind onto the error envelope
func (h *BaseHandler) HandleBindError(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		h.Error(c, dto.ErrCodeBodyTooLarge, "Request body exceeds maximum allowed size")
	case errors.Is(err, io.EOF):
		h.Error(c, shared.ErrMissingPayload.Code, "Request body is empty")
	default:
		if details := middleware.ValidationDetails(err); details != nil {
			h.ValidationError(c, "Request validation failed", details)
			return
		}
		h.Error(c, dto.ErrCodeInvalidJSON, "Malformed JSON body: "+err.Error())
	}
}

func classify(err error) (code, message string) {
	var renderErr *infra.RenderError
	if errors.As(err, &renderErr) {
		return renderErr.Code, renderErr.Error()
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code, domainErr.Message
	}
	return dto.ErrCodeInternal, "An unexpected error occurred"
}
