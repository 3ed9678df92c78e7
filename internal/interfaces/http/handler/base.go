package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/osmap/backend/internal/domain/shared"
	"github.com/osmap/backend/internal/infrastructure/artifact"
	"github.com/osmap/backend/internal/infrastructure/logger"
	"github.com/osmap/backend/internal/interfaces/http/dto"
	"github.com/osmap/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	h.errorWithDetails(c, statusCode, code, message, nil)
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

func (h *BaseHandler) errorWithDetails(c *gin.Context, statusCode int, code, message string, details map[string]string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c), details))
}

// publicDetails are the domain error details safe to return to callers
var publicDetails = []string{"order_id", "client_id", "status", "reason"}

// HandleError converts domain, storage and context errors to HTTP responses.
// Server-side failures are logged with the request logger.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &domainErr):
		code := dto.NormalizeErrorCode(domainErr.Code)
		statusCode := dto.GetHTTPStatus(code)
		if statusCode >= http.StatusInternalServerError {
			logger.L(c.Request.Context()).Error("Request failed",
				zap.String("code", code),
				zap.Int("status", statusCode),
				zap.Error(err))
		}
		h.errorWithDetails(c, statusCode, code, domainErr.Message, filterDetails(domainErr.Details))

	case errors.Is(err, context.Canceled):
		h.ErrorWithCode(c, dto.ErrCodeRequestCanceled, "Request canceled")

	case errors.Is(err, context.DeadlineExceeded):
		h.ErrorWithCode(c, dto.ErrCodeTimeout, "Request timed out")

	case errors.Is(err, artifact.ErrNotFound):
		h.NotFound(c, "Artifact not found")

	case errors.Is(err, artifact.ErrInvalidPath):
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Invalid artifact path")

	default:
		logger.L(c.Request.Context()).Error("Unexpected error", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
	}
}

func filterDetails(details map[string]string) map[string]string {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]string, len(publicDetails))
	for _, key := range publicDetails {
		if v, ok := details[key]; ok {
			out[key] = v
		}
	}
	return out
}
