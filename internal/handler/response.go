package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"scenarioflow/internal/domain"
	"scenarioflow/internal/llm"
	"scenarioflow/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Extraction failures carry their own message so callers can see which check failed.
func MapDomainError(err error) (status int, code, msg string) {
	var rlErr *llm.RateLimitError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, domain.ErrMissingMarkers):
		return http.StatusUnprocessableEntity, "MISSING_MARKERS", err.Error()
	case errors.Is(err, domain.ErrMalformedJSON):
		return http.StatusUnprocessableEntity, "MALFORMED_JSON", err.Error()
	case errors.Is(err, domain.ErrSchemaViolation):
		return http.StatusUnprocessableEntity, "SCHEMA_VIOLATION", err.Error()
	case errors.Is(err, domain.ErrInvalidRawResponse):
		return http.StatusBadRequest, "INVALID_REQUEST", "request body must be a json value"
	case errors.Is(err, domain.ErrEmptyPrompt):
		return http.StatusBadRequest, "INVALID_REQUEST", "prompt is required"
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body exceeds maximum allowed size"
	case errors.Is(err, domain.ErrProviderNotConfigured):
		return http.StatusServiceUnavailable, "PROVIDER_NOT_CONFIGURED", "no completion provider is configured"
	case errors.Is(err, domain.ErrArchiveDisabled):
		return http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "rejected-response archive is disabled"
	case errors.As(err, &rlErr):
		return http.StatusTooManyRequests, "RATE_LIMITED", "completion provider rate limited; retry later"
	case errors.Is(err, domain.ErrOutputTruncated):
		return http.StatusBadGateway, "OUTPUT_TRUNCATED", "model output was truncated at the token limit"
	case errors.Is(err, domain.ErrEmptyProviderResponse):
		return http.StatusBadGateway, "PROVIDER_ERROR", "completion provider returned an empty response"
	case errors.Is(err, domain.ErrProviderFailed):
		return http.StatusBadGateway, "PROVIDER_ERROR", "completion provider request failed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)

	var rlErr *llm.RateLimitError
	if errors.As(err, &rlErr) {
		c.Header("Retry-After", strconv.Itoa(int(rlErr.RetryAfter.Seconds())))
	}

	logger := middleware.GetLogger(c)
	if status >= 500 {
		logger.Error("request failed", zap.String("code", code), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.String("code", code), zap.Error(err))
	}
	RespondError(c, status, code, msg)
}
