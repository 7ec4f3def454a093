package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"scenarioflow/internal/config"
	"scenarioflow/internal/domain"
	"scenarioflow/internal/export"
	"scenarioflow/internal/middleware"
	"scenarioflow/internal/service"
)

// ExtractionHandler handles extraction endpoints.
type ExtractionHandler struct {
	svc            service.ExtractionService
	scenariosField string
	citationsField string
}

// NewExtractionHandler creates a new ExtractionHandler. The extractor config
// names the payload fields that exports flatten.
func NewExtractionHandler(svc service.ExtractionService, cfg *config.ExtractorConfig) *ExtractionHandler {
	h := &ExtractionHandler{svc: svc, scenariosField: "scenarios", citationsField: "sources"}
	if cfg != nil && cfg.ScenariosField != "" {
		h.scenariosField = cfg.ScenariosField
	}
	if cfg != nil && cfg.CitationsField != "" {
		h.citationsField = cfg.CitationsField
	}
	return h
}

// GenerateRequest is the body of POST /api/v1/generations.
type GenerateRequest struct {
	Prompt    string `json:"prompt" binding:"required"`
	System    string `json:"system"`
	MaxTokens int    `json:"max_tokens" binding:"omitempty,min=1,max=200000"`
}

// Extract handles POST /api/v1/extractions. The body is a raw model response
// in any of the accepted shapes, including a bare JSON string.
func (h *ExtractionHandler) Extract(c *gin.Context) {
	result, ok := h.extractBody(c)
	if !ok {
		return
	}
	RespondOK(c, result)
}

// Export handles POST /api/v1/extractions/export?format=csv|xlsx&name=...
// It extracts like Extract and returns the scenarios as a download.
func (h *ExtractionHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", export.FormatCSV)
	if format != export.FormatCSV && format != export.FormatXLSX {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	result, ok := h.extractBody(c)
	if !ok {
		return
	}

	filename := export.BuildFilename(c.DefaultQuery("name", "scenarios"), format, time.Now())
	c.Header("Content-Type", export.ContentType(format))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, format, result.Payload, h.scenariosField, h.citationsField); err != nil {
		middleware.GetLogger(c).Error("writing export", zap.Error(err))
	}
}

// extractBody decodes the raw response body and runs it through the service.
// On failure the error response has been written and ok is false.
func (h *ExtractionHandler) extractBody(c *gin.Context) (*domain.ExtractionResult, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			HandleError(c, err)
			return nil, false
		}
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "could not read request body")
		return nil, false
	}
	if len(body) == 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body is required")
		return nil, false
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		HandleError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRawResponse, err))
		return nil, false
	}

	result, err := h.svc.Extract(c.Request.Context(), &service.ExtractInput{
		Response:  raw,
		RequestID: middleware.GetRequestID(c),
	})
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	return result, true
}

// Generate handles POST /api/v1/generations.
func (h *ExtractionHandler) Generate(c *gin.Context) {
	if !h.svc.ProviderConfigured() {
		HandleError(c, domain.ErrProviderNotConfigured)
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			HandleError(c, err)
			return
		}
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.svc.Generate(c.Request.Context(), &service.GenerateInput{
		Prompt:    req.Prompt,
		System:    req.System,
		MaxTokens: req.MaxTokens,
		RequestID: middleware.GetRequestID(c),
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, result)
}
