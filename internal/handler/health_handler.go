package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProviderStatus reports whether a completion provider is wired in.
type ProviderStatus interface {
	ProviderConfigured() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	providers      ProviderStatus
	archiveEnabled bool
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(providers ProviderStatus, archiveEnabled bool) *HealthHandler {
	return &HealthHandler{providers: providers, archiveEnabled: archiveEnabled}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. Extraction works without a provider, so
// a missing provider is reported but does not fail the check.
func (h *HealthHandler) Readiness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"provider_configured": h.providers.ProviderConfigured(),
		"archive_enabled":     h.archiveEnabled,
	})
}
