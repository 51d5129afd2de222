package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/infrastructure/persistence"
	"github.com/duskcore/agentd/internal/router"
)

// RouterHandler exposes the Router's register/unregister/set-default/
// list/stats surface (spec §6). No direct teacher analogue — the
// teacher never exposes its infrastructure/llm.Router over HTTP — so
// this follows the gin-handler shape the rest of the teacher's
// handlers/*.go files use. Registrations are mirrored into
// ProviderConfigStore so the fleet survives a restart.
type RouterHandler struct {
	router *router.Router
	store  *persistence.ProviderConfigStore
	logger *zap.Logger
}

func NewRouterHandler(rt *router.Router, store *persistence.ProviderConfigStore, logger *zap.Logger) *RouterHandler {
	return &RouterHandler{router: rt, store: store, logger: logger.With(zap.String("handler", "router"))}
}

// RegisterProvider handles POST /v1/providers.
func (h *RouterHandler) RegisterProvider(c *gin.Context) {
	var cfg router.ProviderConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := router.CreateProvider(cfg, h.logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.router.AddProvider(p)
	if err := h.store.Save(c.Request.Context(), cfg); err != nil {
		h.logger.Warn("failed to persist provider config", zap.String("id", cfg.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"id": cfg.ID})
}

// UnregisterProvider handles DELETE /v1/providers/:id.
func (h *RouterHandler) UnregisterProvider(c *gin.Context) {
	id := c.Param("id")
	if !h.router.RemoveProvider(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "provider not found"})
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.logger.Warn("failed to delete persisted provider config", zap.String("id", id), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetDefaultProvider handles POST /v1/providers/:id/default.
func (h *RouterHandler) SetDefaultProvider(c *gin.Context) {
	h.router.SetDefaultProvider(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true, "default_provider": c.Param("id")})
}

// ListProviders handles GET /v1/providers.
func (h *RouterHandler) ListProviders(c *gin.Context) {
	reports := h.router.ListProviders(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"providers": reports, "default_provider": h.router.DefaultProviderID()})
}

// Stats handles GET /v1/providers/stats — the same per-provider reports
// as ListProviders (without the default_provider field), as a dedicated
// endpoint for dashboards; like ListProviders it drives a HealthCheck per
// provider, since the Router caches no status.
func (h *RouterHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.router.ListProviders(c.Request.Context())})
}
