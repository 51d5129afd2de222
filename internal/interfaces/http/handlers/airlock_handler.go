package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/airlock"
)

// AirlockHandler exposes respond_to_airlock, set_headless_mode, and
// get_pending_airlock_approvals (spec §6).
type AirlockHandler struct {
	gate   *airlock.Airlock
	logger *zap.Logger
}

func NewAirlockHandler(gate *airlock.Airlock, logger *zap.Logger) *AirlockHandler {
	return &AirlockHandler{gate: gate, logger: logger.With(zap.String("handler", "airlock"))}
}

type respondRequest struct {
	CommandID string `json:"command_id" binding:"required"`
	Approved  bool   `json:"approved"`
}

func (h *AirlockHandler) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ok := h.gate.Respond(req.CommandID, req.Approved)
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

type headlessRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *AirlockHandler) SetHeadlessMode(c *gin.Context) {
	var req headlessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.gate.SetHeadless(req.Enabled)
	c.JSON(http.StatusOK, gin.H{"success": true, "headless": req.Enabled})
}

func (h *AirlockHandler) PendingApprovals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": h.gate.Pending()})
}
