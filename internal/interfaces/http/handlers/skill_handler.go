package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
)

// SkillHandler exposes execute_skill (spec §6) over HTTP, for hosts
// that invoke tools directly rather than through an agent turn.
type SkillHandler struct {
	executor service.ToolExecutor
	logger   *zap.Logger
}

func NewSkillHandler(executor service.ToolExecutor, logger *zap.Logger) *SkillHandler {
	return &SkillHandler{executor: executor, logger: logger.With(zap.String("handler", "skill"))}
}

// ExecuteSkillRequest is the JSON body for POST /v1/skills/execute.
type ExecuteSkillRequest struct {
	WorkspaceID   string                 `json:"workspace_id" binding:"required"`
	Skill         string                 `json:"skill" binding:"required"`
	Method        string                 `json:"method" binding:"required"`
	Params        map[string]interface{} `json:"params"`
	WorkspacePath string                 `json:"workspace_path,omitempty"`
	AllowedPaths  []string               `json:"allowed_paths,omitempty"`
	BlockedPaths  []string               `json:"blocked_paths,omitempty"`
}

func (h *SkillHandler) ExecuteSkill(c *gin.Context) {
	var req ExecuteSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	allowedPaths := req.AllowedPaths
	if len(allowedPaths) == 0 && req.WorkspacePath != "" {
		allowedPaths = []string{req.WorkspacePath}
	}

	call := entity.ToolCallInfo{
		ID:        uuid.NewString(),
		Name:      req.Method,
		Arguments: req.Params,
	}

	result := h.executor.Dispatch(c.Request.Context(), req.WorkspaceID, call, allowedPaths, req.BlockedPaths)
	c.JSON(http.StatusOK, result)
}
