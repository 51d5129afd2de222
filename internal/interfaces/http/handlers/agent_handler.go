package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
)

// AgentHandler serves run_agent_workflow and its streaming variant
// (spec §6). Grounded on the teacher's AgentHandler, adapted to this
// Runtime's entity.Message history and AgentSpec rather than the
// teacher's LLMMessage/PromptEngine pairing.
type AgentHandler struct {
	loop   *service.AgentLoop
	tools  service.ToolExecutor
	logger *zap.Logger
}

func NewAgentHandler(loop *service.AgentLoop, tools service.ToolExecutor, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{loop: loop, tools: tools, logger: logger.With(zap.String("handler", "agent"))}
}

// AgentRunRequest is the JSON body for POST /v1/agent/run.
type AgentRunRequest struct {
	Prompt       string          `json:"prompt" binding:"required"`
	ModelID      string          `json:"model_id"`
	WorkspaceID  string          `json:"workspace_id"`
	AgentSpecID  string          `json:"agent_spec_id"`
	History      []entity.Message `json:"history,omitempty"`
	AllowedPaths []string        `json:"allowed_paths,omitempty"`
	BlockedPaths []string        `json:"blocked_paths,omitempty"`
}

type sseEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// RunAgentWorkflow handles POST /v1/agent/run, streaming `agent://event`
// frames as Server-Sent Events (spec §6).
func (h *AgentHandler) RunAgentWorkflow(c *gin.Context) {
	var req AgentRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	spec := entity.DefaultAgentSpec()
	spec.ID = req.AgentSpecID
	spec.DefaultModel = req.ModelID
	spec.MemoryConfig.WorkspaceID = req.WorkspaceID

	h.logger.Info("agent workflow started",
		zap.String("workspace_id", req.WorkspaceID),
		zap.String("model_id", req.ModelID),
		zap.Int("history_len", len(req.History)),
	)

	events := make(chan entity.AgentEvent, 16)
	ctx := c.Request.Context()
	flusher, _ := c.Writer.(http.Flusher)

	done := make(chan *service.RunResult, 1)
	go func() {
		done <- h.loop.Run(ctx, spec, req.History, req.Prompt, req.AllowedPaths, req.BlockedPaths, events)
	}()

	for event := range events {
		data, _ := json.Marshal(sseEvent{Event: string(event.Type), Data: event.Data})
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	result := <-done
	finalData, _ := json.Marshal(map[string]interface{}{
		"final_text":   result.FinalContent,
		"total_steps":  result.TotalSteps,
		"total_tokens": result.TotalTokens,
		"model_used":   result.ModelUsed,
		"tools_used":   result.ToolsUsed,
	})
	fmt.Fprintf(c.Writer, "event: done\ndata: %s\n\n", finalData)
	if flusher != nil {
		flusher.Flush()
	}
}

// GetTools handles GET /v1/agent/tools.
func (h *AgentHandler) GetTools(c *gin.Context) {
	defs := h.tools.Definitions()
	tools := make([]map[string]interface{}, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, map[string]interface{}{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  d.Parameters,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}
