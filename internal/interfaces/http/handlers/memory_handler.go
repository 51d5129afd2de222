package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/vault"
)

// MemoryHandler exposes store_memory, search_memory, query_agent_memory,
// get_memory_stats, delete_memory (spec §6), backed by internal/vault.
type MemoryHandler struct {
	store     *vault.Store
	retriever *vault.Retriever
	logger    *zap.Logger
}

func NewMemoryHandler(store *vault.Store, retriever *vault.Retriever, logger *zap.Logger) *MemoryHandler {
	return &MemoryHandler{store: store, retriever: retriever, logger: logger.With(zap.String("handler", "memory"))}
}

type storeMemoryRequest struct {
	WorkspaceID string                 `json:"workspace_id" binding:"required"`
	Content     string                 `json:"content" binding:"required"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Source      string                 `json:"source,omitempty"`
	Sensitivity string                 `json:"sensitivity,omitempty"`
}

func (h *MemoryHandler) StoreMemory(c *gin.Context) {
	var req storeMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sensitivity := entity.SensitivityNormal
	if req.Sensitivity == string(entity.SensitivitySecret) {
		sensitivity = entity.SensitivitySecret
	}
	entry := &entity.MemoryEntry{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		Content:     req.Content,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
		Source:      req.Source,
		Sensitivity: sensitivity,
	}
	if err := h.store.Put(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": entry.ID})
}

// SearchMemory handles GET /v1/memory/search?workspace_id=&q=&limit=
func (h *MemoryHandler) SearchMemory(c *gin.Context) {
	workspaceID := c.Query("workspace_id")
	query := c.Query("q")
	limit := queryInt(c, "limit", 10)
	if workspaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workspace_id is required"})
		return
	}
	hits, err := h.store.SearchLexical(c.Request.Context(), workspaceID, query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

type queryAgentMemoryRequest struct {
	WorkspaceID string `json:"workspace_id" binding:"required"`
	Query       string `json:"query" binding:"required"`
	TopK        int    `json:"top_k,omitempty"`
}

// QueryAgentMemory handles POST /v1/memory/query — the Runtime's
// vector-first, lexical-fallback retrieval path, exposed directly for
// hosts that want to preview what the Runtime would inject.
func (h *MemoryHandler) QueryAgentMemory(c *gin.Context) {
	var req queryAgentMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 20
	}
	snippets, err := h.retriever.Retrieve(c.Request.Context(), req.WorkspaceID, req.Query, topK)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snippets": snippets})
}

// GetMemoryStats handles GET /v1/memory/stats?workspace_id=
func (h *MemoryHandler) GetMemoryStats(c *gin.Context) {
	workspaceID := c.Query("workspace_id")
	count, err := h.store.Count(c.Request.Context(), workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace_id": workspaceID, "entry_count": count})
}

// DeleteMemory handles DELETE /v1/memory/:id
func (h *MemoryHandler) DeleteMemory(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
