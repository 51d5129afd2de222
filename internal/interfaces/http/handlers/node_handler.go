package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// registeredNode is an in-memory record of one node-registration
// handshake. A full deployment would persist this, but the spec treats
// node registration as a lightweight handshake the Cloud Bridge
// supersedes for anything durable.
type registeredNode struct {
	ID           string
	WorkspaceID  string
	Hostname     string
	Platform     string
	Skills       []string
	AllowedPaths []string
	Fingerprint  string
	RegisteredAt time.Time
	LastSeen     time.Time
}

// NodeHandler implements spec §6's node registration + heartbeat +
// command lifecycle endpoints, gated by a Bearer platform_key. Grounded
// on the teacher's gin handler conventions (ShouldBindJSON + gin.H
// responses); no direct teacher analogue exists since NGOClaw has no
// node-fleet concept.
type NodeHandler struct {
	platformKey string
	logger      *zap.Logger

	mu    sync.Mutex
	nodes map[string]*registeredNode
}

func NewNodeHandler(platformKey string, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		platformKey: platformKey,
		logger:      logger.With(zap.String("handler", "node")),
		nodes:       make(map[string]*registeredNode),
	}
}

func (h *NodeHandler) authorized(c *gin.Context) bool {
	if h.platformKey == "" {
		return true
	}
	header := c.GetHeader("Authorization")
	return header == "Bearer "+h.platformKey
}

type registerRequest struct {
	WorkspaceID  string   `json:"workspaceId" binding:"required"`
	Hostname     string   `json:"hostname" binding:"required"`
	Platform     string   `json:"platform"`
	Skills       []string `json:"skills"`
	AllowedPaths []string `json:"allowedPaths"`
	Fingerprint  string   `json:"fingerprint"`
}

// Register handles POST /v1/nodes/register.
func (h *NodeHandler) Register(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid platform key"})
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	node := &registeredNode{
		ID: uuid.NewString(), WorkspaceID: req.WorkspaceID, Hostname: req.Hostname,
		Platform: req.Platform, Skills: req.Skills, AllowedPaths: req.AllowedPaths,
		Fingerprint: req.Fingerprint, RegisteredAt: time.Now(), LastSeen: time.Now(),
	}
	h.mu.Lock()
	h.nodes[node.ID] = node
	h.mu.Unlock()

	h.logger.Info("node registered", zap.String("node_id", node.ID), zap.String("hostname", req.Hostname))
	c.JSON(http.StatusOK, gin.H{"success": true, "nodeId": node.ID, "message": "registered"})
}

// Heartbeat handles POST /v1/nodes/:id/heartbeat, returning any pending
// commands for the node. This module carries no command queue of its
// own yet, so it always returns an empty list while still refreshing
// LastSeen.
func (h *NodeHandler) Heartbeat(c *gin.Context) {
	id := c.Param("id")
	h.mu.Lock()
	node, ok := h.nodes[id]
	if ok {
		node.LastSeen = time.Now()
	}
	h.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown node"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "pendingCommands": []string{}})
}

// StartCommand handles POST /v1/nodes/:id/commands/:commandId/start.
func (h *NodeHandler) StartCommand(c *gin.Context) {
	h.logger.Info("node acknowledged command start",
		zap.String("node_id", c.Param("id")), zap.String("command_id", c.Param("commandId")))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CompleteCommand handles POST /v1/nodes/:id/commands/:commandId/complete.
func (h *NodeHandler) CompleteCommand(c *gin.Context) {
	h.logger.Info("node acknowledged command completion",
		zap.String("node_id", c.Param("id")), zap.String("command_id", c.Param("commandId")))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
