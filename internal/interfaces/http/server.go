// Package http is the HTTP control surface (spec §6), grounded on the
// teacher's interfaces/http.Server: gin router, health check, versioned
// API group, SSE-streaming agent endpoint.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/airlock"
	"github.com/duskcore/agentd/internal/domain/service"
	"github.com/duskcore/agentd/internal/infrastructure/persistence"
	"github.com/duskcore/agentd/internal/interfaces/http/handlers"
	"github.com/duskcore/agentd/internal/router"
	"github.com/duskcore/agentd/internal/vault"
)

// Config binds the HTTP server's listen address and gin mode.
type Config struct {
	Host string
	Port int
	Mode string // debug, release
}

// Server wraps the gin engine and the stdlib http.Server it's served on.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer wires every handler group onto one gin.Engine. Grounded on
// the teacher's NewServer, extended with the Router/Airlock/Skill/Vault
// handler groups spec §6 adds beyond the teacher's message/chat surface.
func NewServer(cfg Config, agentLoop *service.AgentLoop, toolExec service.ToolExecutor, rt *router.Router, providerStore *persistence.ProviderConfigStore, gate *airlock.Airlock, store *vault.Store, retriever *vault.Retriever, platformKey string, logger *zap.Logger) *Server {
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ginLogger(logger))

	agentHandler := handlers.NewAgentHandler(agentLoop, toolExec, logger)
	routerHandler := handlers.NewRouterHandler(rt, providerStore, logger)
	skillHandler := handlers.NewSkillHandler(toolExec, logger)
	airlockHandler := handlers.NewAirlockHandler(gate, logger)
	memoryHandler := handlers.NewMemoryHandler(store, retriever, logger)
	nodeHandler := handlers.NewNodeHandler(platformKey, logger)

	setupRoutes(engine, agentHandler, routerHandler, skillHandler, airlockHandler, memoryHandler, nodeHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		server: &http.Server{Addr: addr, Handler: engine},
		logger: logger,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting HTTP server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func setupRoutes(
	engine *gin.Engine,
	agentHandler *handlers.AgentHandler,
	routerHandler *handlers.RouterHandler,
	skillHandler *handlers.SkillHandler,
	airlockHandler *handlers.AirlockHandler,
	memoryHandler *handlers.MemoryHandler,
	nodeHandler *handlers.NodeHandler,
) {
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	v1 := engine.Group("/v1")
	{
		v1.POST("/agent/run", agentHandler.RunAgentWorkflow)
		v1.GET("/agent/tools", agentHandler.GetTools)

		v1.POST("/providers", routerHandler.RegisterProvider)
		v1.DELETE("/providers/:id", routerHandler.UnregisterProvider)
		v1.POST("/providers/:id/default", routerHandler.SetDefaultProvider)
		v1.GET("/providers", routerHandler.ListProviders)
		v1.GET("/providers/stats", routerHandler.Stats)

		v1.POST("/skills/execute", skillHandler.ExecuteSkill)

		v1.POST("/airlock/respond", airlockHandler.Respond)
		v1.POST("/airlock/headless", airlockHandler.SetHeadlessMode)
		v1.GET("/airlock/pending", airlockHandler.PendingApprovals)

		v1.POST("/memory", memoryHandler.StoreMemory)
		v1.GET("/memory/search", memoryHandler.SearchMemory)
		v1.POST("/memory/query", memoryHandler.QueryAgentMemory)
		v1.GET("/memory/stats", memoryHandler.GetMemoryStats)
		v1.DELETE("/memory/:id", memoryHandler.DeleteMemory)

		v1.POST("/nodes/register", nodeHandler.Register)
		v1.POST("/nodes/:id/heartbeat", nodeHandler.Heartbeat)
		v1.POST("/nodes/:id/commands/:commandId/start", nodeHandler.StartCommand)
		v1.POST("/nodes/:id/commands/:commandId/complete", nodeHandler.CompleteCommand)
	}
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
