// Package agentgrpc is the alternate gRPC transport for the Agent
// Runtime (spec §6's [EXPANSION]): a small AgentControl surface
// (RunAgentWorkflow, ExecuteSkill) over the same application layer the
// HTTP interface uses. Grounded on the teacher's interfaces/agentgrpc
// package, including its "server exists, proto not generated yet"
// posture — the teacher ships this package with its RPC methods called
// directly rather than through generated stubs, and this module follows
// that shape rather than hand-rolling a .proto file absent from the pack.
package agentgrpc

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
)

// Server wraps the Runtime and Skill Executor for gRPC-transported
// control, mirroring the HTTP interface's RunAgentWorkflow/ExecuteSkill
// surface.
type Server struct {
	agentLoop *service.AgentLoop
	toolExec  service.ToolExecutor
	logger    *zap.Logger
	server    *grpc.Server
	port      int
}

func NewServer(agentLoop *service.AgentLoop, toolExec service.ToolExecutor, port int, logger *zap.Logger) *Server {
	return &Server{
		agentLoop: agentLoop,
		toolExec:  toolExec,
		logger:    logger.With(zap.String("component", "agent-grpc")),
		port:      port,
	}
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen port %d: %w", s.port, err)
	}

	s.server = grpc.NewServer()
	// Registration happens here once a .proto contract is generated:
	// pb.RegisterAgentControlServer(s.server, s)

	s.logger.Info("starting gRPC agent control server", zap.Int("port", s.port))
	go func() {
		if err := s.server.Serve(lis); err != nil {
			s.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
		s.logger.Info("gRPC agent control server stopped")
	}
}

// RunAgentWorkflowRequest is the inbound request for the RunAgentWorkflow RPC.
type RunAgentWorkflowRequest struct {
	Prompt      string
	ModelID     string
	WorkspaceID string
	AgentSpecID string
	History     []entity.Message
}

// AgentEvent is the streaming response event for the RunAgentWorkflow RPC.
type AgentEvent struct {
	Type     string
	Data     entity.EventData
	Finished bool
}

// RunAgentWorkflow runs the Runtime and streams events through sendEvent,
// reusing the same application layer the HTTP interface's
// AgentHandler.RunAgentWorkflow uses — nothing in the domain differs
// between the two transports.
func (s *Server) RunAgentWorkflow(ctx context.Context, req *RunAgentWorkflowRequest, sendEvent func(*AgentEvent) error) (*service.RunResult, error) {
	if req.Prompt == "" {
		return nil, status.Error(codes.InvalidArgument, "prompt is required")
	}

	s.logger.Info("grpc RunAgentWorkflow",
		zap.String("workspace_id", req.WorkspaceID),
		zap.String("model_id", req.ModelID),
	)

	spec := entity.DefaultAgentSpec()
	spec.ID = req.AgentSpecID
	spec.DefaultModel = req.ModelID
	spec.MemoryConfig.WorkspaceID = req.WorkspaceID

	events := make(chan entity.AgentEvent, 16)
	done := make(chan *service.RunResult, 1)
	go func() {
		done <- s.agentLoop.Run(ctx, spec, req.History, req.Prompt, nil, nil, events)
	}()

	for event := range events {
		if err := sendEvent(&AgentEvent{Type: string(event.Type), Data: event.Data}); err != nil {
			return nil, err
		}
	}
	return <-done, nil
}

// ExecuteSkillRequest is the inbound request for the ExecuteSkill RPC.
type ExecuteSkillRequest struct {
	WorkspaceID  string
	Call         entity.ToolCallInfo
	AllowedPaths []string
	BlockedPaths []string
}

// ExecuteSkill dispatches one tool call through the same
// service.ToolExecutor the HTTP SkillHandler uses.
func (s *Server) ExecuteSkill(ctx context.Context, req *ExecuteSkillRequest) (*entity.CommandResult, error) {
	return s.toolExec.Dispatch(ctx, req.WorkspaceID, req.Call, req.AllowedPaths, req.BlockedPaths), nil
}

// ListTools returns the tool schemas available to the model, for a
// VS-Code-extension-style client to render without a full agent turn.
func (s *Server) ListTools() []service.ToolDefinition {
	return s.toolExec.Definitions()
}
