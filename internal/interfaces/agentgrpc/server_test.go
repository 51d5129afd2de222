package agentgrpc

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/contextwindow"
	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
)

type fakeLLM struct{}

func (fakeLLM) Complete(ctx context.Context, req *service.LLMRequest) (*service.LLMResponse, error) {
	return &service.LLMResponse{Content: "hello from grpc", ModelUsed: "fake-model"}, nil
}

func (fakeLLM) CompleteStream(ctx context.Context, req *service.LLMRequest, onChunk func(service.StreamChunk)) (*service.LLMResponse, error) {
	onChunk(service.StreamChunk{Content: "hello", IsFinal: false})
	onChunk(service.StreamChunk{Content: "", IsFinal: true, FinishReason: "stop"})
	return &service.LLMResponse{Content: "hello", ModelUsed: "fake-model"}, nil
}

func (fakeLLM) Embed(ctx context.Context, text string) ([]float32, string, error) {
	return nil, "", nil
}

type fakeTools struct{}

func (fakeTools) Dispatch(ctx context.Context, workspaceID string, call entity.ToolCallInfo, allowedPaths, blockedPaths []string) *entity.CommandResult {
	return &entity.CommandResult{Success: true, Output: "ran " + call.Name}
}

func (fakeTools) Definitions() []service.ToolDefinition {
	return []service.ToolDefinition{{Name: "noop"}}
}

func newTestServer() *Server {
	loop := service.NewAgentLoop(fakeLLM{}, fakeTools{}, nil, contextwindow.Trim, 0, service.AgentLoopConfig{}, zap.NewNop())
	return NewServer(loop, fakeTools{}, 0, zap.NewNop())
}

func TestServer_RunAgentWorkflowStreamsAndReturnsResult(t *testing.T) {
	s := newTestServer()

	var events []*AgentEvent
	req := &RunAgentWorkflowRequest{Prompt: "hi there", WorkspaceID: "ws-1"}
	result, err := s.RunAgentWorkflow(context.Background(), req, func(e *AgentEvent) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.FinalContent == "" {
		t.Fatalf("expected a final result, got %+v", result)
	}
	if len(events) == 0 {
		t.Fatal("expected at least one streamed event")
	}
}

func TestServer_RunAgentWorkflowRejectsEmptyPrompt(t *testing.T) {
	s := newTestServer()

	_, err := s.RunAgentWorkflow(context.Background(), &RunAgentWorkflowRequest{WorkspaceID: "ws-1"}, func(e *AgentEvent) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected an error for empty prompt")
	}
}

func TestServer_ExecuteSkillDispatchesThroughToolExecutor(t *testing.T) {
	s := newTestServer()

	result, err := s.ExecuteSkill(context.Background(), &ExecuteSkillRequest{
		WorkspaceID: "ws-1",
		Call:        entity.ToolCallInfo{ID: "c1", Name: "read_file"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.Output != "ran read_file" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestServer_ListTools(t *testing.T) {
	s := newTestServer()
	tools := s.ListTools()
	if len(tools) != 1 || tools[0].Name != "noop" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
}
