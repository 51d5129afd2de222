package anthropic

import (
	"testing"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
)

func TestBuildAPIRequest_ExtractsSystemMessage(t *testing.T) {
	p := &Provider{}
	req := &service.LLMRequest{
		Model: "anthropic/claude-3-5-sonnet-20241022",
		Messages: []service.LLMMessage{
			{Role: entity.RoleSystem, Content: "be terse"},
			{Role: entity.RoleUser, Content: "hi"},
		},
	}

	apiReq, err := p.buildAPIRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if apiReq.System != "be terse" {
		t.Fatalf("expected system prompt extracted, got %q", apiReq.System)
	}
	if apiReq.Model != "claude-3-5-sonnet-20241022" {
		t.Fatalf("expected provider prefix stripped, got %q", apiReq.Model)
	}
	if len(apiReq.Messages) != 1 || apiReq.Messages[0].Role != "user" {
		t.Fatalf("expected single user message, got %+v", apiReq.Messages)
	}
	if apiReq.MaxTokens != 8192 {
		t.Fatalf("expected default MaxTokens 8192, got %d", apiReq.MaxTokens)
	}
}

func TestBuildAPIRequest_ToolCallBecomesToolUseBlock(t *testing.T) {
	p := &Provider{}
	req := &service.LLMRequest{
		Messages: []service.LLMMessage{
			{Role: entity.RoleUser, Content: "what's the weather"},
			{
				Role: entity.RoleAssistant,
				ToolCalls: []entity.ToolCallInfo{
					{ID: "call_1", Name: "get_weather", Arguments: map[string]interface{}{"city": "Tokyo"}},
				},
			},
			{Role: entity.RoleTool, ToolCallID: "call_1", Content: "22C, clear"},
		},
	}

	apiReq, err := p.buildAPIRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(apiReq.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(apiReq.Messages))
	}

	assistantMsg := apiReq.Messages[1]
	if assistantMsg.Role != "assistant" || len(assistantMsg.Content) != 1 || assistantMsg.Content[0].Type != "tool_use" {
		t.Fatalf("expected assistant message with a tool_use block, got %+v", assistantMsg)
	}
	if assistantMsg.Content[0].Name != "get_weather" {
		t.Fatalf("expected tool name get_weather, got %q", assistantMsg.Content[0].Name)
	}

	toolResultMsg := apiReq.Messages[2]
	if toolResultMsg.Role != "user" || len(toolResultMsg.Content) != 1 || toolResultMsg.Content[0].Type != "tool_result" {
		t.Fatalf("expected tool-role message converted to user/tool_result, got %+v", toolResultMsg)
	}
	if toolResultMsg.Content[0].ToolUseID != "call_1" {
		t.Fatalf("expected tool_use_id call_1, got %q", toolResultMsg.Content[0].ToolUseID)
	}
}

func TestParseAPIResponse_TextAndToolUse(t *testing.T) {
	p := &Provider{}
	body := []byte(`{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-5-sonnet-20241022",
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 5},
		"content": [
			{"type": "text", "text": "Let me check that."},
			{"type": "tool_use", "id": "call_2", "name": "get_weather", "input": {"city": "Osaka"}}
		]
	}`)

	resp, err := p.parseAPIResponse(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Let me check that." {
		t.Fatalf("expected text content, got %q", resp.Content)
	}
	if resp.TokensUsed != 15 {
		t.Fatalf("expected usage total 15, got %d", resp.TokensUsed)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "get_weather" {
		t.Fatalf("expected get_weather tool call, got %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Arguments["city"] != "Osaka" {
		t.Fatalf("expected city=Osaka, got %+v", resp.ToolCalls[0].Arguments)
	}
}

func TestEmbed_NotSupported(t *testing.T) {
	p := &Provider{}
	_, _, err := p.Embed(nil, "text")
	if err == nil {
		t.Fatal("expected an error from Embed, anthropic has no embeddings endpoint")
	}
}
