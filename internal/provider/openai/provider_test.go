package openai

import (
	"testing"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
)

func TestBuildAPIRequest_StripsProviderPrefix(t *testing.T) {
	p := &Provider{}
	req := &service.LLMRequest{
		Model: "openai/gpt-4o-mini",
		Messages: []service.LLMMessage{
			{Role: entity.RoleUser, Content: "hi"},
		},
	}
	apiReq := p.buildAPIRequest(req)
	if apiReq.Model != "gpt-4o-mini" {
		t.Fatalf("expected prefix stripped, got %q", apiReq.Model)
	}
	if len(apiReq.Messages) != 1 || apiReq.Messages[0].Content != "hi" {
		t.Fatalf("unexpected messages: %+v", apiReq.Messages)
	}
}

func TestBuildAPIRequest_ToolCallsAndTools(t *testing.T) {
	p := &Provider{}
	req := &service.LLMRequest{
		Model: "gpt-4o-mini",
		Messages: []service.LLMMessage{
			{Role: entity.RoleUser, Content: "weather?"},
			{
				Role: entity.RoleAssistant,
				ToolCalls: []entity.ToolCallInfo{
					{ID: "call_1", Name: "get_weather", Arguments: map[string]interface{}{"city": "Tokyo"}},
				},
			},
			{Role: entity.RoleTool, ToolCallID: "call_1", Content: "22C"},
		},
		Tools: []service.ToolDefinition{
			{Name: "get_weather", Description: "look up weather", Parameters: map[string]interface{}{"properties": map[string]interface{}{}}},
		},
	}

	apiReq := p.buildAPIRequest(req)
	if len(apiReq.Tools) != 1 || apiReq.Tools[0].Function.Name != "get_weather" {
		t.Fatalf("expected tool definition carried through, got %+v", apiReq.Tools)
	}
	if len(apiReq.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(apiReq.Messages))
	}
	assistantMsg := apiReq.Messages[1]
	if len(assistantMsg.ToolCalls) != 1 || assistantMsg.ToolCalls[0].Function.Name != "get_weather" {
		t.Fatalf("expected assistant tool call carried through, got %+v", assistantMsg)
	}
	toolMsg := apiReq.Messages[2]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "call_1" {
		t.Fatalf("expected tool-role message with tool_call_id, got %+v", toolMsg)
	}
}

func TestParseAPIResponse_TextAndToolCalls(t *testing.T) {
	p := &Provider{}
	body := []byte(`{
		"id": "chatcmpl-1", "model": "gpt-4o-mini",
		"usage": {"total_tokens": 42},
		"choices": [{
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"Tokyo\"}"}}]
			}
		}]
	}`)

	resp, err := p.parseAPIResponse(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ModelUsed != "gpt-4o-mini" || resp.TokensUsed != 42 {
		t.Fatalf("unexpected metadata: %+v", resp)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "get_weather" {
		t.Fatalf("expected get_weather tool call, got %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Arguments["city"] != "Tokyo" {
		t.Fatalf("expected city=Tokyo, got %+v", resp.ToolCalls[0].Arguments)
	}
}

func TestParseAPIResponse_EmptyChoicesIsError(t *testing.T) {
	p := &Provider{}
	_, err := p.parseAPIResponse([]byte(`{"choices": []}`))
	if err == nil {
		t.Fatal("expected an error for a response with no choices")
	}
}
