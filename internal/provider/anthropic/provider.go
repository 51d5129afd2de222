// Package anthropic implements the Claude Messages API Provider Adapter
// (spec §4.7). Grounded on infrastructure/llm/anthropic/provider.go.
package anthropic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
	"github.com/duskcore/agentd/internal/provider/common"
	"github.com/duskcore/agentd/internal/router"
	"go.uber.org/zap"
)

const anthropicVersion = "2023-06-01"

func init() {
	router.RegisterFactory("anthropic", func(cfg router.ProviderConfig, logger *zap.Logger) router.Provider {
		return New(cfg, logger)
	})
}

// Provider is the Anthropic Messages API adapter.
type Provider struct {
	id      string
	baseURL string
	apiKey  string
	models  []string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg router.ProviderConfig, logger *zap.Logger) *Provider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &Provider{
		id:      cfg.ID,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		models:  cfg.Models,
		client:  newHTTPClient(),
		logger:  logger.With(zap.String("provider", cfg.ID), zap.String("type", "anthropic")),
	}
}

func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 300 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &http.Client{Transport: transport}
}

var _ router.Provider = (*Provider)(nil)

func (p *Provider) ID() string   { return p.id }
func (p *Provider) Type() string { return "anthropic" }

func (p *Provider) DefaultModel() string {
	if len(p.models) > 0 {
		return p.models[0]
	}
	return "claude-3-5-sonnet-20241022"
}

func (p *Provider) AvailableModels() []string { return p.models }

func (p *Provider) Capabilities(ctx context.Context) (router.Capabilities, error) {
	return router.Capabilities{
		ChatCompletions: true, Streaming: true, FunctionCalling: true, Vision: true,
		Embeddings: false, MaxContextTokens: 200000, MaxOutputTokens: 8192,
		Models: p.models,
	}, nil
}

func (p *Provider) HealthCheck(ctx context.Context) (router.Health, error) {
	if p.apiKey == "" {
		return router.HealthUnhealthy, fmt.Errorf("no API key configured")
	}
	return router.HealthHealthy, nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

// Complete implements service.LLMClient (non-streaming).
func (p *Provider) Complete(ctx context.Context, req *service.LLMRequest) (*service.LLMResponse, error) {
	apiReq, err := p.buildAPIRequest(req)
	if err != nil {
		return nil, entity.WrapError(entity.ErrInvalidRequest, "build request", err)
	}
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, entity.WrapError(entity.ErrInvalidRequest, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, entity.WrapError(entity.ErrInvalidRequest, "build request", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, entity.WrapError(entity.ErrNetwork, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, entity.WrapError(entity.ErrNetwork, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		cat := common.CategorizeStatus(resp.StatusCode, string(respBody))
		return nil, entity.NewError(cat, fmt.Sprintf("API error %d: %s", resp.StatusCode, truncate(string(respBody), 300)))
	}
	return p.parseAPIResponse(respBody)
}

// CompleteStream implements service.LLMClient with SSE streaming.
func (p *Provider) CompleteStream(ctx context.Context, req *service.LLMRequest, onChunk func(service.StreamChunk)) (*service.LLMResponse, error) {
	apiReq, err := p.buildAPIRequest(req)
	if err != nil {
		return nil, entity.WrapError(entity.ErrInvalidRequest, "build request", err)
	}
	apiReq.Stream = true

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, entity.WrapError(entity.ErrInvalidRequest, "marshal request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, entity.WrapError(entity.ErrInvalidRequest, "build request", err)
	}
	p.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, entity.WrapError(entity.ErrNetwork, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		cat := common.CategorizeStatus(resp.StatusCode, string(respBody))
		return nil, entity.NewError(cat, fmt.Sprintf("API error %d: %s", resp.StatusCode, truncate(string(respBody), 300)))
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			resp.Body.Close()
		case <-done:
		}
	}()
	result, err := parseSSEStream(ctx, resp.Body, onChunk, p.logger)
	close(done)
	return result, err
}

// Embed implements service.LLMClient. Anthropic does not offer an
// embeddings endpoint, so this adapter never advertises Embeddings in
// Capabilities and the Router never selects it for an embed call.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, string, error) {
	return nil, "", entity.NewError(entity.ErrUnsupportedCapability, "anthropic provider does not support embeddings")
}

// buildAPIRequest converts the normalized request into Anthropic's shape:
// the system message is pulled out of Messages into the top-level System
// field, assistant tool calls become tool_use blocks, and tool-role
// messages become user-role tool_result blocks (Anthropic has no "tool"
// role). MaxTokens is required by the API and defaults to 8192 when the
// caller didn't set one.
func (p *Provider) buildAPIRequest(req *service.LLMRequest) (*Request, error) {
	model := req.Model
	if idx := strings.Index(model, "/"); idx >= 0 {
		model = model[idx+1:]
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	apiReq := &Request{Model: model, MaxTokens: maxTokens, Temperature: req.Temperature}

	for _, msg := range req.Messages {
		switch msg.Role {
		case entity.RoleSystem:
			if apiReq.System != "" {
				apiReq.System += "\n\n"
			}
			apiReq.System += msg.Content

		case entity.RoleAssistant:
			blocks := []ContentBlock{}
			if msg.Content != "" {
				blocks = append(blocks, ContentBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				input, err := marshalInput(tc.Arguments)
				if err != nil {
					return nil, fmt.Errorf("marshal tool_use input for %s: %w", tc.Name, err)
				}
				blocks = append(blocks, ContentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			apiReq.Messages = append(apiReq.Messages, Message{Role: "assistant", Content: blocks})

		case entity.RoleTool:
			apiReq.Messages = append(apiReq.Messages, Message{
				Role:    "user",
				Content: []ContentBlock{{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.Content}},
			})

		default: // user
			content := msg.Content
			if content == "" && len(msg.Parts) > 0 {
				content = flattenParts(msg.Parts)
			}
			apiReq.Messages = append(apiReq.Messages, Message{Role: "user", Content: []ContentBlock{{Type: "text", Text: content}}})
		}
	}

	for _, td := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, Tool{Name: td.Name, Description: td.Description, InputSchema: ConvertSchema(td.Parameters)})
	}
	return apiReq, nil
}

func (p *Provider) parseAPIResponse(body []byte) (*service.LLMResponse, error) {
	var apiResp Response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, entity.WrapError(entity.ErrAPI, "parse response", err)
	}

	resp := &service.LLMResponse{ModelUsed: apiResp.Model, TokensUsed: apiResp.Usage.Total()}
	var text strings.Builder
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args, err := inputToArgs(block.Input)
			if err != nil {
				return nil, entity.WrapError(entity.ErrAPI, fmt.Sprintf("parse tool_use input for %s", block.Name), err)
			}
			resp.ToolCalls = append(resp.ToolCalls, entity.ToolCallInfo{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	resp.Content = text.String()
	return resp, nil
}

func inputToArgs(input interface{}) (map[string]interface{}, error) {
	if input == nil {
		return nil, nil
	}
	if m, ok := input.(map[string]interface{}); ok {
		return m, nil
	}
	b, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// flattenParts mirrors entity.Message.TextContent for the rare case a
// caller builds a user message out of Parts only, with no Content set.
func flattenParts(parts []entity.ContentPart) string {
	var text strings.Builder
	for _, p := range parts {
		if p.Type == "text" && p.Text != "" {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(p.Text)
		}
	}
	return text.String()
}
