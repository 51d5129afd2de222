// Package openai implements the OpenAI-compatible Provider Adapter (spec
// §4.7): a Go-native HTTP client for the chat-completions wire format
// shared by OpenAI, Bailian, MiniMax, DeepSeek, Ollama, vLLM, and — via
// internal/provider/moonshot's thin wrapper — Moonshot's Kimi API.
// Grounded on infrastructure/llm/openai/provider.go.
package openai

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

func init() {
	router.RegisterFactory("openai", func(cfg router.ProviderConfig, logger *zap.Logger) router.Provider {
		return New(cfg, logger)
	})
}

// Provider is an OpenAI-compatible adapter.
type Provider struct {
	id      string
	baseURL string
	apiKey  string
	models  []string
	client  *http.Client
	logger  *zap.Logger
}

// New builds a Provider from config. Used directly by this package's
// factory, and reused by internal/provider/moonshot for its
// OpenAI-compatible wire format.
func New(cfg router.ProviderConfig, logger *zap.Logger) *Provider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Provider{
		id:      cfg.ID,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		models:  cfg.Models,
		client:  newHTTPClient(),
		logger:  logger.With(zap.String("provider", cfg.ID), zap.String("type", "openai")),
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
func (p *Provider) Type() string { return "openai" }

func (p *Provider) DefaultModel() string {
	if len(p.models) > 0 {
		return p.models[0]
	}
	return "gpt-4o-mini"
}

func (p *Provider) AvailableModels() []string { return p.models }

func (p *Provider) Capabilities(ctx context.Context) (router.Capabilities, error) {
	return router.Capabilities{
		ChatCompletions: true, Streaming: true, FunctionCalling: true,
		Embeddings: true, MaxContextTokens: 128000, MaxOutputTokens: 16384,
		Models: p.models,
	}, nil
}

func (p *Provider) HealthCheck(ctx context.Context) (router.Health, error) {
	if p.apiKey == "" {
		return router.HealthUnhealthy, fmt.Errorf("no API key configured")
	}
	return router.HealthHealthy, nil
}

// Complete implements service.LLMClient (non-streaming).
func (p *Provider) Complete(ctx context.Context, req *service.LLMRequest) (*service.LLMResponse, error) {
	apiReq := p.buildAPIRequest(req)
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, entity.WrapError(entity.ErrInvalidRequest, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, entity.WrapError(entity.ErrInvalidRequest, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

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
	apiReq := p.buildAPIRequest(req)
	streamBody := StreamRequest{Request: apiReq, Stream: true, StreamOptions: map[string]interface{}{"include_usage": true}}

	body, err := json.Marshal(streamBody)
	if err != nil {
		return nil, entity.WrapError(entity.ErrInvalidRequest, "marshal request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, entity.WrapError(entity.ErrInvalidRequest, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
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

// Embed implements service.LLMClient.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, string, error) {
	model := "text-embedding-3-small"
	body, err := json.Marshal(EmbedRequest{Model: model, Input: text})
	if err != nil {
		return nil, "", entity.WrapError(entity.ErrInvalidRequest, "marshal embed request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, "", entity.WrapError(entity.ErrInvalidRequest, "build embed request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, "", entity.WrapError(entity.ErrNetwork, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", entity.WrapError(entity.ErrNetwork, "read embed response", err)
	}
	if resp.StatusCode != http.StatusOK {
		cat := common.CategorizeStatus(resp.StatusCode, string(respBody))
		return nil, "", entity.NewError(cat, fmt.Sprintf("embeddings API error %d", resp.StatusCode))
	}

	var embedResp EmbedResponse
	if err := json.Unmarshal(respBody, &embedResp); err != nil {
		return nil, "", entity.WrapError(entity.ErrAPI, "parse embed response", err)
	}
	if len(embedResp.Data) == 0 {
		return nil, "", entity.NewError(entity.ErrAPI, "embeddings response had no data")
	}
	return embedResp.Data[0].Embedding, model, nil
}

func (p *Provider) buildAPIRequest(req *service.LLMRequest) *Request {
	model := req.Model
	if idx := strings.Index(model, "/"); idx >= 0 {
		model = model[idx+1:]
	}

	apiReq := &Request{Model: model, Temperature: req.Temperature, MaxTokens: req.MaxTokens}
	for _, msg := range req.Messages {
		apiMsg := Message{Role: string(msg.Role), Content: msg.Content, ToolCallID: msg.ToolCallID, Name: msg.Name}
		for _, tc := range msg.ToolCalls {
			apiMsg.ToolCalls = append(apiMsg.ToolCalls, ToolCall{
				ID: tc.ID, Type: "function",
				Function: ToolCallFunc{Name: tc.Name, Arguments: MarshalToolCallArgs(tc.Arguments)},
			})
		}
		apiReq.Messages = append(apiReq.Messages, apiMsg)
	}
	for _, td := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, Tool{
			Type: "function",
			Function: ToolFunction{Name: td.Name, Description: td.Description, Parameters: ConvertSchema(td.Parameters)},
		})
	}
	return apiReq
}

func (p *Provider) parseAPIResponse(body []byte) (*service.LLMResponse, error) {
	var apiResp Response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, entity.WrapError(entity.ErrAPI, "parse response", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, entity.NewError(entity.ErrAPI, "empty response: no choices")
	}

	choice := apiResp.Choices[0]
	resp := &service.LLMResponse{Content: choice.Message.Content, ModelUsed: apiResp.Model, TokensUsed: apiResp.Usage.Total()}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, entity.WrapError(entity.ErrAPI, fmt.Sprintf("parse tool call arguments for %s", tc.Function.Name), err)
			}
		}
		resp.ToolCalls = append(resp.ToolCalls, entity.ToolCallInfo{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
