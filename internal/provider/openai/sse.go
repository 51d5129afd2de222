package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
	"github.com/duskcore/agentd/internal/provider/common"
	"go.uber.org/zap"
)

type toolCallAccumulator struct {
	id   string
	name string
	args strings.Builder
}

// parseSSEStream reads an OpenAI-compatible text/event-stream body,
// forwarding text deltas to onChunk and assembling the final response
// (including any accumulated tool calls) once the stream ends. Grounded
// on the teacher's openai/sse.go ParseSSEStream, trimmed to this
// module's simpler StreamChunk shape (content/isFinal/finishReason only).
func parseSSEStream(ctx context.Context, body io.Reader, onChunk func(service.StreamChunk), logger *zap.Logger) (*service.LLMResponse, error) {
	scanner := common.NewSSEScanner(body, 60*time.Second)

	var content strings.Builder
	toolCalls := map[int]*toolCallAccumulator{}
	var modelUsed string
	var tokensUsed int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk StreamChunkData
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			logger.Debug("skipping unparseable SSE chunk", zap.Error(err))
			continue
		}
		if chunk.Model != "" {
			modelUsed = chunk.Model
		}
		if chunk.Usage != nil {
			if t := chunk.Usage.Total(); t > 0 {
				tokensUsed = t
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			content.WriteString(choice.Delta.Content)
			onChunk(service.StreamChunk{Content: choice.Delta.Content})
		}
		for _, tc := range choice.Delta.ToolCalls {
			acc, ok := toolCalls[tc.Index]
			if !ok {
				acc = &toolCallAccumulator{}
				toolCalls[tc.Index] = acc
			}
			if tc.ID != "" {
				acc.id = tc.ID
			}
			if tc.Function.Name != "" {
				acc.name = tc.Function.Name
			}
			acc.args.WriteString(tc.Function.Arguments)
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			onChunk(service.StreamChunk{IsFinal: true, FinishReason: *choice.FinishReason})
			break
		}
	}

	if err := scanner.Err(); err != nil {
		if common.IsIdleTimeoutErr(err) {
			if content.Len() == 0 && len(toolCalls) == 0 {
				return nil, fmt.Errorf("SSE stream stalled: no data received")
			}
			logger.Warn("returning partial response after SSE idle timeout")
		} else {
			return nil, fmt.Errorf("SSE scan error: %w", err)
		}
	}

	resp := &service.LLMResponse{Content: content.String(), ModelUsed: modelUsed, TokensUsed: tokensUsed}
	for i := 0; i < len(toolCalls); i++ {
		acc, ok := toolCalls[i]
		if !ok {
			continue
		}
		var args map[string]interface{}
		if s := acc.args.String(); s != "" {
			if err := json.Unmarshal([]byte(s), &args); err != nil {
				logger.Warn("failed to parse streamed tool call arguments", zap.String("tool", acc.name), zap.Error(err))
				continue
			}
		}
		resp.ToolCalls = append(resp.ToolCalls, entity.ToolCallInfo{ID: acc.id, Name: acc.name, Arguments: args})
	}
	return resp, nil
}
