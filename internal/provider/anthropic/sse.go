package anthropic

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

// parseSSEStream reads Anthropic's event-based SSE format:
//
//	message_start        - initial message metadata (model, usage so far)
//	content_block_start  - a new content block begins (text or tool_use)
//	content_block_delta  - incremental update to the current block
//	content_block_stop   - current block finished
//	message_delta        - stop_reason and final usage
//	message_stop         - stream complete
//
// Grounded on the teacher's anthropic/sse.go ParseSSEStream, trimmed to
// this module's StreamChunk{Content,IsFinal,FinishReason} shape: tool
// calls are only surfaced in the assembled *service.LLMResponse once the
// stream ends, not as incremental deltas.
func parseSSEStream(ctx context.Context, body io.Reader, onChunk func(service.StreamChunk), logger *zap.Logger) (*service.LLMResponse, error) {
	scanner := common.NewSSEScanner(body, 60*time.Second)

	var content strings.Builder
	var modelUsed string
	var tokensUsed int
	var finishReason string
	toolCalls := map[int]*toolCallAccumulator{}
	var currentEvent string

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimPrefix(line, "event: ")
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		switch currentEvent {
		case "message_start":
			var evt StreamEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				logger.Debug("skip unparseable message_start", zap.Error(err))
				continue
			}
			if evt.Message != nil {
				modelUsed = evt.Message.Model
				if t := evt.Message.Usage.Total(); t > 0 {
					tokensUsed = t
				}
			}

		case "content_block_start":
			var evt StreamEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				logger.Debug("skip unparseable content_block_start", zap.Error(err))
				continue
			}
			if evt.ContentBlock != nil && evt.ContentBlock.Type == "tool_use" {
				toolCalls[evt.Index] = &toolCallAccumulator{id: evt.ContentBlock.ID, name: evt.ContentBlock.Name}
			}

		case "content_block_delta":
			var evt StreamEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				logger.Debug("skip unparseable content_block_delta", zap.Error(err))
				continue
			}
			if evt.Delta == nil {
				continue
			}
			switch evt.Delta.Type {
			case "text_delta":
				if evt.Delta.Text != "" {
					content.WriteString(evt.Delta.Text)
					onChunk(service.StreamChunk{Content: evt.Delta.Text})
				}
			case "input_json_delta":
				if acc, ok := toolCalls[evt.Index]; ok {
					acc.args.WriteString(evt.Delta.PartialJSON)
				}
			case "thinking_delta":
				// reasoning content, not surfaced to the caller
			}

		case "message_delta":
			var evt StreamEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				logger.Debug("skip unparseable message_delta", zap.Error(err))
				continue
			}
			if evt.Delta != nil && evt.Delta.StopReason != "" {
				finishReason = evt.Delta.StopReason
			}
			if evt.Usage != nil {
				if t := evt.Usage.Total(); t > 0 {
					tokensUsed = t
				}
			}

		case "message_stop":
			currentEvent = ""
			goto done

		case "ping":
			// heartbeat, ignore
		}

		currentEvent = ""
	}

done:
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

	if finishReason != "" {
		onChunk(service.StreamChunk{IsFinal: true, FinishReason: finishReason})
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
