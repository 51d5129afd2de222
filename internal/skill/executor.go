package skill

import (
	"context"
	"fmt"
	"time"

	"github.com/duskcore/agentd/internal/airlock"
	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
	"go.uber.org/zap"
)

// Executor is the Skill Executor (spec §4.3): it owns the four skill
// handlers and an Airlock gate, and implements service.ToolExecutor for
// the Agent Runtime. Every dispatch is: policy lookup -> build a
// QueuedCommand -> Airlock.Check -> run the owning handler on Allow.
type Executor struct {
	filesystem *FilesystemHandler
	shell      *ShellHandler
	web        *WebHandler
	browser    *BrowserHandler
	gate       *airlock.Airlock
	logger     *zap.Logger
}

func NewExecutor(filesystem *FilesystemHandler, shell *ShellHandler, web *WebHandler, browser *BrowserHandler, gate *airlock.Airlock, logger *zap.Logger) *Executor {
	return &Executor{
		filesystem: filesystem,
		shell:      shell,
		web:        web,
		browser:    browser,
		gate:       gate,
		logger:     logger,
	}
}

var _ service.ToolExecutor = (*Executor)(nil)

// Shell exposes the shell handler so the config watcher can hot-reload
// the allow-list without restarting the process.
func (e *Executor) Shell() *ShellHandler { return e.shell }

// Web exposes the web handler so the config watcher can hot-reload the
// domain allow/block lists without restarting the process.
func (e *Executor) Web() *WebHandler { return e.web }

// Dispatch implements service.ToolExecutor.
func (e *Executor) Dispatch(ctx context.Context, workspaceID string, call entity.ToolCallInfo, allowedPaths, blockedPaths []string) *entity.CommandResult {
	policy, ok := airlock.Lookup(call.Name)
	if !ok {
		return &entity.CommandResult{
			Success: false,
			Error:   fmt.Sprintf("%s: %q is not a recognized tool", entity.ErrUnknownTool, call.Name),
		}
	}

	cmd := &entity.QueuedCommand{
		ID:           call.ID,
		Intent:       fmt.Sprintf("%s.%s", policy.Skill, call.Name),
		Params:       call.Arguments,
		AllowedPaths: allowedPaths,
		BlockedPaths: blockedPaths,
		AirlockLevel: policy.Level,
		WorkspaceID:  workspaceID,
		Status:       entity.StatusPending,
		CreatedAt:    time.Now(),
	}

	decision, waited := e.gate.Check(cmd)
	e.logger.Debug("airlock decision",
		zap.String("command_id", cmd.ID),
		zap.String("intent", cmd.Intent),
		zap.String("decision", string(decision)),
		zap.Duration("waited", waited),
	)

	if decision == airlock.Deny {
		return &entity.CommandResult{
			Success: false,
			Error:   fmt.Sprintf("%s: %s was not approved", entity.ErrAirlockRejected, cmd.Intent),
		}
	}

	result, err := e.run(ctx, policy.Skill, call.Name, call.Arguments, allowedPaths, blockedPaths)
	if err != nil {
		return &entity.CommandResult{Success: false, Error: err.Error()}
	}
	if result.Output != "" {
		result.Output = truncateBytes(result.Output, outputByteCap)
	}
	return result
}

func (e *Executor) run(ctx context.Context, skill airlock.Skill, method string, params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	switch skill {
	case airlock.SkillFilesystem:
		return e.filesystem.Call(method, params, allowedPaths, blockedPaths)
	case airlock.SkillShell:
		return e.shell.Call(ctx, method, params, allowedPaths, blockedPaths)
	case airlock.SkillWeb:
		return e.web.Call(ctx, method, params)
	case airlock.SkillBrowser:
		return e.browser.Call(ctx, method, params)
	default:
		return nil, fmt.Errorf("%s: no handler for skill %q", entity.ErrUnknownMethod, skill)
	}
}

// Definitions implements service.ToolExecutor, advertising the full tool
// surface of the Tool Policy Table as JSON-schema tool definitions.
func (e *Executor) Definitions() []service.ToolDefinition {
	defs := make([]service.ToolDefinition, 0, len(airlock.Table()))
	for name, policy := range airlock.Table() {
		defs = append(defs, service.ToolDefinition{
			Name:        name,
			Description: fmt.Sprintf("%s skill, %s risk tier", policy.Skill, policy.Level.String()),
			Parameters:  defaultParamsSchema(name),
		})
	}
	return defs
}

// defaultParamsSchema returns a permissive object schema; individual
// handlers validate required fields themselves rather than relying on
// the model-facing schema to enforce them.
func defaultParamsSchema(name string) map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"additionalProperties": true,
	}
}
