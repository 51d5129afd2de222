package skill

import (
	"context"
	"fmt"

	"github.com/duskcore/agentd/internal/domain/entity"
	"go.uber.org/zap"
)

// BrowserBackend is the thin adapter interface the Browser skill delegates
// to (no concrete browser engine vendored — out of scope per spec §1).
// A production deployment wires this to whatever automation backend it
// runs (a CDP driver, a remote browser service, etc); this package only
// owns the method table, param validation, and policy wiring.
type BrowserBackend interface {
	RunAction(ctx context.Context, action string, params map[string]interface{}) (string, error)
}

// BrowserHandler implements the browser skill's method table (spec §4.3),
// grounded on the teacher's browserTool/executeBrowserSkill pattern: every
// method serializes its params and delegates to a backend, returning a
// graceful unavailable-result rather than an error when no backend is wired.
type BrowserHandler struct {
	backend BrowserBackend
	logger  *zap.Logger
}

func NewBrowserHandler(backend BrowserBackend, logger *zap.Logger) *BrowserHandler {
	return &BrowserHandler{backend: backend, logger: logger}
}

var browserMethods = map[string][]string{
	"browse_url":          {"url"},
	"open_new_tab":        {"url"},
	"click_element":       {"selector"},
	"type_text":           {"selector", "text"},
	"go_back":             nil,
	"submit_form":         {"selector"},
	"screenshot":          nil,
	"get_page_content":    nil,
	"get_page_snapshot":   nil,
	"wait_for_selector":   {"selector"},
	"extract_links":       nil,
}

func (h *BrowserHandler) Call(ctx context.Context, method string, params map[string]interface{}) (*entity.CommandResult, error) {
	required, known := browserMethods[method]
	if !known {
		return nil, fmt.Errorf("unknown browser method %q", method)
	}
	for _, field := range required {
		if _, ok := stringParam(params, field); !ok {
			return failResult(fmt.Sprintf("%s is required", field)), nil
		}
	}

	if h.backend == nil {
		return &entity.CommandResult{
			Success: false,
			Error:   "browser tools are unavailable: no browser backend is connected",
		}, nil
	}

	h.logger.Info("executing browser action", zap.String("action", method))

	output, err := h.backend.RunAction(ctx, method, params)
	if err != nil {
		h.logger.Error("browser action failed", zap.String("action", method), zap.Error(err))
		return &entity.CommandResult{Success: false, Error: err.Error()}, nil
	}

	return &entity.CommandResult{Success: true, Output: truncateBytes(output, outputByteCap)}, nil
}
