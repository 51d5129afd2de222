package skill

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/airlock"
	"github.com/duskcore/agentd/internal/domain/entity"
)

func newTestExecutor(headless bool) *Executor {
	logger := zap.NewNop()
	gate := airlock.New(headless, nil, logger)
	return NewExecutor(
		NewFilesystemHandler(logger),
		NewShellHandler(logger),
		NewWebHandler("", "", nil, nil, logger),
		NewBrowserHandler(nil, logger),
		gate,
		logger,
	)
}

func TestExecutor_SafeToolDispatchesImmediately(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644)

	e := newTestExecutor(false)
	result := e.Dispatch(context.Background(), "ws-1", entity.ToolCallInfo{
		ID:        "call-1",
		Name:      "read_file",
		Arguments: map[string]interface{}{"path": "a.txt"},
	}, []string{dir}, nil)

	if !result.Success || result.Output != "hi" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestExecutor_UnknownToolIsDenied(t *testing.T) {
	e := newTestExecutor(false)
	result := e.Dispatch(context.Background(), "ws-1", entity.ToolCallInfo{
		ID:   "call-2",
		Name: "definitely_not_a_tool",
	}, []string{t.TempDir()}, nil)

	if result.Success {
		t.Fatal("expected unknown tool to be denied")
	}
}

func TestExecutor_HeadlessAutoApprovesSensitiveWrite(t *testing.T) {
	dir := t.TempDir()
	e := newTestExecutor(true)

	result := e.Dispatch(context.Background(), "ws-1", entity.ToolCallInfo{
		ID:        "call-3",
		Name:      "write_file",
		Arguments: map[string]interface{}{"path": "out.txt", "content": "payload"},
	}, []string{dir}, nil)

	if !result.Success {
		t.Fatalf("expected headless write to be auto-approved: %+v", result)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil || string(data) != "payload" {
		t.Fatalf("expected file to be written, got %v %q", err, data)
	}
}

func TestExecutor_DefinitionsCoversPolicyTable(t *testing.T) {
	e := newTestExecutor(false)
	defs := e.Definitions()
	if len(defs) != len(airlock.Table()) {
		t.Fatalf("expected %d definitions, got %d", len(airlock.Table()), len(defs))
	}
}

func TestExecutor_OutputIsTruncatedAtCap(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, outputByteCap*2)
	for i := range big {
		big[i] = 'x'
	}
	os.WriteFile(filepath.Join(dir, "big.txt"), big, 0o644)

	e := newTestExecutor(false)
	result := e.Dispatch(context.Background(), "ws-1", entity.ToolCallInfo{
		ID:        "call-4",
		Name:      "read_file",
		Arguments: map[string]interface{}{"path": "big.txt"},
	}, []string{dir}, nil)

	if !result.Success {
		t.Fatalf("unexpected failure: %+v", result)
	}
	if len(result.Output) > outputByteCap+len(truncatedMarker)+1 {
		t.Fatalf("expected output to be truncated, got length %d", len(result.Output))
	}
}
