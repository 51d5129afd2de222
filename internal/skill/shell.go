package skill

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/duskcore/agentd/internal/domain/entity"
	"go.uber.org/zap"
)

// DefaultAllowedBins is the canonical shell allow-list named by spec §4.3
// / §9 open question (a): git plus the minimal toolbox needed for reading
// and building a checkout. AddAllowedBin is the extension point.
var DefaultAllowedBins = []string{"git", "ls", "grep", "npm", "cargo", "node", "python"}

const (
	minTimeoutMs    = 500
	maxTimeoutMs    = 600000
	outputByteCap   = 16 * 1024
	truncatedMarker = "\n[TRUNCATED]"
)

// ShellHandler implements the shell skill's method table (spec §4.3),
// grounded on the teacher's ProcessSandbox: process-group isolation via
// Setpgid and a per-call context timeout, generalized from the
// teacher's large multi-purpose allow-list down to the spec's
// {command,args,timeout_ms} contract and canonical allow-list.
type ShellHandler struct {
	mu          sync.RWMutex
	allowedBins []string
	logger      *zap.Logger
}

func NewShellHandler(logger *zap.Logger) *ShellHandler {
	bins := make([]string, len(DefaultAllowedBins))
	copy(bins, DefaultAllowedBins)
	return &ShellHandler{allowedBins: bins, logger: logger}
}

// AddAllowedBin extends the shell allow-list at runtime.
func (h *ShellHandler) AddAllowedBin(bin string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.allowedBins = append(h.allowedBins, bin)
}

// SetAllowedBins replaces the shell allow-list wholesale, for the config
// watcher's tool-policy hot-reload: a removed bin takes effect on the
// next call, not just additions.
func (h *ShellHandler) SetAllowedBins(bins []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.allowedBins = append([]string(nil), bins...)
}

func (h *ShellHandler) isAllowed(command string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	base := filepath.Base(command)
	for _, allowed := range h.allowedBins {
		if allowed == base || allowed == command {
			return true
		}
	}
	return false
}

func (h *ShellHandler) Call(ctx context.Context, method string, params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	switch method {
	case "execute_command":
		return h.executeCommand(ctx, params, allowedPaths)
	case "git_status":
		return h.gitWrapper(ctx, allowedPaths, "status", "--short", "--branch")
	case "git_diff":
		return h.gitWrapper(ctx, allowedPaths, "diff")
	case "git_log":
		return h.gitWrapper(ctx, allowedPaths, "log", "--oneline", "-n", "20")
	case "git_show":
		ref, _ := stringParam(params, "ref")
		if ref == "" {
			ref = "HEAD"
		}
		return h.gitWrapper(ctx, allowedPaths, "show", ref)
	case "git_branch_list":
		return h.gitWrapper(ctx, allowedPaths, "branch", "--list")
	default:
		return nil, fmt.Errorf("unknown shell method %q", method)
	}
}

func (h *ShellHandler) executeCommand(ctx context.Context, params map[string]interface{}, allowedPaths []string) (*entity.CommandResult, error) {
	command, ok := stringParam(params, "command")
	if !ok {
		return failResult("command is required"), nil
	}
	if !h.isAllowed(command) {
		return failResult(fmt.Sprintf("command %q is not on the allow-list", command)), nil
	}

	var args []string
	if raw, ok := params["args"].([]interface{}); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				args = append(args, s)
			}
		}
	}

	timeoutMs := intParam(params, "timeout_ms", 30000)
	if timeoutMs < minTimeoutMs || timeoutMs > maxTimeoutMs {
		return failResult(fmt.Sprintf("timeout_ms must be in [%d, %d]", minTimeoutMs, maxTimeoutMs)), nil
	}

	workDir := allowedPaths[0]
	return h.run(ctx, workDir, time.Duration(timeoutMs)*time.Millisecond, command, args...)
}

func (h *ShellHandler) gitWrapper(ctx context.Context, allowedPaths []string, args ...string) (*entity.CommandResult, error) {
	if !h.isAllowed("git") {
		return failResult("git is not on the allow-list"), nil
	}
	workDir := "."
	if len(allowedPaths) > 0 {
		workDir = allowedPaths[0]
	}
	return h.run(ctx, workDir, 30*time.Second, "git", args...)
}

func (h *ShellHandler) run(ctx context.Context, workDir string, timeout time.Duration, command string, args ...string) (*entity.CommandResult, error) {
	cmdPath, err := exec.LookPath(command)
	if err != nil {
		return failResult(fmt.Sprintf("command not found: %s", command)), nil
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, cmdPath, args...)
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if execCtx.Err() == context.DeadlineExceeded {
		return &entity.CommandResult{
			Success: false,
			Error:   fmt.Sprintf("command timed out after %v", timeout),
			Metadata: map[string]interface{}{"duration_ms": duration.Milliseconds(), "killed": true},
		}, nil
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return failResult(runErr.Error()), nil
		}
	}

	output := truncateBytes(stdout.String(), outputByteCap)
	if stderr.Len() > 0 {
		output += "\n[stderr]\n" + truncateBytes(stderr.String(), outputByteCap)
	}

	return &entity.CommandResult{
		Success:  exitCode == 0,
		Output:   output,
		ExitCode: &exitCode,
		Metadata: map[string]interface{}{"duration_ms": duration.Milliseconds()},
	}, nil
}

func truncateBytes(s string, cap int) string {
	if len(s) <= cap {
		return s
	}
	return s[:cap] + truncatedMarker
}
