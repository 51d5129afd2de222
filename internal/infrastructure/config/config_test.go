package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/domain/entity"
)

func TestLoadAgentSpec_MissingFileReturnsDefault(t *testing.T) {
	spec, err := LoadAgentSpec(filepath.Join(t.TempDir(), "agent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.MaxSteps != entity.DefaultAgentSpec().MaxSteps {
		t.Fatalf("expected default spec, got %+v", spec)
	}
}

func TestLoadAgentSpec_OverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	yamlBody := "id: research-agent\ndefault_model: gpt-test\nmax_steps: 4\nmemory:\n  enabled: true\n  workspace_id: ws-1\n  top_k: 5\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	spec, err := LoadAgentSpec(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.ID != "research-agent" || spec.DefaultModel != "gpt-test" || spec.MaxSteps != 4 {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if spec.MemoryConfig.WorkspaceID != "ws-1" || spec.MemoryConfig.TopK != 5 {
		t.Fatalf("unexpected memory config: %+v", spec.MemoryConfig)
	}
}

func TestNewWatcher_MissingFileReturnsNilWatcher(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "config.yaml"), func(*Config) {}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != nil {
		t.Fatal("expected a nil watcher when the config file does not exist yet")
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatalf("writing initial config: %v", err)
	}

	var mu sync.Mutex
	var got *Config
	changed := make(chan struct{}, 1)

	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		got = cfg
		mu.Unlock()
		select {
		case changed <- struct{}{}:
		default:
		}
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w == nil {
		t.Fatal("expected a watcher since the config file exists")
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o644); err != nil {
		t.Fatalf("rewriting config: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the watcher to pick up the change")
	}

	mu.Lock()
	defer mu.Unlock()
	if got == nil || got.Server.Port != 9100 {
		t.Fatalf("unexpected reloaded config: %+v", got)
	}
}
