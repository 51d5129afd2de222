package application

import (
	"context"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/infrastructure/config"

	_ "github.com/duskcore/agentd/internal/provider/openai" // register "openai" factory for NewCLI
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Type: "sqlite", DSN: "file::memory:?cache=shared"},
		Vault:    config.VaultConfig{MasterKeyEnv: "AGENTD_TEST_MASTER_KEY", EmbedDim: 256},
		Agent: config.AgentConfig{
			DefaultModel:     "gpt-test",
			MaxIterations:    5,
			ContextMaxTokens: 8000,
		},
		Providers: []config.ProviderConfig{
			{ID: "p1", Type: "openai", BaseURL: "https://example.com", APIKey: "sk-test", Models: []string{"gpt-test"}},
		},
		Skill: config.SkillConfig{AllowedBins: []string{"echo"}},
	}
}

func TestNewCLI_WiresRouterSkillsAndAgentLoop(t *testing.T) {
	os.Setenv("AGENTD_TEST_MASTER_KEY", "0123456789abcdef0123456789abcdef")
	defer os.Unsetenv("AGENTD_TEST_MASTER_KEY")

	app, err := NewCLI(testConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewCLI: %v", err)
	}
	if app.Router() == nil {
		t.Fatal("expected a non-nil Router")
	}
	if app.AgentLoop() == nil {
		t.Fatal("expected a non-nil AgentLoop")
	}
	if app.ToolExecutor() == nil {
		t.Fatal("expected a non-nil ToolExecutor")
	}
	if len(app.Router().ListProviders(context.Background())) != 1 {
		t.Fatalf("expected the configured provider to be registered")
	}
}

func TestNewCLI_FailsWithoutMasterKey(t *testing.T) {
	os.Unsetenv("AGENTD_TEST_MASTER_KEY")

	if _, err := NewCLI(testConfig(), zap.NewNop()); err == nil {
		t.Fatal("expected an error when the vault master key is unset")
	}
}
