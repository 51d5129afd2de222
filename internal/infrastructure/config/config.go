// Package config loads agentd's layered configuration (defaults -> global
// ~/.agentd/config.yaml -> project-local config.yaml -> environment),
// grounded on the teacher's infrastructure/config.Load layering.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
	Agent       AgentConfig       `mapstructure:"agent"`
	Providers   []ProviderConfig  `mapstructure:"providers"`
	Skill       SkillConfig       `mapstructure:"skill"`
	Vault       VaultConfig       `mapstructure:"vault"`
	CloudBridge CloudBridgeConfig `mapstructure:"cloud_bridge"`
}

// ServerConfig is the HTTP + gRPC control-surface bind configuration.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// DatabaseConfig selects the Vault's GORM backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AgentConfig controls the Agent Runtime and its guardrails.
type AgentConfig struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	DefaultModel    string        `mapstructure:"default_model"`
	Workspace       string        `mapstructure:"workspace"`
	MaxIterations   int           `mapstructure:"max_iterations"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	ToolTimeout     time.Duration `mapstructure:"tool_timeout"`
	Headless        bool          `mapstructure:"headless"`
	MaxRetries      int           `mapstructure:"max_retries"`

	ContextMaxTokens int     `mapstructure:"context_max_tokens"`
	ContextWarnRatio float64 `mapstructure:"context_warn_ratio"`
	ContextHardRatio float64 `mapstructure:"context_hard_ratio"`
}

// ProviderConfig configures one entry in the router's provider pool.
type ProviderConfig struct {
	ID       string            `mapstructure:"id"`
	Type     string            `mapstructure:"type"` // openai, anthropic, moonshot, xai, vendorsdk
	BaseURL  string            `mapstructure:"base_url"`
	APIKey   string            `mapstructure:"api_key"`
	Models   []string          `mapstructure:"models"`
	Priority int               `mapstructure:"priority"`
	Weight   int               `mapstructure:"weight"`
	Extra    map[string]string `mapstructure:"extra"`
}

// SkillConfig configures the Skill Executor's sandboxing.
type SkillConfig struct {
	AllowedPaths   []string `mapstructure:"allowed_paths"`
	BlockedPaths   []string `mapstructure:"blocked_paths"`
	AllowedBins    []string `mapstructure:"allowed_bins"`
	AllowedDomains []string `mapstructure:"allowed_domains"`
	BlockedDomains []string `mapstructure:"blocked_domains"`
	SearchURL      string   `mapstructure:"search_url"`
	SearchAPIKey   string   `mapstructure:"search_api_key"`
}

// VaultConfig configures the Memory Vault's encryption.
type VaultConfig struct {
	MasterKeyEnv string `mapstructure:"master_key_env"`
	EmbedDim     int    `mapstructure:"embed_dim"`
}

// CloudBridgeConfig configures the outbound websocket client to Cortex.
type CloudBridgeConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	Token           string        `mapstructure:"token"`
	NodeID          string        `mapstructure:"node_id"`
	HeartbeatPeriod time.Duration `mapstructure:"heartbeat_period"`
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff"`
}

// Load reads configuration in priority order: defaults -> global
// ~/.agentd/config.yaml -> ./config.yaml -> AGENTD_-prefixed env vars.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	globalDir := filepath.Join(os.Getenv("HOME"), ".agentd")
	v.AddConfigPath(globalDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config: %w", err)
		}
	}

	localPath := "config.yaml"
	if _, err := os.Stat(localPath); err == nil {
		v2 := viper.New()
		v2.SetConfigFile(localPath)
		if err := v2.ReadInConfig(); err == nil {
			_ = v.MergeConfigMap(v2.AllSettings())
		}
	}

	v.SetEnvPrefix("AGENTD")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.grpc_port", 50051)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "agentd.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("agent.workspace", ".")
	v.SetDefault("agent.max_iterations", 10)
	v.SetDefault("agent.run_timeout", "5m")
	v.SetDefault("agent.tool_timeout", "30s")
	v.SetDefault("agent.headless", false)
	v.SetDefault("agent.max_retries", 3)
	v.SetDefault("agent.context_max_tokens", 120000)
	v.SetDefault("agent.context_warn_ratio", 0.7)
	v.SetDefault("agent.context_hard_ratio", 0.85)

	v.SetDefault("skill.allowed_bins", []string{"git", "ls", "grep", "npm", "cargo", "node", "python"})

	v.SetDefault("vault.master_key_env", "AGENTD_VAULT_MASTER_KEY")
	v.SetDefault("vault.embed_dim", 256)

	v.SetDefault("cloud_bridge.enabled", false)
	v.SetDefault("cloud_bridge.heartbeat_period", "30s")
	v.SetDefault("cloud_bridge.reconnect_backoff", "10s")
}
