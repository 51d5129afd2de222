package entity

// AgentSpec is the declarative configuration for one agent, loaded once
// per conversation and held immutable for its lifetime (spec §3).
type AgentSpec struct {
	ID           string            `json:"id" yaml:"id"`
	Instructions string            `json:"instructions" yaml:"instructions"` // the "soul" / system prompt
	SkillsEnabled []string         `json:"skills_enabled" yaml:"skills_enabled"`
	MemoryConfig  MemoryConfig     `json:"memory" yaml:"memory"`
	AirlockDefaults AirlockDefaults `json:"airlock_defaults" yaml:"airlock_defaults"`
	Connectors    []string         `json:"connectors,omitempty" yaml:"connectors,omitempty"`
	DefaultModel  string           `json:"default_model" yaml:"default_model"`
	MaxSteps      int              `json:"max_steps" yaml:"max_steps"`
}

// MemoryConfig controls whether and how the Memory Vault is consulted for
// a given agent.
type MemoryConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	WorkspaceID  string `json:"workspace_id" yaml:"workspace_id"`
	TopK         int    `json:"top_k" yaml:"top_k"`
	EmbeddingModel string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
}

// AirlockDefaults carries per-agent overrides of Airlock behavior, e.g.
// whether this agent always runs headless.
type AirlockDefaults struct {
	Headless bool `json:"headless" yaml:"headless"`
}

// DefaultAgentSpec returns production defaults mirroring §4.1/§4.8.
func DefaultAgentSpec() AgentSpec {
	return AgentSpec{
		MaxSteps: 10,
		MemoryConfig: MemoryConfig{
			Enabled: true,
			TopK:    20,
		},
	}
}
