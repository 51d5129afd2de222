// Package models holds the GORM row types for the durable state that
// isn't owned by the Memory Vault (internal/vault keeps its own models
// next to its encryption logic). Grounded on the teacher's
// infrastructure/persistence/models package layout.
package models

import (
	"time"
)

// ProviderConfigModel is a durable snapshot of one Router provider entry
// (spec §3), so the Router can rehydrate its fleet on restart instead of
// requiring rediscovery or a fresh config read every boot.
type ProviderConfigModel struct {
	ID        string `gorm:"primaryKey"`
	Type      string
	BaseURL   string
	APIKey    string
	Models    string // JSON-encoded []string
	Priority  int
	Weight    int
	Extra     string // JSON-encoded map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProviderConfigModel) TableName() string { return "provider_configs" }

// QueuedCommandModel is the audit trail of commands that passed through
// the Airlock (spec §3): one row per QueuedCommand resolution, kept for
// operator review of what the agent was allowed or denied to do.
type QueuedCommandModel struct {
	ID             string `gorm:"primaryKey"`
	WorkspaceID    string `gorm:"index"`
	Intent         string
	PayloadSummary string
	AirlockLevel   int
	Status         string
	CreatedAt      time.Time
	ResolvedAt     *time.Time
	Success        bool
	ErrorMessage   string
	ElapsedMs      int64
}

func (QueuedCommandModel) TableName() string { return "queued_commands" }
