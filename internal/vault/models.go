package vault

import "time"

// MemoryEntryModel is the GORM row shape for an encrypted MemoryEntry
// (spec §4.8 schema), grounded on the teacher's persistence/models
// package conventions (explicit column tags, no embedded gorm.Model).
type MemoryEntryModel struct {
	ID             string `gorm:"primaryKey"`
	WorkspaceID    string `gorm:"index"`
	Source         string
	Sensitivity    string
	CreatedAt      time.Time
	LastAccessed   time.Time
	AccessCount    int
	ContentCT      []byte
	ContentNonce   []byte
	TagsCT         []byte
	TagsNonce      []byte
	MetadataCT     []byte
	MetadataNonce  []byte
	Embedding      string // JSON-encoded []float32
	EmbeddingModel string
	EmbeddingDim   int
	KeyVersion     int
}

func (MemoryEntryModel) TableName() string { return "memory_entries" }

// LegacyMemoryEntryModel is the pre-encryption plaintext row shape a
// one-shot migration (migration.go) reads from and then drops, per spec
// §4.8's migration policy.
type LegacyMemoryEntryModel struct {
	ID          string `gorm:"primaryKey"`
	WorkspaceID string
	Content     string
	Tags        string // JSON-encoded []string
	Source      string
	Sensitivity string
	CreatedAt   time.Time
}

func (LegacyMemoryEntryModel) TableName() string { return "legacy_memory_entries" }
