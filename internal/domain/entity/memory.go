package entity

import "time"

// Sensitivity classifies a MemoryEntry for future redaction/export policy.
type Sensitivity string

const (
	SensitivityNormal Sensitivity = "normal"
	SensitivitySecret Sensitivity = "secret"
)

// MemoryEntry is a single row of the Memory Vault (spec §4.8). At rest,
// Content/Tags/Metadata are ciphertext; this struct is the plaintext
// in-memory shape used once the Vault has decrypted a row.
type MemoryEntry struct {
	ID             string                 `json:"id"`
	WorkspaceID    string                 `json:"workspace_id"`
	Content        string                 `json:"content"`
	Tags           []string               `json:"tags,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Source         string                 `json:"source"`
	Sensitivity    Sensitivity            `json:"sensitivity"`
	CreatedAt      time.Time              `json:"created_at"`
	LastAccessed   time.Time              `json:"last_accessed"`
	AccessCount    int                    `json:"access_count"`
	Embedding      []float32              `json:"embedding,omitempty"`
	EmbeddingModel string                 `json:"embedding_model,omitempty"`
	Score          float32                `json:"score,omitempty"`
}
