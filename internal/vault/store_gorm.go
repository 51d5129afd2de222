package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/duskcore/agentd/internal/domain/entity"
)

// Store is the GORM-backed Memory Vault, implementing spec §4.8's
// put/get/delete/recent/search_lexical operations (search_vector lives
// in vector_search.go, in the same package, over the same table).
// Grounded on the teacher's persistence/gorm_message_repository.go row
// mapping style, generalized to the Vault's encrypted columns.
type Store struct {
	db     *gorm.DB
	cipher *Cipher
	logger *zap.Logger
}

// NewStore opens the Vault over an existing *gorm.DB connection and runs
// AutoMigrate for its tables, mirroring persistence/db.go's autoMigrate.
func NewStore(db *gorm.DB, cipher *Cipher, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&MemoryEntryModel{}, &LegacyMemoryEntryModel{}); err != nil {
		return nil, fmt.Errorf("vault: migrating schema: %w", err)
	}
	return &Store{db: db, cipher: cipher, logger: logger}, nil
}

// Put encrypts and inserts-or-replaces one entry (idempotent on id, per
// spec §4.8's "put(e) is idempotent on id").
func (s *Store) Put(ctx context.Context, e *entity.MemoryEntry) error {
	model, err := s.encode(e)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(model).Error
}

// Get returns a decrypted entry by id, bumping its access counters as a
// side effect (the one mutation spec §4.8 permits outside create/delete).
func (s *Store) Get(ctx context.Context, id string) (*entity.MemoryEntry, error) {
	var model MemoryEntryModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	entry, err := s.decode(&model)
	if err != nil {
		return nil, err
	}

	model.AccessCount++
	model.LastAccessed = time.Now()
	if err := s.db.WithContext(ctx).Model(&MemoryEntryModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"access_count": model.AccessCount, "last_accessed": model.LastAccessed}).Error; err != nil {
		s.logger.Warn("failed to bump memory access counters", zap.String("id", id), zap.Error(err))
	}
	entry.AccessCount = model.AccessCount
	entry.LastAccessed = model.LastAccessed
	return entry, nil
}

// Delete removes an entry by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&MemoryEntryModel{}, "id = ?", id).Error
}

// Recent returns the n most recently created entries for a workspace.
func (s *Store) Recent(ctx context.Context, workspaceID string, n int) ([]*entity.MemoryEntry, error) {
	var models []MemoryEntryModel
	if err := s.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").Limit(n).Find(&models).Error; err != nil {
		return nil, err
	}
	return s.decodeAll(models)
}

// Count returns the number of entries stored for a workspace, for the
// `get_memory_stats` host call (spec §6) — a plain row count, no
// decryption needed.
func (s *Store) Count(ctx context.Context, workspaceID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&MemoryEntryModel{}).Where("workspace_id = ?", workspaceID).Count(&count).Error
	return count, err
}

// SearchLexical recalls rows whose decrypted content or tags match query
// (simple case-insensitive substring match), most recent first (spec
// §4.8: "return in descending recency").
func (s *Store) SearchLexical(ctx context.Context, workspaceID, query string, limit int) ([]*entity.MemoryEntry, error) {
	var models []MemoryEntryModel
	if err := s.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	entries, err := s.decodeAll(models)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var matched []*entity.MemoryEntry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Content), needle) || tagsContain(e.Tags, needle) {
			matched = append(matched, e)
			if len(matched) >= limit {
				break
			}
		}
	}
	return matched, nil
}

func tagsContain(tags []string, needle string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func (s *Store) encode(e *entity.MemoryEntry) (*MemoryEntryModel, error) {
	contentCT, contentNonce, err := s.cipher.Seal(e.WorkspaceID, []byte(e.Content))
	if err != nil {
		return nil, err
	}

	tagsJSON, err := json.Marshal(e.Tags)
	if err != nil {
		return nil, fmt.Errorf("vault: marshaling tags: %w", err)
	}
	tagsCT, tagsNonce, err := s.cipher.Seal(e.WorkspaceID, tagsJSON)
	if err != nil {
		return nil, err
	}

	var metaCT, metaNonce []byte
	if len(e.Metadata) > 0 {
		metaJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("vault: marshaling metadata: %w", err)
		}
		metaCT, metaNonce, err = s.cipher.Seal(e.WorkspaceID, metaJSON)
		if err != nil {
			return nil, err
		}
	}

	var embeddingJSON string
	if len(e.Embedding) > 0 {
		b, err := json.Marshal(e.Embedding)
		if err != nil {
			return nil, fmt.Errorf("vault: marshaling embedding: %w", err)
		}
		embeddingJSON = string(b)
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	lastAccessed := e.LastAccessed
	if lastAccessed.IsZero() {
		lastAccessed = createdAt
	}

	return &MemoryEntryModel{
		ID:             e.ID,
		WorkspaceID:    e.WorkspaceID,
		Source:         e.Source,
		Sensitivity:    string(e.Sensitivity),
		CreatedAt:      createdAt,
		LastAccessed:   lastAccessed,
		AccessCount:    e.AccessCount,
		ContentCT:      contentCT,
		ContentNonce:   contentNonce,
		TagsCT:         tagsCT,
		TagsNonce:      tagsNonce,
		MetadataCT:     metaCT,
		MetadataNonce:  metaNonce,
		Embedding:      embeddingJSON,
		EmbeddingModel: e.EmbeddingModel,
		EmbeddingDim:   len(e.Embedding),
		KeyVersion:     CurrentKeyVersion,
	}, nil
}

func (s *Store) decode(m *MemoryEntryModel) (*entity.MemoryEntry, error) {
	content, err := s.cipher.Open(m.WorkspaceID, m.ContentCT, m.ContentNonce)
	if err != nil {
		return nil, err
	}

	var tags []string
	if len(m.TagsCT) > 0 {
		tagsJSON, err := s.cipher.Open(m.WorkspaceID, m.TagsCT, m.TagsNonce)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(tagsJSON, &tags); err != nil {
			return nil, fmt.Errorf("vault: unmarshaling tags: %w", err)
		}
	}

	var metadata map[string]interface{}
	if len(m.MetadataCT) > 0 {
		metaJSON, err := s.cipher.Open(m.WorkspaceID, m.MetadataCT, m.MetadataNonce)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metaJSON, &metadata); err != nil {
			return nil, fmt.Errorf("vault: unmarshaling metadata: %w", err)
		}
	}

	var embedding []float32
	if m.Embedding != "" {
		if err := json.Unmarshal([]byte(m.Embedding), &embedding); err != nil {
			return nil, fmt.Errorf("vault: unmarshaling embedding: %w", err)
		}
	}

	return &entity.MemoryEntry{
		ID:             m.ID,
		WorkspaceID:    m.WorkspaceID,
		Content:        string(content),
		Tags:           tags,
		Metadata:       metadata,
		Source:         m.Source,
		Sensitivity:    entity.Sensitivity(m.Sensitivity),
		CreatedAt:      m.CreatedAt,
		LastAccessed:   m.LastAccessed,
		AccessCount:    m.AccessCount,
		Embedding:      embedding,
		EmbeddingModel: m.EmbeddingModel,
	}, nil
}

func (s *Store) decodeAll(models []MemoryEntryModel) ([]*entity.MemoryEntry, error) {
	entries := make([]*entity.MemoryEntry, 0, len(models))
	for i := range models {
		e, err := s.decode(&models[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
