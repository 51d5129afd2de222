package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/domain/entity"
)

// MigrateLegacyPlaintext implements spec §4.8's migration policy: a
// one-shot pass that encrypts every row of the legacy plaintext table
// into MemoryEntryModel, then drops the legacy table. Grounded on the
// teacher's gorm.AutoMigrate usage in persistence/db.go; this module
// adds the encrypt-then-drop step the teacher's schema never needed
// since it never stored plaintext memory at rest.
func (s *Store) MigrateLegacyPlaintext(ctx context.Context) (int, error) {
	var legacyRows []LegacyMemoryEntryModel
	if err := s.db.WithContext(ctx).Find(&legacyRows).Error; err != nil {
		return 0, fmt.Errorf("vault: reading legacy rows: %w", err)
	}
	if len(legacyRows) == 0 {
		return 0, nil
	}

	migrated := 0
	for _, row := range legacyRows {
		var tags []string
		if row.Tags != "" {
			if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
				s.logger.Warn("skipping legacy row with unparseable tags", zap.String("id", row.ID), zap.Error(err))
				continue
			}
		}

		entry := &entity.MemoryEntry{
			ID:          row.ID,
			WorkspaceID: row.WorkspaceID,
			Content:     row.Content,
			Tags:        tags,
			Source:      row.Source,
			Sensitivity: entity.Sensitivity(row.Sensitivity),
			CreatedAt:   row.CreatedAt,
		}
		if err := s.Put(ctx, entry); err != nil {
			return migrated, fmt.Errorf("vault: encrypting legacy row %s: %w", row.ID, err)
		}
		migrated++
	}

	if err := s.db.WithContext(ctx).Exec("DELETE FROM " + LegacyMemoryEntryModel{}.TableName()).Error; err != nil {
		return migrated, fmt.Errorf("vault: clearing legacy table: %w", err)
	}
	s.logger.Info("migrated legacy plaintext memory rows", zap.Int("count", migrated))
	return migrated, nil
}
