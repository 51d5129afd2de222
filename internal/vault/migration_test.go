package vault

import (
	"context"
	"testing"
)

func TestMigrateLegacyPlaintext_EncryptsAndDropsLegacyRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	legacy := LegacyMemoryEntryModel{
		ID:          "legacy-1",
		WorkspaceID: "ws-1",
		Content:     "old plaintext note",
		Tags:        `["old"]`,
		Source:      "import",
		Sensitivity: "normal",
	}
	if err := s.db.WithContext(ctx).Create(&legacy).Error; err != nil {
		t.Fatalf("seeding legacy row: %v", err)
	}

	migrated, err := s.MigrateLegacyPlaintext(ctx)
	if err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	if migrated != 1 {
		t.Fatalf("expected 1 migrated row, got %d", migrated)
	}

	got, err := s.Get(ctx, "legacy-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.Content != "old plaintext note" {
		t.Fatalf("unexpected migrated entry: %+v", got)
	}

	var remaining []LegacyMemoryEntryModel
	s.db.WithContext(ctx).Find(&remaining)
	if len(remaining) != 0 {
		t.Fatalf("expected legacy table to be cleared, found %d rows", len(remaining))
	}
}

func TestMigrateLegacyPlaintext_NoRowsIsNoop(t *testing.T) {
	s := newTestStore(t)
	migrated, err := s.MigrateLegacyPlaintext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migrated != 0 {
		t.Fatalf("expected 0 migrated rows, got %d", migrated)
	}
}
