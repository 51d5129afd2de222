package persistence

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/infrastructure/config"
	"github.com/duskcore/agentd/internal/router"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("opening in-memory sqlite: %v", err)
	}
	if err := autoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestNewDBConnection_RejectsUnknownType(t *testing.T) {
	_, err := NewDBConnection(&config.DatabaseConfig{Type: "mongo", DSN: "whatever"})
	if err == nil {
		t.Fatal("expected an error for an unsupported database type")
	}
}

func TestNewDBConnection_OpensSQLite(t *testing.T) {
	db, err := NewDBConnection(&config.DatabaseConfig{Type: "sqlite", DSN: "file::memory:?cache=shared"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db == nil {
		t.Fatal("expected a non-nil *gorm.DB")
	}
}

func TestProviderConfigStore_SaveFindAllRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewProviderConfigStore(db)
	ctx := context.Background()

	cfg := router.ProviderConfig{
		ID: "openai-1", Type: "openai", BaseURL: "https://api.openai.com/v1",
		APIKey: "sk-test", Models: []string{"gpt-4o", "gpt-4o-mini"},
		Priority: 1, Weight: 10, Extra: map[string]string{"org": "acme"},
	}
	if err := store.Save(ctx, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	all, err := store.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(all))
	}
	got := all[0]
	if got.ID != cfg.ID || len(got.Models) != 2 || got.Extra["org"] != "acme" {
		t.Fatalf("unexpected round-tripped config: %+v", got)
	}
}

func TestProviderConfigStore_Delete(t *testing.T) {
	db := newTestDB(t)
	store := NewProviderConfigStore(db)
	ctx := context.Background()

	store.Save(ctx, router.ProviderConfig{ID: "p1", Type: "anthropic"})
	if err := store.Delete(ctx, "p1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	all, _ := store.FindAll(ctx)
	if len(all) != 0 {
		t.Fatalf("expected 0 providers after delete, got %d", len(all))
	}
}

func TestGormQueuedCommandRepository_SaveAndFindByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormQueuedCommandRepository(db)
	ctx := context.Background()

	cmd := &entity.QueuedCommand{
		ID: "cmd-1", WorkspaceID: "ws-1", Intent: "filesystem.write_file",
		Params: map[string]interface{}{"path": "a.txt"}, AirlockLevel: entity.AirlockSensitive,
		Status: entity.StatusCompleted, Result: &entity.CommandResult{Success: true},
	}
	if err := repo.Save(ctx, cmd); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := repo.FindByID(ctx, "cmd-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got == nil || got.Intent != "filesystem.write_file" || got.Result == nil || !got.Result.Success {
		t.Fatalf("unexpected command: %+v", got)
	}
}

func TestGormQueuedCommandRepository_FindByIDMissingReturnsNil(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormQueuedCommandRepository(db)

	got, err := repo.FindByID(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing command")
	}
}

func TestGormQueuedCommandRepository_FindByWorkspaceOrdersByRecency(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormQueuedCommandRepository(db)
	ctx := context.Background()

	now := time.Now()
	repo.Save(ctx, &entity.QueuedCommand{ID: "c1", WorkspaceID: "ws-9", Intent: "a", Status: entity.StatusCompleted, CreatedAt: now.Add(-time.Minute)})
	repo.Save(ctx, &entity.QueuedCommand{ID: "c2", WorkspaceID: "ws-9", Intent: "b", Status: entity.StatusCompleted, CreatedAt: now})

	got, err := repo.FindByWorkspace(ctx, "ws-9", 10)
	if err != nil {
		t.Fatalf("find by workspace failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(got))
	}
	if got[0].ID != "c2" || got[1].ID != "c1" {
		t.Fatalf("expected newest first (c2, c1), got (%s, %s)", got[0].ID, got[1].ID)
	}
}
