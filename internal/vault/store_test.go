package vault

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/duskcore/agentd/internal/domain/entity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("opening in-memory sqlite: %v", err)
	}
	cipher, err := NewCipher([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("building cipher: %v", err)
	}
	store, err := NewStore(db, cipher, zap.NewNop())
	if err != nil {
		t.Fatalf("building store: %v", err)
	}
	return store
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &entity.MemoryEntry{
		ID:          "mem-1",
		WorkspaceID: "ws-1",
		Content:     "the sky is blue",
		Tags:        []string{"fact", "sky"},
		Source:      "user",
		Sensitivity: entity.SensitivityNormal,
	}
	if err := s.Put(ctx, entry); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := s.Get(ctx, "mem-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.Content != entry.Content {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "fact" {
		t.Fatalf("unexpected tags: %+v", got.Tags)
	}
}

func TestStore_PutIsIdempotentOnID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &entity.MemoryEntry{ID: "mem-2", WorkspaceID: "ws-1", Content: "v1"}
	s.Put(ctx, entry)
	entry.Content = "v2"
	if err := s.Put(ctx, entry); err != nil {
		t.Fatalf("second put failed: %v", err)
	}

	got, _ := s.Get(ctx, "mem-2")
	if got.Content != "v2" {
		t.Fatalf("expected updated content, got %q", got.Content)
	}
}

func TestStore_DeleteThenGetReturnsNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, &entity.MemoryEntry{ID: "mem-3", WorkspaceID: "ws-1", Content: "gone soon"})
	if err := s.Delete(ctx, "mem-3"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, err := s.Get(ctx, "mem-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil after delete")
	}
}

func TestStore_ContentIsEncryptedAtRest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, &entity.MemoryEntry{ID: "mem-4", WorkspaceID: "ws-1", Content: "super secret plaintext"})

	var model MemoryEntryModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", "mem-4").Error; err != nil {
		t.Fatalf("reading raw row: %v", err)
	}
	if string(model.ContentCT) == "super secret plaintext" {
		t.Fatal("content stored in plaintext")
	}
	if len(model.ContentCT) == 0 {
		t.Fatal("expected ciphertext to be non-empty")
	}
}

func TestStore_SearchLexicalMatchesContentAndTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, &entity.MemoryEntry{ID: "mem-5", WorkspaceID: "ws-1", Content: "golang concurrency patterns", Tags: []string{"go"}})
	s.Put(ctx, &entity.MemoryEntry{ID: "mem-6", WorkspaceID: "ws-1", Content: "unrelated note", Tags: []string{"misc"}})

	hits, err := s.SearchLexical(ctx, "ws-1", "golang", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "mem-5" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestStore_Recent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, &entity.MemoryEntry{ID: "mem-7", WorkspaceID: "ws-2", Content: "a"})
	s.Put(ctx, &entity.MemoryEntry{ID: "mem-8", WorkspaceID: "ws-2", Content: "b"})

	hits, err := s.Recent(ctx, "ws-2", 1)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 result, got %d", len(hits))
	}
}

func TestStore_Count(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, &entity.MemoryEntry{ID: "mem-10", WorkspaceID: "ws-4", Content: "a"})
	s.Put(ctx, &entity.MemoryEntry{ID: "mem-11", WorkspaceID: "ws-4", Content: "b"})
	s.Put(ctx, &entity.MemoryEntry{ID: "mem-12", WorkspaceID: "ws-5", Content: "c"})

	count, err := s.Count(ctx, "ws-4")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestStore_SearchVectorRequiresMatchingModelAndDimension(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, &entity.MemoryEntry{
		ID: "mem-9", WorkspaceID: "ws-3", Content: "vectorized",
		Embedding: []float32{1, 0, 0}, EmbeddingModel: "model-a",
	})

	hits, err := s.SearchVector(ctx, "ws-3", []float32{1, 0, 0}, "model-b", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Fatal("expected no hits for mismatched embedding model")
	}

	hits, err = s.SearchVector(ctx, "ws-3", []float32{1, 0, 0}, "model-a", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "mem-9" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}
