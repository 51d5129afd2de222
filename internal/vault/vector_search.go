package vault

import (
	"context"
	"sort"

	"github.com/duskcore/agentd/internal/domain/entity"
)

// SearchVector implements spec §4.8's search_vector: an in-process
// cosine-distance scan over the decrypted rows whose embedding_model
// matches the query model and whose embedding dimension matches,
// returned ascending by cosine distance (i.e. most similar first).
// Grounded on the teacher's InMemoryVectorStore.Search cosine loop,
// adapted to read from the encrypted GORM store instead of an in-memory
// map; a standalone vector database (lancedb-go et al.) was judged
// unnecessary at this corpus's scale (see DESIGN.md).
func (s *Store) SearchVector(ctx context.Context, workspaceID string, queryEmbedding []float32, embeddingModel string, limit int) ([]*entity.MemoryEntry, error) {
	var models []MemoryEntryModel
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND embedding_model = ? AND embedding_dim = ?", workspaceID, embeddingModel, len(queryEmbedding)).
		Find(&models).Error; err != nil {
		return nil, err
	}

	entries, err := s.decodeAll(models)
	if err != nil {
		return nil, err
	}

	type scored struct {
		entry    *entity.MemoryEntry
		distance float32
	}
	scoredEntries := make([]scored, 0, len(entries))
	for _, e := range entries {
		sim := cosineSimilarity(queryEmbedding, e.Embedding)
		e.Score = sim
		scoredEntries = append(scoredEntries, scored{entry: e, distance: 1 - sim})
	}

	sort.Slice(scoredEntries, func(i, j int) bool { return scoredEntries[i].distance < scoredEntries[j].distance })

	if len(scoredEntries) > limit {
		scoredEntries = scoredEntries[:limit]
	}
	out := make([]*entity.MemoryEntry, len(scoredEntries))
	for i, sc := range scoredEntries {
		out[i] = sc.entry
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (sqrt32(normA) * sqrt32(normB))
}

// sqrt32 is a small Newton's-method square root, avoiding a float64
// round-trip through math.Sqrt for this tight loop — mirrors the
// teacher's own hand-rolled sqrt in domain/memory/memory.go.
func sqrt32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 10; i++ {
		z = (z + x/z) / 2
	}
	return z
}
