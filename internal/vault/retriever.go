package vault

import (
	"context"
	"fmt"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
)

// Embedder produces the embedding used for per-turn retrieval. The
// Runtime treats its absence as "fall back to lexical search" (spec
// §4.8 "Retrieval for the Runtime").
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, string, error)
}

// Retriever adapts Store to service.MemoryRetriever, the Agent Runtime's
// per-turn memory lookup. Grounded on the teacher's
// MemoryManager.Recall, which embeds the query and falls through to the
// vector store; this module additionally falls back to lexical search
// when no embedder is configured, since the Runtime's provider pool may
// not include one.
type Retriever struct {
	store    *Store
	embedder Embedder
}

func NewRetriever(store *Store, embedder Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

var _ service.MemoryRetriever = (*Retriever)(nil)

// Retrieve returns up to topK formatted memory snippets for the Runtime
// to prepend as a synthetic system message.
func (r *Retriever) Retrieve(ctx context.Context, workspaceID, query string, topK int) ([]string, error) {
	if r.embedder != nil {
		embedding, model, err := r.embedder.Embed(ctx, query)
		if err == nil && len(embedding) > 0 {
			if hits, err := r.store.SearchVector(ctx, workspaceID, embedding, model, topK); err == nil {
				return formatHits(hits), nil
			}
		}
	}

	hits, err := r.store.SearchLexical(ctx, workspaceID, query, topK)
	if err != nil {
		return nil, fmt.Errorf("vault: lexical fallback search: %w", err)
	}
	return formatHits(hits), nil
}

func formatHits(hits []*entity.MemoryEntry) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Content
	}
	return out
}
