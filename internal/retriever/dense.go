package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"Mimic_1.0/internal/embedding"
	"Mimic_1.0/internal/models"
)

// DenseIndex is the nearest-neighbor similarity index over fact embeddings.
// Scores are cosine similarities clipped to [0,1]. An index over an empty
// corpus reports no candidates and never calls the embedding oracle.
type DenseIndex interface {
	Search(ctx context.Context, query string, topK int) ([]IndexScore, error)
}

// MemoryDenseIndex keeps fact embeddings in process memory. Embeddings are
// computed once at build time via the embedding oracle.
type MemoryDenseIndex struct {
	embedder embedding.Embedding
	vectors  [][]float32
}

// NewMemoryDenseIndex embeds every fact text up front. An empty corpus skips
// the oracle entirely.
func NewMemoryDenseIndex(ctx context.Context, embedder embedding.Embedding, facts []*models.Fact) (*MemoryDenseIndex, error) {
	idx := &MemoryDenseIndex{embedder: embedder}
	if len(facts) == 0 {
		return idx, nil
	}

	texts := make([]string, len(facts))
	for i, fact := range facts {
		texts[i] = fact.Text
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed fact corpus: %w", err)
	}
	if len(vectors) != len(facts) {
		return nil, fmt.Errorf("embedding oracle returned %d vectors for %d facts", len(vectors), len(facts))
	}
	idx.vectors = vectors
	return idx, nil
}

// Search embeds the query and returns up to topK facts by cosine similarity,
// best first, ties broken by corpus index ascending.
func (idx *MemoryDenseIndex) Search(ctx context.Context, query string, topK int) ([]IndexScore, error) {
	if len(idx.vectors) == 0 || topK <= 0 {
		return nil, nil
	}

	queryVec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results := make([]IndexScore, 0, len(idx.vectors))
	for i, vec := range idx.vectors {
		results = append(results, IndexScore{Index: i, Score: clipUnit(cosineSimilarity(queryVec, vec))})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is degenerate.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clipUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ DenseIndex = (*MemoryDenseIndex)(nil)
