package knowledge

import (
	"context"
	"sort"
	"sync"

	"github.com/turtacn/CyberTrace-Intelligence/internal/matching"
)

// EmbeddedChunk pairs a chunk with its vector.
type EmbeddedChunk struct {
	Chunk
	Vector []float32
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// VectorStore indexes embedded chunks and serves nearest-neighbor queries.
// Implemented in-memory here and by the Milvus adapter in
// internal/infrastructure/search/milvus.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []EmbeddedChunk) error
	Search(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// MemoryIndex is the baseline exhaustive cosine index.  Inputs are static
// per corpus build, so a flat scan is exact and predictable.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []EmbeddedChunk
}

// NewMemoryIndex builds an empty index.
func NewMemoryIndex() *MemoryIndex { return &MemoryIndex{} }

func (m *MemoryIndex) Upsert(_ context.Context, chunks []EmbeddedChunk) error {
	m.mu.Lock()
	m.chunks = append(m.chunks, chunks...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]ScoredChunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		scored = append(scored, ScoredChunk{
			Chunk: c.Chunk,
			Score: matching.Cosine(vector, c.Vector),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

func (m *MemoryIndex) Reset(_ context.Context) error {
	m.mu.Lock()
	m.chunks = nil
	m.mu.Unlock()
	return nil
}
