package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// Retriever builds the chunk index over the reference corpus and answers
// top-k similarity queries.  The corpus is static, so the index is built
// once on first use and reused; rebuilding would produce identical results.
type Retriever struct {
	cfg      config.KnowledgeConfig
	embedder Embedder
	store    VectorStore
	logger   logging.Logger
	metrics  *prometheus.AppMetrics
	backend  string

	buildOnce sync.Once
	buildErr  error
}

// NewRetriever wires a retriever over the given embedder and vector store.
func NewRetriever(cfg config.KnowledgeConfig, embedder Embedder, store VectorStore, logger logging.Logger, metrics *prometheus.AppMetrics) *Retriever {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	backend := cfg.VectorBackend
	if backend == "" {
		backend = "memory"
	}
	return &Retriever{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		logger:   logger.Named("knowledge"),
		metrics:  metrics,
		backend:  backend,
	}
}

// loadCorpus reads every .txt and .md file under the corpus directory.
// Document identifiers are paths relative to the corpus root.
func (r *Retriever) loadCorpus() (map[string]string, error) {
	docs := make(map[string]string)
	err := filepath.WalkDir(r.cfg.CorpusDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.cfg.CorpusDir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		docs[rel] = string(data)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCorpusUnavailable,
			"cannot read corpus directory "+r.cfg.CorpusDir)
	}
	return docs, nil
}

// buildIndex chunks and embeds the whole corpus into the vector store.
func (r *Retriever) buildIndex(ctx context.Context) error {
	start := time.Now()
	docs, err := r.loadCorpus()
	if err != nil {
		return err
	}

	// Deterministic build order.
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var chunks []Chunk
	for _, id := range ids {
		chunks = append(chunks, SplitDocument(id, docs[id], r.cfg.ChunkSize, r.cfg.ChunkOverlap)...)
	}
	if len(chunks) == 0 {
		return apperrors.New(apperrors.ErrCodeCorpusUnavailable,
			"corpus contains no indexable documents")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	embedded := make([]EmbeddedChunk, len(chunks))
	for i := range chunks {
		embedded[i] = EmbeddedChunk{Chunk: chunks[i], Vector: vectors[i]}
	}
	if err := r.store.Upsert(ctx, embedded); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable,
			"vector store upsert failed")
	}

	r.metrics.KnowledgeChunkCount.WithLabelValues(r.backend).Set(float64(len(chunks)))
	r.logger.Info("knowledge index built",
		logging.Int("documents", len(docs)),
		logging.Int("chunks", len(chunks)),
		logging.Duration("elapsed", time.Since(start)))
	return nil
}

// ensureIndex builds the index exactly once per process.
func (r *Retriever) ensureIndex(ctx context.Context) error {
	r.buildOnce.Do(func() {
		r.buildErr = r.buildIndex(ctx)
	})
	return r.buildErr
}

// Retrieve embeds the query and returns the top-k most similar chunks.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.InvalidParam("query is required")
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	start := time.Now()
	if err := r.ensureIndex(ctx); err != nil {
		r.metrics.RetrievalsTotal.WithLabelValues(r.backend, "error").Inc()
		return nil, err
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		r.metrics.RetrievalsTotal.WithLabelValues(r.backend, "error").Inc()
		return nil, err
	}

	hits, err := r.store.Search(ctx, vectors[0], topK)
	if err != nil {
		r.metrics.RetrievalsTotal.WithLabelValues(r.backend, "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable,
			"vector search failed")
	}

	r.metrics.RetrievalsTotal.WithLabelValues(r.backend, "ok").Inc()
	r.metrics.RetrievalDuration.WithLabelValues(r.backend).Observe(time.Since(start).Seconds())
	return hits, nil
}
