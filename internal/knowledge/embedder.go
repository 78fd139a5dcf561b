package knowledge

import (
	"context"
	"encoding/json"

	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CyberTrace-Intelligence/internal/worker"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// Embedder turns texts into dense vectors.  The same implementation backs
// both knowledge retrieval and the matcher's semantic mode.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// WorkerEmbedder delegates embedding to the embed-text worker task.
type WorkerEmbedder struct {
	runner  worker.Runner
	metrics *prometheus.AppMetrics
}

// NewWorkerEmbedder builds the production Embedder.
func NewWorkerEmbedder(runner worker.Runner, metrics *prometheus.AppMetrics) *WorkerEmbedder {
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &WorkerEmbedder{runner: runner, metrics: metrics}
}

// Embed returns one vector per input text, in input order.
func (e *WorkerEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	raw, err := e.runner.Invoke(ctx, worker.TaskEmbedText, map[string][]string{"texts": texts})
	if err != nil {
		e.metrics.EmbeddingsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeEmbeddingFailed,
			"embedding backend failed")
	}

	// The task replies either {"embeddings": [[...]]} or a bare array.
	var wrapped struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	vectors := wrapped.Embeddings
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Embeddings != nil {
		vectors = wrapped.Embeddings
	} else if err := json.Unmarshal(raw, &vectors); err != nil {
		e.metrics.EmbeddingsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeEmbeddingFailed,
			"embedding result malformed")
	}

	if len(vectors) != len(texts) {
		e.metrics.EmbeddingsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Newf(apperrors.ErrCodeEmbeddingFailed,
			"embedding count mismatch: %d texts, %d vectors", len(texts), len(vectors))
	}
	e.metrics.EmbeddingsTotal.WithLabelValues("ok").Add(float64(len(texts)))
	return vectors, nil
}
