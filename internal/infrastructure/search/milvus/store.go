// Package milvus backs the knowledge vector store with a Milvus collection,
// for corpora too large for the in-memory index.
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/knowledge"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

const (
	fieldID     = "id"
	fieldDocID  = "doc_id"
	fieldIndex  = "chunk_index"
	fieldText   = "text"
	fieldVector = "embedding"

	maxTextLength = 8192
	maxIDLength   = 512
)

// Store implements knowledge.VectorStore over a Milvus collection using
// cosine similarity, matching the in-memory index's scoring.
type Store struct {
	cli        client.Client
	collection string
	dim        int
	logger     logging.Logger
}

var _ knowledge.VectorStore = (*Store)(nil)

// NewStore connects to Milvus and ensures the collection exists and is
// loaded for search.
func NewStore(ctx context.Context, cfg config.MilvusConfig, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cli, err := client.NewClient(ctx, client.Config{Address: cfg.Addr, DBName: cfg.DBName})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "milvus connection failed")
	}

	s := &Store{
		cli:        cli,
		collection: cfg.Collection,
		dim:        cfg.EmbeddingDim,
		logger:     logger.Named("milvus"),
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = cli.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.cli.HasCollection(ctx, s.collection)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "collection check failed")
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(s.collection).
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxIDLength).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldDocID).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxIDLength)).
			WithField(entity.NewField().WithName(fieldIndex).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxTextLength)).
			WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(s.dim)))
		if err := s.cli.CreateCollection(ctx, schema, 1); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "collection creation failed")
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, 16, 200)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "index construction failed")
		}
		if err := s.cli.CreateIndex(ctx, s.collection, fieldVector, idx, false); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "index creation failed")
		}
	}
	if err := s.cli.LoadCollection(ctx, s.collection, false); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "collection load failed")
	}
	return nil
}

// chunkKey is the primary key: stable per (document, position).
func chunkKey(c knowledge.Chunk) string {
	return fmt.Sprintf("%s#%d", c.DocID, c.Index)
}

func (s *Store) Upsert(ctx context.Context, chunks []knowledge.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]string, len(chunks))
	docIDs := make([]string, len(chunks))
	indexes := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		ids[i] = chunkKey(c.Chunk)
		docIDs[i] = c.DocID
		indexes[i] = int64(c.Index)
		texts[i] = c.Text
		vectors[i] = c.Vector
	}

	_, err := s.cli.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldDocID, docIDs),
		entity.NewColumnInt64(fieldIndex, indexes),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnFloatVector(fieldVector, s.dim, vectors),
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "vector upsert failed")
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]knowledge.ScoredChunk, error) {
	if topK <= 0 {
		return nil, nil
	}
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "search param construction failed")
	}

	results, err := s.cli.Search(ctx, s.collection, nil, "",
		[]string{fieldDocID, fieldIndex, fieldText},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, entity.COSINE, topK, sp)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "vector search failed")
	}

	var hits []knowledge.ScoredChunk
	for _, res := range results {
		docCol, _ := res.Fields.GetColumn(fieldDocID).(*entity.ColumnVarChar)
		idxCol, _ := res.Fields.GetColumn(fieldIndex).(*entity.ColumnInt64)
		textCol, _ := res.Fields.GetColumn(fieldText).(*entity.ColumnVarChar)
		if docCol == nil || idxCol == nil || textCol == nil {
			return nil, apperrors.New(apperrors.ErrCodeIndexUnavailable, "search result missing fields")
		}
		for i := 0; i < res.ResultCount; i++ {
			docID, err := docCol.ValueByIdx(i)
			if err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "search result malformed")
			}
			idx, err := idxCol.ValueByIdx(i)
			if err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "search result malformed")
			}
			text, err := textCol.ValueByIdx(i)
			if err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "search result malformed")
			}
			hits = append(hits, knowledge.ScoredChunk{
				Chunk: knowledge.Chunk{DocID: docID, Index: int(idx), Text: text},
				Score: float64(res.Scores[i]),
			})
		}
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	stats, err := s.cli.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "collection statistics failed")
	}
	var count int
	if _, err := fmt.Sscanf(stats["row_count"], "%d", &count); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "row count malformed")
	}
	return count, nil
}

func (s *Store) Reset(ctx context.Context) error {
	exists, err := s.cli.HasCollection(ctx, s.collection)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "collection check failed")
	}
	if exists {
		if err := s.cli.DropCollection(ctx, s.collection); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeIndexUnavailable, "collection drop failed")
		}
	}
	return s.ensureCollection(ctx)
}

// Close releases the client connection.
func (s *Store) Close() error {
	return s.cli.Close()
}
