// Package casework provides the application-level service for complaint
// analysis.  It fronts the analysis pipeline with result caching, evidence
// staging and event publication.
package casework

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"github.com/turtacn/CyberTrace-Intelligence/internal/analysis"
	"github.com/turtacn/CyberTrace-Intelligence/internal/extraction"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// EventPublisher publishes lifecycle events.  Satisfied by the Kafka
// producer; a nil producer publishes nothing.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// EvidenceStager resolves evidence references to local paths the workers
// can open.  Satisfied by the MinIO stager.
type EvidenceStager interface {
	Stage(ctx context.Context, ref, dir string) (string, error)
}

// Service defines complaint analysis operations.
type Service interface {
	AnalyzeAudio(ctx context.Context, path string) (extraction.TextResult, error)
	AnalyzeImage(ctx context.Context, path string) (extraction.TextResult, error)
	AnalyzeDocument(ctx context.Context, path string) (extraction.TextResult, error)
	AnalyzeVideo(ctx context.Context, path string) (extraction.VideoResult, error)

	AnalyzeComplaint(ctx context.Context, ev analysis.EvidenceTexts) (json.RawMessage, error)
	Summarize(ctx context.Context, ev analysis.EvidenceTexts) (string, error)
	CheckContradiction(ctx context.Context, ev analysis.EvidenceTexts) (analysis.ContradictionResult, error)
	Classify(details json.RawMessage) (analysis.ClassificationResult, error)

	Complete(ctx context.Context, req analysis.CompleteRequest) (analysis.CompleteResult, error)
}

type service struct {
	pipeline  *analysis.Pipeline
	extractor *extraction.Extractor
	cache     redis.Cache
	cacheTTL  time.Duration
	stager    EvidenceStager
	events    EventPublisher
	logger    logging.Logger
}

// Option customizes the service.
type Option func(*service)

// WithCache enables content-addressed caching of full analysis runs.
func WithCache(cache redis.Cache, ttl time.Duration) Option {
	return func(s *service) { s.cache = cache; s.cacheTTL = ttl }
}

// WithStager enables object-storage evidence references.
func WithStager(stager EvidenceStager) Option {
	return func(s *service) { s.stager = stager }
}

// WithEvents enables analysis lifecycle events.
func WithEvents(events EventPublisher) Option {
	return func(s *service) { s.events = events }
}

// NewService builds the analysis application service.
func NewService(pipeline *analysis.Pipeline, extractor *extraction.Extractor, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &service{
		pipeline:  pipeline,
		extractor: extractor,
		cacheTTL:  24 * time.Hour,
		logger:    logger.Named("casework"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) AnalyzeAudio(ctx context.Context, path string) (extraction.TextResult, error) {
	path, cleanup, err := s.stage(ctx, path)
	if err != nil {
		return extraction.TextResult{}, err
	}
	defer cleanup()
	return s.extractor.Audio(ctx, path)
}

func (s *service) AnalyzeImage(ctx context.Context, path string) (extraction.TextResult, error) {
	path, cleanup, err := s.stage(ctx, path)
	if err != nil {
		return extraction.TextResult{}, err
	}
	defer cleanup()
	return s.extractor.Image(ctx, path)
}

func (s *service) AnalyzeDocument(ctx context.Context, path string) (extraction.TextResult, error) {
	path, cleanup, err := s.stage(ctx, path)
	if err != nil {
		return extraction.TextResult{}, err
	}
	defer cleanup()
	return s.extractor.Document(ctx, path)
}

func (s *service) AnalyzeVideo(ctx context.Context, path string) (extraction.VideoResult, error) {
	path, cleanup, err := s.stage(ctx, path)
	if err != nil {
		return extraction.VideoResult{}, err
	}
	defer cleanup()
	return s.extractor.Video(ctx, path)
}

func (s *service) AnalyzeComplaint(ctx context.Context, ev analysis.EvidenceTexts) (json.RawMessage, error) {
	return s.pipeline.Details(ctx, ev)
}

func (s *service) Summarize(ctx context.Context, ev analysis.EvidenceTexts) (string, error) {
	return s.pipeline.Summary(ctx, ev)
}

func (s *service) CheckContradiction(ctx context.Context, ev analysis.EvidenceTexts) (analysis.ContradictionResult, error) {
	return s.pipeline.Contradiction(ctx, ev)
}

func (s *service) Classify(details json.RawMessage) (analysis.ClassificationResult, error) {
	return s.pipeline.Classify(details)
}

// requestKey is the cache key of a full run: the hash of the canonical
// request.  Identical complaints with identical evidence reuse the result.
func requestKey(req analysis.CompleteRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization, "request not hashable")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (s *service) Complete(ctx context.Context, req analysis.CompleteRequest) (analysis.CompleteResult, error) {
	// The key hashes the request as submitted, so the cache is consulted
	// before any evidence object is downloaded.
	key, err := requestKey(req)
	if err != nil {
		return analysis.CompleteResult{}, err
	}

	var result analysis.CompleteResult
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &result); err == nil {
			s.logger.Debug("analysis served from cache", logging.String("key", key))
			return result, nil
		} else if !apperrors.IsNotFound(err) {
			s.logger.Warn("analysis cache read failed", logging.Err(err))
		}
	}

	staged, cleanup, err := s.stageRequest(ctx, req)
	if err != nil {
		return analysis.CompleteResult{}, err
	}
	defer cleanup()

	result, err = s.pipeline.Complete(ctx, staged)
	if err != nil {
		return analysis.CompleteResult{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("analysis cache write failed", logging.Err(err))
		}
	}
	if s.events != nil {
		event := map[string]interface{}{
			"request_key":       key,
			"priority":          result.Priority,
			"priority_score":    result.PriorityScore,
			"has_contradiction": result.HasContradiction,
			"missing_evidence":  result.MissingEvidence,
		}
		if err := s.events.Publish(ctx, kafka.TopicCaseAnalyzed, key, kafka.TopicCaseAnalyzed, event); err != nil {
			// Event delivery is best-effort; the analysis result stands.
			s.logger.Warn("case.analyzed publish failed", logging.Err(err))
		}
	}
	return result, nil
}

// stage resolves one evidence reference, passing local paths through.  The
// cleanup removes the scratch directory once the worker has consumed it.
func (s *service) stage(ctx context.Context, ref string) (string, func(), error) {
	if ref == "" || s.stager == nil {
		return ref, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "evidence-*")
	if err != nil {
		return "", nil, apperrors.Wrap(err, apperrors.ErrCodeEvidenceStaging, "scratch directory failed")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	local, err := s.stager.Stage(ctx, ref, dir)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return local, cleanup, nil
}

// stageRequest resolves every evidence reference of a full run into one
// scratch directory, removed after the run.
func (s *service) stageRequest(ctx context.Context, req analysis.CompleteRequest) (analysis.CompleteRequest, func(), error) {
	if s.stager == nil {
		return req, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "evidence-*")
	if err != nil {
		return analysis.CompleteRequest{}, nil, apperrors.Wrap(err, apperrors.ErrCodeEvidenceStaging, "scratch directory failed")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	for _, ref := range []*string{&req.ImagePath, &req.PDFPath, &req.AudioPath, &req.VideoPath} {
		if *ref == "" {
			continue
		}
		local, err := s.stager.Stage(ctx, *ref, dir)
		if err != nil {
			cleanup()
			return analysis.CompleteRequest{}, nil, err
		}
		*ref = local
	}
	return req, cleanup, nil
}
