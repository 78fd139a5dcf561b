// Package linkage provides the application-level service for entity
// similarity matching across the victim and official record stores.
package linkage

import (
	"context"

	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/matching"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
	"github.com/turtacn/CyberTrace-Intelligence/pkg/types/common"
)

// Pass labels for the two comparison modes.
const (
	PassCross  = "cross"
	PassWithin = "within"
)

// Store selects a record store for within-store comparison.
type Store string

const (
	StoreVictim   Store = "victim"
	StoreOfficial Store = "official"
)

// EventPublisher publishes lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// GraphWriter persists confirmed links.  Satisfied by the Neo4j adapter.
type GraphWriter interface {
	RecordMatches(ctx context.Context, pass string, matches []matching.Match) error
}

// Input is one similarity request.  A nil Threshold means "use the
// configured default", so an explicit zero floor is honored; Semantic
// enables free-text pattern scoring.
type Input struct {
	Threshold *float64
	Semantic  bool
}

// Result carries the scored pairs in both detailed and wire form.
type Result struct {
	Matches []matching.Match   `json:"matches"`
	Pairs   []common.MatchPair `json:"pairs"`
}

// Service defines the similarity operations.
type Service interface {
	CrossStore(ctx context.Context, in Input) (Result, error)
	WithinStore(ctx context.Context, store Store, in Input) (Result, error)
}

type service struct {
	victims   matching.RecordStore
	officials matching.RecordStore
	basic     *matching.Matcher
	semantic  *matching.Matcher
	graph     GraphWriter
	events    EventPublisher
	logger    logging.Logger
}

// Option customizes the service.
type Option func(*service)

// WithGraph persists links into the match graph after each pass.
func WithGraph(graph GraphWriter) Option {
	return func(s *service) { s.graph = graph }
}

// WithEvents publishes entity.matched events after each pass.
func WithEvents(events EventPublisher) Option {
	return func(s *service) { s.events = events }
}

// NewService builds the matching application service.  semantic may be nil
// when no embedder is configured; semantic requests then degrade to basic
// field matching.
func NewService(victims, officials matching.RecordStore, basic, semantic *matching.Matcher, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &service{
		victims:   victims,
		officials: officials,
		basic:     basic,
		semantic:  semantic,
		logger:    logger.Named("linkage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) matcher(in Input) *matching.Matcher {
	if in.Semantic && s.semantic != nil {
		return s.semantic
	}
	if in.Semantic {
		s.logger.Warn("semantic matching requested but no embedder configured")
	}
	return s.basic
}

func (s *service) CrossStore(ctx context.Context, in Input) (Result, error) {
	victims, err := s.victims.Records(ctx)
	if err != nil {
		return Result{}, err
	}
	officials, err := s.officials.Records(ctx)
	if err != nil {
		return Result{}, err
	}

	matches, err := s.matcher(in).CrossStore(ctx, victims, officials, in.Threshold)
	if err != nil {
		return Result{}, err
	}
	return s.finish(ctx, PassCross, matches)
}

func (s *service) WithinStore(ctx context.Context, store Store, in Input) (Result, error) {
	var src matching.RecordStore
	switch store {
	case StoreVictim:
		src = s.victims
	case StoreOfficial:
		src = s.officials
	default:
		return Result{}, apperrors.InvalidParam("unknown store: " + string(store))
	}

	records, err := src.Records(ctx)
	if err != nil {
		return Result{}, err
	}
	matches, err := s.matcher(in).WithinStore(ctx, records, in.Threshold)
	if err != nil {
		return Result{}, err
	}
	return s.finish(ctx, PassWithin, matches)
}

// finish persists and announces a completed pass.  Both side effects are
// best-effort: the scored pairs are returned even if they fail.
func (s *service) finish(ctx context.Context, pass string, matches []matching.Match) (Result, error) {
	if s.graph != nil && len(matches) > 0 {
		if err := s.graph.RecordMatches(ctx, pass, matches); err != nil {
			s.logger.Warn("match graph write failed", logging.String("pass", pass), logging.Err(err))
		}
	}
	if s.events != nil && len(matches) > 0 {
		event := map[string]interface{}{
			"pass":  pass,
			"count": len(matches),
			"pairs": matching.Pairs(matches),
		}
		if err := s.events.Publish(ctx, kafka.TopicEntityMatched, pass, kafka.TopicEntityMatched, event); err != nil {
			s.logger.Warn("entity.matched publish failed", logging.Err(err))
		}
	}
	return Result{Matches: matches, Pairs: matching.Pairs(matches)}, nil
}
