// Package neo4j persists confirmed entity matches as a graph, so linked
// reports across stores can be walked by investigators.
package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CyberTrace-Intelligence/internal/matching"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// MatchGraph writes report nodes and LINKED_TO edges.  Edges are merged,
// so re-running a pass updates scores instead of duplicating links.
type MatchGraph struct {
	driver   neo4j.DriverWithContext
	database string
	logger   logging.Logger
	metrics  *prometheus.AppMetrics
}

// NewMatchGraph connects the graph writer and verifies the driver.
func NewMatchGraph(ctx context.Context, cfg config.Neo4jConfig, logger logging.Logger, metrics *prometheus.AppMetrics) (*MatchGraph, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMatchGraphFailed, "neo4j driver creation failed")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMatchGraphFailed, "neo4j unreachable")
	}
	return &MatchGraph{
		driver:   driver,
		database: cfg.Database,
		logger:   logger.Named("match-graph"),
		metrics:  metrics,
	}, nil
}

const mergeMatchCypher = `
MERGE (a:Report {id: $id_a})
MERGE (b:Report {id: $id_b})
MERGE (a)-[r:LINKED_TO]-(b)
SET r.score = $score, r.reasons = $reasons, r.pass = $pass, r.updated_at = datetime()`

// RecordMatches upserts one edge per match.  pass labels the comparison
// that produced the links ("cross" or "within").
func (g *MatchGraph) RecordMatches(ctx context.Context, pass string, matches []matching.Match) error {
	if len(matches) == 0 {
		return nil
	}
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for _, m := range matches {
			params := map[string]interface{}{
				"id_a":    m.IDA,
				"id_b":    m.IDB,
				"score":   m.Score,
				"reasons": m.Reasons,
				"pass":    pass,
			}
			if _, err := tx.Run(ctx, mergeMatchCypher, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		g.metrics.GraphWritesTotal.WithLabelValues("error").Inc()
		return apperrors.Wrap(err, apperrors.ErrCodeMatchGraphFailed, "match graph write failed")
	}
	g.metrics.GraphWritesTotal.WithLabelValues("ok").Inc()
	g.logger.Debug("recorded matches in graph",
		logging.String("pass", pass), logging.Int("count", len(matches)))
	return nil
}

// Close shuts the underlying driver down.
func (g *MatchGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
