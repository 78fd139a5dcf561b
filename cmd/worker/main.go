// The worker command consumes analysis lifecycle events and maintains the
// derived stores: it refreshes the match graph when new links are published
// and logs analyzed cases for audit trails.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	neo4jgraph "github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/database/neo4j"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CyberTrace-Intelligence/internal/matching"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("worker requires kafka.enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := prometheus.NewNopAppMetrics()

	var graph *neo4jgraph.MatchGraph
	if cfg.Neo4j.Enabled {
		graph, err = neo4jgraph.NewMatchGraph(ctx, cfg.Neo4j, logger, metrics)
		if err != nil {
			return err
		}
		defer graph.Close(context.Background())
	}

	analyzed := kafka.NewConsumer(cfg.Kafka, kafka.TopicCaseAnalyzed, logger)
	defer analyzed.Close()
	matched := kafka.NewConsumer(cfg.Kafka, kafka.TopicEntityMatched, logger)
	defer matched.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return analyzed.Run(gctx, func(_ context.Context, env kafka.EventEnvelope) error {
			var event struct {
				RequestKey    string  `json:"request_key"`
				Priority      string  `json:"priority"`
				PriorityScore float64 `json:"priority_score"`
			}
			if err := json.Unmarshal(env.Payload, &event); err != nil {
				return err
			}
			logger.Info("case analyzed",
				logging.String("request_key", event.RequestKey),
				logging.String("priority", event.Priority),
				logging.Float64("score", event.PriorityScore))
			return nil
		})
	})
	g.Go(func() error {
		return matched.Run(gctx, func(hctx context.Context, env kafka.EventEnvelope) error {
			return handleMatched(hctx, graph, logger, env)
		})
	})

	logger.Info("worker consuming", logging.String("group", cfg.Kafka.GroupID))
	return g.Wait()
}

// handleMatched mirrors published links into the match graph, so graph
// state converges even when the API server's direct write failed.
func handleMatched(ctx context.Context, graph *neo4jgraph.MatchGraph, logger logging.Logger, env kafka.EventEnvelope) error {
	var event struct {
		Pass  string          `json:"pass"`
		Pairs [][]interface{} `json:"pairs"`
	}
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		return err
	}
	logger.Info("entities matched",
		logging.String("pass", event.Pass), logging.Int("count", len(event.Pairs)))
	if graph == nil {
		return nil
	}

	matches := make([]matching.Match, 0, len(event.Pairs))
	for _, p := range event.Pairs {
		if len(p) != 3 {
			continue
		}
		ida, _ := p[0].(string)
		idb, _ := p[1].(string)
		score, _ := p[2].(float64)
		if ida == "" || idb == "" {
			continue
		}
		matches = append(matches, matching.Match{IDA: ida, IDB: idb, Score: score})
	}
	return graph.RecordMatches(ctx, event.Pass, matches)
}
