// The apiserver command runs the HTTP API: evidence analysis, entity
// similarity matching and the guidance chat.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/CyberTrace-Intelligence/internal/analysis"
	"github.com/turtacn/CyberTrace-Intelligence/internal/application/advisory"
	"github.com/turtacn/CyberTrace-Intelligence/internal/application/casework"
	"github.com/turtacn/CyberTrace-Intelligence/internal/application/linkage"
	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/extraction"
	neo4jgraph "github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/database/neo4j"
	pgconn "github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/database/postgres"
	redisconn "github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	milvusstore "github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/search/milvus"
	miniostore "github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/storage/minio"
	httpiface "github.com/turtacn/CyberTrace-Intelligence/internal/interfaces/http"
	"github.com/turtacn/CyberTrace-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/CyberTrace-Intelligence/internal/knowledge"
	"github.com/turtacn/CyberTrace-Intelligence/internal/matching"
	"github.com/turtacn/CyberTrace-Intelligence/internal/worker"
	"github.com/turtacn/CyberTrace-Intelligence/pkg/types/common"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
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

	collector := prometheus.NewNopCollector()
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return err
		}
	}
	metrics := prometheus.NewAppMetrics(collector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Core analysis stack.
	runner := worker.NewRunner(cfg.Worker, logger, metrics)
	extractor := extraction.New(runner, logger)
	pipeline := analysis.NewPipeline(runner, extractor, logger, metrics)

	caseworkOpts := []casework.Option{}
	checks := map[string]handlers.ReadinessCheck{}

	if cfg.Redis.Enabled {
		client, err := redisconn.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		cache := redisconn.NewCache(client, logger, metrics,
			redisconn.WithPrefix(cfg.Redis.KeyPrefix),
			redisconn.WithDefaultTTL(cfg.Redis.DefaultTTL),
			redisconn.WithName("analysis"))
		caseworkOpts = append(caseworkOpts, casework.WithCache(cache, cfg.Redis.DefaultTTL))
		checks["redis"] = cache.Ping
	}
	if cfg.MinIO.Enabled {
		stager, err := miniostore.NewEvidenceStager(cfg.MinIO, logger, metrics)
		if err != nil {
			return err
		}
		caseworkOpts = append(caseworkOpts, casework.WithStager(stager))
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka, "apiserver", logger, metrics)
		defer producer.Close()
		caseworkOpts = append(caseworkOpts, casework.WithEvents(producer))
	}

	caseworkSvc := casework.NewService(pipeline, extractor, logger, caseworkOpts...)

	// Record stores: CSV by default, PostgreSQL when configured.
	var victims, officials matching.RecordStore
	switch cfg.Matcher.RecordSource {
	case "postgres":
		pool, err := pgconn.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()
		victims = pgconn.NewRecordSource(pool, pgconn.StoreVictim, logger)
		officials = pgconn.NewRecordSource(pool, pgconn.StoreOfficial, logger)
		checks["postgres"] = pool.Ping
	default:
		victimStore, err := matching.NewCachedCSVStore(cfg.Matcher.VictimStorePath, "victim",
			cfg.Matcher.WatchStores, logger, metrics)
		if err != nil {
			return err
		}
		defer victimStore.Close()
		officialStore, err := matching.NewCachedCSVStore(cfg.Matcher.OfficialStorePath, "official",
			cfg.Matcher.WatchStores, logger, metrics)
		if err != nil {
			return err
		}
		defer officialStore.Close()
		victims, officials = victimStore, officialStore
	}

	defaults := common.Thresholds{Cross: cfg.Matcher.CrossThreshold, Within: cfg.Matcher.WithinThreshold}
	embedder := knowledge.NewWorkerEmbedder(runner, metrics)
	basic := matching.NewMatcher(defaults, nil, logger, metrics)
	semantic := matching.NewMatcher(defaults, embedder, logger, metrics)

	linkageOpts := []linkage.Option{}
	if cfg.Neo4j.Enabled {
		graph, err := neo4jgraph.NewMatchGraph(ctx, cfg.Neo4j, logger, metrics)
		if err != nil {
			return err
		}
		defer graph.Close(context.Background())
		linkageOpts = append(linkageOpts, linkage.WithGraph(graph))
	}
	if producer != nil {
		linkageOpts = append(linkageOpts, linkage.WithEvents(producer))
	}
	linkageSvc := linkage.NewService(victims, officials, basic, semantic, logger, linkageOpts...)

	// Knowledge retrieval: in-memory index by default, Milvus when configured.
	var vectors knowledge.VectorStore = knowledge.NewMemoryIndex()
	if cfg.Knowledge.VectorBackend == "milvus" {
		store, err := milvusstore.NewStore(ctx, cfg.Milvus, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		vectors = store
	}
	retriever := knowledge.NewRetriever(cfg.Knowledge, embedder, vectors, logger, metrics)
	synth := knowledge.NewSynthesizer(cfg.Knowledge, retriever, runner, logger, metrics)
	advisorySvc := advisory.NewService(synth, logger)

	router := httpiface.NewRouterFromConfig(cfg.Server, httpiface.RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(caseworkSvc),
		MatchingHandler: handlers.NewMatchingHandler(linkageSvc),
		ChatHandler:     handlers.NewChatHandler(advisorySvc),
		HealthHandler:   handlers.NewHealthHandler(version, checks),
		Logger:          logger,
		Metrics:         metrics,
		MetricsHandler:  collector.Handler(),
	})

	server := httpiface.NewServer(cfg.Server, router, logger)
	logger.Info("starting apiserver",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	start := time.Now()
	err = server.Run(ctx)
	logger.Info("apiserver stopped", logging.Duration("uptime", time.Since(start)))
	return err
}
