package config

import "time"

// Default values applied by ApplyDefaults.  Kept as named constants so tests
// and callers can reference them without duplicating literals.
const (
	DefaultServerPort      = 8080
	DefaultServerMode      = "release"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultWorkerRuntime       = "python3"
	DefaultWorkerTaskDir       = "./tasks"
	DefaultWorkerMaxConcurrent = 8
	DefaultWorkerInvokeTimeout = 5 * time.Minute

	DefaultCrossThreshold  = 0.5
	DefaultWithinThreshold = 0.3

	DefaultChunkSize         = 800
	DefaultChunkOverlap      = 120
	DefaultTopK              = 5
	DefaultMinRetrievalScore = 0.35

	DefaultEmbeddingDim = 768
)

// ApplyDefaults fills every unset field with its production default.  It is
// idempotent and never overwrites an explicitly configured value.
func ApplyDefaults(c *Config) {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.Mode == "" {
		c.Server.Mode = DefaultServerMode
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Worker.Runtime == "" {
		c.Worker.Runtime = DefaultWorkerRuntime
	}
	if c.Worker.TaskDir == "" {
		c.Worker.TaskDir = DefaultWorkerTaskDir
	}
	if c.Worker.MaxConcurrent == 0 {
		c.Worker.MaxConcurrent = DefaultWorkerMaxConcurrent
	}
	if c.Worker.InvokeTimeout == 0 {
		c.Worker.InvokeTimeout = DefaultWorkerInvokeTimeout
	}

	if c.Matcher.CrossThreshold == 0 {
		c.Matcher.CrossThreshold = DefaultCrossThreshold
	}
	if c.Matcher.WithinThreshold == 0 {
		c.Matcher.WithinThreshold = DefaultWithinThreshold
	}
	if c.Matcher.VictimStorePath == "" {
		c.Matcher.VictimStorePath = "./data/victim_reports.csv"
	}
	if c.Matcher.OfficialStorePath == "" {
		c.Matcher.OfficialStorePath = "./data/official_records.csv"
	}
	if c.Matcher.RecordSource == "" {
		c.Matcher.RecordSource = "csv"
	}

	if c.Knowledge.CorpusDir == "" {
		c.Knowledge.CorpusDir = "./knowledge"
	}
	if c.Knowledge.ChunkSize == 0 {
		c.Knowledge.ChunkSize = DefaultChunkSize
	}
	if c.Knowledge.ChunkOverlap == 0 {
		c.Knowledge.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Knowledge.TopK == 0 {
		c.Knowledge.TopK = DefaultTopK
	}
	if c.Knowledge.MinRetrievalScore == 0 {
		c.Knowledge.MinRetrievalScore = DefaultMinRetrievalScore
	}
	if c.Knowledge.VectorBackend == "" {
		c.Knowledge.VectorBackend = "memory"
	}

	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.User == "" {
		c.Postgres.User = "cybertrace"
	}
	if c.Postgres.DBName == "" {
		c.Postgres.DBName = "cybertrace"
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxConns == 0 {
		c.Postgres.MaxConns = 10
	}
	if c.Postgres.MinConns == 0 {
		c.Postgres.MinConns = 2
	}
	if c.Postgres.ConnMaxLifetime == 0 {
		c.Postgres.ConnMaxLifetime = time.Hour
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.DefaultTTL == 0 {
		c.Redis.DefaultTTL = 24 * time.Hour
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "cybertrace"
	}

	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "cybertrace-workers"
	}
	if c.Kafka.AutoOffsetReset == "" {
		c.Kafka.AutoOffsetReset = "earliest"
	}
	if c.Kafka.ProducerRetries == 0 {
		c.Kafka.ProducerRetries = 3
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 100 * time.Millisecond
	}

	if c.MinIO.Endpoint == "" {
		c.MinIO.Endpoint = "localhost:9000"
	}
	if c.MinIO.Bucket == "" {
		c.MinIO.Bucket = "cybertrace-evidence"
	}

	if c.Milvus.Addr == "" {
		c.Milvus.Addr = "localhost:19530"
	}
	if c.Milvus.Collection == "" {
		c.Milvus.Collection = "knowledge_chunks"
	}
	if c.Milvus.EmbeddingDim == 0 {
		c.Milvus.EmbeddingDim = DefaultEmbeddingDim
	}
	if c.Milvus.DefaultTopK == 0 {
		c.Milvus.DefaultTopK = DefaultTopK
	}

	if c.Neo4j.URI == "" {
		c.Neo4j.URI = "bolt://localhost:7687"
	}
	if c.Neo4j.User == "" {
		c.Neo4j.User = "neo4j"
	}
	if c.Neo4j.Database == "" {
		c.Neo4j.Database = "neo4j"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "cybertrace"
	}
}
