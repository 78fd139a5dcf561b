// Package config defines all configuration structures for the
// CyberTrace-Intelligence platform.  No I/O or parsing logic lives here,
// only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
)

// Version is the platform version, overridable at build time via ldflags.
var Version = "dev"

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WorkerConfig controls the task invocation layer.
type WorkerConfig struct {
	// Runtime is the interpreter or launcher prepended to every task command
	// (typically "python3").  Empty means task commands are executed as-is.
	Runtime string `mapstructure:"runtime"`

	// TaskDir is the directory holding the fixed, versioned task programs.
	TaskDir string `mapstructure:"task_dir"`

	// MaxConcurrent bounds simultaneous worker processes.  0 = unbounded.
	MaxConcurrent int `mapstructure:"max_concurrent"`

	// InvokeTimeout is the per-invocation wall-clock limit after which the
	// worker process is forcibly terminated.  0 = no timeout.
	InvokeTimeout time.Duration `mapstructure:"invoke_timeout"`
}

// MatcherConfig holds similarity-matching parameters.
type MatcherConfig struct {
	CrossThreshold  float64 `mapstructure:"cross_threshold"`
	WithinThreshold float64 `mapstructure:"within_threshold"`

	// VictimStorePath and OfficialStorePath locate the two CSV record stores.
	VictimStorePath   string `mapstructure:"victim_store_path"`
	OfficialStorePath string `mapstructure:"official_store_path"`

	// WatchStores enables fsnotify-driven invalidation of the in-memory
	// record cache when the CSV files change on disk.
	WatchStores bool `mapstructure:"watch_stores"`

	// RecordSource selects "csv" or "postgres".
	RecordSource string `mapstructure:"record_source"`
}

// KnowledgeConfig holds retrieval/synthesis parameters.
type KnowledgeConfig struct {
	CorpusDir    string  `mapstructure:"corpus_dir"`
	ChunkSize    int     `mapstructure:"chunk_size"`
	ChunkOverlap int     `mapstructure:"chunk_overlap"`
	TopK         int     `mapstructure:"top_k"`
	// MinRetrievalScore is the confidence floor below which the web-search
	// fallback augments the retrieved context.
	MinRetrievalScore float64 `mapstructure:"min_retrieval_score"`
	// VectorBackend selects "memory" or "milvus".
	VectorBackend string `mapstructure:"vector_backend"`
}

// PostgresConfig holds PostgreSQL connection parameters for the
// entity-record source.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection parameters for the analysis cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	Enabled      bool          `mapstructure:"enabled"`
}

// KafkaConfig holds Kafka producer/consumer parameters for analysis events.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerRetries int           `mapstructure:"producer_retries"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	Enabled         bool          `mapstructure:"enabled"`
}

// MinIOConfig holds object-storage parameters for evidence staging.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Enabled   bool   `mapstructure:"enabled"`
}

// MilvusConfig holds Milvus vector-store connection parameters.
type MilvusConfig struct {
	Addr         string `mapstructure:"addr"`
	DBName       string `mapstructure:"db_name"`
	Collection   string `mapstructure:"collection"`
	EmbeddingDim int    `mapstructure:"embedding_dim"`
	DefaultTopK  int    `mapstructure:"default_top_k"`
}

// Neo4jConfig holds match-graph persistence parameters.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Enabled  bool   `mapstructure:"enabled"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	Enabled   bool   `mapstructure:"enabled"`
}

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Log       logging.LogConfig `mapstructure:"log"`
	Worker    WorkerConfig      `mapstructure:"worker"`
	Matcher   MatcherConfig     `mapstructure:"matcher"`
	Knowledge KnowledgeConfig   `mapstructure:"knowledge"`
	Postgres  PostgresConfig    `mapstructure:"postgres"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Kafka     KafkaConfig       `mapstructure:"kafka"`
	MinIO     MinIOConfig       `mapstructure:"minio"`
	Milvus    MilvusConfig      `mapstructure:"milvus"`
	Neo4j     Neo4jConfig       `mapstructure:"neo4j"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
}

// Validate checks cross-field consistency.  It assumes ApplyDefaults has
// already run, so zero values that have defaults are never seen here.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d outside (0,65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode %q must be debug, release, or test", c.Server.Mode)
	}
	if c.Worker.MaxConcurrent < 0 {
		return fmt.Errorf("worker.max_concurrent must not be negative")
	}
	if c.Matcher.CrossThreshold < 0 || c.Matcher.CrossThreshold > 1 {
		return fmt.Errorf("matcher.cross_threshold %v outside [0,1]", c.Matcher.CrossThreshold)
	}
	if c.Matcher.WithinThreshold < 0 || c.Matcher.WithinThreshold > 1 {
		return fmt.Errorf("matcher.within_threshold %v outside [0,1]", c.Matcher.WithinThreshold)
	}
	switch c.Matcher.RecordSource {
	case "csv", "postgres":
	default:
		return fmt.Errorf("matcher.record_source %q must be csv or postgres", c.Matcher.RecordSource)
	}
	if c.Knowledge.ChunkSize <= 0 {
		return fmt.Errorf("knowledge.chunk_size must be positive")
	}
	if c.Knowledge.ChunkOverlap < 0 || c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("knowledge.chunk_overlap must be in [0, chunk_size)")
	}
	if c.Knowledge.TopK <= 0 {
		return fmt.Errorf("knowledge.top_k must be positive")
	}
	switch c.Knowledge.VectorBackend {
	case "memory", "milvus":
	default:
		return fmt.Errorf("knowledge.vector_backend %q must be memory or milvus", c.Knowledge.VectorBackend)
	}
	return nil
}
