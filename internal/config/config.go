// Package config provides configuration management for the bibliometrics service.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Artifact backends.
const (
	ArtifactBackendFile = "file"
	ArtifactBackendS3   = "s3"
)

// envPrefix prefixes every environment variable the service reads.
const envPrefix = "BIBLIO"

// Config holds all configuration for the bibliometrics service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Ingestion contains record ingestion throughput settings.
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	// Bibliometrics contains metrics engine settings.
	Bibliometrics BibliometricsConfig `mapstructure:"bibliometrics"`
	// Ranking contains ranking engine, artifact and training settings.
	Ranking RankingConfig `mapstructure:"ranking"`
	// Scheduler contains the worker's cron settings.
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from BIBLIO_DATABASE_PASSWORD only).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require". Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// IngestionConfig holds ingestion throughput settings.
type IngestionConfig struct {
	// RecordsPerSecond caps store writes; 0 disables throttling.
	RecordsPerSecond float64 `mapstructure:"records_per_second"`
	// Burst is the number of records admitted at once.
	Burst int `mapstructure:"burst"`
	// Concurrency bounds how many input files are ingested in parallel.
	Concurrency int `mapstructure:"concurrency"`
	// EnrichBatchSize is the page size of enrichment sweeps (max 1000).
	EnrichBatchSize int `mapstructure:"enrich_batch_size"`
}

// BibliometricsConfig holds metrics engine settings.
type BibliometricsConfig struct {
	// ChunkSize is the number of entity updates committed per transaction.
	ChunkSize int `mapstructure:"chunk_size"`
	// PageRank tunes the coauthor PageRank iteration.
	PageRank PageRankConfig `mapstructure:"pagerank"`
}

// PageRankConfig holds PageRank settings.
type PageRankConfig struct {
	Damping       float64 `mapstructure:"damping"`
	Tolerance     float64 `mapstructure:"tolerance"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

// RankingConfig holds ranking engine settings.
type RankingConfig struct {
	// SimilarityWeight weighs normalized lexical similarity.
	SimilarityWeight float64 `mapstructure:"similarity_weight"`
	// ImpactWeight weighs normalized predicted impact.
	ImpactWeight float64 `mapstructure:"impact_weight"`
	// MinSimilarity drops papers below this normalized similarity.
	MinSimilarity float64 `mapstructure:"min_similarity"`
	// DefaultLimit is used when a request does not set one.
	DefaultLimit int `mapstructure:"default_limit"`
	// MaxLimit caps the limit a request may ask for.
	MaxLimit int `mapstructure:"max_limit"`
	// Artifact selects where the trained estimator is stored.
	Artifact ArtifactConfig `mapstructure:"artifact"`
	// Train tunes estimator training.
	Train TrainConfig `mapstructure:"train"`
}

// ArtifactConfig holds estimator artifact storage settings.
type ArtifactConfig struct {
	// Backend is "file" or "s3".
	Backend string `mapstructure:"backend"`
	// Path is the artifact file for the file backend.
	Path string `mapstructure:"path"`
	// Bucket and Key locate the artifact object for the s3 backend.
	Bucket string `mapstructure:"bucket"`
	Key    string `mapstructure:"key"`
	// Region is the AWS region of the bucket.
	Region string `mapstructure:"region"`
	// Endpoint overrides the S3 endpoint for S3-compatible stores.
	Endpoint string `mapstructure:"endpoint"`
	// AccessKeyID and SecretAccessKey are loaded from BIBLIO_RANKING_ARTIFACT_*
	// env vars only. Empty means the default AWS credential chain.
	AccessKeyID     string `mapstructure:"-"`
	SecretAccessKey string `mapstructure:"-"`
}

// TrainConfig holds estimator training settings.
type TrainConfig struct {
	LabelPercentile  float64 `mapstructure:"label_percentile"`
	LeakageThreshold float64 `mapstructure:"leakage_threshold"`
	Seed             uint64  `mapstructure:"seed"`
	LearningRate     float64 `mapstructure:"learning_rate"`
	Epochs           int     `mapstructure:"epochs"`
	L2               float64 `mapstructure:"l2"`
}

// SchedulerConfig holds the worker's cron schedules. An empty spec
// disables that job.
type SchedulerConfig struct {
	// InboxDir holds per-source subdirectories of files awaiting ingestion.
	InboxDir string `mapstructure:"inbox_dir"`
	// IngestCron schedules the inbox sweep.
	IngestCron string `mapstructure:"ingest_cron"`
	// EnrichCron schedules the placeholder enrichment sweep.
	EnrichCron string `mapstructure:"enrich_cron"`
	// EnrichExport is the OpenAlex NDJSON export used to fill placeholders.
	EnrichExport string `mapstructure:"enrich_export"`
	// MetricsCron schedules the full metrics recomputation.
	MetricsCron string `mapstructure:"metrics_cron"`
	// TrainCron schedules estimator retraining.
	TrainCron string `mapstructure:"train_cron"`
	// LockKey is the PostgreSQL advisory lock key shared by all jobs.
	LockKey int64 `mapstructure:"lock_key"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/bibliometrics-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// These fields use mapstructure:"-" so config files cannot set them.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv(envPrefix + "_DATABASE_PASSWORD")
	cfg.Ranking.Artifact.AccessKeyID = os.Getenv(envPrefix + "_RANKING_ARTIFACT_ACCESS_KEY_ID")
	cfg.Ranking.Artifact.SecretAccessKey = os.Getenv(envPrefix + "_RANKING_ARTIFACT_SECRET_ACCESS_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "biblio")
	v.SetDefault("database.name", "bibliometrics")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Ingestion defaults
	v.SetDefault("ingestion.records_per_second", 0)
	v.SetDefault("ingestion.burst", 100)
	v.SetDefault("ingestion.concurrency", 4)
	v.SetDefault("ingestion.enrich_batch_size", 500)

	// Bibliometrics defaults
	v.SetDefault("bibliometrics.chunk_size", 500)
	v.SetDefault("bibliometrics.pagerank.damping", 0.85)
	v.SetDefault("bibliometrics.pagerank.tolerance", 1e-6)
	v.SetDefault("bibliometrics.pagerank.max_iterations", 100)

	// Ranking defaults
	v.SetDefault("ranking.similarity_weight", 0.7)
	v.SetDefault("ranking.impact_weight", 0.3)
	v.SetDefault("ranking.min_similarity", 0.1)
	v.SetDefault("ranking.default_limit", 10)
	v.SetDefault("ranking.max_limit", 100)
	v.SetDefault("ranking.artifact.backend", ArtifactBackendFile)
	v.SetDefault("ranking.artifact.path", "data/estimator.json")
	v.SetDefault("ranking.artifact.bucket", "")
	v.SetDefault("ranking.artifact.key", "ranking/estimator.json")
	v.SetDefault("ranking.artifact.region", "us-east-1")
	v.SetDefault("ranking.artifact.endpoint", "")
	v.SetDefault("ranking.train.label_percentile", 0.9)
	v.SetDefault("ranking.train.leakage_threshold", 0.95)
	v.SetDefault("ranking.train.seed", 42)
	v.SetDefault("ranking.train.learning_rate", 0.1)
	v.SetDefault("ranking.train.epochs", 500)
	v.SetDefault("ranking.train.l2", 0.01)

	// Scheduler defaults
	v.SetDefault("scheduler.inbox_dir", "data/inbox")
	v.SetDefault("scheduler.ingest_cron", "*/15 * * * *")
	v.SetDefault("scheduler.enrich_cron", "")
	v.SetDefault("scheduler.enrich_export", "")
	v.SetDefault("scheduler.metrics_cron", "0 2 * * *")
	v.SetDefault("scheduler.train_cron", "0 4 * * 0")
	v.SetDefault("scheduler.lock_key", 7_340_112)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Ingestion.RecordsPerSecond < 0 {
		return fmt.Errorf("ingestion records_per_second must not be negative")
	}
	if c.Ingestion.EnrichBatchSize < 1 || c.Ingestion.EnrichBatchSize > 1000 {
		return fmt.Errorf("ingestion enrich_batch_size must be between 1 and 1000")
	}

	if c.Bibliometrics.ChunkSize < 1 {
		return fmt.Errorf("bibliometrics chunk_size must be positive")
	}
	pr := c.Bibliometrics.PageRank
	if pr.Damping <= 0 || pr.Damping >= 1 {
		return fmt.Errorf("pagerank damping must be in (0, 1)")
	}
	if pr.Tolerance <= 0 || pr.MaxIterations < 1 {
		return fmt.Errorf("pagerank tolerance and max_iterations must be positive")
	}

	if err := c.Ranking.validate(); err != nil {
		return err
	}
	return c.Scheduler.validate()
}

func (r *RankingConfig) validate() error {
	if r.SimilarityWeight < 0 || r.ImpactWeight < 0 {
		return fmt.Errorf("ranking weights must not be negative")
	}
	if math.Abs(r.SimilarityWeight+r.ImpactWeight-1) > 1e-9 {
		return fmt.Errorf("ranking weights must sum to 1, got %g", r.SimilarityWeight+r.ImpactWeight)
	}
	if r.MinSimilarity < 0 || r.MinSimilarity > 1 {
		return fmt.Errorf("ranking min_similarity must be between 0 and 1")
	}
	if r.DefaultLimit < 1 || r.MaxLimit < r.DefaultLimit {
		return fmt.Errorf("ranking limits invalid: default %d, max %d", r.DefaultLimit, r.MaxLimit)
	}

	switch r.Artifact.Backend {
	case ArtifactBackendFile:
		if r.Artifact.Path == "" {
			return fmt.Errorf("ranking artifact path is required for the file backend")
		}
	case ArtifactBackendS3:
		if r.Artifact.Bucket == "" || r.Artifact.Key == "" {
			return fmt.Errorf("ranking artifact bucket and key are required for the s3 backend")
		}
	default:
		return fmt.Errorf("invalid ranking artifact backend: %q", r.Artifact.Backend)
	}

	t := r.Train
	if t.LabelPercentile <= 0 || t.LabelPercentile >= 1 {
		return fmt.Errorf("ranking train label_percentile must be in (0, 1)")
	}
	if t.LeakageThreshold <= 0 || t.LeakageThreshold > 1 {
		return fmt.Errorf("ranking train leakage_threshold must be in (0, 1]")
	}
	if t.LearningRate <= 0 || t.Epochs < 1 || t.L2 < 0 {
		return fmt.Errorf("ranking train learning_rate, epochs and l2 are invalid")
	}
	return nil
}

func (s *SchedulerConfig) validate() error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"ingest_cron":  s.IngestCron,
		"enrich_cron":  s.EnrichCron,
		"metrics_cron": s.MetricsCron,
		"train_cron":   s.TrainCron,
	} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid scheduler %s %q: %w", name, spec, err)
		}
	}
	if s.EnrichCron != "" && s.EnrichExport == "" {
		return fmt.Errorf("scheduler enrich_export is required when enrich_cron is set")
	}
	return nil
}
