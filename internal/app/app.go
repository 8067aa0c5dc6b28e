// Package app wires configuration into the engines shared by the server,
// worker and bibctl binaries.
package app

import (
	"context"
	"fmt"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/bibliometrics-service/internal/bibliometrics"
	"github.com/helixir/bibliometrics-service/internal/config"
	"github.com/helixir/bibliometrics-service/internal/database"
	"github.com/helixir/bibliometrics-service/internal/ingestion"
	"github.com/helixir/bibliometrics-service/internal/observability"
	"github.com/helixir/bibliometrics-service/internal/papersources"
	"github.com/helixir/bibliometrics-service/internal/ranking"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

// MetricsNamespace prefixes every exported Prometheus metric.
const MetricsNamespace = "bibliometrics"

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		AddSource:  cfg.AddSource,
		TimeFormat: cfg.TimeFormat,
	})
}

// Services holds the engines built over one database pool.
type Services struct {
	DB            *database.DB
	Metrics       *observability.Metrics
	Registry      *papersources.Registry
	Ingestion     *ingestion.Runner
	Bibliometrics *bibliometrics.Engine
	Corpus        repository.CorpusReader
	Artifacts     ranking.ArtifactStore
	Trainer       *ranking.Trainer

	cfg    *config.Config
	logger zerolog.Logger
}

// NewServices builds every engine over db. metrics may be nil.
func NewServices(ctx context.Context, cfg *config.Config, db *database.DB, metrics *observability.Metrics, logger zerolog.Logger) (*Services, error) {
	artifacts, err := NewArtifactStore(ctx, cfg.Ranking.Artifact)
	if err != nil {
		return nil, err
	}

	corpus := repository.NewPgCorpusReader(db)
	return &Services{
		DB:        db,
		Metrics:   metrics,
		Registry:  ingestion.DefaultRegistry(),
		Ingestion: ingestion.NewRunner(repository.NewPgTransactor(db), IngestionConfig(cfg.Ingestion), metrics, logger),
		Bibliometrics: bibliometrics.NewEngine(
			repository.NewPgMetricsStore(db),
			BibliometricsConfig(cfg.Bibliometrics),
			logger,
			bibliometrics.WithMetrics(metrics),
		),
		Corpus:    corpus,
		Artifacts: artifacts,
		Trainer:   ranking.NewTrainer(corpus, artifacts, TrainConfig(cfg.Ranking.Train), metrics, logger),
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Logger returns the logger the services were built with.
func (s *Services) Logger() zerolog.Logger {
	return s.logger
}

// NewRankingEngine loads the stored artifact and builds a ranking engine
// over it. A missing or mismatched artifact is returned as an error.
func (s *Services) NewRankingEngine(ctx context.Context) (*ranking.Engine, error) {
	handle, err := ranking.NewArtifactHandle(ctx, s.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("load ranking artifact: %w", err)
	}
	return ranking.NewEngine(s.Corpus, handle, RankingWeights(s.cfg.Ranking), s.Metrics, s.logger)
}

// NewArtifactStore returns the artifact store selected by cfg.Backend.
func NewArtifactStore(ctx context.Context, cfg config.ArtifactConfig) (ranking.ArtifactStore, error) {
	switch cfg.Backend {
	case config.ArtifactBackendFile:
		return ranking.NewFileStore(cfg.Path), nil
	case config.ArtifactBackendS3:
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return ranking.NewS3Store(client, cfg.Bucket, cfg.Key), nil
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}

// newS3Client uses static credentials when both keys are configured and
// the default AWS credential chain otherwise. A custom endpoint switches
// to path-style addressing for S3-compatible stores.
func newS3Client(ctx context.Context, cfg config.ArtifactConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	}), nil
}

// IngestionConfig maps the ingestion section to the runner config.
func IngestionConfig(cfg config.IngestionConfig) ingestion.Config {
	return ingestion.Config{
		RecordsPerSecond: cfg.RecordsPerSecond,
		Burst:            cfg.Burst,
		Concurrency:      cfg.Concurrency,
		EnrichBatchSize:  cfg.EnrichBatchSize,
	}
}

// BibliometricsConfig maps the bibliometrics section to the engine config.
func BibliometricsConfig(cfg config.BibliometricsConfig) bibliometrics.Config {
	return bibliometrics.Config{
		ChunkSize: cfg.ChunkSize,
		PageRank: bibliometrics.PageRankConfig{
			Damping:       cfg.PageRank.Damping,
			Tolerance:     cfg.PageRank.Tolerance,
			MaxIterations: cfg.PageRank.MaxIterations,
		},
	}
}

// RankingWeights maps the ranking section to the blend weights.
func RankingWeights(cfg config.RankingConfig) ranking.Weights {
	return ranking.Weights{
		SimilarityWeight: cfg.SimilarityWeight,
		ImpactWeight:     cfg.ImpactWeight,
		MinSimilarity:    cfg.MinSimilarity,
	}
}

// TrainConfig maps the training section to the trainer config.
func TrainConfig(cfg config.TrainConfig) ranking.TrainConfig {
	return ranking.TrainConfig{
		LabelPercentile:  cfg.LabelPercentile,
		LeakageThreshold: cfg.LeakageThreshold,
		Seed:             cfg.Seed,
		Fit: ranking.FitConfig{
			LearningRate: cfg.LearningRate,
			Epochs:       cfg.Epochs,
			L2:           cfg.L2,
		},
	}
}

// NewMetricsServer returns the Prometheus scrape server on the metrics
// port, or nil when metrics are disabled.
func NewMetricsServer(cfg *config.Config) *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	return &http.Server{
		Addr:         cfg.Server.MetricsAddress(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// NewMetrics returns the process metrics, or nil when metrics are disabled.
func NewMetrics(cfg *config.Config) *observability.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewMetrics(MetricsNamespace)
}
