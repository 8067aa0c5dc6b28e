// Package observability provides logging, metrics, and context support for
// the bibliometrics service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for ingestion, recomputation, ranking and HTTP
//   - Context helpers for propagating request and batch-run identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//
// Batch jobs and HTTP handlers put their identifiers on the context; code
// further down derives its logger with LoggerFromContext:
//
//	ctx = observability.WithJobRun(ctx, "metrics", runID)
//	logger := observability.LoggerFromContext(ctx, baseLogger)
//
// # Metrics
//
//	metrics := observability.NewMetrics("bibliometrics")
//	metrics.RecordRecord("openalex", "inserted")
//
// A nil *Metrics records nothing, which keeps tests free of the global
// Prometheus registry.
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - job, run_id: batch job name and run identifier
//   - source: record source (arxiv, openalex, crossref, semantic_scholar)
//   - paper_id, doi: paper identifiers
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
